package model

import (
	"time"

	"github.com/sandeepkv93/tend/internal/clock"
)

// fuzzyGracePerCadenceDay is 30% of a day, kept in integer seconds so the
// grace window is exact.
const fuzzyGracePerCadenceDay = 25920 * time.Second

// neverLoggedBase is the base due instant for contacts without history; it
// ranks them as maximally overdue.
var neverLoggedBase = time.Unix(0, 0).UTC()

// EffectiveCadenceDays returns the contact override when set, otherwise the
// circle default from cfg.
func EffectiveCadenceDays(c Contact, cfg AppConfig) int {
	if c.CustomReminderDays != nil {
		return *c.CustomReminderDays
	}
	return cfg.CadenceFor(c.Circle)
}

// FuzzyGrace is the extra tolerance added to the due instant when fuzzy
// reminders are enabled.
func FuzzyGrace(cadenceDays int, enabled bool) time.Duration {
	if !enabled || cadenceDays <= 0 {
		return 0
	}
	return time.Duration(cadenceDays) * fuzzyGracePerCadenceDay
}

type Due struct {
	DueAt          time.Time
	OverdueSeconds int64
	IsOverdue      bool
	// HasHistory is false for contacts that were never logged; DueAt is then
	// derived from the epoch and is only meaningful for ranking.
	HasHistory bool
}

// ComputeDue derives the due instant and overdue duration. It must be called
// on every read since now is a free variable.
func ComputeDue(last *time.Time, cadenceDays int, fuzzy bool, now time.Time) Due {
	base := neverLoggedBase
	if last != nil {
		base = last.Add(time.Duration(cadenceDays) * clock.Day)
	}
	due := base.Add(FuzzyGrace(cadenceDays, fuzzy))
	overdue := floorSeconds(now.Sub(due))
	return Due{
		DueAt:          due,
		OverdueSeconds: overdue,
		IsOverdue:      overdue > 0,
		HasHistory:     last != nil,
	}
}

// WasOverdueAt reports whether an interaction at createdAt happened after the
// contact's due instant computed from the previous interaction. The first
// ever interaction is never overdue.
func WasOverdueAt(previous *time.Time, cadenceDays int, fuzzy bool, createdAt time.Time) bool {
	if previous == nil {
		return false
	}
	due := previous.Add(time.Duration(cadenceDays)*clock.Day + FuzzyGrace(cadenceDays, fuzzy))
	return createdAt.After(due)
}

// ComputeStreak counts the most recent consecutive on-time logs. logs must be
// ordered newest first.
func ComputeStreak(logs []ContactLog) int {
	streak := 0
	for _, l := range logs {
		if l.WasOverdue {
			break
		}
		streak++
	}
	return streak
}

func floorSeconds(d time.Duration) int64 {
	s := int64(d / time.Second)
	if d%time.Second < 0 {
		s--
	}
	return s
}
