package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sandeepkv93/tend/internal/clock"
)

var ErrInvalidEventType = errors.New("model: invalid event type")

type EventType string

const (
	EventTypeBirthday    EventType = "birthday"
	EventTypeAnniversary EventType = "anniversary"
	EventTypeCustom      EventType = "custom"
)

func (e EventType) IsValid() bool {
	switch e {
	case EventTypeBirthday, EventTypeAnniversary, EventTypeCustom:
		return true
	default:
		return false
	}
}

// occurrenceHour is the local hour at which a recurring event is anchored.
const occurrenceHour = 9

type ContactEvent struct {
	ID               int64
	ContactSystemID  string
	SourceEventID    string
	Type             EventType
	Label            string
	Month            int
	Day              int
	Year             *int
	NextOccurrenceAt time.Time
	IsActive         bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// DisplayLabel falls back to a type based label when none was provided.
func (e ContactEvent) DisplayLabel() string {
	if label := strings.TrimSpace(e.Label); label != "" {
		return label
	}
	if e.Type == EventTypeBirthday {
		return "Birthday"
	}
	return "Event"
}

// EventInput is one event as produced by a contacts sync, before the next
// occurrence has been resolved.
type EventInput struct {
	SourceEventID string
	Type          EventType
	Label         string
	Month         int
	Day           int
	Year          *int
}

func (in EventInput) Validate() error {
	if strings.TrimSpace(in.SourceEventID) == "" {
		return errors.New("model: event source_event_id is required")
	}
	if !in.Type.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidEventType, in.Type)
	}
	if in.Month < 1 || in.Month > 12 || in.Day < 1 || in.Day > 31 {
		return fmt.Errorf("model: invalid event date %02d-%02d", in.Month, in.Day)
	}
	return nil
}

// UpcomingEvent is an event joined with the owning contact's names.
type UpcomingEvent struct {
	Event    ContactEvent
	FullName string
	NickName string
}

func (u UpcomingEvent) DisplayName() string {
	return Contact{FullName: u.FullName, NickName: u.NickName}.DisplayName()
}

// NextOccurrence resolves the next 09:00 local occurrence of month/day at or
// after ref. Out of range inputs are clamped and days past the end of the
// month resolve to the month's last day.
func NextOccurrence(month, day int, ref time.Time) time.Time {
	month = clampInt(month, 1, 12)
	day = clampInt(day, 1, 31)
	candidate := occurrenceIn(ref.Year(), month, day, ref.Location())
	if candidate.Before(ref) {
		candidate = occurrenceIn(ref.Year()+1, month, day, ref.Location())
	}
	return candidate
}

func occurrenceIn(year, month, day int, loc *time.Location) time.Time {
	t := time.Date(year, time.Month(month), day, occurrenceHour, 0, 0, 0, loc)
	if int(t.Month()) != month {
		// day 0 of the following month is the last day of this one
		t = time.Date(year, time.Month(month)+1, 0, occurrenceHour, 0, 0, 0, loc)
	}
	return t
}

// UpcomingWithin returns the active events whose next occurrence falls in
// [asOf, asOf+leadDays], ordered by occurrence.
func UpcomingWithin(events []UpcomingEvent, leadDays int, asOf time.Time) []UpcomingEvent {
	if leadDays < 0 {
		leadDays = 0
	}
	end := asOf.Add(time.Duration(leadDays) * clock.Day)
	out := make([]UpcomingEvent, 0)
	for _, ev := range events {
		if !ev.Event.IsActive {
			continue
		}
		at := ev.Event.NextOccurrenceAt
		if at.Before(asOf) || at.After(end) {
			continue
		}
		out = append(out, ev)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Event.NextOccurrenceAt.Before(out[j].Event.NextOccurrenceAt)
	})
	return out
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
