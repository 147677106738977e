// Package garden projects contacts and their latest interaction into the
// ranked rows shown by the garden and up-next views.
package garden

import (
	"sort"
	"strings"
	"time"

	"github.com/sandeepkv93/tend/internal/clock"
	"github.com/sandeepkv93/tend/internal/model"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Snapshot is a contact together with the instant of its most recent log.
type Snapshot struct {
	Contact     model.Contact
	LastSpokeAt *time.Time
}

type Row struct {
	Contact     model.Contact
	LastSpokeAt *time.Time
	CadenceDays int
	model.Due
}

type Buckets struct {
	NeedsWater []Row
	Today      []Row
	ThisWeek   []Row
	Later      []Row
}

// Project computes a row per snapshot as of now. Input order is preserved.
func Project(snaps []Snapshot, cfg model.AppConfig, now time.Time) []Row {
	out := make([]Row, 0, len(snaps))
	for _, s := range snaps {
		cadence := model.EffectiveCadenceDays(s.Contact, cfg)
		out = append(out, Row{
			Contact:     s.Contact,
			LastSpokeAt: s.LastSpokeAt,
			CadenceDays: cadence,
			Due:         model.ComputeDue(s.LastSpokeAt, cadence, cfg.FuzzyRemindersEnabled, now),
		})
	}
	return out
}

// Filter keeps snapshots whose full name or nickname contains query,
// case-insensitively. A blank query keeps everything.
func Filter(snaps []Snapshot, query string) []Snapshot {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return snaps
	}
	out := make([]Snapshot, 0, len(snaps))
	for _, s := range snaps {
		if strings.Contains(strings.ToLower(s.Contact.FullName), q) ||
			strings.Contains(strings.ToLower(s.Contact.NickName), q) {
			out = append(out, s)
		}
	}
	return out
}

// Garden orders by circle precedence then full name.
func Garden(snaps []Snapshot, cfg model.AppConfig, now time.Time, query string) []Row {
	rows := Project(Filter(snaps, query), cfg, now)
	SortGarden(rows)
	return rows
}

// UpNext orders by overdue seconds, most overdue first, then full name.
func UpNext(snaps []Snapshot, cfg model.AppConfig, now time.Time) []Row {
	rows := Project(snaps, cfg, now)
	SortUpNext(rows)
	return rows
}

// Overdue returns the up-next rows whose due instant is strictly before asOf.
func Overdue(snaps []Snapshot, cfg model.AppConfig, asOf time.Time) []Row {
	rows := UpNext(snaps, cfg, asOf)
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if r.DueAt.Before(asOf) {
			out = append(out, r)
		}
	}
	return out
}

func SortGarden(rows []Row) {
	names := newNameOrder()
	sort.SliceStable(rows, func(i, j int) bool {
		ci, cj := rows[i].Contact.Circle.Order(), rows[j].Contact.Circle.Order()
		if ci != cj {
			return ci < cj
		}
		return names.less(rows[i], rows[j])
	})
}

func SortUpNext(rows []Row) {
	names := newNameOrder()
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].OverdueSeconds != rows[j].OverdueSeconds {
			return rows[i].OverdueSeconds > rows[j].OverdueSeconds
		}
		return names.less(rows[i], rows[j])
	})
}

// Partition splits up-next rows into exclusive buckets evaluated in order:
// overdue, due within a day, due within a week. Everything else is Later.
func Partition(rows []Row, now time.Time) Buckets {
	dayEnd := now.Add(clock.Day)
	weekEnd := now.Add(7 * clock.Day)
	var b Buckets
	for _, r := range rows {
		switch {
		case r.OverdueSeconds > 0:
			b.NeedsWater = append(b.NeedsWater, r)
		case !r.DueAt.After(dayEnd):
			b.Today = append(b.Today, r)
		case !r.DueAt.After(weekEnd):
			b.ThisWeek = append(b.ThisWeek, r)
		default:
			b.Later = append(b.Later, r)
		}
	}
	return b
}

// nameOrder wraps a collator; collate.Collator is not safe for concurrent
// use so one is built per sort.
type nameOrder struct {
	c *collate.Collator
}

func newNameOrder() nameOrder {
	return nameOrder{c: collate.New(language.Und)}
}

func (n nameOrder) less(a, b Row) bool {
	if cmp := n.c.CompareString(a.Contact.FullName, b.Contact.FullName); cmp != 0 {
		return cmp < 0
	}
	return a.Contact.SystemID < b.Contact.SystemID
}
