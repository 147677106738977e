// Package clock holds the time helpers shared by the due calculator, the
// projector and the notification planner.
package clock

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Day is the fixed length used for all cadence and window arithmetic.
// Calendar-aware DST adjustment is intentionally not applied.
const Day = 24 * time.Hour

const DateKeyLayout = "2006-01-02"

var ErrInvalidTimeOfDay = errors.New("clock: invalid time of day")

// Clock abstracts time.Now so projections and planning passes can be run
// against a fixed instant.
type Clock interface {
	Now() time.Time
}

type Real struct{}

func (Real) Now() time.Time {
	return time.Now()
}

type Fixed struct {
	At time.Time
}

func (f Fixed) Now() time.Time {
	return f.At
}

// LocalDateKey formats t as YYYY-MM-DD in t's own location.
func LocalDateKey(t time.Time) string {
	return t.Format(DateKeyLayout)
}

type TimeOfDay struct {
	Hour   int
	Minute int
}

var DefaultReminderTime = TimeOfDay{Hour: 10, Minute: 0}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

func (t TimeOfDay) Minutes() int {
	return t.Hour*60 + t.Minute
}

// On returns the instant at this time of day on t's local calendar date.
func (t TimeOfDay) On(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, t.Hour, t.Minute, 0, 0, day.Location())
}

// ParseTimeOfDay strictly parses H:MM or HH:MM.
func ParseTimeOfDay(raw string) (TimeOfDay, error) {
	h, m, ok := splitTimeOfDay(raw)
	if !ok || h < 0 || h > 23 || m < 0 || m > 59 {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, raw)
	}
	return TimeOfDay{Hour: h, Minute: m}, nil
}

// ResolveTimeOfDay is the lenient reader used for stored values: out of range
// parts are clamped and anything unparseable falls back to 10:00.
func ResolveTimeOfDay(raw string) TimeOfDay {
	h, m, ok := splitTimeOfDay(raw)
	if !ok {
		return DefaultReminderTime
	}
	return TimeOfDay{Hour: clamp(h, 0, 23), Minute: clamp(m, 0, 59)}
}

func splitTimeOfDay(raw string) (int, int, bool) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) != 2 || len(parts[0]) == 0 || len(parts[0]) > 2 || len(parts[1]) != 2 {
		return 0, 0, false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, false
	}
	return h, m, true
}

// Target is one reminder slot: the calendar day it belongs to and the
// instant it fires.
type Target struct {
	Date string
	At   time.Time
}

// ReminderTargets returns one target per calendar day for the next n days
// anchored at tod. The window starts today unless now is already past
// today's reminder time. Instants after the first are spaced by a fixed Day,
// so they drift by the DST offset across a transition; Date always advances
// one calendar day per target.
func ReminderTargets(now time.Time, tod TimeOfDay, n int) []Target {
	if n <= 0 {
		return nil
	}
	first := tod.On(now)
	offset := 0
	if now.After(first) {
		first = first.Add(Day)
		offset = 1
	}
	y, m, d := now.Date()
	noon := time.Date(y, m, d, 12, 0, 0, 0, now.Location())
	out := make([]Target, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, Target{
			Date: LocalDateKey(noon.AddDate(0, 0, offset+i)),
			At:   first.Add(time.Duration(i) * Day),
		})
	}
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
