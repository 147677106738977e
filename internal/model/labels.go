package model

import (
	"fmt"
	"time"

	"github.com/sandeepkv93/tend/internal/clock"
)

func LastSpokeLabel(last *time.Time, now time.Time) string {
	if last == nil {
		return "Never"
	}
	return FormatDistance(*last, now)
}

func DueLabel(d Due, now time.Time) string {
	if !d.HasHistory {
		return "Any time"
	}
	return FormatDistance(d.DueAt, now)
}

// FormatDistance renders the whole-day distance between at and now, e.g.
// "Today", "3 days ago", "in 2 weeks".
func FormatDistance(at, now time.Time) string {
	days := int(now.Sub(at) / clock.Day)
	if days == 0 {
		return "Today"
	}
	n := days
	if n < 0 {
		n = -n
	}
	var amount string
	switch {
	case n == 1:
		amount = "1 day"
	case n < 14:
		amount = fmt.Sprintf("%d days", n)
	case n < 60:
		amount = fmt.Sprintf("%d weeks", n/7)
	default:
		amount = fmt.Sprintf("%d months", n/30)
	}
	if days < 0 {
		return "in " + amount
	}
	return amount + " ago"
}
