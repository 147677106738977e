package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextOccurrence(t *testing.T) {
	ref := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		month int
		day   int
		want  time.Time
	}{
		{"later this year", 12, 31, time.Date(2026, 12, 31, 9, 0, 0, 0, time.UTC)},
		{"earlier this year rolls over", 1, 1, time.Date(2027, 1, 1, 9, 0, 0, 0, time.UTC)},
		{"same day after anchor rolls over", 6, 15, time.Date(2027, 6, 15, 9, 0, 0, 0, time.UTC)},
		{"feb 30 clamps to last day", 2, 30, time.Date(2027, 2, 28, 9, 0, 0, 0, time.UTC)},
		{"feb 29 clamps in common year", 2, 29, time.Date(2027, 2, 28, 9, 0, 0, 0, time.UTC)},
		{"month clamp high", 13, 1, time.Date(2026, 12, 1, 9, 0, 0, 0, time.UTC)},
		{"day clamp low", 7, 0, time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextOccurrence(tt.month, tt.day, ref))
		})
	}
}

func TestNextOccurrenceSameDayBeforeAnchor(t *testing.T) {
	ref := time.Date(2026, 6, 15, 8, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 6, 15, 9, 0, 0, 0, time.UTC), NextOccurrence(6, 15, ref))

	exact := time.Date(2026, 6, 15, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, exact, NextOccurrence(6, 15, exact))
}

func TestNextOccurrenceLeapYear(t *testing.T) {
	ref := time.Date(2028, 1, 10, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2028, 2, 29, 9, 0, 0, 0, time.UTC), NextOccurrence(2, 29, ref))
	assert.Equal(t, time.Date(2028, 4, 30, 9, 0, 0, 0, time.UTC), NextOccurrence(4, 31, ref))
}

func TestNextOccurrenceNeverInThePast(t *testing.T) {
	refs := []time.Time{
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 2, 28, 23, 59, 0, 0, time.UTC),
		time.Date(2027, 12, 31, 9, 0, 1, 0, time.UTC),
		time.Date(2028, 2, 29, 10, 0, 0, 0, time.UTC),
	}
	for _, ref := range refs {
		for month := 0; month <= 13; month++ {
			for day := 0; day <= 32; day++ {
				got := NextOccurrence(month, day, ref)
				require.False(t, got.Before(ref), "month=%d day=%d ref=%s got=%s", month, day, ref, got)
				require.Equal(t, 9, got.Hour())
			}
		}
	}
}

func TestUpcomingWithin(t *testing.T) {
	asOf := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	events := []UpcomingEvent{
		{Event: ContactEvent{SourceEventID: "late", NextOccurrenceAt: asOf.AddDate(0, 0, 8), IsActive: true}},
		{Event: ContactEvent{SourceEventID: "edge", NextOccurrenceAt: asOf.AddDate(0, 0, 7), IsActive: true}},
		{Event: ContactEvent{SourceEventID: "soon", NextOccurrenceAt: asOf.Add(time.Hour), IsActive: true}},
		{Event: ContactEvent{SourceEventID: "past", NextOccurrenceAt: asOf.Add(-time.Hour), IsActive: true}},
		{Event: ContactEvent{SourceEventID: "inactive", NextOccurrenceAt: asOf.Add(2 * time.Hour), IsActive: false}},
	}

	got := UpcomingWithin(events, 7, asOf)
	require.Len(t, got, 2)
	assert.Equal(t, "soon", got[0].Event.SourceEventID)
	assert.Equal(t, "edge", got[1].Event.SourceEventID)

	assert.Empty(t, UpcomingWithin(events, -3, asOf.Add(3*time.Hour)))
}

func TestEventDisplayLabel(t *testing.T) {
	assert.Equal(t, "Birthday", ContactEvent{Type: EventTypeBirthday}.DisplayLabel())
	assert.Equal(t, "Event", ContactEvent{Type: EventTypeCustom, Label: "  "}.DisplayLabel())
	assert.Equal(t, "Wedding anniversary", ContactEvent{Type: EventTypeAnniversary, Label: "Wedding anniversary"}.DisplayLabel())
}

func TestEventInputValidate(t *testing.T) {
	ok := EventInput{SourceEventID: "birthday", Type: EventTypeBirthday, Month: 2, Day: 29}
	require.NoError(t, ok.Validate())

	bad := ok
	bad.Type = "party"
	assert.ErrorIs(t, bad.Validate(), ErrInvalidEventType)

	bad = ok
	bad.Month = 13
	assert.Error(t, bad.Validate())

	bad = ok
	bad.SourceEventID = ""
	assert.Error(t, bad.Validate())
}
