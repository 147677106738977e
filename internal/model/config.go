package model

import (
	"errors"
	"fmt"

	"github.com/sandeepkv93/tend/internal/clock"
)

var ErrInvalidLeadDays = errors.New("model: invalid event lead days")

type AppConfig struct {
	DefaultCadenceInnerDays       int
	DefaultCadenceMidDays         int
	DefaultCadenceOuterDays       int
	FuzzyRemindersEnabled         bool
	ShouldKeepRemindersPersistent bool
	ReminderNotificationTime      string
	ContactEventsReminderDays     int
	AutomaticLogging              bool
}

func DefaultAppConfig() AppConfig {
	return AppConfig{
		DefaultCadenceInnerDays:       14,
		DefaultCadenceMidDays:         30,
		DefaultCadenceOuterDays:       90,
		FuzzyRemindersEnabled:         true,
		ShouldKeepRemindersPersistent: true,
		ReminderNotificationTime:      "10:00",
		ContactEventsReminderDays:     7,
		AutomaticLogging:              false,
	}
}

// CadenceFor returns the configured default for a circle. Unknown circles
// use the mid default.
func (c AppConfig) CadenceFor(circle Circle) int {
	switch circle {
	case CircleInner:
		return c.DefaultCadenceInnerDays
	case CircleOuter:
		return c.DefaultCadenceOuterDays
	default:
		return c.DefaultCadenceMidDays
	}
}

// ReminderTime resolves the stored HH:MM leniently, falling back to 10:00.
func (c AppConfig) ReminderTime() clock.TimeOfDay {
	return clock.ResolveTimeOfDay(c.ReminderNotificationTime)
}

type AppConfigPatch struct {
	DefaultCadenceInnerDays       *int
	DefaultCadenceMidDays         *int
	DefaultCadenceOuterDays       *int
	FuzzyRemindersEnabled         *bool
	ShouldKeepRemindersPersistent *bool
	ReminderNotificationTime      *string
	ContactEventsReminderDays     *int
	AutomaticLogging              *bool
}

func (p AppConfigPatch) Validate() error {
	for _, v := range []*int{p.DefaultCadenceInnerDays, p.DefaultCadenceMidDays, p.DefaultCadenceOuterDays} {
		if v != nil && *v < 1 {
			return fmt.Errorf("%w: %d", ErrInvalidCadence, *v)
		}
	}
	if p.ContactEventsReminderDays != nil && *p.ContactEventsReminderDays < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidLeadDays, *p.ContactEventsReminderDays)
	}
	if p.ReminderNotificationTime != nil {
		if _, err := clock.ParseTimeOfDay(*p.ReminderNotificationTime); err != nil {
			return err
		}
	}
	return nil
}

// Merge overlays the set fields of p onto base.
func (p AppConfigPatch) Merge(base AppConfig) AppConfig {
	out := base
	if p.DefaultCadenceInnerDays != nil {
		out.DefaultCadenceInnerDays = *p.DefaultCadenceInnerDays
	}
	if p.DefaultCadenceMidDays != nil {
		out.DefaultCadenceMidDays = *p.DefaultCadenceMidDays
	}
	if p.DefaultCadenceOuterDays != nil {
		out.DefaultCadenceOuterDays = *p.DefaultCadenceOuterDays
	}
	if p.FuzzyRemindersEnabled != nil {
		out.FuzzyRemindersEnabled = *p.FuzzyRemindersEnabled
	}
	if p.ShouldKeepRemindersPersistent != nil {
		out.ShouldKeepRemindersPersistent = *p.ShouldKeepRemindersPersistent
	}
	if p.ReminderNotificationTime != nil {
		out.ReminderNotificationTime = *p.ReminderNotificationTime
	}
	if p.ContactEventsReminderDays != nil {
		out.ContactEventsReminderDays = *p.ContactEventsReminderDays
	}
	if p.AutomaticLogging != nil {
		out.AutomaticLogging = *p.AutomaticLogging
	}
	return out
}

func (p AppConfigPatch) IsEmpty() bool {
	return p == AppConfigPatch{}
}
