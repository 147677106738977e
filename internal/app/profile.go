package app

import (
	"context"
	"time"

	"github.com/sandeepkv93/tend/internal/model"
)

type Profile struct {
	Contact     model.Contact
	CadenceDays int
	Logs        []model.ContactLog
	LastSpokeAt *time.Time
	// Due ignores the fuzzy grace window; it is what the user is shown.
	Due            model.Due
	Streak         int
	Events         []model.ContactEvent
	LastSpokeLabel string
	DueLabel       string
}

func (s *Service) Profile(ctx context.Context, id string) (Profile, error) {
	c, err := s.store.GetContact(ctx, id)
	if err != nil {
		return Profile{}, err
	}
	cfg, err := s.store.GetConfig(ctx)
	if err != nil {
		return Profile{}, err
	}
	logs, err := s.store.GetLatestLogsByContact(ctx, id, ProfileLogLimit)
	if err != nil {
		return Profile{}, err
	}
	events, err := s.store.GetContactEvents(ctx, id)
	if err != nil {
		return Profile{}, err
	}
	return BuildProfile(c, cfg, logs, events, s.clock.Now()), nil
}

// BuildProfile assembles a profile from logs ordered newest first.
func BuildProfile(c model.Contact, cfg model.AppConfig, logs []model.ContactLog, events []model.ContactEvent, now time.Time) Profile {
	var last *time.Time
	if len(logs) > 0 {
		at := logs[0].CreatedAt
		last = &at
	}
	cadence := model.EffectiveCadenceDays(c, cfg)
	due := model.ComputeDue(last, cadence, false, now)
	return Profile{
		Contact:        c,
		CadenceDays:    cadence,
		Logs:           logs,
		LastSpokeAt:    last,
		Due:            due,
		Streak:         model.ComputeStreak(logs),
		Events:         events,
		LastSpokeLabel: model.LastSpokeLabel(last, now),
		DueLabel:       model.DueLabel(due, now),
	}
}
