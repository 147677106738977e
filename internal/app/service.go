// Package app wires the store, the planner and the contacts source behind
// the operations the CLI and terminal UI use.
package app

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sandeepkv93/tend/internal/clock"
	"github.com/sandeepkv93/tend/internal/contacts"
	"github.com/sandeepkv93/tend/internal/garden"
	"github.com/sandeepkv93/tend/internal/model"
	"github.com/sandeepkv93/tend/internal/planner"
	"github.com/sandeepkv93/tend/internal/storage"
)

// ProfileLogLimit is how many recent interactions a profile shows.
const ProfileLogLimit = 31

// Replanner is the planner surface the service triggers.
type Replanner interface {
	Replan(ctx context.Context, req planner.Request) error
	Enqueue(req planner.Request) error
}

type Service struct {
	store    storage.Repository
	planner  Replanner
	importer *contacts.Importer
	clock    clock.Clock
	log      logrus.FieldLogger
}

type Options struct {
	Store   storage.Repository
	Planner Replanner
	Source  contacts.Source
	Clock   clock.Clock
	Log     logrus.FieldLogger
}

func NewService(opts Options) *Service {
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}
	s := &Service{
		store:   opts.Store,
		planner: opts.Planner,
		clock:   opts.Clock,
		log:     opts.Log.WithField("component", "app"),
	}
	if opts.Source != nil {
		s.importer = &contacts.Importer{
			Source: opts.Source,
			Store:  opts.Store,
			Log:    s.log,
			AfterImport: func(context.Context) error {
				s.trigger(planner.Request{Reason: planner.ReasonDataChange, ForceSync: true})
				return nil
			},
		}
	}
	return s
}

func (s *Service) Now() time.Time {
	return s.clock.Now()
}

func (s *Service) Config(ctx context.Context) (model.AppConfig, error) {
	return s.store.GetConfig(ctx)
}

// UpdateConfig persists patch and replans with the new settings.
func (s *Service) UpdateConfig(ctx context.Context, patch model.AppConfigPatch) (model.AppConfig, error) {
	cfg, err := s.store.UpdateConfig(ctx, patch)
	if err != nil {
		return model.AppConfig{}, err
	}
	s.trigger(planner.Request{Reason: planner.ReasonConfigChange})
	return cfg, nil
}

func (s *Service) Garden(ctx context.Context, query string) ([]garden.Row, error) {
	return s.store.GetGardenContacts(ctx, query)
}

func (s *Service) UpNext(ctx context.Context) ([]garden.Row, error) {
	return s.store.GetUpNextContacts(ctx)
}

// Buckets partitions the up-next list as of now.
func (s *Service) Buckets(ctx context.Context) (garden.Buckets, error) {
	rows, err := s.store.GetUpNextContacts(ctx)
	if err != nil {
		return garden.Buckets{}, err
	}
	return garden.Partition(rows, s.clock.Now()), nil
}

func (s *Service) UpcomingEvents(ctx context.Context) ([]model.UpcomingEvent, error) {
	cfg, err := s.store.GetConfig(ctx)
	if err != nil {
		return nil, err
	}
	return s.store.GetUpcomingContactEvents(ctx, cfg.ContactEventsReminderDays, s.clock.Now())
}

func (s *Service) LogInteraction(ctx context.Context, in model.LogInput) (model.ContactLog, error) {
	entry, err := s.store.InsertContactLog(ctx, in)
	if err != nil {
		return model.ContactLog{}, err
	}
	s.log.WithFields(logrus.Fields{"contact": in.ContactSystemID, "was_overdue": entry.WasOverdue}).Info("interaction logged")
	s.trigger(planner.Request{Reason: planner.ReasonDataChange})
	return entry, nil
}

func (s *Service) AddContact(ctx context.Context, c model.Contact) error {
	if err := s.store.UpsertContact(ctx, c); err != nil {
		return err
	}
	s.trigger(planner.Request{Reason: planner.ReasonDataChange})
	return nil
}

func (s *Service) UpdateContact(ctx context.Context, id string, patch model.ContactPatch) (model.Contact, error) {
	c, err := s.store.UpdateContactFields(ctx, id, patch)
	if err != nil {
		return model.Contact{}, err
	}
	if !patch.IsEmpty() {
		s.trigger(planner.Request{Reason: planner.ReasonDataChange})
	}
	return c, nil
}

func (s *Service) DeleteContact(ctx context.Context, id string) error {
	if err := s.store.DeleteContact(ctx, id); err != nil {
		return err
	}
	s.trigger(planner.Request{Reason: planner.ReasonDataChange})
	return nil
}

// ImportCandidates lists device contacts that can be imported.
func (s *Service) ImportCandidates(ctx context.Context, query string) ([]contacts.Candidate, error) {
	if s.importer == nil {
		return []contacts.Candidate{}, nil
	}
	return s.importer.Candidates(ctx, query)
}

// Import stores device contacts and replans with a forced event sync.
func (s *Service) Import(ctx context.Context, ids []string, circle model.Circle) (int, error) {
	if s.importer == nil {
		return 0, contacts.ErrPermissionDenied
	}
	return s.importer.Import(ctx, ids, circle)
}

// Replan runs a pass and waits for it.
func (s *Service) Replan(ctx context.Context, req planner.Request) error {
	if s.planner == nil {
		return planner.ErrNotStarted
	}
	return s.planner.Replan(ctx, req)
}

func (s *Service) trigger(req planner.Request) {
	if s.planner == nil {
		return
	}
	if err := s.planner.Enqueue(req); err != nil {
		s.log.WithError(err).WithField("reason", string(req.Reason)).Debug("replan not queued")
	}
}
