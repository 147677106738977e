package contacts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sandeepkv93/tend/internal/clock"
	"github.com/sandeepkv93/tend/internal/model"
	"github.com/sandeepkv93/tend/internal/storage"
)

// Store is the persistence surface the syncer and importer need.
type Store interface {
	GetAllContacts(ctx context.Context) ([]model.Contact, error)
	GetContactsBySystemIDs(ctx context.Context, ids []string) ([]model.Contact, error)
	UpsertContact(ctx context.Context, in model.Contact) error
	ReplaceContactEventsForContact(ctx context.Context, id string, events []model.EventInput) error
	GetNotificationState(ctx context.Context, key string) (string, bool, error)
	SetNotificationState(ctx context.Context, key, value string) error
}

type SyncResult struct {
	Ran      bool
	Contacts int
	Events   int
	Failed   int
}

// EventSyncer refreshes stored contact events from the device source at most
// once per local calendar day.
type EventSyncer struct {
	source Source
	store  Store
	clock  clock.Clock
	log    logrus.FieldLogger
}

func NewEventSyncer(source Source, store Store, c clock.Clock, log logrus.FieldLogger) *EventSyncer {
	if c == nil {
		c = clock.Real{}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &EventSyncer{source: source, store: store, clock: c, log: log.WithField("component", "event_sync")}
}

// SyncIfDue runs the sync when forced or when it has not yet run today. A
// permission denial skips the sync without recording the gate so the next
// trigger tries again.
func (s *EventSyncer) SyncIfDue(ctx context.Context, force bool) (SyncResult, error) {
	today := clock.LocalDateKey(s.clock.Now())
	if !force {
		last, ok, err := s.store.GetNotificationState(ctx, storage.StateLastEventSyncDate)
		if err != nil {
			return SyncResult{}, fmt.Errorf("read sync gate: %w", err)
		}
		if ok && last == today {
			return SyncResult{}, nil
		}
	}

	stored, err := s.store.GetAllContacts(ctx)
	if err != nil {
		return SyncResult{}, fmt.Errorf("list stored contacts: %w", err)
	}

	res := SyncResult{Ran: true}
	for _, c := range stored {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		device, err := s.source.GetContactEvents(ctx, c.SystemID)
		if errors.Is(err, ErrPermissionDenied) {
			s.log.WithError(err).Info("contacts permission denied, skipping event sync")
			return SyncResult{}, nil
		}
		if err != nil {
			res.Failed++
			s.log.WithError(err).WithField("contact", c.SystemID).Warn("read device events failed")
			continue
		}
		events := EventsFromDevice(device)
		if err := s.store.ReplaceContactEventsForContact(ctx, c.SystemID, events); err != nil {
			res.Failed++
			s.log.WithError(err).WithField("contact", c.SystemID).Warn("replace contact events failed")
			continue
		}
		res.Contacts++
		res.Events += len(events)
	}

	if err := s.store.SetNotificationState(ctx, storage.StateLastEventSyncDate, today); err != nil {
		return res, fmt.Errorf("record sync gate: %w", err)
	}
	s.log.WithFields(logrus.Fields{
		"date":     today,
		"contacts": res.Contacts,
		"events":   res.Events,
		"failed":   res.Failed,
	}).Info("contact events synced")
	return res, nil
}

// EventsFromDevice maps device dates onto stored events. Dates with an out
// of range month or day are dropped.
func EventsFromDevice(device DeviceEvents) []model.EventInput {
	out := make([]model.EventInput, 0, len(device.Dates)+1)
	if b := device.Birthday; b != nil && validMonthDay(b.Month, b.Day) {
		out = append(out, model.EventInput{
			SourceEventID: "birthday",
			Type:          model.EventTypeBirthday,
			Label:         "Birthday",
			Month:         b.Month,
			Day:           b.Day,
			Year:          b.Year,
		})
	}
	seen := make(map[string]bool, len(device.Dates))
	for i, d := range device.Dates {
		if !validMonthDay(d.Month, d.Day) {
			continue
		}
		id := strings.TrimSpace(d.ID)
		if id == "" {
			id = fallbackEventID(d, i)
		}
		if seen[id] {
			continue
		}
		seen[id] = true

		kind := model.EventTypeCustom
		if strings.Contains(strings.ToLower(d.Label), "anniversary") {
			kind = model.EventTypeAnniversary
		}
		out = append(out, model.EventInput{
			SourceEventID: id,
			Type:          kind,
			Label:         strings.TrimSpace(d.Label),
			Month:         d.Month,
			Day:           d.Day,
			Year:          d.Year,
		})
	}
	return out
}

func fallbackEventID(d DeviceDate, index int) string {
	label := strings.TrimSpace(d.Label)
	if label == "" {
		label = "event"
	}
	year := "none"
	if d.Year != nil {
		year = fmt.Sprintf("%d", *d.Year)
	}
	return fmt.Sprintf("date-%s-%d-%d-%s-%d", label, d.Month, d.Day, year, index)
}

func validMonthDay(month, day int) bool {
	if month < 1 || month > 12 || day < 1 {
		return false
	}
	// leap year so that Feb 29 is accepted
	last := time.Date(2000, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
	return day <= last
}
