package storage

import (
	"context"
	"errors"
	"time"

	"github.com/sandeepkv93/tend/internal/garden"
	"github.com/sandeepkv93/tend/internal/model"
)

var ErrNotFound = errors.New("storage: not found")

// StateLastEventSyncDate gates the device contact event sync to once per
// local day.
const StateLastEventSyncDate = "last_event_sync_local_date"

type Repository interface {
	GetConfig(ctx context.Context) (model.AppConfig, error)
	UpdateConfig(ctx context.Context, patch model.AppConfigPatch) (model.AppConfig, error)

	UpsertContact(ctx context.Context, in model.Contact) error
	UpdateContactFields(ctx context.Context, id string, patch model.ContactPatch) (model.Contact, error)
	DeleteContact(ctx context.Context, id string) error
	GetContact(ctx context.Context, id string) (model.Contact, error)
	GetAllContacts(ctx context.Context) ([]model.Contact, error)
	GetContactsBySystemIDs(ctx context.Context, ids []string) ([]model.Contact, error)
	ListContactSnapshots(ctx context.Context) ([]garden.Snapshot, error)

	GetLatestLogsByContact(ctx context.Context, id string, limit int) ([]model.ContactLog, error)
	InsertContactLog(ctx context.Context, in model.LogInput) (model.ContactLog, error)

	GetGardenContacts(ctx context.Context, query string) ([]garden.Row, error)
	GetUpNextContacts(ctx context.Context) ([]garden.Row, error)
	GetOverdueContacts(ctx context.Context, asOf time.Time) ([]garden.Row, error)

	GetContactEvents(ctx context.Context, id string) ([]model.ContactEvent, error)
	GetActiveContactEvents(ctx context.Context) ([]model.UpcomingEvent, error)
	GetUpcomingContactEvents(ctx context.Context, leadDays int, asOf time.Time) ([]model.UpcomingEvent, error)
	ReplaceContactEventsForContact(ctx context.Context, id string, events []model.EventInput) error

	GetNotificationState(ctx context.Context, key string) (string, bool, error)
	SetNotificationState(ctx context.Context, key, value string) error
}
