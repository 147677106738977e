package contacts

import (
	"context"
	"errors"
)

var (
	// ErrPermissionDenied means the device contacts are not available to the
	// process. Callers treat it as "no contacts", never as fatal.
	ErrPermissionDenied = errors.New("contacts: permission denied")
	ErrContactNotFound  = errors.New("contacts: contact not found")
)

type DeviceContact struct {
	ID          string
	Name        string
	NickName    string
	ImageURI    string
	Description string
}

// DeviceDate is an annual date read from the device address book. Year is
// nil when the source only knows month and day.
type DeviceDate struct {
	ID    string
	Label string
	Month int
	Day   int
	Year  *int
}

type DeviceEvents struct {
	Birthday *DeviceDate
	Dates    []DeviceDate
}

// Source is the device contacts collaborator.
type Source interface {
	ListContacts(ctx context.Context, query string) ([]DeviceContact, error)
	GetContactEvents(ctx context.Context, id string) (DeviceEvents, error)
}

func isPermissionDenied(err error) bool {
	return errors.Is(err, ErrPermissionDenied)
}
