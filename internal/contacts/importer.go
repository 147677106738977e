package contacts

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/sandeepkv93/tend/internal/model"
)

type Candidate struct {
	DeviceContact
	AlreadyImported bool
}

// Importer copies device contacts into the store. AfterImport runs once per
// successful import, typically to request a replan.
type Importer struct {
	Source      Source
	Store       Store
	Log         logrus.FieldLogger
	AfterImport func(ctx context.Context) error
}

// Candidates lists device contacts matching query. A permission denial
// yields an empty list.
func (im *Importer) Candidates(ctx context.Context, query string) ([]Candidate, error) {
	device, err := im.Source.ListContacts(ctx, query)
	if err != nil {
		if isPermissionDenied(err) {
			im.logger().WithError(err).Info("contacts permission denied")
			return []Candidate{}, nil
		}
		return nil, err
	}
	ids := make([]string, 0, len(device))
	for _, d := range device {
		ids = append(ids, d.ID)
	}
	existing, err := im.Store.GetContactsBySystemIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(existing))
	for _, c := range existing {
		known[c.SystemID] = true
	}
	out := make([]Candidate, 0, len(device))
	for _, d := range device {
		out = append(out, Candidate{DeviceContact: d, AlreadyImported: known[d.ID]})
	}
	return out, nil
}

// Import stores the selected device contacts in circle. Contacts already in
// the store keep their circle and custom cadence.
func (im *Importer) Import(ctx context.Context, ids []string, circle model.Circle) (int, error) {
	if !circle.IsValid() {
		return 0, fmt.Errorf("%w: %q", model.ErrInvalidCircle, circle)
	}
	if len(ids) == 0 {
		return 0, nil
	}
	device, err := im.Source.ListContacts(ctx, "")
	if err != nil {
		return 0, err
	}
	byID := make(map[string]DeviceContact, len(device))
	for _, d := range device {
		byID[d.ID] = d
	}
	existing, err := im.Store.GetContactsBySystemIDs(ctx, ids)
	if err != nil {
		return 0, err
	}
	stored := make(map[string]model.Contact, len(existing))
	for _, c := range existing {
		stored[c.SystemID] = c
	}

	imported := 0
	for _, id := range ids {
		d, ok := byID[id]
		if !ok {
			im.logger().WithField("contact", id).Warn("device contact not found, skipping")
			continue
		}
		c := model.Contact{
			SystemID:    d.ID,
			FullName:    d.Name,
			NickName:    d.NickName,
			ImageURI:    d.ImageURI,
			Description: d.Description,
			Circle:      circle,
		}
		if prev, ok := stored[id]; ok {
			c.Circle = prev.Circle
			c.CustomReminderDays = prev.CustomReminderDays
			if prev.Description != "" {
				c.Description = prev.Description
			}
		}
		if err := im.Store.UpsertContact(ctx, c); err != nil {
			return imported, fmt.Errorf("import %s: %w", id, err)
		}
		imported++
	}

	im.logger().WithField("count", imported).Info("contacts imported")
	if imported > 0 && im.AfterImport != nil {
		if err := im.AfterImport(ctx); err != nil {
			return imported, err
		}
	}
	return imported, nil
}

func (im *Importer) logger() logrus.FieldLogger {
	if im.Log == nil {
		return logrus.StandardLogger()
	}
	return im.Log
}
