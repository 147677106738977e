package storage

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/sandeepkv93/tend/internal/clock"
	"github.com/sandeepkv93/tend/internal/model"
)

const eventColumns = `e.id, e.contact_system_id, e.source_event_id, e.event_type, e.label, e.month, e.day, e.year,
	e.next_occurrence_at, e.is_active, e.created_at, e.updated_at`

func (r *SQLiteRepository) GetContactEvents(ctx context.Context, id string) ([]model.ContactEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+eventColumns+`
		FROM contact_events e
		WHERE e.contact_system_id = ?
		ORDER BY e.next_occurrence_at ASC`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.ContactEvent, 0)
	for rows.Next() {
		ev, scanErr := scanEvent(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) GetActiveContactEvents(ctx context.Context) ([]model.UpcomingEvent, error) {
	return r.queryUpcoming(ctx, `
		SELECT `+eventColumns+`, c.full_name, c.nick_name
		FROM contact_events e
		JOIN contacts c ON c.system_id = e.contact_system_id
		WHERE e.is_active = 1
		ORDER BY e.next_occurrence_at ASC, e.id ASC`)
}

// GetUpcomingContactEvents returns active events occurring within
// [asOf, asOf+leadDays]. A zero asOf means now.
func (r *SQLiteRepository) GetUpcomingContactEvents(ctx context.Context, leadDays int, asOf time.Time) ([]model.UpcomingEvent, error) {
	if asOf.IsZero() {
		asOf = r.now()
	}
	if leadDays < 0 {
		leadDays = 0
	}
	end := asOf.Add(time.Duration(leadDays) * clock.Day)
	return r.queryUpcoming(ctx, `
		SELECT `+eventColumns+`, c.full_name, c.nick_name
		FROM contact_events e
		JOIN contacts c ON c.system_id = e.contact_system_id
		WHERE e.is_active = 1 AND e.next_occurrence_at >= ? AND e.next_occurrence_at <= ?
		ORDER BY e.next_occurrence_at ASC, e.id ASC`, mustTime(asOf), mustTime(end))
}

func (r *SQLiteRepository) queryUpcoming(ctx context.Context, query string, args ...any) ([]model.UpcomingEvent, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.UpcomingEvent, 0)
	for rows.Next() {
		var item model.UpcomingEvent
		ev, scanErr := scanEvent(rows, &item.FullName, &item.NickName)
		if scanErr != nil {
			return nil, scanErr
		}
		item.Event = ev
		out = append(out, item)
	}
	return out, rows.Err()
}

// ReplaceContactEventsForContact makes events the complete set for the
// contact: stale source events are deleted and the rest upserted with a
// freshly resolved next occurrence.
func (r *SQLiteRepository) ReplaceContactEventsForContact(ctx context.Context, id string, events []model.EventInput) error {
	for _, ev := range events {
		if err := ev.Validate(); err != nil {
			return err
		}
	}
	now := r.now()
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := getContact(ctx, tx, id); err != nil {
			return err
		}

		keep := make([]any, 0, len(events)+1)
		keep = append(keep, id)
		for _, ev := range events {
			keep = append(keep, ev.SourceEventID)
		}
		del := `DELETE FROM contact_events WHERE contact_system_id = ?`
		if len(events) > 0 {
			del += ` AND source_event_id NOT IN (` + strings.TrimSuffix(strings.Repeat("?, ", len(events)), ", ") + `)`
		}
		if _, err := tx.ExecContext(ctx, del, keep...); err != nil {
			return err
		}

		stamp := mustTime(now)
		for _, ev := range events {
			next := model.NextOccurrence(ev.Month, ev.Day, now)
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO contact_events (contact_system_id, source_event_id, event_type, label, month, day, year,
					next_occurrence_at, is_active, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
				ON CONFLICT(contact_system_id, source_event_id) DO UPDATE SET
					event_type = excluded.event_type,
					label = excluded.label,
					month = excluded.month,
					day = excluded.day,
					year = excluded.year,
					next_occurrence_at = excluded.next_occurrence_at,
					is_active = excluded.is_active,
					updated_at = excluded.updated_at`,
				id, ev.SourceEventID, string(ev.Type), ev.Label, ev.Month, ev.Day, nullInt(ev.Year),
				mustTime(next), stamp, stamp,
			); err != nil {
				return err
			}
		}
		return nil
	})
}

func scanEvent(s scanner, extra ...any) (model.ContactEvent, error) {
	var out model.ContactEvent
	var eventType string
	var year sql.NullInt64
	var next, created, updated string
	var active int
	dest := []any{&out.ID, &out.ContactSystemID, &out.SourceEventID, &eventType, &out.Label, &out.Month, &out.Day,
		&year, &next, &active, &created, &updated}
	if err := s.Scan(append(dest, extra...)...); err != nil {
		return model.ContactEvent{}, err
	}
	nextAt, err := parseRequiredTime(next)
	if err != nil {
		return model.ContactEvent{}, err
	}
	createdAt, err := parseRequiredTime(created)
	if err != nil {
		return model.ContactEvent{}, err
	}
	updatedAt, err := parseRequiredTime(updated)
	if err != nil {
		return model.ContactEvent{}, err
	}
	out.Type = model.EventType(eventType)
	out.Year = parseNullableInt(year)
	out.NextOccurrenceAt = nextAt
	out.IsActive = active == 1
	out.CreatedAt = createdAt
	out.UpdatedAt = updatedAt
	return out, nil
}
