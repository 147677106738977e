package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sandeepkv93/tend/internal/clock"
	"github.com/sandeepkv93/tend/internal/garden"
	"github.com/sandeepkv93/tend/internal/model"
)

// sqliteTimeLayout is fixed width so stored instants sort lexically.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type SQLiteRepository struct {
	db    *sql.DB
	clock clock.Clock
}

type Option func(*SQLiteRepository)

// WithClock overrides the clock used for "now" in projections, default
// timestamps and next-occurrence resolution.
func WithClock(c clock.Clock) Option {
	return func(r *SQLiteRepository) {
		if c != nil {
			r.clock = c
		}
	}
}

func NewSQLiteRepository(db *sql.DB, opts ...Option) (*SQLiteRepository, error) {
	if db == nil {
		return nil, errors.New("storage: nil db")
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	repo := &SQLiteRepository{db: db, clock: clock.Real{}}
	for _, opt := range opts {
		opt(repo)
	}
	return repo, nil
}

// DSN enables foreign keys on every pooled connection and waits on locks
// instead of failing immediately.
func DSN(path string) string {
	return fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", path)
}

func OpenDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", DSN(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return db, nil
}

func OpenSQLite(path string, opts ...Option) (*SQLiteRepository, error) {
	db, err := OpenDB(path)
	if err != nil {
		return nil, err
	}
	repo, err := NewSQLiteRepository(db, opts...)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

func (r *SQLiteRepository) DB() *sql.DB {
	return r.db
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func (r *SQLiteRepository) now() time.Time {
	return r.clock.Now()
}

func (r *SQLiteRepository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

const contactColumns = `system_id, full_name, nick_name, image_uri, description, circle_id, custom_reminder_days, created_at, updated_at`

func (r *SQLiteRepository) UpsertContact(ctx context.Context, in model.Contact) error {
	if err := in.Validate(); err != nil {
		return err
	}
	now := mustTime(r.now())
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO contacts (`+contactColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(system_id) DO UPDATE SET
			full_name = excluded.full_name,
			nick_name = excluded.nick_name,
			image_uri = excluded.image_uri,
			description = excluded.description,
			circle_id = excluded.circle_id,
			custom_reminder_days = excluded.custom_reminder_days,
			updated_at = excluded.updated_at`,
		in.SystemID, in.FullName, in.NickName, in.ImageURI, in.Description, string(in.Circle),
		nullInt(in.CustomReminderDays), now, now,
	)
	return err
}

func (r *SQLiteRepository) UpdateContactFields(ctx context.Context, id string, patch model.ContactPatch) (model.Contact, error) {
	var out model.Contact
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		current, err := getContact(ctx, tx, id)
		if err != nil {
			return err
		}
		if patch.IsEmpty() {
			out = current
			return nil
		}
		next := patch.Apply(current)
		if err := next.Validate(); err != nil {
			return err
		}
		next.UpdatedAt = r.now()
		res, err := tx.ExecContext(ctx, `
			UPDATE contacts
			SET full_name = ?, nick_name = ?, image_uri = ?, description = ?, circle_id = ?, custom_reminder_days = ?, updated_at = ?
			WHERE system_id = ?`,
			next.FullName, next.NickName, next.ImageURI, next.Description, string(next.Circle),
			nullInt(next.CustomReminderDays), mustTime(next.UpdatedAt), id,
		)
		if err != nil {
			return err
		}
		if err := checkRowsAffected(res); err != nil {
			return err
		}
		out = next
		return nil
	})
	if err != nil {
		return model.Contact{}, err
	}
	return out, nil
}

func (r *SQLiteRepository) DeleteContact(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM contacts WHERE system_id = ?`, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) GetContact(ctx context.Context, id string) (model.Contact, error) {
	return getContact(ctx, r.db, id)
}

func getContact(ctx context.Context, q querier, id string) (model.Contact, error) {
	row := q.QueryRowContext(ctx, `SELECT `+contactColumns+` FROM contacts WHERE system_id = ?`, id)
	c, err := scanContact(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Contact{}, ErrNotFound
		}
		return model.Contact{}, err
	}
	return c, nil
}

func (r *SQLiteRepository) GetAllContacts(ctx context.Context) ([]model.Contact, error) {
	return r.queryContacts(ctx, `SELECT `+contactColumns+` FROM contacts ORDER BY full_name COLLATE NOCASE ASC`)
}

func (r *SQLiteRepository) GetContactsBySystemIDs(ctx context.Context, ids []string) ([]model.Contact, error) {
	if len(ids) == 0 {
		return []model.Contact{}, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	args := make([]any, 0, len(ids))
	for _, id := range ids {
		args = append(args, id)
	}
	return r.queryContacts(ctx, `SELECT `+contactColumns+` FROM contacts WHERE system_id IN (`+placeholders+`) ORDER BY full_name COLLATE NOCASE ASC`, args...)
}

func (r *SQLiteRepository) queryContacts(ctx context.Context, query string, args ...any) ([]model.Contact, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Contact, 0)
	for rows.Next() {
		c, scanErr := scanContact(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListContactSnapshots joins every contact with its most recent log instant.
func (r *SQLiteRepository) ListContactSnapshots(ctx context.Context) ([]garden.Snapshot, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.system_id, c.full_name, c.nick_name, c.image_uri, c.description, c.circle_id,
			c.custom_reminder_days, c.created_at, c.updated_at,
			(SELECT MAX(l.created_at) FROM contact_logs l WHERE l.contact_system_id = c.system_id)
		FROM contacts c`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]garden.Snapshot, 0)
	for rows.Next() {
		var last sql.NullString
		c, scanErr := scanContact(rows, &last)
		if scanErr != nil {
			return nil, scanErr
		}
		lastAt, parseErr := parseNullableTime(last)
		if parseErr != nil {
			return nil, parseErr
		}
		out = append(out, garden.Snapshot{Contact: c, LastSpokeAt: lastAt})
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) GetLatestLogsByContact(ctx context.Context, id string, limit int) ([]model.ContactLog, error) {
	args := []any{id}
	query := `SELECT id, contact_system_id, created_at, summary, was_overdue FROM contact_logs
		WHERE contact_system_id = ? ORDER BY created_at DESC, id DESC` + applyPagination(&args, limit, 0)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.ContactLog, 0)
	for rows.Next() {
		item, scanErr := scanLog(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// InsertContactLog appends an interaction. The overdue snapshot is computed
// against the history that existed before this insert, in the same
// transaction.
func (r *SQLiteRepository) InsertContactLog(ctx context.Context, in model.LogInput) (model.ContactLog, error) {
	if err := in.Validate(); err != nil {
		return model.ContactLog{}, err
	}
	createdAt := r.now()
	if in.CreatedAt != nil {
		createdAt = *in.CreatedAt
	}

	var out model.ContactLog
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		contact, err := getContact(ctx, tx, in.ContactSystemID)
		if err != nil {
			return err
		}
		cfg, err := loadConfig(ctx, tx)
		if err != nil {
			return err
		}
		var prevRaw sql.NullString
		if err := tx.QueryRowContext(ctx,
			`SELECT MAX(created_at) FROM contact_logs WHERE contact_system_id = ?`, in.ContactSystemID,
		).Scan(&prevRaw); err != nil {
			return err
		}
		prev, err := parseNullableTime(prevRaw)
		if err != nil {
			return err
		}
		cadence := model.EffectiveCadenceDays(contact, cfg)
		wasOverdue := model.WasOverdueAt(prev, cadence, cfg.FuzzyRemindersEnabled, createdAt)

		res, err := tx.ExecContext(ctx, `
			INSERT INTO contact_logs (contact_system_id, created_at, summary, was_overdue)
			VALUES (?, ?, ?, ?)`,
			in.ContactSystemID, mustTime(createdAt), in.Summary, boolInt(wasOverdue),
		)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		out = model.ContactLog{
			ID:              id,
			ContactSystemID: in.ContactSystemID,
			CreatedAt:       createdAt.UTC(),
			Summary:         in.Summary,
			WasOverdue:      wasOverdue,
		}
		return nil
	})
	if err != nil {
		return model.ContactLog{}, err
	}
	return out, nil
}

func (r *SQLiteRepository) GetGardenContacts(ctx context.Context, query string) ([]garden.Row, error) {
	snaps, cfg, err := r.projectionInputs(ctx)
	if err != nil {
		return nil, err
	}
	return garden.Garden(snaps, cfg, r.now(), query), nil
}

func (r *SQLiteRepository) GetUpNextContacts(ctx context.Context) ([]garden.Row, error) {
	snaps, cfg, err := r.projectionInputs(ctx)
	if err != nil {
		return nil, err
	}
	return garden.UpNext(snaps, cfg, r.now()), nil
}

// GetOverdueContacts evaluates overdue-ness as of asOf; a zero asOf means now.
func (r *SQLiteRepository) GetOverdueContacts(ctx context.Context, asOf time.Time) ([]garden.Row, error) {
	snaps, cfg, err := r.projectionInputs(ctx)
	if err != nil {
		return nil, err
	}
	if asOf.IsZero() {
		asOf = r.now()
	}
	return garden.Overdue(snaps, cfg, asOf), nil
}

func (r *SQLiteRepository) projectionInputs(ctx context.Context) ([]garden.Snapshot, model.AppConfig, error) {
	cfg, err := r.GetConfig(ctx)
	if err != nil {
		return nil, model.AppConfig{}, err
	}
	snaps, err := r.ListContactSnapshots(ctx)
	if err != nil {
		return nil, model.AppConfig{}, err
	}
	return snaps, cfg, nil
}

func (r *SQLiteRepository) GetNotificationState(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value_text FROM app_runtime_state WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return value, true, nil
}

func (r *SQLiteRepository) SetNotificationState(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO app_runtime_state (key, value_text, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value_text = excluded.value_text, updated_at = excluded.updated_at`,
		key, value, mustTime(r.now()),
	)
	return err
}

func mustTime(v time.Time) string {
	return v.UTC().Format(sqliteTimeLayout)
}

func nullInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func parseNullableTime(v sql.NullString) (*time.Time, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	tm, err := parseRequiredTime(v.String)
	if err != nil {
		return nil, err
	}
	return &tm, nil
}

func parseRequiredTime(v string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, v)
}

func parseNullableInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	out := int(v.Int64)
	return &out
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func applyPagination(args *[]any, limit, offset int) string {
	sql := ""
	if limit > 0 {
		sql += " LIMIT ?"
		*args = append(*args, limit)
	}
	if offset > 0 {
		if limit <= 0 {
			sql += " LIMIT -1"
		}
		sql += " OFFSET ?"
		*args = append(*args, offset)
	}
	return sql
}

type scanner interface {
	Scan(dest ...any) error
}

// scanContact reads contactColumns followed by any extra destinations.
func scanContact(s scanner, extra ...any) (model.Contact, error) {
	var out model.Contact
	var circle string
	var custom sql.NullInt64
	var created, updated string
	dest := []any{&out.SystemID, &out.FullName, &out.NickName, &out.ImageURI, &out.Description, &circle, &custom, &created, &updated}
	if err := s.Scan(append(dest, extra...)...); err != nil {
		return model.Contact{}, err
	}
	createdAt, err := parseRequiredTime(created)
	if err != nil {
		return model.Contact{}, err
	}
	updatedAt, err := parseRequiredTime(updated)
	if err != nil {
		return model.Contact{}, err
	}
	out.Circle = model.Circle(circle)
	out.CustomReminderDays = parseNullableInt(custom)
	out.CreatedAt = createdAt
	out.UpdatedAt = updatedAt
	return out, nil
}

func scanLog(s scanner) (model.ContactLog, error) {
	var out model.ContactLog
	var created string
	var overdue int
	if err := s.Scan(&out.ID, &out.ContactSystemID, &created, &out.Summary, &overdue); err != nil {
		return model.ContactLog{}, err
	}
	createdAt, err := parseRequiredTime(created)
	if err != nil {
		return model.ContactLog{}, err
	}
	out.CreatedAt = createdAt
	out.WasOverdue = overdue == 1
	return out, nil
}

func checkRowsAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
