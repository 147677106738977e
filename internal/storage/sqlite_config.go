package storage

import (
	"context"
	"database/sql"

	"github.com/sandeepkv93/tend/internal/model"
)

const (
	configKeyCadenceInner   = "default_cadence_inner_days"
	configKeyCadenceMid     = "default_cadence_mid_days"
	configKeyCadenceOuter   = "default_cadence_outer_days"
	configKeyFuzzy          = "fuzzy_reminders_enabled"
	configKeyPersistent     = "should_keep_reminders_persistent"
	configKeyReminderTime   = "reminder_notification_time"
	configKeyEventsLeadDays = "contact_events_reminder_days"
	configKeyAutoLogging    = "automatic_logging"
)

// configValue is one app_config row; exactly one of the typed columns is set.
type configValue struct {
	text sql.NullString
	num  sql.NullInt64
	flag sql.NullInt64
}

func (r *SQLiteRepository) GetConfig(ctx context.Context) (model.AppConfig, error) {
	return loadConfig(ctx, r.db)
}

// loadConfig merges stored keys over the defaults. Unknown keys and values
// of the wrong type are ignored.
func loadConfig(ctx context.Context, q querier) (model.AppConfig, error) {
	rows, err := q.QueryContext(ctx, `SELECT key, value_text, value_int, value_bool FROM app_config`)
	if err != nil {
		return model.AppConfig{}, err
	}
	defer rows.Close()

	var patch model.AppConfigPatch
	for rows.Next() {
		var key string
		var v configValue
		if err := rows.Scan(&key, &v.text, &v.num, &v.flag); err != nil {
			return model.AppConfig{}, err
		}
		applyConfigRow(&patch, key, v)
	}
	if err := rows.Err(); err != nil {
		return model.AppConfig{}, err
	}
	return patch.Merge(model.DefaultAppConfig()), nil
}

func applyConfigRow(p *model.AppConfigPatch, key string, v configValue) {
	intVal := func() *int {
		if !v.num.Valid || v.num.Int64 < 0 {
			return nil
		}
		n := int(v.num.Int64)
		return &n
	}
	boolVal := func() *bool {
		if !v.flag.Valid {
			return nil
		}
		b := v.flag.Int64 == 1
		return &b
	}
	switch key {
	case configKeyCadenceInner:
		p.DefaultCadenceInnerDays = positive(intVal())
	case configKeyCadenceMid:
		p.DefaultCadenceMidDays = positive(intVal())
	case configKeyCadenceOuter:
		p.DefaultCadenceOuterDays = positive(intVal())
	case configKeyEventsLeadDays:
		p.ContactEventsReminderDays = intVal()
	case configKeyFuzzy:
		p.FuzzyRemindersEnabled = boolVal()
	case configKeyPersistent:
		p.ShouldKeepRemindersPersistent = boolVal()
	case configKeyAutoLogging:
		p.AutomaticLogging = boolVal()
	case configKeyReminderTime:
		if v.text.Valid {
			s := v.text.String
			p.ReminderNotificationTime = &s
		}
	}
}

func positive(v *int) *int {
	if v == nil || *v < 1 {
		return nil
	}
	return v
}

// UpdateConfig validates and upserts every set field in one transaction,
// then returns the merged configuration.
func (r *SQLiteRepository) UpdateConfig(ctx context.Context, patch model.AppConfigPatch) (model.AppConfig, error) {
	if err := patch.Validate(); err != nil {
		return model.AppConfig{}, err
	}
	var out model.AppConfig
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		now := mustTime(r.now())
		for _, kv := range configRows(patch) {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO app_config (key, value_text, value_int, value_bool, updated_at)
				VALUES (?, ?, ?, ?, ?)
				ON CONFLICT(key) DO UPDATE SET
					value_text = excluded.value_text,
					value_int = excluded.value_int,
					value_bool = excluded.value_bool,
					updated_at = excluded.updated_at`,
				kv.key, kv.text, kv.num, kv.flag, now,
			); err != nil {
				return err
			}
		}
		cfg, err := loadConfig(ctx, tx)
		if err != nil {
			return err
		}
		out = cfg
		return nil
	})
	if err != nil {
		return model.AppConfig{}, err
	}
	return out, nil
}

type configRow struct {
	key  string
	text any
	num  any
	flag any
}

func configRows(p model.AppConfigPatch) []configRow {
	out := make([]configRow, 0, 8)
	addInt := func(key string, v *int) {
		if v != nil {
			out = append(out, configRow{key: key, num: *v})
		}
	}
	addBool := func(key string, v *bool) {
		if v != nil {
			out = append(out, configRow{key: key, flag: boolInt(*v)})
		}
	}
	addInt(configKeyCadenceInner, p.DefaultCadenceInnerDays)
	addInt(configKeyCadenceMid, p.DefaultCadenceMidDays)
	addInt(configKeyCadenceOuter, p.DefaultCadenceOuterDays)
	addInt(configKeyEventsLeadDays, p.ContactEventsReminderDays)
	addBool(configKeyFuzzy, p.FuzzyRemindersEnabled)
	addBool(configKeyPersistent, p.ShouldKeepRemindersPersistent)
	addBool(configKeyAutoLogging, p.AutomaticLogging)
	if p.ReminderNotificationTime != nil {
		out = append(out, configRow{key: configKeyReminderTime, text: *p.ReminderNotificationTime})
	}
	return out
}
