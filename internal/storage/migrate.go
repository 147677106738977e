package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// MigrateUp applies every pending migration.
func MigrateUp(ctx context.Context, db *sql.DB, log logrus.FieldLogger) error {
	provider, err := newMigrationProvider(db)
	if err != nil {
		return err
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return logMigrationResults(log, results, "migration applied")
}

// MigrateDown rolls every migration back.
func MigrateDown(ctx context.Context, db *sql.DB, log logrus.FieldLogger) error {
	provider, err := newMigrationProvider(db)
	if err != nil {
		return err
	}
	results, err := provider.DownTo(ctx, 0)
	if err != nil {
		return fmt.Errorf("roll back migrations: %w", err)
	}
	return logMigrationResults(log, results, "migration rolled back")
}

func newMigrationProvider(db *sql.DB) (*goose.Provider, error) {
	fsys, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		return nil, fmt.Errorf("open migrations: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, fsys)
	if err != nil {
		return nil, fmt.Errorf("create goose provider: %w", err)
	}
	return provider, nil
}

func logMigrationResults(log logrus.FieldLogger, results []*goose.MigrationResult, msg string) error {
	for _, r := range results {
		if r.Error != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", r.Source.Version, r.Source.Path, r.Error)
		}
		if log != nil {
			log.WithFields(logrus.Fields{
				"version":  r.Source.Version,
				"file":     r.Source.Path,
				"duration": r.Duration,
			}).Info(msg)
		}
	}
	if len(results) == 0 && log != nil {
		log.Debug("migrations already at target version")
	}
	return nil
}
