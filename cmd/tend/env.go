package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sandeepkv93/tend/internal/app"
	"github.com/sandeepkv93/tend/internal/clock"
	"github.com/sandeepkv93/tend/internal/config"
	"github.com/sandeepkv93/tend/internal/contacts"
	"github.com/sandeepkv93/tend/internal/planner"
	"github.com/sandeepkv93/tend/internal/scheduler"
	"github.com/sandeepkv93/tend/internal/storage"
	"github.com/sirupsen/logrus"
)

// env is the opened runtime shared by every subcommand.
type env struct {
	cfg     config.RuntimeConfig
	log     *logrus.Logger
	repo    *storage.SQLiteRepository
	source  contacts.Source
	closers []io.Closer
}

// openEnv loads configuration, opens the database and applies migrations.
// The terminal UI passes logToFile so log lines do not draw over the screen.
func openEnv(ctx context.Context, logToFile bool) (*env, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if flagDB != "" {
		cfg.DBPath = flagDB
	}

	e := &env{cfg: cfg}
	var out io.Writer = os.Stderr
	if logToFile {
		f, err := config.OpenLogFile(cfg)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		e.closers = append(e.closers, f)
		out = f
	}
	log, err := config.NewLogger(cfg, out)
	if err != nil {
		_ = e.Close()
		return nil, err
	}
	e.log = log

	repo, err := storage.OpenSQLite(cfg.DBPath)
	if err != nil {
		_ = e.Close()
		return nil, err
	}
	e.closers = append(e.closers, repo)
	e.repo = repo
	if err := storage.MigrateUp(ctx, repo.DB(), log); err != nil {
		_ = e.Close()
		return nil, err
	}

	e.source = contacts.NewVCardSource(cfg.ContactsPath, log)
	return e, nil
}

func (e *env) Close() error {
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		errs = append(errs, e.closers[i].Close())
	}
	e.closers = nil
	return errors.Join(errs...)
}

func (e *env) syncer() *contacts.EventSyncer {
	return contacts.NewEventSyncer(e.source, e.repo, clock.Real{}, e.log)
}

// stack is an in-process notification engine with its planner.
type stack struct {
	engine  *scheduler.Engine
	planner *planner.NotificationScheduler
	service *app.Service
}

func (e *env) newStack(reg prometheus.Registerer) (*stack, error) {
	engine := scheduler.NewEngine(e.cfg.SchedulerBuffer)
	p, err := planner.New(planner.Options{
		Store:      e.repo,
		Device:     engine,
		Syncer:     e.syncer(),
		Log:        e.log,
		Registerer: reg,
	})
	if err != nil {
		return nil, err
	}
	svc := app.NewService(app.Options{
		Store:   e.repo,
		Planner: p,
		Source:  e.source,
		Log:     e.log,
	})
	return &stack{engine: engine, planner: p, service: svc}, nil
}

func (s *stack) stop() {
	s.planner.Stop()
	s.engine.Stop()
}

// service builds an application service without a planner for one-shot
// commands.
func (e *env) service() *app.Service {
	return app.NewService(app.Options{Store: e.repo, Source: e.source, Log: e.log})
}
