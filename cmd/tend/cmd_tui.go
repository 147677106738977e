package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sandeepkv93/tend/internal/planner"
	"github.com/sandeepkv93/tend/internal/update"
	"github.com/spf13/cobra"
)

func newTUICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive garden (default command)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd.Context())
		},
	}
}

func runTUI(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	e, err := openEnv(ctx, true)
	if err != nil {
		return err
	}
	defer e.Close()

	s, err := e.newStack(nil)
	if err != nil {
		return err
	}
	s.engine.Start()
	signals := make(chan planner.LifecycleEvent, e.cfg.PlannerQueue)
	if err := s.planner.Start(ctx, signals); err != nil {
		s.stop()
		return err
	}
	defer s.stop()

	var notifier update.DesktopNotifier = update.NoopDesktopNotifier{}
	if e.cfg.DesktopNotifications {
		notifier = update.ExecDesktopNotifier{}
	}
	m := update.NewModel(update.Options{
		Backend:        s.service,
		Scheduler:      s.engine,
		Passes:         s.planner,
		Signals:        signals,
		Notifier:       notifier,
		DesktopEnabled: e.cfg.DesktopNotifications,
		Log:            e.log,
	})
	program := tea.NewProgram(m, tea.WithAltScreen(), tea.WithReportFocus(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
