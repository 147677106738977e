package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sandeepkv93/tend/internal/planner"
	"github.com/sandeepkv93/tend/internal/scheduler"
	"github.com/sandeepkv93/tend/internal/update"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

func newDaemonCmd() *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the reminder scheduler in the foreground",
		Long:  "Plan and deliver reminders until interrupted. The plan is refreshed at startup and on every interval tick.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return runDaemon(ctx, interval)
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", time.Hour, "How often to refresh the plan")
	return cmd
}

func runDaemon(ctx context.Context, interval time.Duration) error {
	e, err := openEnv(ctx, false)
	if err != nil {
		return err
	}
	defer e.Close()
	log := e.log.WithField("component", "daemon")

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	s, err := e.newStack(reg)
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

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		deliver(gctx, s.engine, notifier, log)
		return nil
	})
	g.Go(func() error {
		refresh(gctx, interval, signals, log)
		return nil
	})
	if e.cfg.MetricsAddr != "" {
		g.Go(func() error {
			return serveMetrics(gctx, e.cfg.MetricsAddr, reg, log)
		})
	}

	log.WithField("interval", interval.String()).Info("daemon started")
	err = g.Wait()
	log.Info("daemon stopping")
	return err
}

// deliver hands fired notifications to the desktop until ctx ends.
func deliver(ctx context.Context, engine *scheduler.Engine, notifier update.DesktopNotifier, log logrus.FieldLogger) {
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-engine.C():
			if !ok {
				return
			}
			entry := log.WithField("id", n.ID)
			entry.WithField("title", n.Content.Title).Info("notification delivered")
			if err := notifier.Send(update.Notification{Title: n.Content.Title, Body: n.Content.Body, Level: "reminder", At: n.TriggerAt}); err != nil {
				entry.WithError(err).Warn("desktop notification failed")
			}
			if n.Content.AutoDismiss && !n.Content.Sticky {
				if err := engine.Dismiss(ctx, n.ID); err != nil {
					entry.WithError(err).Debug("dismiss failed")
				}
			}
		}
	}
}

// refresh treats every tick as the app returning to the foreground.
func refresh(ctx context.Context, interval time.Duration, signals chan<- planner.LifecycleEvent, log logrus.FieldLogger) {
	if interval <= 0 {
		<-ctx.Done()
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			select {
			case signals <- planner.Foreground:
			default:
				log.Debug("refresh skipped, signal queue full")
			}
		}
	}
}

func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry, log logrus.FieldLogger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", addr).Info("metrics listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
