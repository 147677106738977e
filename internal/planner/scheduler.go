package planner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/sandeepkv93/tend/internal/clock"
	"github.com/sandeepkv93/tend/internal/contacts"
	"github.com/sandeepkv93/tend/internal/garden"
	"github.com/sandeepkv93/tend/internal/model"
	"github.com/sandeepkv93/tend/internal/scheduler"
)

var (
	ErrStopped    = errors.New("planner: stopped")
	ErrNotStarted = errors.New("planner: not started")
)

type Reason string

const (
	ReasonStartup      Reason = "startup"
	ReasonForeground   Reason = "foreground"
	ReasonConfigChange Reason = "config_change"
	ReasonDataChange   Reason = "data_change"
)

// Request asks for one planning pass. Startup and foreground passes run the
// daily gated event sync; ForceSync runs it regardless of reason or gate.
type Request struct {
	Reason    Reason
	ForceSync bool
}

func (r Request) syncs() bool {
	return r.ForceSync || r.Reason == ReasonStartup || r.Reason == ReasonForeground
}

type LifecycleEvent string

const (
	Foreground LifecycleEvent = "foreground"
	Background LifecycleEvent = "background"
)

// DeviceScheduler is the notification backend the planner owns.
type DeviceScheduler interface {
	ScheduleAt(ctx context.Context, id string, content scheduler.Content, at time.Time) error
	Cancel(ctx context.Context, id string) error
	Dismiss(ctx context.Context, id string) error
	ListScheduled(ctx context.Context) ([]string, error)
}

type Store interface {
	GetConfig(ctx context.Context) (model.AppConfig, error)
	ListContactSnapshots(ctx context.Context) ([]garden.Snapshot, error)
	GetActiveContactEvents(ctx context.Context) ([]model.UpcomingEvent, error)
}

type EventSyncer interface {
	SyncIfDue(ctx context.Context, force bool) (contacts.SyncResult, error)
}

type Options struct {
	Store      Store
	Device     DeviceScheduler
	Syncer     EventSyncer
	Clock      clock.Clock
	Log        logrus.FieldLogger
	Registerer prometheus.Registerer
}

// PassResult summarizes a completed planning pass.
type PassResult struct {
	Reason    Reason
	Synced    bool
	Planned   int
	Scheduled int
	Failed    int
	Cancelled int
}

type job struct {
	req  Request
	done chan error
}

// NotificationScheduler serializes planning passes through a single worker.
// Requests are run in arrival order and none are dropped or coalesced.
type NotificationScheduler struct {
	store   Store
	device  DeviceScheduler
	syncer  EventSyncer
	clock   clock.Clock
	log     logrus.FieldLogger
	metrics *metrics

	mu      sync.Mutex
	queue   []*job
	last    PassResult
	baseCtx context.Context
	wakeup  chan struct{}
	stopCh  chan struct{}
	doneCh  chan struct{}
	subDone chan struct{}
	started bool
	stopped bool
}

func New(opts Options) (*NotificationScheduler, error) {
	if opts.Store == nil {
		return nil, errors.New("planner: store is required")
	}
	if opts.Device == nil {
		return nil, errors.New("planner: device scheduler is required")
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}
	return &NotificationScheduler{
		store:   opts.Store,
		device:  opts.Device,
		syncer:  opts.Syncer,
		clock:   opts.Clock,
		log:     opts.Log.WithField("component", "planner"),
		metrics: newMetrics(opts.Registerer),
		wakeup:  make(chan struct{}, 1),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
		subDone: make(chan struct{}),
	}, nil
}

// Start launches the worker, subscribes to lifecycle signals and enqueues a
// startup pass. signals may be nil. Cancelling ctx ends the subscription but
// not the worker; call Stop for that.
func (s *NotificationScheduler) Start(ctx context.Context, signals <-chan LifecycleEvent) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return ErrStopped
	}
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	s.baseCtx = context.WithoutCancel(ctx)
	s.mu.Unlock()

	go s.loop()
	err := s.Enqueue(Request{Reason: ReasonStartup})
	go s.subscribe(ctx, signals)
	return err
}

// Stop ends the lifecycle subscription, fails every queued request with
// ErrStopped and waits for the in-flight pass to finish.
func (s *NotificationScheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	started := s.started
	pending := s.queue
	s.queue = nil
	s.metrics.queueDepth.Set(0)
	close(s.stopCh)
	s.mu.Unlock()

	for _, j := range pending {
		j.done <- ErrStopped
	}
	if started {
		<-s.subDone
		<-s.doneCh
	}
}

// Replan queues a pass and waits for it. If ctx ends first the pass still
// runs; only the wait is abandoned.
func (s *NotificationScheduler) Replan(ctx context.Context, req Request) error {
	j, err := s.submit(req)
	if err != nil {
		return err
	}
	select {
	case err := <-j.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Enqueue queues a pass without waiting for it.
func (s *NotificationScheduler) Enqueue(req Request) error {
	_, err := s.submit(req)
	return err
}

// LastPass returns the summary of the most recent successful pass.
func (s *NotificationScheduler) LastPass() PassResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *NotificationScheduler) submit(req Request) (*job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil, ErrStopped
	}
	if !s.started {
		return nil, ErrNotStarted
	}
	j := &job{req: req, done: make(chan error, 1)}
	s.queue = append(s.queue, j)
	s.metrics.queueDepth.Set(float64(len(s.queue)))
	s.signalWakeup()
	return j, nil
}

func (s *NotificationScheduler) loop() {
	defer close(s.doneCh)
	for {
		j, ok := s.next()
		if !ok {
			select {
			case <-s.wakeup:
				continue
			case <-s.stopCh:
				return
			}
		}
		j.done <- s.runPass(s.baseCtx, j.req)
	}
}

func (s *NotificationScheduler) next() (*job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped || len(s.queue) == 0 {
		return nil, false
	}
	j := s.queue[0]
	s.queue[0] = nil
	s.queue = s.queue[1:]
	s.metrics.queueDepth.Set(float64(len(s.queue)))
	return j, true
}

func (s *NotificationScheduler) signalWakeup() {
	select {
	case s.wakeup <- struct{}{}:
	default:
	}
}

func (s *NotificationScheduler) subscribe(ctx context.Context, signals <-chan LifecycleEvent) {
	defer close(s.subDone)
	if signals == nil {
		return
	}
	for {
		select {
		case ev, ok := <-signals:
			if !ok {
				return
			}
			switch ev {
			case Foreground:
				if err := s.Enqueue(Request{Reason: ReasonForeground}); err != nil {
					return
				}
			default:
				s.log.WithField("event", string(ev)).Debug("lifecycle event ignored")
			}
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		}
	}
}

func (s *NotificationScheduler) runPass(ctx context.Context, req Request) error {
	started := time.Now()
	log := s.log.WithField("reason", string(req.Reason))
	res, err := s.pass(ctx, req, log)
	if err != nil {
		s.metrics.passes.WithLabelValues("error").Inc()
		log.WithError(err).Error("planning pass failed")
		return err
	}
	s.metrics.passes.WithLabelValues("ok").Inc()
	s.metrics.lastPass.Set(float64(s.clock.Now().Unix()))

	s.mu.Lock()
	s.last = res
	s.mu.Unlock()

	log.WithFields(logrus.Fields{
		"planned":   res.Planned,
		"scheduled": res.Scheduled,
		"failed":    res.Failed,
		"cancelled": res.Cancelled,
		"synced":    res.Synced,
		"duration":  time.Since(started).String(),
	}).Info("planning pass complete")
	return nil
}

// pass runs sync, load, clear and schedule in that order. Everything the
// plan needs is loaded before the previous plan is cleared, so a failed read
// leaves the device untouched.
func (s *NotificationScheduler) pass(ctx context.Context, req Request, log logrus.FieldLogger) (PassResult, error) {
	res := PassResult{Reason: req.Reason}

	if req.syncs() && s.syncer != nil {
		synced, err := s.syncer.SyncIfDue(ctx, req.ForceSync)
		if err != nil {
			log.WithError(err).Warn("contact event sync failed")
		}
		res.Synced = synced.Ran
	}

	cfg, err := s.store.GetConfig(ctx)
	if err != nil {
		return res, fmt.Errorf("load config: %w", err)
	}
	snaps, err := s.store.ListContactSnapshots(ctx)
	if err != nil {
		return res, fmt.Errorf("load contacts: %w", err)
	}
	events, err := s.store.GetActiveContactEvents(ctx)
	if err != nil {
		return res, fmt.Errorf("load contact events: %w", err)
	}

	plan := BuildPlan(Inputs{Config: cfg, Snapshots: snaps, Events: events}, s.clock.Now())
	res.Planned = len(plan)

	cancelled, err := s.clear(ctx, log)
	if err != nil {
		return res, err
	}
	res.Cancelled = cancelled

	for _, item := range plan {
		if err := s.device.ScheduleAt(ctx, item.ID, item.Content, item.TriggerAt); err != nil {
			res.Failed++
			s.metrics.registerFails.Inc()
			log.WithError(err).WithFields(logrus.Fields{
				"id":   item.ID,
				"date": item.Content.Data["date"],
			}).Warn("notification registration failed")
			continue
		}
		res.Scheduled++
		s.metrics.scheduled.WithLabelValues(string(item.Kind)).Inc()
	}
	return res, nil
}

// clear cancels every planner-owned pending notification and removes the
// retired static ones, delivered or not.
func (s *NotificationScheduler) clear(ctx context.Context, log logrus.FieldLogger) (int, error) {
	ids, err := s.device.ListScheduled(ctx)
	if err != nil {
		return 0, fmt.Errorf("list scheduled notifications: %w", err)
	}
	cancelled := 0
	for _, id := range ids {
		if !IsManagedID(id) {
			continue
		}
		if err := s.device.Cancel(ctx, id); err != nil {
			log.WithError(err).WithField("id", id).Warn("cancel notification failed")
			continue
		}
		cancelled++
	}
	for _, id := range []string{LegacyOverdueID, LegacyEventsID} {
		if err := s.device.Dismiss(ctx, id); err != nil {
			log.WithError(err).WithField("id", id).Warn("dismiss notification failed")
		}
		if err := s.device.Cancel(ctx, id); err != nil {
			log.WithError(err).WithField("id", id).Warn("cancel notification failed")
		}
	}
	return cancelled, nil
}
