package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
	"github.com/custodia-labs/docrag/internal/core/ports/driving"
	"github.com/custodia-labs/docrag/internal/logger"
)

// DefaultWatchDebounce is how long source events settle before an update.
const DefaultWatchDebounce = 2 * time.Second

// historyKeep is the number of runs kept in the store.
const historyKeep = 100

// Ensure Scheduler implements the interface.
var _ driving.Scheduler = (*Scheduler)(nil)

// Scheduler runs the document update on startup, every interval, on
// request, and after source changes settle.
type Scheduler struct {
	interval time.Duration
	debounce time.Duration
	store    driven.SchedulerStore
	updater  driving.Updater
	watcher  driven.Connector
	now      func() time.Time

	trigger chan string

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
	wg      sync.WaitGroup

	lastMu sync.RWMutex
	last   *domain.UpdateRun
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithWatcher subscribes the scheduler to the connector's change events.
func WithWatcher(c driven.Connector) SchedulerOption {
	return func(s *Scheduler) {
		s.watcher = c
	}
}

// WithDebounce sets how long watch events settle before an update runs.
func WithDebounce(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if d > 0 {
			s.debounce = d
		}
	}
}

// WithSchedulerClock overrides the time source.
func WithSchedulerClock(now func() time.Time) SchedulerOption {
	return func(s *Scheduler) {
		s.now = now
	}
}

// NewScheduler creates a scheduler. A zero interval uses the default.
// store may be nil, in which case runs are not recorded.
func NewScheduler(
	interval time.Duration,
	store driven.SchedulerStore,
	updater driving.Updater,
	opts ...SchedulerOption,
) *Scheduler {
	if interval <= 0 {
		interval = domain.DefaultUpdateInterval
	}
	s := &Scheduler{
		interval: interval,
		debounce: DefaultWatchDebounce,
		store:    store,
		updater:  updater,
		now:      time.Now,
		trigger:  make(chan string, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start runs an update immediately, then loops until ctx is cancelled or
// Stop is called. It returns nil when stopped by Stop.
func (s *Scheduler) Start(parent context.Context) error {
	if err := parent.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})
	s.running = true
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()

	defer func() {
		cancel()
		s.wg.Wait()

		s.mu.Lock()
		if s.done == done {
			s.running = false
		}
		s.mu.Unlock()
		close(done)
	}()

	if err := s.loadSchedule(ctx); err != nil {
		logger.Warn("scheduler: failed to load schedule: %v", err)
	}

	if s.watcher != nil {
		events, err := s.watcher.Watch(ctx)
		if err != nil {
			logger.Warn("scheduler: watch unavailable, relying on interval: %v", err)
		} else {
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				s.watch(ctx, events)
			}()
		}
	}

	s.run(ctx)
	return parent.Err()
}

// Stop cancels the loop and any in-flight update, then waits for Start
// to return.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()
	<-done
	return nil
}

// Trigger queues an update. It returns false if one is already queued.
func (s *Scheduler) Trigger(reason string) bool {
	select {
	case s.trigger <- reason:
		return true
	default:
		return false
	}
}

// LastRun returns the most recent run of this process, or nil.
func (s *Scheduler) LastRun() *domain.UpdateRun {
	s.lastMu.RLock()
	defer s.lastMu.RUnlock()
	if s.last == nil {
		return nil
	}
	r := *s.last
	return &r
}

// History returns stored runs, newest first. Without a store it returns
// the last run of this process, if any.
func (s *Scheduler) History(ctx context.Context, limit int) ([]domain.UpdateRun, error) {
	if s.store == nil {
		if last := s.LastRun(); last != nil {
			return []domain.UpdateRun{*last}, nil
		}
		return nil, nil
	}
	return s.store.Runs(ctx, limit)
}

// loadSchedule saves the schedule with the current interval, keeping the
// previous run times.
func (s *Scheduler) loadSchedule(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	schedule, err := s.store.Schedule(ctx)
	if err != nil {
		return err
	}
	if schedule == nil {
		schedule = &domain.UpdateSchedule{}
	}
	if schedule.Interval != s.interval {
		schedule.Interval = s.interval
		schedule.NextRun = s.now()
	}
	return s.store.SaveSchedule(ctx, schedule)
}

// run is the main loop. Runs never overlap: each executes on this goroutine.
func (s *Scheduler) run(ctx context.Context) {
	s.runTask(ctx, domain.TriggerStartup)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runTask(ctx, domain.TriggerInterval)
		case reason := <-s.trigger:
			s.runTask(ctx, reason)
		}
	}
}

// watch debounces source events into a single watch trigger.
func (s *Scheduler) watch(ctx context.Context, events <-chan domain.SourceEvent) {
	timer := time.NewTimer(s.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			logger.Debug("scheduler: source %s %s", ev.Type, ev.FileID)
			timer.Reset(s.debounce)
		case <-timer.C:
			if !s.Trigger(domain.TriggerWatch) {
				logger.Debug("scheduler: update already queued")
			}
		}
	}
}

// runTask executes one update and records the outcome.
func (s *Scheduler) runTask(ctx context.Context, trigger string) {
	logger.Debug("scheduler: update triggered by %s", trigger)

	started := s.now()
	report, err := s.updater.Update(ctx)
	if errors.Is(err, domain.ErrUpdateInProgress) {
		logger.Debug("scheduler: skipped, update already running")
		return
	}

	run := domain.NewUpdateRun(trigger, report, started, s.now())
	if err == nil && report != nil && report.Failed() {
		err = fmt.Errorf("%d files failed", len(report.Errors))
	}
	switch {
	case err != nil && ctx.Err() != nil:
		run.Error = err.Error()
		logger.Error("scheduler: update aborted", err, "trigger", trigger)
		// Record the aborted run even though ctx is done.
		ctx = context.WithoutCancel(ctx)
	case err != nil:
		run.Error = err.Error()
		logger.Warn("scheduler: update failed: %v", err)
	}

	s.lastMu.Lock()
	s.last = &run
	s.lastMu.Unlock()

	s.record(ctx, run)
}

func (s *Scheduler) record(ctx context.Context, run domain.UpdateRun) {
	if s.store == nil {
		return
	}

	schedule, err := s.store.Schedule(ctx)
	if err != nil {
		logger.Warn("scheduler: failed to load schedule: %v", err)
	}
	if schedule == nil {
		schedule = &domain.UpdateSchedule{Interval: s.interval}
	}
	schedule.Record(run)
	if err := s.store.SaveSchedule(ctx, schedule); err != nil {
		logger.Warn("scheduler: failed to save schedule: %v", err)
	}

	if err := s.store.AppendRun(ctx, &run, historyKeep); err != nil {
		logger.Warn("scheduler: failed to record run %s: %v", run.RunID, err)
	}
}
