// Package scheduler drives periodic refreshes on top of robfig/cron.
//
// A Schedule owns one cron entry at a time. Automatic ticks never overlap:
// a tick that fires while the previous one is still running is skipped.
// Manual refreshes run on the caller's goroutine and leave the automatic
// period untouched.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/bcnelson/ioc-dashboard/internal/domain"
)

// TickFunc is invoked for every automatic tick and every manual refresh.
type TickFunc func(ctx context.Context, trigger domain.Trigger)

// Option configures a Schedule.
type Option func(*Schedule)

// WithLogger sets the logger used for schedule and cron events.
func WithLogger(l *slog.Logger) Option {
	return func(s *Schedule) {
		s.logger = l
	}
}

// Schedule is a running refresh schedule. Use Start to create one.
type Schedule struct {
	mu       sync.Mutex
	cron     *cron.Cron
	entry    cron.EntryID
	interval time.Duration
	stopped  bool

	onTick TickFunc
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	logger *slog.Logger
	once   sync.Once
}

// Start begins scheduling onTick every interval. An interval of zero or
// less performs no automatic ticks; RefreshNow still works. With a positive
// interval the first tick fires immediately.
func Start(ctx context.Context, interval time.Duration, onTick TickFunc, opts ...Option) *Schedule {
	ctx, cancel := context.WithCancel(ctx)
	s := &Schedule{
		onTick: onTick,
		ctx:    ctx,
		cancel: cancel,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.cron = cron.New(cron.WithLogger(cronLogger{s.logger}))
	s.cron.Start()

	s.mu.Lock()
	s.install(interval)
	s.mu.Unlock()

	return s
}

// install replaces the cron entry. Callers hold s.mu.
func (s *Schedule) install(interval time.Duration) {
	if s.entry != 0 {
		s.cron.Remove(s.entry)
		s.entry = 0
	}
	s.interval = interval
	if interval <= 0 {
		s.logger.Info("automatic refresh disabled")
		return
	}

	logger := cronLogger{s.logger}
	job := cron.NewChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)).
		Then(cron.FuncJob(func() { s.onTick(s.ctx, domain.TriggerAuto) }))

	s.entry = s.cron.Schedule(every(interval), job)
	s.logger.Info("automatic refresh scheduled", "interval", interval.String())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		job.Run()
	}()
}

// SetInterval tears down the current entry and schedules a new one.
// It is a no-op after Cancel.
func (s *Schedule) SetInterval(interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.install(interval)
}

// Interval returns the current automatic interval.
func (s *Schedule) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// RefreshNow invokes the tick callback once, synchronously, with the manual
// trigger. It is a no-op after Cancel.
func (s *Schedule) RefreshNow(ctx context.Context) {
	s.mu.Lock()
	stopped := s.stopped
	s.mu.Unlock()
	if stopped {
		return
	}
	s.onTick(ctx, domain.TriggerManual)
}

// Cancel stops automatic ticks, cancels the context handed to running ticks
// and waits for them to return. It is safe to call more than once.
func (s *Schedule) Cancel() {
	s.once.Do(func() {
		s.mu.Lock()
		s.stopped = true
		if s.entry != 0 {
			s.cron.Remove(s.entry)
			s.entry = 0
		}
		s.mu.Unlock()

		s.cancel()
		<-s.cron.Stop().Done()
		s.wg.Wait()
		s.logger.Info("refresh schedule cancelled")
	})
}

// every fires at a fixed delay after each activation. Unlike cron.Every it
// keeps sub-second precision, so the period that runs is the one reported
// by Interval.
type every time.Duration

func (e every) Next(t time.Time) time.Time {
	return t.Add(time.Duration(e))
}

// cronLogger routes cron's logging through slog.
type cronLogger struct {
	l *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error("cron: "+msg, append([]any{"error", err}, keysAndValues...)...)
}
