package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/bcnelson/ioc-dashboard/internal/domain"
	"github.com/bcnelson/ioc-dashboard/internal/feed"
	"github.com/bcnelson/ioc-dashboard/internal/metrics"
	"github.com/bcnelson/ioc-dashboard/internal/pipeline"
	"github.com/bcnelson/ioc-dashboard/internal/scheduler"
	"github.com/bcnelson/ioc-dashboard/internal/storage"
	"github.com/bcnelson/ioc-dashboard/internal/validation"
)

// RefreshService fetches the feed, replaces the stored dataset and answers
// dashboard queries against it.
//
// Every refresh takes a sequence number when it starts. A result is applied
// only if no refresh with a higher sequence has been applied already, so a
// slow fetch can never overwrite a newer dataset.
type RefreshService struct {
	store   storage.Storage
	fetcher feed.Fetcher
	sources validation.SourceSet
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time

	seq atomic.Uint64

	mu            sync.Mutex
	applied       uint64
	lastRefreshed *time.Time

	schedMu  sync.Mutex
	schedule *scheduler.Schedule
}

// NewRefreshService creates a new RefreshService. A nil m uses unregistered
// collectors.
func NewRefreshService(store storage.Storage, fetcher feed.Fetcher, sources []string, m *metrics.Metrics) *RefreshService {
	if m == nil {
		m = metrics.New(nil)
	}
	if len(sources) == 0 {
		sources = domain.DefaultSources
	}
	return &RefreshService{
		store:   store,
		fetcher: fetcher,
		sources: validation.NewSourceSet(sources),
		metrics: m,
		logger:  slog.Default().With("component", "refresh"),
		now:     time.Now,
	}
}

// Start restores the sequence from the last recorded run and begins
// automatic refreshes every interval. interval <= 0 means manual only.
func (s *RefreshService) Start(ctx context.Context, interval time.Duration) error {
	if err := s.restore(ctx); err != nil {
		return err
	}

	s.schedMu.Lock()
	defer s.schedMu.Unlock()
	if s.schedule != nil {
		return fmt.Errorf("refresh service already started")
	}
	s.schedule = scheduler.Start(ctx, interval, s.tick, scheduler.WithLogger(s.logger))
	return nil
}

// restore picks up numbering where a previous process left off, so runs
// recorded by a persistent store keep increasing sequences.
func (s *RefreshService) restore(ctx context.Context) error {
	latest, err := s.store.GetLatestRefreshRun(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading latest refresh run: %w", err)
	}

	if latest.Sequence > s.seq.Load() {
		s.seq.Store(latest.Sequence)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if latest.Sequence > s.applied {
		s.applied = latest.Sequence
	}
	if latest.Status == domain.RefreshSuccess {
		t := latest.FinishedAt
		s.lastRefreshed = &t
	}
	s.metrics.AppliedSequence.Set(float64(s.applied))
	if n, err := s.store.CountIOCs(ctx); err == nil {
		s.metrics.Records.Set(float64(n))
	}
	return nil
}

// tick is the scheduler callback. Failures are logged and counted; the
// previous dataset stays in place.
func (s *RefreshService) tick(ctx context.Context, trigger domain.Trigger) {
	if _, err := s.Refresh(ctx, trigger); err != nil && !errors.Is(err, domain.ErrStaleRefresh) {
		s.logger.Warn("refresh failed", "trigger", trigger, "error", err)
	}
}

// SetInterval changes the automatic refresh interval.
func (s *RefreshService) SetInterval(interval time.Duration) error {
	s.schedMu.Lock()
	defer s.schedMu.Unlock()
	if s.schedule == nil {
		return fmt.Errorf("%w: refresh service not started", domain.ErrInvalidInput)
	}
	s.schedule.SetInterval(interval)
	return nil
}

// RefreshNow runs a manual refresh through the scheduler. It does not
// disturb the automatic period.
func (s *RefreshService) RefreshNow(ctx context.Context) {
	s.schedMu.Lock()
	sched := s.schedule
	s.schedMu.Unlock()
	if sched == nil {
		s.tick(ctx, domain.TriggerManual)
		return
	}
	sched.RefreshNow(ctx)
}

// Stop cancels automatic refreshes and waits for a running one to finish.
func (s *RefreshService) Stop() {
	s.schedMu.Lock()
	sched := s.schedule
	s.schedule = nil
	s.schedMu.Unlock()
	if sched != nil {
		sched.Cancel()
	}
}

// Refresh fetches the feed once and applies the result if it is still the
// newest. The returned run is also recorded in storage. A stale result
// returns the run together with domain.ErrStaleRefresh.
func (s *RefreshService) Refresh(ctx context.Context, trigger domain.Trigger) (*domain.RefreshRun, error) {
	run := &domain.RefreshRun{
		ID:        uuid.New().String(),
		Sequence:  s.seq.Add(1),
		Trigger:   trigger,
		StartedAt: s.now().UTC(),
	}

	records, err := s.fetcher.Fetch(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrFetchFailed) {
			err = fmt.Errorf("%w: %w", domain.ErrFetchFailed, err)
		}
		run.Status = domain.RefreshFailed
		run.Error = err.Error()
		s.finish(ctx, run)
		return run, fmt.Errorf("refreshing from %s: %w", s.fetcher.Name(), err)
	}

	unique := s.ingest(run, records)

	s.mu.Lock()
	if run.Sequence <= s.applied {
		applied := s.applied
		s.mu.Unlock()

		run.Status = domain.RefreshStale
		run.Stored = 0
		s.finish(ctx, run)
		s.logger.Info("discarding stale refresh result", "sequence", run.Sequence, "applied", applied)
		return run, fmt.Errorf("sequence %d, applied %d: %w", run.Sequence, applied, domain.ErrStaleRefresh)
	}

	run.Status = domain.RefreshSuccess
	run.FinishedAt = s.now().UTC()
	if err := s.apply(ctx, run, unique); err != nil {
		s.mu.Unlock()
		run.Status = domain.RefreshFailed
		run.Error = err.Error()
		s.finish(ctx, run)
		return run, err
	}
	s.applied = run.Sequence
	finished := run.FinishedAt
	s.lastRefreshed = &finished
	// Gauges describe the applied dataset, so they move with s.applied.
	s.metrics.Records.Set(float64(len(unique)))
	s.metrics.LastSuccess.Set(float64(finished.Unix()))
	s.metrics.AppliedSequence.Set(float64(run.Sequence))
	s.mu.Unlock()

	s.observe(run)
	s.logger.Info("refresh applied",
		"sequence", run.Sequence,
		"trigger", trigger,
		"fetched", run.Fetched,
		"stored", run.Stored,
		"duplicates", run.Duplicates,
		"unknown", run.Unknown,
		"malformed", run.Malformed,
		"duration", run.Duration().String(),
	)
	return run, nil
}

// ingest dedupes and classifies fetched records and fills in the run
// counters. Flagged records are kept.
func (s *RefreshService) ingest(run *domain.RefreshRun, records []domain.IOC) []domain.IOC {
	unique := pipeline.Dedupe(records)
	run.Fetched = len(records)
	run.Stored = len(unique)
	run.Duplicates = len(records) - len(unique)
	s.metrics.Duplicates.Add(float64(run.Duplicates))

	for _, r := range unique {
		issues := validation.CheckRecord(r, s.sources)
		unknown, malformed := false, false
		for _, issue := range issues {
			s.metrics.Malformed.WithLabelValues(string(issue)).Inc()
			if issue.Unknown() {
				unknown = true
			} else {
				malformed = true
			}
		}
		if unknown {
			run.Unknown++
		}
		if malformed {
			run.Malformed++
		}
	}
	if run.Unknown > 0 || run.Malformed > 0 {
		s.logger.Debug("flagged records in feed", "unknown", run.Unknown, "malformed", run.Malformed)
	}
	return unique
}

// apply replaces the dataset and records the run in one transaction.
// Callers hold s.mu.
func (s *RefreshService) apply(ctx context.Context, run *domain.RefreshRun, records []domain.IOC) error {
	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	if err := tx.ReplaceIOCs(ctx, records); err != nil {
		tx.Rollback()
		return fmt.Errorf("replacing iocs: %w", err)
	}
	if err := tx.CreateRefreshRun(ctx, run); err != nil {
		tx.Rollback()
		return fmt.Errorf("recording refresh run: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing refresh: %w", err)
	}
	return nil
}

// finish records a run that did not replace the dataset.
func (s *RefreshService) finish(ctx context.Context, run *domain.RefreshRun) {
	run.FinishedAt = s.now().UTC()
	s.observe(run)
	if err := s.store.CreateRefreshRun(context.WithoutCancel(ctx), run); err != nil {
		s.logger.Error("recording refresh run", "id", run.ID, "error", err)
	}
}

func (s *RefreshService) observe(run *domain.RefreshRun) {
	s.metrics.RefreshAttempts.WithLabelValues(run.Status, string(run.Trigger)).Inc()
	s.metrics.RefreshDuration.Observe(run.Duration().Seconds())
}

// Status reports the schedule and the applied dataset.
func (s *RefreshService) Status(ctx context.Context) (*domain.RefreshStatus, error) {
	count, err := s.store.CountIOCs(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting iocs: %w", err)
	}

	status := &domain.RefreshStatus{Records: count}

	s.schedMu.Lock()
	if s.schedule != nil {
		interval := s.schedule.Interval()
		status.IntervalMS = interval.Milliseconds()
		status.AutoRefresh = interval > 0
	}
	s.schedMu.Unlock()

	s.mu.Lock()
	status.AppliedSequence = s.applied
	if s.lastRefreshed != nil {
		t := *s.lastRefreshed
		status.LastRefreshed = &t
	}
	s.mu.Unlock()

	last, err := s.store.GetLatestRefreshRun(ctx)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("loading latest refresh run: %w", err)
	}
	status.LastRun = last
	return status, nil
}

// AppliedSequence returns the sequence of the dataset currently served.
func (s *RefreshService) AppliedSequence() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applied
}

// ListRuns returns refresh history, newest first.
func (s *RefreshService) ListRuns(ctx context.Context, limit, offset int) ([]*domain.RefreshRun, error) {
	return s.store.ListRefreshRuns(ctx, limit, offset)
}

// GetRun returns one refresh run by ID.
func (s *RefreshService) GetRun(ctx context.Context, id string) (*domain.RefreshRun, error) {
	return s.store.GetRefreshRun(ctx, id)
}

// Query returns the stored records matching f, sorted by f.Sort.
func (s *RefreshService) Query(ctx context.Context, f domain.Filter) ([]domain.IOC, error) {
	records, err := s.store.ListIOCs(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing iocs: %w", err)
	}
	return pipeline.Sort(pipeline.ApplyFilter(records, f), f.Sort), nil
}

// Stats aggregates the stored records matching f. Records from sources
// outside the known set are left out of the counts.
func (s *RefreshService) Stats(ctx context.Context, f domain.Filter) (domain.Aggregation, error) {
	records, err := s.store.ListIOCs(ctx)
	if err != nil {
		return domain.Aggregation{}, fmt.Errorf("listing iocs: %w", err)
	}
	filtered := pipeline.ApplyFilter(records, f)
	known := make([]domain.IOC, 0, len(filtered))
	for _, r := range filtered {
		if s.sources.Known(r.Source) {
			known = append(known, r)
		}
	}
	return pipeline.Aggregate(known), nil
}

// Sources returns the distinct sources of the stored records in first-seen
// order.
func (s *RefreshService) Sources(ctx context.Context) ([]string, error) {
	records, err := s.store.ListIOCs(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing iocs: %w", err)
	}
	return pipeline.Sources(records), nil
}
