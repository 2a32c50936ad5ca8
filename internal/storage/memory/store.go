package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/bcnelson/ioc-dashboard/internal/domain"
	"github.com/bcnelson/ioc-dashboard/internal/storage"
)

// Store is an in-memory implementation of the storage interface.
// It is the default backing for the dashboard state.
type Store struct {
	mu sync.RWMutex

	iocs        []domain.IOC
	refreshRuns map[string]*domain.RefreshRun // key: id
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		iocs:        []domain.IOC{},
		refreshRuns: make(map[string]*domain.RefreshRun),
	}
}

func (s *Store) Close() error { return nil }

func (s *Store) BeginTx(ctx context.Context) (storage.Transaction, error) {
	return &Tx{store: s}, nil
}

// Tx buffers writes and applies them to the store on Commit.
// Reads inside the transaction see the committed store state.
type Tx struct {
	store *Store

	iocs *[]domain.IOC
	runs []*domain.RefreshRun
	done bool
}

func (t *Tx) Commit() error {
	if t.done {
		return domain.ErrInvalidInput
	}
	t.done = true

	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for _, run := range t.runs {
		if _, exists := t.store.refreshRuns[run.ID]; exists {
			return domain.ErrAlreadyExists
		}
	}
	if t.iocs != nil {
		t.store.iocs = *t.iocs
	}
	for _, run := range t.runs {
		t.store.refreshRuns[run.ID] = run
	}
	return nil
}

func (t *Tx) Rollback() error {
	t.done = true
	t.iocs = nil
	t.runs = nil
	return nil
}

func (t *Tx) Close() error { return nil }

func (t *Tx) BeginTx(ctx context.Context) (storage.Transaction, error) {
	return nil, domain.ErrInvalidInput
}

func (t *Tx) ReplaceIOCs(ctx context.Context, records []domain.IOC) error {
	cp := slices.Clone(records)
	if cp == nil {
		cp = []domain.IOC{}
	}
	t.iocs = &cp
	return nil
}
func (t *Tx) ListIOCs(ctx context.Context) ([]domain.IOC, error) {
	return t.store.ListIOCs(ctx)
}
func (t *Tx) CountIOCs(ctx context.Context) (int, error) {
	return t.store.CountIOCs(ctx)
}
func (t *Tx) CreateRefreshRun(ctx context.Context, run *domain.RefreshRun) error {
	cp := *run
	t.runs = append(t.runs, &cp)
	return nil
}
func (t *Tx) GetRefreshRun(ctx context.Context, id string) (*domain.RefreshRun, error) {
	return t.store.GetRefreshRun(ctx, id)
}
func (t *Tx) GetLatestRefreshRun(ctx context.Context) (*domain.RefreshRun, error) {
	return t.store.GetLatestRefreshRun(ctx)
}
func (t *Tx) ListRefreshRuns(ctx context.Context, limit, offset int) ([]*domain.RefreshRun, error) {
	return t.store.ListRefreshRuns(ctx, limit, offset)
}

// ============================================
// IOCs
// ============================================

func (s *Store) ReplaceIOCs(ctx context.Context, records []domain.IOC) error {
	cp := slices.Clone(records)
	if cp == nil {
		cp = []domain.IOC{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.iocs = cp
	return nil
}

func (s *Store) ListIOCs(ctx context.Context) ([]domain.IOC, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.iocs), nil
}

func (s *Store) CountIOCs(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.iocs), nil
}

// ============================================
// Refresh Runs
// ============================================

func (s *Store) CreateRefreshRun(ctx context.Context, run *domain.RefreshRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.refreshRuns[run.ID]; exists {
		return domain.ErrAlreadyExists
	}
	cp := *run
	s.refreshRuns[run.ID] = &cp
	return nil
}

func (s *Store) GetRefreshRun(ctx context.Context, id string) (*domain.RefreshRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, exists := s.refreshRuns[id]
	if !exists {
		return nil, domain.ErrNotFound
	}
	cp := *run
	return &cp, nil
}

func (s *Store) GetLatestRefreshRun(ctx context.Context) (*domain.RefreshRun, error) {
	runs := s.sortedRuns()
	if len(runs) == 0 {
		return nil, domain.ErrNotFound
	}
	return runs[0], nil
}

func (s *Store) ListRefreshRuns(ctx context.Context, limit, offset int) ([]*domain.RefreshRun, error) {
	runs := s.sortedRuns()
	offset = max(offset, 0)
	if offset >= len(runs) {
		return []*domain.RefreshRun{}, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(runs) {
		end = len(runs)
	}
	return runs[offset:end], nil
}

// sortedRuns returns copies of all runs, newest sequence first.
func (s *Store) sortedRuns() []*domain.RefreshRun {
	s.mu.RLock()
	defer s.mu.RUnlock()
	runs := make([]*domain.RefreshRun, 0, len(s.refreshRuns))
	for _, run := range s.refreshRuns {
		cp := *run
		runs = append(runs, &cp)
	}
	slices.SortFunc(runs, func(a, b *domain.RefreshRun) int {
		if a.Sequence != b.Sequence {
			if a.Sequence > b.Sequence {
				return -1
			}
			return 1
		}
		return b.StartedAt.Compare(a.StartedAt)
	})
	return runs
}
