package storage

import (
	"context"

	"github.com/bcnelson/ioc-dashboard/internal/domain"
)

// Storage defines the interface for the storage layer.
// Implementations must be safe for concurrent use.
type Storage interface {
	// Close closes the storage connection.
	Close() error

	// IOCs. The stored set is always replaced as a whole and keeps the
	// order it was written in.
	ReplaceIOCs(ctx context.Context, records []domain.IOC) error
	ListIOCs(ctx context.Context) ([]domain.IOC, error)
	CountIOCs(ctx context.Context) (int, error)

	// Refresh runs
	CreateRefreshRun(ctx context.Context, run *domain.RefreshRun) error
	GetRefreshRun(ctx context.Context, id string) (*domain.RefreshRun, error)
	GetLatestRefreshRun(ctx context.Context) (*domain.RefreshRun, error)
	ListRefreshRuns(ctx context.Context, limit, offset int) ([]*domain.RefreshRun, error)

	// Transaction support
	BeginTx(ctx context.Context) (Transaction, error)
}

// Transaction represents a database transaction.
type Transaction interface {
	Storage
	Commit() error
	Rollback() error
}
