package sql

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"

	"github.com/bcnelson/ioc-dashboard/internal/domain"
	"github.com/bcnelson/ioc-dashboard/internal/storage"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// isUniqueViolation checks if an error is a UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	// SQLite
	if strings.Contains(errStr, "UNIQUE constraint failed") {
		return true
	}
	// PostgreSQL
	if strings.Contains(errStr, "duplicate key value violates unique constraint") {
		return true
	}
	return false
}

// wrapUniqueError converts UNIQUE violations to domain.ErrAlreadyExists.
func wrapUniqueError(err error) error {
	if isUniqueViolation(err) {
		return domain.ErrAlreadyExists
	}
	return err
}

// Store implements the storage.Storage interface using SQL.
type Store struct {
	db     *sqlx.DB
	driver string
}

// Ensure Store implements storage.Storage.
var _ storage.Storage = (*Store)(nil)

// New creates a new SQL store and runs the embedded migrations.
func New(driver, dsn string) (*Store, error) {
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	goose.SetBaseFS(embedMigrations)
	if err := goose.SetDialect(driver); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting goose dialect: %w", err)
	}

	if err := goose.Up(db.DB, "migrations"); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db, driver: driver}, nil
}

// NewWithDB wraps an already migrated connection.
func NewWithDB(db *sqlx.DB, driver string) *Store {
	return &Store{db: db, driver: driver}
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// BeginTx starts a new transaction.
func (s *Store) BeginTx(ctx context.Context) (storage.Transaction, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &Tx{tx: tx, driver: s.driver}, nil
}

// Tx wraps a database transaction.
type Tx struct {
	tx     *sqlx.Tx
	driver string
}

// Commit commits the transaction.
func (t *Tx) Commit() error {
	return t.tx.Commit()
}

// Rollback rolls back the transaction.
func (t *Tx) Rollback() error {
	return t.tx.Rollback()
}

// Close is a no-op for transactions (they should be committed or rolled back).
func (t *Tx) Close() error {
	return nil
}

// BeginTx is not supported within a transaction.
func (t *Tx) BeginTx(ctx context.Context) (storage.Transaction, error) {
	return nil, fmt.Errorf("nested transactions not supported")
}

// helper to get the correct database interface
type dbInterface interface {
	sqlx.ExtContext
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// ============================================
// IOCs
// ============================================

func replaceIOCs(ctx context.Context, db dbInterface, records []domain.IOC) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM iocs`); err != nil {
		return fmt.Errorf("clearing iocs: %w", err)
	}
	for i, r := range records {
		_, err := db.ExecContext(ctx,
			`INSERT INTO iocs (position, value, type, source, observed_at) VALUES ($1, $2, $3, $4, $5)`,
			i, r.Value, r.Type, r.Source, r.Timestamp)
		if err != nil {
			return fmt.Errorf("inserting ioc %d: %w", i, err)
		}
	}
	return nil
}

func (s *Store) ReplaceIOCs(ctx context.Context, records []domain.IOC) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if err := replaceIOCs(ctx, tx, records); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (t *Tx) ReplaceIOCs(ctx context.Context, records []domain.IOC) error {
	return replaceIOCs(ctx, t.tx, records)
}

func listIOCs(ctx context.Context, db dbInterface) ([]domain.IOC, error) {
	records := []domain.IOC{}
	err := db.SelectContext(ctx, &records,
		`SELECT value, type, source, observed_at FROM iocs ORDER BY position`)
	return records, err
}

func (s *Store) ListIOCs(ctx context.Context) ([]domain.IOC, error) {
	return listIOCs(ctx, s.db)
}

func (t *Tx) ListIOCs(ctx context.Context) ([]domain.IOC, error) {
	return listIOCs(ctx, t.tx)
}

func countIOCs(ctx context.Context, db dbInterface) (int, error) {
	var count int
	err := db.GetContext(ctx, &count, `SELECT COUNT(*) FROM iocs`)
	return count, err
}

func (s *Store) CountIOCs(ctx context.Context) (int, error) {
	return countIOCs(ctx, s.db)
}

func (t *Tx) CountIOCs(ctx context.Context) (int, error) {
	return countIOCs(ctx, t.tx)
}

// ============================================
// Refresh Runs
// ============================================

const refreshRunColumns = `id, seq_no, trigger_kind, status, fetched, stored, duplicates, unknown, malformed, error_message, started_at, finished_at`

func createRefreshRun(ctx context.Context, db dbInterface, run *domain.RefreshRun) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO refresh_runs (`+refreshRunColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		run.ID, run.Sequence, run.Trigger, run.Status, run.Fetched, run.Stored,
		run.Duplicates, run.Unknown, run.Malformed, run.Error, run.StartedAt, run.FinishedAt)
	return wrapUniqueError(err)
}

func (s *Store) CreateRefreshRun(ctx context.Context, run *domain.RefreshRun) error {
	return createRefreshRun(ctx, s.db, run)
}

func (t *Tx) CreateRefreshRun(ctx context.Context, run *domain.RefreshRun) error {
	return createRefreshRun(ctx, t.tx, run)
}

func getRefreshRun(ctx context.Context, db dbInterface, id string) (*domain.RefreshRun, error) {
	var run domain.RefreshRun
	err := db.GetContext(ctx, &run,
		`SELECT `+refreshRunColumns+` FROM refresh_runs WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (s *Store) GetRefreshRun(ctx context.Context, id string) (*domain.RefreshRun, error) {
	return getRefreshRun(ctx, s.db, id)
}

func (t *Tx) GetRefreshRun(ctx context.Context, id string) (*domain.RefreshRun, error) {
	return getRefreshRun(ctx, t.tx, id)
}

func getLatestRefreshRun(ctx context.Context, db dbInterface) (*domain.RefreshRun, error) {
	var run domain.RefreshRun
	err := db.GetContext(ctx, &run,
		`SELECT `+refreshRunColumns+` FROM refresh_runs ORDER BY seq_no DESC, started_at DESC LIMIT 1`)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (s *Store) GetLatestRefreshRun(ctx context.Context) (*domain.RefreshRun, error) {
	return getLatestRefreshRun(ctx, s.db)
}

func (t *Tx) GetLatestRefreshRun(ctx context.Context) (*domain.RefreshRun, error) {
	return getLatestRefreshRun(ctx, t.tx)
}

func listRefreshRuns(ctx context.Context, db dbInterface, limit, offset int) ([]*domain.RefreshRun, error) {
	runs := []*domain.RefreshRun{}
	err := db.SelectContext(ctx, &runs,
		`SELECT `+refreshRunColumns+` FROM refresh_runs ORDER BY seq_no DESC, started_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	return runs, err
}

func (s *Store) ListRefreshRuns(ctx context.Context, limit, offset int) ([]*domain.RefreshRun, error) {
	return listRefreshRuns(ctx, s.db, limit, offset)
}

func (t *Tx) ListRefreshRuns(ctx context.Context, limit, offset int) ([]*domain.RefreshRun, error) {
	return listRefreshRuns(ctx, t.tx, limit, offset)
}
