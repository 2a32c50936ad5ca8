package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bcnelson/ioc-dashboard/internal/domain"
)

func sampleIOCs() []domain.IOC {
	return []domain.IOC{
		{Value: "192.0.2.1", Type: domain.IOCTypeIP, Source: "spamhaus", Timestamp: "2024-01-05T10:00:00Z"},
		{Value: "198.51.100.0/24", Type: domain.IOCTypeSubnet, Source: "blocklist.de", Timestamp: "2024-01-05T11:00:00Z"},
	}
}

func TestStore_ReplaceIOCs(t *testing.T) {
	ctx := context.Background()
	store := New()

	got, err := store.ListIOCs(ctx)
	if err != nil {
		t.Fatalf("ListIOCs() error = %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("Expected empty non-nil list, got %v", got)
	}

	records := sampleIOCs()
	if err := store.ReplaceIOCs(ctx, records); err != nil {
		t.Fatalf("ReplaceIOCs() error = %v", err)
	}
	records[0].Value = "mutated"

	got, _ = store.ListIOCs(ctx)
	if len(got) != 2 || got[0].Value != "192.0.2.1" {
		t.Errorf("Store did not keep its own copy: %v", got)
	}

	if err := store.ReplaceIOCs(ctx, nil); err != nil {
		t.Fatalf("ReplaceIOCs() error = %v", err)
	}
	count, _ := store.CountIOCs(ctx)
	if count != 0 {
		t.Errorf("Expected 0 records after replace, got %d", count)
	}
}

func TestStore_RefreshRuns(t *testing.T) {
	ctx := context.Background()
	store := New()
	base := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)

	if _, err := store.GetLatestRefreshRun(ctx); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	for i, id := range []string{"a", "b", "c"} {
		run := &domain.RefreshRun{ID: id, Sequence: uint64(i + 1), Status: domain.RefreshSuccess, StartedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := store.CreateRefreshRun(ctx, run); err != nil {
			t.Fatalf("CreateRefreshRun() error = %v", err)
		}
	}
	if err := store.CreateRefreshRun(ctx, &domain.RefreshRun{ID: "a"}); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Errorf("Expected ErrAlreadyExists, got %v", err)
	}

	latest, err := store.GetLatestRefreshRun(ctx)
	if err != nil {
		t.Fatalf("GetLatestRefreshRun() error = %v", err)
	}
	if latest.ID != "c" {
		t.Errorf("Expected latest run c, got %s", latest.ID)
	}

	runs, _ := store.ListRefreshRuns(ctx, 2, 1)
	if len(runs) != 2 || runs[0].ID != "b" || runs[1].ID != "a" {
		t.Errorf("Unexpected page: %+v", runs)
	}
	runs, _ = store.ListRefreshRuns(ctx, 10, 5)
	if len(runs) != 0 {
		t.Errorf("Expected empty page past the end, got %d", len(runs))
	}

	if _, err := store.GetRefreshRun(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestTx_CommitAndRollback(t *testing.T) {
	ctx := context.Background()
	store := New()

	tx, _ := store.BeginTx(ctx)
	tx.ReplaceIOCs(ctx, sampleIOCs())
	tx.CreateRefreshRun(ctx, &domain.RefreshRun{ID: "r1", Sequence: 1})

	if count, _ := store.CountIOCs(ctx); count != 0 {
		t.Errorf("Expected writes to stay pending before commit, got %d records", count)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if count, _ := store.CountIOCs(ctx); count != 2 {
		t.Errorf("Expected 2 records after commit, got %d", count)
	}
	if _, err := store.GetRefreshRun(ctx, "r1"); err != nil {
		t.Errorf("Expected run after commit, got %v", err)
	}

	tx, _ = store.BeginTx(ctx)
	tx.ReplaceIOCs(ctx, nil)
	tx.Rollback()
	if count, _ := store.CountIOCs(ctx); count != 2 {
		t.Errorf("Expected rollback to discard writes, got %d records", count)
	}
}
