package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/amishk599/mcfradar/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore(t *testing.T) {
	runSuite(t, func(t *testing.T) model.Store { return newTestStore(t) })
}

func TestSQLiteStore_ReopenKeepsData(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	run, _ := s.BeginRun(ctx, model.RunFull, nil)
	if err := s.UpsertJobDetails(ctx, run.ID, []model.JobDetail{{UUID: "keep"}}, nil); err != nil {
		t.Fatalf("UpsertJobDetails: %v", err)
	}
	s.Close()

	s, err = NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()

	ids, err := s.ExistingIDs(ctx)
	if err != nil {
		t.Fatalf("ExistingIDs: %v", err)
	}
	if _, ok := ids["keep"]; !ok {
		t.Error("job lost across reopen")
	}
}

func TestSQLiteStore_BeginRunAvoidsIDCollision(t *testing.T) {
	s := newTestStore(t)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s.now = func() time.Time { return fixed }
	ctx := context.Background()

	a, err := s.BeginRun(ctx, model.RunFull, nil)
	if err != nil {
		t.Fatalf("BeginRun a: %v", err)
	}
	b, err := s.BeginRun(ctx, model.RunFull, nil)
	if err != nil {
		t.Fatalf("BeginRun b: %v", err)
	}
	if a.ID != "20260102T030405.000000Z" {
		t.Errorf("a.ID = %q", a.ID)
	}
	if b.ID != "20260102T030405.000001Z" {
		t.Errorf("b.ID = %q, want start bumped by 1µs", b.ID)
	}
}

func TestSQLiteStore_LastSeenNeverMovesBackwards(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	later := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	earlier := later.Add(-time.Hour)

	s.now = func() time.Time { return later }
	run, _ := s.BeginRun(ctx, model.RunFull, nil)
	if err := s.UpsertJobDetails(ctx, run.ID, []model.JobDetail{{UUID: "j"}}, nil); err != nil {
		t.Fatalf("UpsertJobDetails: %v", err)
	}

	s.now = func() time.Time { return earlier }
	if err := s.Touch(ctx, run.ID, []string{"j"}); err != nil {
		t.Fatalf("Touch: %v", err)
	}

	j, err := s.GetJob(ctx, "j")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if j.LastSeenAt == nil || !j.LastSeenAt.Equal(later) {
		t.Errorf("LastSeenAt = %v, want %v", j.LastSeenAt, later)
	}
}
