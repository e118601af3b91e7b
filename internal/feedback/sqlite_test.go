package feedback

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "nested", "feedback.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteRecordAndList(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	entries := []Entry{
		{SourceText: "Hello", TargetText: "你好", WasCorrect: true, RequestID: "req-1", CreatedAt: base},
		{SourceText: "Goodbye", TargetText: "再见", WasCorrect: false, CreatedAt: base.Add(time.Minute)},
	}
	for _, entry := range entries {
		if err := store.Record(ctx, entry); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	got, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if got[0].SourceText != "Goodbye" || got[0].WasCorrect {
		t.Fatalf("expected newest entry first, got %+v", got[0])
	}
	if got[1].RequestID != "req-1" || !got[1].WasCorrect || !got[1].CreatedAt.Equal(base) {
		t.Fatalf("unexpected stored entry: %+v", got[1])
	}
	if got[1].ID == "" {
		t.Fatal("expected generated id")
	}

	limited, err := store.List(ctx, 1)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("expected limit to apply, got %d", len(limited))
	}
}

func TestSQLiteRecordIsIdempotentByID(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	entry := Entry{ID: "7c1f3f4e-4f0e-4a43-9d3e-1b9c1d2e3f40", SourceText: "Hello", TargetText: "你好"}
	for range 2 {
		if err := store.Record(ctx, entry); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	n, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 entry, got %d", n)
	}
}

func TestSQLiteRejectsEmptyEntry(t *testing.T) {
	store := openTestStore(t)
	err := store.Record(context.Background(), Entry{SourceText: "  "})
	if !errors.Is(err, ErrInvalidEntry) {
		t.Fatalf("expected ErrInvalidEntry, got %v", err)
	}
}

func TestSQLiteReopenChecksSchemaVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feedback.db")
	ctx := context.Background()
	store, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if err := store.Record(ctx, Entry{SourceText: "Hello", TargetText: "你好"}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if _, err := store.db.ExecContext(ctx, "UPDATE schema_version SET version = 99"); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	_ = store.Close()

	if _, err := OpenSQLite(ctx, path); !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestIsSQLiteBusy(t *testing.T) {
	if !isSQLiteBusy(errors.New("database is locked (5) (SQLITE_BUSY)")) {
		t.Fatal("expected busy error to be detected")
	}
	if isSQLiteBusy(errors.New("no such table")) || isSQLiteBusy(nil) {
		t.Fatal("unexpected busy classification")
	}
}

func TestRetryOnBusyRetriesThenSucceeds(t *testing.T) {
	attempts := 0
	err := retryOnBusy(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return errors.New("database is locked")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("retryOnBusy: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}
