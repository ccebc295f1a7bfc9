package main

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"financeflow/internal/storage"
)

func TestRun_WithoutSessionReturnsErrorCode(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "agent.db")
	t.Setenv("FINANCEFLOW_STORE", "sqlite")
	t.Setenv("FINANCEFLOW_DB_PATH", dbPath)
	t.Setenv("FINANCEFLOW_API_URL", "http://127.0.0.1:1/api")
	t.Setenv("LOG_LEVEL", "error")

	if code := run(); code != 1 {
		t.Fatalf("run() = %d, want 1", code)
	}

	// The store was closed on the way out, so it opens cleanly again.
	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer repo.Close()
	if _, err := repo.LoadSnapshot(context.Background(), "nobody"); !errors.Is(err, storage.ErrNoSnapshot) {
		t.Errorf("LoadSnapshot = %v, want ErrNoSnapshot", err)
	}
}
