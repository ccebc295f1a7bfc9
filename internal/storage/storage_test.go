package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"financeflow/internal/core"
	"financeflow/internal/session"
)

func repositories(t *testing.T) map[string]Repository {
	t.Helper()
	sqliteRepo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "nested", "ff.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { sqliteRepo.Close() })

	return map[string]Repository{
		"sqlite": sqliteRepo,
		"memory": NewMemoryRepository(),
	}
}

func TestTokenStore(t *testing.T) {
	ctx := context.Background()
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := repo.LoadToken(ctx); !errors.Is(err, session.ErrNoToken) {
				t.Fatalf("LoadToken on empty store = %v, want ErrNoToken", err)
			}

			if err := repo.SaveToken(ctx, "first"); err != nil {
				t.Fatalf("SaveToken: %v", err)
			}
			if err := repo.SaveToken(ctx, "second"); err != nil {
				t.Fatalf("SaveToken overwrite: %v", err)
			}
			got, err := repo.LoadToken(ctx)
			if err != nil || got != "second" {
				t.Fatalf("LoadToken = %q, %v", got, err)
			}

			if err := repo.ClearToken(ctx); err != nil {
				t.Fatalf("ClearToken: %v", err)
			}
			if _, err := repo.LoadToken(ctx); !errors.Is(err, session.ErrNoToken) {
				t.Errorf("LoadToken after clear = %v", err)
			}
		})
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	fetched := time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)
	snap := core.Snapshot{
		Expenses: []core.Expense{{
			ID: "e1", UserID: "u1", Amount: core.Money{Cents: 1250}, Category: core.Food,
			Description: "Lunch", Date: core.NewDate(2026, time.October, 3), CreatedAt: 42,
		}},
		Budgets:   []core.Budget{{ID: "b1", UserID: "u1", Category: core.Food, Amount: core.Money{Cents: 10000}}},
		FetchedAt: fetched,
	}

	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := repo.LoadSnapshot(ctx, "u1"); !errors.Is(err, ErrNoSnapshot) {
				t.Fatalf("LoadSnapshot on empty store = %v", err)
			}
			if err := repo.SaveSnapshot(ctx, "u1", snap); err != nil {
				t.Fatalf("SaveSnapshot: %v", err)
			}

			got, err := repo.LoadSnapshot(ctx, "u1")
			if err != nil {
				t.Fatalf("LoadSnapshot: %v", err)
			}
			if !got.FetchedAt.Equal(fetched) {
				t.Errorf("FetchedAt = %v, want %v", got.FetchedAt, fetched)
			}
			if len(got.Expenses) != 1 || len(got.Budgets) != 1 {
				t.Fatalf("snapshot = %+v", got)
			}
			e := got.Expenses[0]
			if e.ID != "e1" || e.Amount.Cents != 1250 || e.Category != core.Food || e.Date.String() != "2026-10-03" || e.CreatedAt != 42 {
				t.Errorf("expense = %+v", e)
			}
			if got.Budgets[0].Amount.Cents != 10000 {
				t.Errorf("budget = %+v", got.Budgets[0])
			}

			if _, err := repo.LoadSnapshot(ctx, "someone-else"); !errors.Is(err, ErrNoSnapshot) {
				t.Errorf("snapshots must be per user, got %v", err)
			}

			empty := core.Snapshot{FetchedAt: fetched.Add(time.Minute)}
			if err := repo.SaveSnapshot(ctx, "u1", empty); err != nil {
				t.Fatalf("SaveSnapshot replace: %v", err)
			}
			got, _ = repo.LoadSnapshot(ctx, "u1")
			if len(got.Expenses) != 0 || len(got.Budgets) != 0 {
				t.Errorf("replaced snapshot = %+v", got)
			}
		})
	}
}

func TestMarkAlertSent(t *testing.T) {
	ctx := context.Background()
	oct := core.MonthKey{Year: 2026, Month: 10}
	nov := core.MonthKey{Year: 2026, Month: 11}
	now := time.Now()

	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			steps := []struct {
				user     string
				category core.Category
				month    core.MonthKey
				want     bool
			}{
				{"u1", core.Food, oct, true},
				{"u1", core.Food, oct, false},
				{"u1", core.Transport, oct, true},
				{"u1", core.Food, nov, true},
				{"u2", core.Food, oct, true},
			}
			if sent, err := repo.AlertSent(ctx, "u1", core.Food, oct); err != nil || sent {
				t.Fatalf("AlertSent before marking = %v, %v", sent, err)
			}
			for i, s := range steps {
				first, err := repo.MarkAlertSent(ctx, s.user, s.category, s.month, now)
				if err != nil {
					t.Fatalf("step %d: %v", i, err)
				}
				if first != s.want {
					t.Errorf("step %d: first = %v, want %v", i, first, s.want)
				}
			}
			if sent, err := repo.AlertSent(ctx, "u1", core.Food, oct); err != nil || !sent {
				t.Errorf("AlertSent after marking = %v, %v", sent, err)
			}
			if sent, _ := repo.AlertSent(ctx, "u2", core.Transport, oct); sent {
				t.Error("AlertSent for unmarked key")
			}
		})
	}
}

func TestExportBookkeeping(t *testing.T) {
	ctx := context.Background()
	oct := core.MonthKey{Year: 2026, Month: 10}

	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			fp, err := repo.LastExportFingerprint(ctx, "u1", oct)
			if err != nil || fp != "" {
				t.Fatalf("fingerprint before export = %q, %v", fp, err)
			}
			if err := repo.RecordExport(ctx, "u1", oct, "abc", time.Now()); err != nil {
				t.Fatalf("RecordExport: %v", err)
			}
			if err := repo.RecordExport(ctx, "u1", oct, "def", time.Now()); err != nil {
				t.Fatalf("RecordExport again: %v", err)
			}
			fp, _ = repo.LastExportFingerprint(ctx, "u1", oct)
			if fp != "def" {
				t.Errorf("fingerprint = %q, want def", fp)
			}
			fp, _ = repo.LastExportFingerprint(ctx, "u1", core.MonthKey{Year: 2026, Month: 9})
			if fp != "" {
				t.Errorf("other month fingerprint = %q", fp)
			}
		})
	}
}

func TestSQLiteReopenKeepsState(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ff.db")

	repo, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := repo.SaveToken(ctx, "persisted"); err != nil {
		t.Fatalf("SaveToken: %v", err)
	}
	repo.Close()

	repo, err = NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer repo.Close()
	if got, err := repo.LoadToken(ctx); err != nil || got != "persisted" {
		t.Errorf("LoadToken after reopen = %q, %v", got, err)
	}
}
