package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"financeflow/internal/core"
	"financeflow/internal/log"
	"financeflow/internal/session"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time; avoids SQLITE_BUSY between the poller and the agent workers.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// LoadToken implements session.TokenStore.
func (r *SQLiteRepository) LoadToken(ctx context.Context) (string, error) {
	var token string
	err := r.db.QueryRowContext(ctx, `SELECT token FROM credentials WHERE id = 1`).Scan(&token)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && token == "") {
		return "", session.ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("load token: %w", err)
	}
	return token, nil
}

// SaveToken implements session.TokenStore.
func (r *SQLiteRepository) SaveToken(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO credentials (id, token, updated_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET token = excluded.token, updated_at = excluded.updated_at`,
		token, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

// ClearToken implements session.TokenStore.
func (r *SQLiteRepository) ClearToken(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM credentials WHERE id = 1`); err != nil {
		return fmt.Errorf("clear token: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) SaveSnapshot(ctx context.Context, userID string, snap core.Snapshot) error {
	expenses, err := json.Marshal(nonNil(snap.Expenses))
	if err != nil {
		return fmt.Errorf("encode expenses: %w", err)
	}
	budgets, err := json.Marshal(nonNil(snap.Budgets))
	if err != nil {
		return fmt.Errorf("encode budgets: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO snapshots (user_id, expenses_json, budgets_json, fetched_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			expenses_json = excluded.expenses_json,
			budgets_json  = excluded.budgets_json,
			fetched_at    = excluded.fetched_at`,
		userID, string(expenses), string(budgets), snap.FetchedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	slog.DebugContext(ctx, "Snapshot saved",
		log.FieldComponent, log.ComponentStorage,
		log.FieldOperation, log.OpUpdate,
		log.FieldUserID, userID,
		"expenses", len(snap.Expenses),
		"budgets", len(snap.Budgets))
	return nil
}

func (r *SQLiteRepository) LoadSnapshot(ctx context.Context, userID string) (core.Snapshot, error) {
	var (
		expensesJSON, budgetsJSON string
		fetchedAt                 int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT expenses_json, budgets_json, fetched_at FROM snapshots WHERE user_id = ?`, userID).
		Scan(&expensesJSON, &budgetsJSON, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Snapshot{}, ErrNoSnapshot
	}
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("load snapshot: %w", err)
	}

	slog.DebugContext(ctx, "Snapshot loaded",
		log.FieldComponent, log.ComponentStorage,
		log.FieldOperation, log.OpRead,
		log.FieldUserID, userID)

	snap := core.Snapshot{FetchedAt: time.UnixMilli(fetchedAt)}
	if err := json.Unmarshal([]byte(expensesJSON), &snap.Expenses); err != nil {
		return core.Snapshot{}, fmt.Errorf("decode expenses: %w", err)
	}
	if err := json.Unmarshal([]byte(budgetsJSON), &snap.Budgets); err != nil {
		return core.Snapshot{}, fmt.Errorf("decode budgets: %w", err)
	}
	return snap, nil
}

func (r *SQLiteRepository) AlertSent(ctx context.Context, userID string, category core.Category, month core.MonthKey) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM sent_alerts WHERE user_id = ? AND category = ? AND year = ? AND month = ?`,
		userID, string(category), month.Year, month.Month).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check alert sent: %w", err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) MarkAlertSent(ctx context.Context, userID string, category core.Category, month core.MonthKey, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO sent_alerts (user_id, category, year, month, sent_at) VALUES (?, ?, ?, ?, ?)`,
		userID, string(category), month.Year, month.Month, at.UnixMilli())
	if err != nil {
		return false, fmt.Errorf("mark alert sent: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark alert sent: %w", err)
	}
	return n == 1, nil
}

func (r *SQLiteRepository) LastExportFingerprint(ctx context.Context, userID string, month core.MonthKey) (string, error) {
	var fp string
	err := r.db.QueryRowContext(ctx,
		`SELECT fingerprint FROM exports WHERE user_id = ? AND year = ? AND month = ?`,
		userID, month.Year, month.Month).Scan(&fp)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load export fingerprint: %w", err)
	}
	return fp, nil
}

func (r *SQLiteRepository) RecordExport(ctx context.Context, userID string, month core.MonthKey, fingerprint string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO exports (user_id, year, month, fingerprint, exported_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id, year, month) DO UPDATE SET
			fingerprint = excluded.fingerprint,
			exported_at = excluded.exported_at`,
		userID, month.Year, month.Month, fingerprint, at.UnixMilli())
	if err != nil {
		return fmt.Errorf("record export: %w", err)
	}
	return nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
