// Package storage keeps the client's durable state: the bearer credential,
// the last good snapshot per user and the bookkeeping of the agent
// (alerts already sent, months already exported).
package storage

import (
	"context"
	"errors"
	"time"

	"financeflow/internal/core"
	"financeflow/internal/session"
)

var ErrNoSnapshot = errors.New("no stored snapshot")

// Repository is implemented by the SQLite and memory stores.
type Repository interface {
	session.TokenStore

	SaveSnapshot(ctx context.Context, userID string, snap core.Snapshot) error
	LoadSnapshot(ctx context.Context, userID string) (core.Snapshot, error)

	// AlertSent reports whether an alert for (user, category, month) was
	// already recorded.
	AlertSent(ctx context.Context, userID string, category core.Category, month core.MonthKey) (bool, error)
	// MarkAlertSent records an over-budget alert and reports whether this
	// was the first one for (user, category, month).
	MarkAlertSent(ctx context.Context, userID string, category core.Category, month core.MonthKey, at time.Time) (bool, error)

	// LastExportFingerprint returns "" when the month was never exported.
	LastExportFingerprint(ctx context.Context, userID string, month core.MonthKey) (string, error)
	RecordExport(ctx context.Context, userID string, month core.MonthKey, fingerprint string, at time.Time) error

	Close() error
}
