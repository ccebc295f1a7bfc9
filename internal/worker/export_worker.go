package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"financeflow/internal/core"
	"financeflow/internal/log"
	"financeflow/internal/sheets"
)

// ExportLog remembers what was last exported for each month.
type ExportLog interface {
	LastExportFingerprint(ctx context.Context, userID string, month core.MonthKey) (string, error)
	RecordExport(ctx context.Context, userID string, month core.MonthKey, fingerprint string, at time.Time) error
}

// ExportWorker appends the current month's budget summary to a spreadsheet
// whenever it differs from what was last exported.
type ExportWorker struct {
	exporter sheets.Exporter
	log      ExportLog
	now      func() time.Time
}

func NewExportWorker(exporter sheets.Exporter, history ExportLog) *ExportWorker {
	return &ExportWorker{exporter: exporter, log: history, now: time.Now}
}

// Export writes the summary of snap for userID. It reports whether rows
// were appended; an unchanged summary is skipped.
func (w *ExportWorker) Export(ctx context.Context, userID string, snap core.Snapshot) (bool, error) {
	if snap.IsZero() {
		slog.DebugContext(ctx, "Skipping export, no snapshot yet",
			log.FieldComponent, log.ComponentWorker,
			log.FieldUserID, userID)
		return false, nil
	}

	now := w.now()
	month := core.MonthOf(now)
	rows := sheets.BuildRows(snap, now)
	if len(rows) == 0 {
		return false, nil
	}
	fp := sheets.Fingerprint(rows)

	last, err := w.log.LastExportFingerprint(ctx, userID, month)
	if err != nil {
		return false, fmt.Errorf("load last export: %w", err)
	}
	if last == fp {
		slog.DebugContext(ctx, "Month summary unchanged, skipping export",
			log.FieldComponent, log.ComponentWorker,
			log.FieldUserID, userID,
			log.FieldYear, month.Year,
			log.FieldMonth, int(month.Month))
		return false, nil
	}

	ref, err := w.exporter.AppendRows(ctx, rows)
	if err != nil {
		return false, fmt.Errorf("append summary rows: %w", err)
	}

	if err := w.log.RecordExport(ctx, userID, month, fp, now); err != nil {
		// The rows are written; the next run exports them again.
		slog.WarnContext(ctx, "Failed to record export",
			log.FieldComponent, log.ComponentWorker,
			log.FieldUserID, userID,
			log.FieldYear, month.Year,
			log.FieldMonth, int(month.Month),
			log.FieldError, err)
	}

	slog.InfoContext(ctx, "Exported month summary",
		log.FieldComponent, log.ComponentWorker,
		log.FieldOperation, log.OpExport,
		log.FieldUserID, userID,
		log.FieldYear, month.Year,
		log.FieldMonth, int(month.Month),
		"rows", len(rows),
		"sheets_ref", ref)
	return true, nil
}
