package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	ports "financeflow/internal/sheets"
)

// Exporter records appended rows in memory. Used for dry runs and tests.
type Exporter struct {
	mu   sync.Mutex
	rows []ports.SummaryRow
}

var _ ports.Exporter = (*Exporter)(nil)

func New() *Exporter {
	return &Exporter{}
}

// AppendRows stores the rows and returns a synthetic A1 range.
func (e *Exporter) AppendRows(_ context.Context, rows []ports.SummaryRow) (string, error) {
	if len(rows) == 0 {
		return "", nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	first := len(e.rows) + 2 // row 1 is the header
	e.rows = append(e.rows, rows...)
	return fmt.Sprintf("mem!A%d:F%d", first, len(e.rows)+1), nil
}

// Rows returns a copy of everything appended so far.
func (e *Exporter) Rows() []ports.SummaryRow {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.rows)
}
