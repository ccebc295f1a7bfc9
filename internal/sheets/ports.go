package sheets

import "context"

// Ports for outbound adapters.
type (
	// Exporter appends monthly summary rows to a spreadsheet.
	Exporter interface {
		// AppendRows writes rows after the last used row and returns a
		// reference to the written range.
		AppendRows(ctx context.Context, rows []SummaryRow) (rowRef string, err error)
	}
)
