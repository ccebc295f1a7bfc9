package sheets

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"financeflow/internal/core"
	"financeflow/internal/insights"
)

// Header is the column layout of an exported row.
var Header = []string{"Month", "Category", "Budget", "Spent", "Remaining", "Percentage"}

// SummaryRow is one category of one month as written to the sheet.
type SummaryRow struct {
	Month      core.MonthKey
	Category   core.Category
	HasBudget  bool
	Budget     core.Money
	Spent      core.Money
	Remaining  core.Money
	Percentage float64
}

// BuildRows derives the month summary of snap for the month containing now.
// Categories with neither a budget nor spending are left out.
func BuildRows(snap core.Snapshot, now time.Time) []SummaryRow {
	month := core.MonthOf(now)
	cards := insights.BudgetCards(snap.Expenses, snap.Budgets, now)

	rows := make([]SummaryRow, 0, len(cards))
	for _, c := range cards {
		if !c.HasBudget && c.Spent.IsZero() {
			continue
		}
		rows = append(rows, SummaryRow{
			Month:      month,
			Category:   c.Category,
			HasBudget:  c.HasBudget,
			Budget:     c.Budget,
			Spent:      c.Spent,
			Remaining:  c.Remaining,
			Percentage: c.Percentage,
		})
	}
	return rows
}

// Values renders the row as sheet cells. Amounts are plain decimals so
// USER_ENTERED input turns them into numbers.
func (r SummaryRow) Values() []any {
	budget, remaining := "N/A", "N/A"
	if r.HasBudget {
		budget = r.Budget.String()
		remaining = r.Remaining.String()
	}
	return []any{
		r.Month.String(),
		string(r.Category),
		budget,
		r.Spent.String(),
		remaining,
		fmt.Sprintf("%.1f", r.Percentage),
	}
}

// Fingerprint identifies the content of rows. Two exports of the same
// month with equal fingerprints carry the same numbers.
func Fingerprint(rows []SummaryRow) string {
	h := sha256.New()
	for _, r := range rows {
		for _, v := range r.Values() {
			fmt.Fprint(h, v, "\x1f")
		}
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}
