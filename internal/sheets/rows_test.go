package sheets

import (
	"testing"
	"time"

	"financeflow/internal/core"
)

func TestBuildRows(t *testing.T) {
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	snap := core.Snapshot{
		Expenses: []core.Expense{
			{ID: "1", Amount: core.NewMoney(50, 0), Category: core.Food, Date: core.NewDate(2026, 10, 2)},
			{ID: "2", Amount: core.NewMoney(7, 25), Category: core.Other, Date: core.NewDate(2026, 10, 5)},
			{ID: "3", Amount: core.NewMoney(99, 0), Category: core.Bills, Date: core.NewDate(2026, 9, 30)},
		},
		Budgets: []core.Budget{
			{Category: core.Food, Amount: core.NewMoney(100, 0)},
			{Category: core.Transport, Amount: core.NewMoney(30, 0)},
		},
	}

	rows := BuildRows(snap, now)
	want := []core.Category{core.Food, core.Transport, core.Other}
	if len(rows) != len(want) {
		t.Fatalf("rows = %+v", rows)
	}
	for i, c := range want {
		if rows[i].Category != c {
			t.Errorf("row %d category = %s, want %s", i, rows[i].Category, c)
		}
		if rows[i].Month != (core.MonthKey{Year: 2026, Month: 10}) {
			t.Errorf("row %d month = %v", i, rows[i].Month)
		}
	}

	food := rows[0].Values()
	expected := []any{"2026-10", "Food", "100.00", "50.00", "50.00", "50.0"}
	for i := range expected {
		if food[i] != expected[i] {
			t.Errorf("Food cell %d = %v, want %v", i, food[i], expected[i])
		}
	}
	if other := rows[2].Values(); other[2] != "N/A" || other[4] != "N/A" {
		t.Errorf("Other row = %v", other)
	}
}

func TestFingerprint(t *testing.T) {
	base := []SummaryRow{{Month: core.MonthKey{Year: 2026, Month: 10}, Category: core.Food, Spent: core.NewMoney(1, 0)}}
	same := []SummaryRow{{Month: core.MonthKey{Year: 2026, Month: 10}, Category: core.Food, Spent: core.NewMoney(1, 0)}}
	changed := []SummaryRow{{Month: core.MonthKey{Year: 2026, Month: 10}, Category: core.Food, Spent: core.NewMoney(1, 1)}}

	if Fingerprint(base) != Fingerprint(same) {
		t.Error("equal rows must have equal fingerprints")
	}
	if Fingerprint(base) == Fingerprint(changed) {
		t.Error("different rows must have different fingerprints")
	}
	if Fingerprint(nil) == Fingerprint(base) {
		t.Error("empty and non-empty exports must differ")
	}
}
