package core

import (
	"slices"
	"time"
)

// Snapshot is one consistent view of the polled collections. Expenses and
// budgets always come from the same poll cycle.
type Snapshot struct {
	Expenses  []Expense `json:"expenses"`
	Budgets   []Budget  `json:"budgets"`
	FetchedAt time.Time `json:"fetchedAt"`
}

// Clone returns a copy whose slices do not alias s.
func (s Snapshot) Clone() Snapshot {
	return Snapshot{
		Expenses:  slices.Clone(s.Expenses),
		Budgets:   slices.Clone(s.Budgets),
		FetchedAt: s.FetchedAt,
	}
}

// IsZero reports whether no poll has completed yet.
func (s Snapshot) IsZero() bool {
	return s.FetchedAt.IsZero()
}

// MonthOf returns the calendar month of t.
func MonthOf(t time.Time) MonthKey {
	return MonthKey{Year: t.Year(), Month: int(t.Month())}
}

// String formats the month as YYYY-MM.
func (m MonthKey) String() string {
	return time.Date(m.Year, time.Month(m.Month), 1, 0, 0, 0, 0, time.UTC).Format("2006-01")
}
