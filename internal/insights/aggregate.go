// Package insights derives the dashboard and budget views from raw expense
// and budget snapshots.
//
// Every function here is pure: inputs are never mutated, results are freshly
// allocated, and the current instant is always passed in explicitly. The
// location of now defines the calendar used for month scoping.
package insights

import (
	"cmp"
	"slices"
	"time"

	"financeflow/internal/core"
)

// MaxComparisons bounds the budget-vs-actual series.
const MaxComparisons = 5

// Summary holds the month totals shown on the dashboard cards.
type Summary struct {
	Spent     core.Money // month-scoped
	Budgeted  core.Money // all budgets, not month-scoped
	Remaining core.Money // max(0, Budgeted - Spent)
}

// BudgetComparison is one bar of the budget-vs-actual chart.
type BudgetComparison struct {
	Category core.Category
	Budget   core.Money
	Spent    core.Money
}

// MonthScoped returns the expenses whose date falls in the calendar month of now.
func MonthScoped(expenses []core.Expense, now time.Time) []core.Expense {
	year, month := now.Year(), now.Month()
	out := make([]core.Expense, 0, len(expenses))
	for _, e := range expenses {
		if e.Date.InMonth(year, month) {
			out = append(out, e)
		}
	}
	return out
}

// Summarize computes spent, budgeted and remaining totals.
func Summarize(expenses []core.Expense, budgets []core.Budget, now time.Time) Summary {
	var s Summary
	for _, e := range MonthScoped(expenses, now) {
		s.Spent = s.Spent.Add(e.Amount)
	}
	for _, b := range budgets {
		s.Budgeted = s.Budgeted.Add(b.Amount)
	}
	s.Remaining = s.Budgeted.Sub(s.Spent).ClampZero()
	return s
}

// spentByCategory sums the month-scoped expenses per category.
func spentByCategory(expenses []core.Expense, now time.Time) map[core.Category]core.Money {
	sums := make(map[core.Category]core.Money)
	for _, e := range MonthScoped(expenses, now) {
		sums[e.Category] = sums[e.Category].Add(e.Amount)
	}
	return sums
}

// Breakdown returns the month-scoped spending per category in category
// order. Categories with nothing spent are left out.
func Breakdown(expenses []core.Expense, now time.Time) []core.CategoryAmount {
	sums := spentByCategory(expenses, now)
	out := make([]core.CategoryAmount, 0, len(sums))
	for _, c := range core.Categories() {
		if amount := sums[c]; !amount.IsZero() {
			out = append(out, core.CategoryAmount{Category: c, Amount: amount})
		}
	}
	return out
}

// CompareBudgets pairs each budget with the month-scoped spending of its
// category, ordered by budget amount descending. Ties keep the order of the
// budgets slice. At most MaxComparisons entries are returned.
func CompareBudgets(expenses []core.Expense, budgets []core.Budget, now time.Time) []BudgetComparison {
	sums := spentByCategory(expenses, now)
	out := make([]BudgetComparison, 0, len(budgets))
	for _, b := range budgets {
		out = append(out, BudgetComparison{
			Category: b.Category,
			Budget:   b.Amount,
			Spent:    sums[b.Category],
		})
	}
	slices.SortStableFunc(out, func(a, b BudgetComparison) int {
		return cmp.Compare(b.Budget.Cents, a.Budget.Cents)
	})
	if len(out) > MaxComparisons {
		out = out[:MaxComparisons]
	}
	return out
}
