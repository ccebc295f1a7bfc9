package insights

import (
	"time"

	"financeflow/internal/core"
)

// RecentCount is the size of the recent transactions list.
const RecentCount = 5

// DashboardView bundles everything the dashboard shows.
type DashboardView struct {
	MonthLabel string
	Summary    Summary
	Breakdown  []core.CategoryAmount
	Comparison []BudgetComparison
	Recent     []core.Expense
}

// Dashboard derives the dashboard view for the month of now.
func Dashboard(expenses []core.Expense, budgets []core.Budget, now time.Time) DashboardView {
	return DashboardView{
		MonthLabel: now.Format("January 2006"),
		Summary:    Summarize(expenses, budgets, now),
		Breakdown:  Breakdown(expenses, now),
		Comparison: CompareBudgets(expenses, budgets, now),
		Recent:     Recent(expenses, RecentCount),
	}
}
