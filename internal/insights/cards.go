package insights

import (
	"time"

	"financeflow/internal/core"
)

// BudgetCard is the per-category budget progress view.
type BudgetCard struct {
	Category  core.Category
	HasBudget bool
	Budget    core.Money
	Spent     core.Money

	// Remaining is only meaningful when HasRemaining is set; a category
	// without a budget renders it as "N/A".
	Remaining    core.Money
	HasRemaining bool

	// Percentage is clamped to [0, 100]. OverBudget carries the overflow.
	Percentage float64
	OverBudget bool
}

// BudgetCards returns one card per category in category order.
func BudgetCards(expenses []core.Expense, budgets []core.Budget, now time.Time) []BudgetCard {
	sums := spentByCategory(expenses, now)
	cats := core.Categories()
	out := make([]BudgetCard, 0, len(cats))
	for _, c := range cats {
		out = append(out, newCard(c, sums[c], findBudget(budgets, c)))
	}
	return out
}

// Card returns the budget card of a single category.
func Card(category core.Category, expenses []core.Expense, budgets []core.Budget, now time.Time) BudgetCard {
	return newCard(category, spentByCategory(expenses, now)[category], findBudget(budgets, category))
}

func findBudget(budgets []core.Budget, c core.Category) *core.Budget {
	for i := range budgets {
		if budgets[i].Category == c {
			return &budgets[i]
		}
	}
	return nil
}

func newCard(c core.Category, spent core.Money, budget *core.Budget) BudgetCard {
	card := BudgetCard{Category: c, Spent: spent}
	if budget == nil {
		return card
	}
	card.HasBudget = true
	card.Budget = budget.Amount
	card.Remaining = budget.Amount.Sub(spent).ClampZero()
	card.HasRemaining = true
	card.OverBudget = spent.Cents > budget.Amount.Cents
	card.Percentage = percentage(spent, budget.Amount)
	return card
}

// percentage returns min(100, 100*spent/budget), or 0 for a zero budget.
func percentage(spent, budget core.Money) float64 {
	if budget.Cents <= 0 {
		return 0
	}
	p := float64(spent.Cents) * 100 / float64(budget.Cents)
	return min(p, 100)
}
