package app

import (
	"context"
	"errors"

	"financeflow/internal/core"
	"financeflow/internal/log"
)

// Mutations go straight to the backend and then refresh the snapshot. A
// failed refresh is logged; the mutation itself already succeeded.

func (s *Shell) AddExpense(ctx context.Context, in core.ExpenseInput) (core.Expense, error) {
	e, err := s.expenses.Create(ctx, in)
	if err != nil {
		return core.Expense{}, err
	}
	s.refreshAfter(ctx, log.OpCreate)
	return e, nil
}

func (s *Shell) UpdateExpense(ctx context.Context, id string, patch core.ExpensePatch) (core.Expense, error) {
	e, err := s.expenses.Update(ctx, id, patch)
	if err != nil {
		return core.Expense{}, err
	}
	s.refreshAfter(ctx, log.OpUpdate)
	return e, nil
}

func (s *Shell) DeleteExpense(ctx context.Context, id string) error {
	if err := s.expenses.Delete(ctx, id); err != nil {
		return err
	}
	s.refreshAfter(ctx, log.OpDelete)
	return nil
}

// SetBudget parses amount and saves the budget for category. Input that
// does not parse as a non-negative amount is ignored and reported as
// applied == false with a nil error.
func (s *Shell) SetBudget(ctx context.Context, category core.Category, amount string) (core.Budget, bool, error) {
	m, err := core.ParseAmount(amount)
	if err != nil {
		s.logger.DebugContext(ctx, "Ignoring malformed budget amount",
			log.FieldCategory, string(category), log.FieldAmount, amount)
		return core.Budget{}, false, nil
	}
	b, err := s.budgets.Set(ctx, category, m)
	if err != nil {
		return core.Budget{}, false, err
	}
	s.refreshAfter(ctx, log.OpUpdate)
	return b, true, nil
}

func (s *Shell) refreshAfter(ctx context.Context, op string) {
	err := s.Refresh(ctx)
	if err == nil || errors.Is(err, ErrNotAuthenticated) {
		return
	}
	s.logger.WarnContext(ctx, "Refresh after mutation failed", log.FieldOperation, op, log.FieldError, err)
}
