package api

import (
	"context"
	"fmt"
	"net/http"

	"financeflow/internal/core"
)

type BudgetService struct {
	client *Client
}

func NewBudgetService(c *Client) *BudgetService {
	return &BudgetService{client: c}
}

func (s *BudgetService) List(ctx context.Context) ([]core.Budget, error) {
	var out []core.Budget
	if err := s.client.Do(ctx, http.MethodGet, "/budgets", nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []core.Budget{}
	}
	return out, nil
}

// Set creates or replaces the budget of category.
func (s *BudgetService) Set(ctx context.Context, category core.Category, amount core.Money) (core.Budget, error) {
	in := core.BudgetInput{Category: category, Amount: amount}
	if err := in.Validate(); err != nil {
		return core.Budget{}, fmt.Errorf("validate budget: %w", err)
	}
	var out core.Budget
	if err := s.client.Do(ctx, http.MethodPost, "/budgets", in, &out); err != nil {
		return core.Budget{}, err
	}
	return out, nil
}
