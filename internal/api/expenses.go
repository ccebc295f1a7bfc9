package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"financeflow/internal/core"
)

type ExpenseService struct {
	client *Client
}

func NewExpenseService(c *Client) *ExpenseService {
	return &ExpenseService{client: c}
}

// List returns the signed-in user's expenses in backend order.
func (s *ExpenseService) List(ctx context.Context) ([]core.Expense, error) {
	var out []core.Expense
	if err := s.client.Do(ctx, http.MethodGet, "/expenses", nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []core.Expense{}
	}
	return out, nil
}

func (s *ExpenseService) Create(ctx context.Context, in core.ExpenseInput) (core.Expense, error) {
	if err := in.Validate(); err != nil {
		return core.Expense{}, fmt.Errorf("validate expense: %w", err)
	}
	var out core.Expense
	if err := s.client.Do(ctx, http.MethodPost, "/expenses", in, &out); err != nil {
		return core.Expense{}, err
	}
	return out, nil
}

func (s *ExpenseService) Update(ctx context.Context, id string, patch core.ExpensePatch) (core.Expense, error) {
	if err := patch.Validate(); err != nil {
		return core.Expense{}, fmt.Errorf("validate expense: %w", err)
	}
	var out core.Expense
	if err := s.client.Do(ctx, http.MethodPut, "/expenses/"+url.PathEscape(id), patch, &out); err != nil {
		return core.Expense{}, err
	}
	return out, nil
}

func (s *ExpenseService) Delete(ctx context.Context, id string) error {
	return s.client.Do(ctx, http.MethodDelete, "/expenses/"+url.PathEscape(id), nil, nil)
}
