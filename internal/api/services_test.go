package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"financeflow/internal/core"
	devserver "financeflow/internal/http"
)

type services struct {
	auth     *AuthService
	expenses *ExpenseService
	budgets  *BudgetService
}

func newBackend(t *testing.T) string {
	t.Helper()
	srv := devserver.NewServer(devserver.ServerConfig{
		JWTSecret:     "test-secret",
		AuthRateLimit: 1000,
		BcryptCost:    bcrypt.MinCost,
	}, devserver.NewStore(), nil)
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(func() {
		ts.Close()
		srv.Shutdown(context.Background())
	})
	return ts.URL + "/api"
}

func newServices(t *testing.T, baseURL string) services {
	t.Helper()
	sess, _ := newSession(t, "")
	c := NewClient(baseURL, sess)
	return services{
		auth:     NewAuthService(c),
		expenses: NewExpenseService(c),
		budgets:  NewBudgetService(c),
	}
}

func TestValidateCredentials(t *testing.T) {
	tests := []struct {
		email, password string
		ok              bool
	}{
		{"ann@example.com", "secret", true},
		{" ann@example.com ", "x", true},
		{"ann", "secret", false},
		{"", "secret", false},
		{"ann@example.com", "", false},
	}
	for _, tt := range tests {
		err := ValidateCredentials(tt.email, tt.password)
		if (err == nil) != tt.ok {
			t.Errorf("ValidateCredentials(%q, %q) = %v", tt.email, tt.password, err)
		}
		if err != nil && !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("error %v should wrap ErrInvalidCredentials", err)
		}
	}
}

func TestAuthServiceAgainstBackend(t *testing.T) {
	ctx := context.Background()
	base := newBackend(t)
	svc := newServices(t, base)

	res, err := svc.auth.Register(ctx, "ann@example.com", "secret123")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if res.Token == "" || svc.auth.client.Session().Token() != res.Token {
		t.Fatalf("token not stored in session: %+v", res)
	}

	me, err := svc.auth.CurrentUser(ctx)
	if err != nil || me.UID != res.User.UID {
		t.Fatalf("CurrentUser = %+v, %v", me, err)
	}

	if err := svc.auth.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if svc.auth.client.Session().Authenticated() {
		t.Error("still authenticated after logout")
	}

	other := newServices(t, base)
	_, err = other.auth.Login(ctx, "ann@example.com", "wrong-password")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "Invalid email or password" {
		t.Fatalf("bad login err = %v", err)
	}
	if other.auth.client.Session().Authenticated() {
		t.Error("failed login must not authenticate")
	}

	if _, err := other.auth.Login(ctx, "ann@example.com", "secret123"); err != nil {
		t.Fatalf("Login: %v", err)
	}
}

func TestExpenseRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc := newServices(t, newBackend(t))
	if _, err := svc.auth.Register(ctx, "ann@example.com", "secret123"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	list, err := svc.expenses.List(ctx)
	if err != nil || list == nil || len(list) != 0 {
		t.Fatalf("initial List = %v, %v", list, err)
	}

	in := core.ExpenseInput{
		Amount:      core.NewMoney(12, 50),
		Category:    core.Food,
		Description: "Lunch",
		Date:        core.NewDate(2026, time.October, 3),
	}
	created, err := svc.expenses.Create(ctx, in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	list, err = svc.expenses.List(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("List after create = %v, %v", list, err)
	}
	got := list[0]
	if got.ID != created.ID || got.Input() != in {
		t.Errorf("refetched expense = %+v, want input %+v", got, in)
	}

	amount := core.NewMoney(20, 0)
	updated, err := svc.expenses.Update(ctx, created.ID, core.ExpensePatch{Amount: &amount})
	if err != nil || updated.Amount != amount || updated.Description != "Lunch" {
		t.Fatalf("Update = %+v, %v", updated, err)
	}

	if err := svc.expenses.Delete(ctx, created.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	err = svc.expenses.Delete(ctx, created.ID)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusNotFound {
		t.Errorf("second Delete = %v, want 404", err)
	}
}

func TestExpenseServiceValidatesBeforeSending(t *testing.T) {
	requests := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { requests++ }))
	defer ts.Close()

	sess, _ := newSession(t, "tok")
	svc := NewExpenseService(NewClient(ts.URL, sess))

	_, err := svc.Create(context.Background(), core.ExpenseInput{Amount: core.NewMoney(1, 0), Category: "Pets", Date: core.NewDate(2026, 1, 1)})
	if !errors.Is(err, core.ErrInvalidCategory) {
		t.Errorf("Create err = %v", err)
	}
	_, err = svc.Update(context.Background(), "id", core.ExpensePatch{})
	if !errors.Is(err, core.ErrEmptyExpensePatch) {
		t.Errorf("Update err = %v", err)
	}
	if requests != 0 {
		t.Errorf("invalid input reached the backend %d times", requests)
	}
}

func TestBudgetService(t *testing.T) {
	ctx := context.Background()
	svc := newServices(t, newBackend(t))
	if _, err := svc.auth.Register(ctx, "ann@example.com", "secret123"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if _, err := svc.budgets.Set(ctx, core.Food, core.NewMoney(100, 0)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, err := svc.budgets.Set(ctx, core.Food, core.NewMoney(150, 0)); err != nil {
		t.Fatalf("Set again: %v", err)
	}
	if _, err := svc.budgets.Set(ctx, "Pets", core.NewMoney(1, 0)); !errors.Is(err, core.ErrInvalidCategory) {
		t.Errorf("Set invalid category = %v", err)
	}

	budgets, err := svc.budgets.List(ctx)
	if err != nil || len(budgets) != 1 || budgets[0].Amount != core.NewMoney(150, 0) {
		t.Errorf("List = %+v, %v", budgets, err)
	}
}

func TestUnauthorizedWithoutLogin(t *testing.T) {
	svc := newServices(t, newBackend(t))
	_, err := svc.expenses.List(context.Background())
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("List without token = %v, want ErrUnauthorized", err)
	}
}
