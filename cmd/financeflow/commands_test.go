package main

import (
	"bytes"
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"financeflow/internal/config"
	devserver "financeflow/internal/http"
)

func newTestEnv(t *testing.T) (*env, *bytes.Buffer) {
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

	cfg := config.Load()
	cfg.APIURL = ts.URL + "/api"
	cfg.Store = "memory"
	cfg.PollInterval = time.Hour
	cfg.LogLevel = "error"

	var out bytes.Buffer
	e, err := newEnv(cfg, &out)
	if err != nil {
		t.Fatalf("newEnv: %v", err)
	}
	t.Cleanup(e.Close)
	return e, &out
}

func mustRun(t *testing.T, e *env, out *bytes.Buffer, args ...string) string {
	t.Helper()
	out.Reset()
	if err := run(context.Background(), e, args[0], args[1:]); err != nil {
		t.Fatalf("%v: %v", args, err)
	}
	return out.String()
}

func TestCommandsEndToEnd(t *testing.T) {
	e, out := newTestEnv(t)

	got := mustRun(t, e, out, "register", "-email", "ann@example.com", "-password", "secret123")
	if !strings.Contains(got, "Signed in as ann") {
		t.Errorf("register output = %q", got)
	}

	got = mustRun(t, e, out, "budget", "set", "food", "100")
	if !strings.Contains(got, "Food budget set to $100.00") {
		t.Errorf("budget set output = %q", got)
	}

	today := time.Now().Format("2006-01-02")
	got = mustRun(t, e, out, "expense", "add", "-amount", "30", "-category", "Food", "-description", "Groceries", "-date", today)
	if !strings.Contains(got, "Added $30.00 Food") {
		t.Errorf("expense add output = %q", got)
	}

	got = mustRun(t, e, out, "budgets")
	if !strings.Contains(got, "$30.00 / $100.00") || !strings.Contains(got, "Remaining: $70.00") {
		t.Errorf("budgets output = %q", got)
	}

	got = mustRun(t, e, out, "expenses", "-q", "grocer", "-range", "this-month")
	if !strings.Contains(got, "Groceries") {
		t.Errorf("expenses output = %q", got)
	}
	got = mustRun(t, e, out, "expenses", "-category", "Bills")
	if !strings.Contains(got, "No transactions match your filters.") {
		t.Errorf("filtered expenses output = %q", got)
	}

	got = mustRun(t, e, out, "dashboard")
	if !strings.Contains(got, "Groceries") || !strings.Contains(got, "$30.00") {
		t.Errorf("dashboard output = %q", got)
	}

	got = mustRun(t, e, out, "whoami")
	if !strings.Contains(got, "ann@example.com") {
		t.Errorf("whoami output = %q", got)
	}

	mustRun(t, e, out, "logout")
	if err := run(context.Background(), e, "dashboard", nil); !errors.Is(err, errNotSignedIn) {
		t.Errorf("dashboard after logout = %v", err)
	}
}

func TestBudgetSetIgnoresMalformedAmount(t *testing.T) {
	e, out := newTestEnv(t)
	mustRun(t, e, out, "register", "-email", "bo@example.com", "-password", "secret123")

	if got := mustRun(t, e, out, "budget", "set", "Food", "lots"); got != "" {
		t.Errorf("malformed amount output = %q, want nothing", got)
	}
	if got := mustRun(t, e, out, "budgets"); !strings.Contains(got, "Remaining: N/A") {
		t.Errorf("budgets = %q", got)
	}
}

func TestExpenseEditAndRemove(t *testing.T) {
	e, out := newTestEnv(t)
	mustRun(t, e, out, "register", "-email", "cy@example.com", "-password", "secret123")
	mustRun(t, e, out, "expense", "add", "-amount", "5", "-category", "Transport")

	snap := e.shell.Snapshot()
	if len(snap.Expenses) != 1 {
		t.Fatalf("expenses = %+v", snap.Expenses)
	}
	id := snap.Expenses[0].ID

	got := mustRun(t, e, out, "expense", "edit", id, "-amount", "7.25")
	if !strings.Contains(got, "$7.25 Transport") {
		t.Errorf("edit output = %q", got)
	}

	mustRun(t, e, out, "expense", "rm", id)
	if n := len(e.shell.Snapshot().Expenses); n != 0 {
		t.Errorf("expenses after rm = %d", n)
	}
}

func TestUsageErrors(t *testing.T) {
	e, _ := newTestEnv(t)
	tests := [][]string{
		{"bogus"},
		{"budget", "set", "Food"},
		{"expense"},
		{"expense", "edit"},
		{"alerts"},
	}
	for _, args := range tests {
		err := run(context.Background(), e, args[0], args[1:])
		if !errors.Is(err, errUsage) {
			t.Errorf("%v = %v, want usage error", args, err)
		}
	}
}

func TestLoginRejectedShowsServerMessage(t *testing.T) {
	e, _ := newTestEnv(t)
	err := run(context.Background(), e, "login", []string{"-email", "nobody@example.com", "-password", "nope"})
	if err == nil {
		t.Fatal("expected error")
	}
	if got := describe(err); got != "Invalid email or password" {
		t.Errorf("describe = %q", got)
	}
}
