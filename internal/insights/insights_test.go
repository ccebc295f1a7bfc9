package insights

import (
	"testing"
	"time"

	"financeflow/internal/core"
)

var now = time.Date(2026, time.October, 17, 15, 0, 0, 0, time.UTC)

func exp(id string, cents int64, c core.Category, date, desc string) core.Expense {
	d, err := core.ParseDate(date)
	if err != nil {
		panic(err)
	}
	return core.Expense{ID: id, Amount: core.Money{Cents: cents}, Category: c, Date: d, Description: desc}
}

func budget(c core.Category, cents int64) core.Budget {
	return core.Budget{ID: "b-" + string(c), Category: c, Amount: core.Money{Cents: cents}}
}

func fixture() []core.Expense {
	return []core.Expense{
		exp("1", 2000, core.Food, "2026-10-16", "Lunch at cafe"),
		exp("2", 3000, core.Food, "2026-10-02", "Groceries"),
		exp("3", 1500, core.Transport, "2026-10-10", "Metro card"),
		exp("4", 9900, core.Bills, "2026-09-28", "Electricity"),
		exp("5", 4500, core.Entertainment, "2026-09-05", "Concert"),
		exp("6", 1200, core.Food, "2025-10-12", "Pizza last year"),
	}
}

func TestMonthScoped(t *testing.T) {
	got := MonthScoped(fixture(), now)
	if len(got) != 3 {
		t.Fatalf("expected 3 month-scoped expenses, got %d", len(got))
	}
	for _, e := range got {
		if !e.Date.InMonth(2026, time.October) {
			t.Errorf("expense %s out of month: %s", e.ID, e.Date)
		}
	}
}

func TestMonthScopedUsesLocationOfNow(t *testing.T) {
	// 2026-11-01 01:00 in UTC+2 is still October 31 in UTC.
	tz := time.FixedZone("UTC+2", 2*3600)
	local := time.Date(2026, time.November, 1, 1, 0, 0, 0, tz)
	expenses := []core.Expense{
		exp("a", 100, core.Food, "2026-10-31", ""),
		exp("b", 200, core.Food, "2026-11-01", ""),
	}
	got := MonthScoped(expenses, local)
	if len(got) != 1 || got[0].ID != "b" {
		t.Errorf("expected only the November expense, got %+v", got)
	}
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name          string
		budgets       []core.Budget
		wantSpent     int64
		wantBudgeted  int64
		wantRemaining int64
	}{
		{"no budgets", nil, 6500, 0, 0},
		{"under budget", []core.Budget{budget(core.Food, 10000), budget(core.Transport, 5000)}, 6500, 15000, 8500},
		{"over budget clamps", []core.Budget{budget(core.Food, 1000)}, 6500, 1000, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Summarize(fixture(), tt.budgets, now)
			if s.Spent.Cents != tt.wantSpent || s.Budgeted.Cents != tt.wantBudgeted || s.Remaining.Cents != tt.wantRemaining {
				t.Errorf("Summarize = %+v, want spent=%d budgeted=%d remaining=%d",
					s, tt.wantSpent, tt.wantBudgeted, tt.wantRemaining)
			}
		})
	}
}

func TestSummarizeMonotonic(t *testing.T) {
	base := Summarize(fixture(), nil, now)
	more := append(fixture(), exp("7", 1, core.Other, "2026-10-01", ""))
	if after := Summarize(more, nil, now); after.Spent.Cents < base.Spent.Cents {
		t.Errorf("adding an expense decreased spent: %d -> %d", base.Spent.Cents, after.Spent.Cents)
	}
	outside := append(fixture(), exp("8", 99999, core.Other, "2026-08-01", ""))
	if after := Summarize(outside, nil, now); after.Spent != base.Spent {
		t.Errorf("expense outside month changed spent: %d -> %d", base.Spent.Cents, after.Spent.Cents)
	}
}

func TestBreakdown(t *testing.T) {
	got := Breakdown(fixture(), now)
	want := []core.CategoryAmount{
		{Category: core.Food, Amount: core.Money{Cents: 5000}},
		{Category: core.Transport, Amount: core.Money{Cents: 1500}},
	}
	if len(got) != len(want) {
		t.Fatalf("Breakdown = %+v, want %+v", got, want)
	}
	var total int64
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Breakdown[%d] = %+v, want %+v", i, got[i], want[i])
		}
		total += got[i].Amount.Cents
	}
	if s := Summarize(fixture(), nil, now); total != s.Spent.Cents {
		t.Errorf("breakdown total %d != spent %d", total, s.Spent.Cents)
	}
}

func TestBreakdownExcludesZeroSums(t *testing.T) {
	expenses := []core.Expense{exp("z", 0, core.Health, "2026-10-01", "free checkup")}
	if got := Breakdown(expenses, now); len(got) != 0 {
		t.Errorf("expected empty breakdown, got %+v", got)
	}
}

func TestCompareBudgets(t *testing.T) {
	budgets := []core.Budget{
		budget(core.Other, 1000),
		budget(core.Food, 10000),
		budget(core.Health, 5000),
		budget(core.Transport, 5000),
		budget(core.Bills, 20000),
		budget(core.Shopping, 500),
		budget(core.Education, 7000),
	}
	got := CompareBudgets(fixture(), budgets, now)
	if len(got) != MaxComparisons {
		t.Fatalf("expected %d comparisons, got %d", MaxComparisons, len(got))
	}
	wantOrder := []core.Category{core.Bills, core.Food, core.Education, core.Health, core.Transport}
	for i, c := range wantOrder {
		if got[i].Category != c {
			t.Errorf("position %d = %s, want %s", i, got[i].Category, c)
		}
	}
	if got[1].Spent.Cents != 5000 {
		t.Errorf("Food spent = %d, want 5000", got[1].Spent.Cents)
	}
	if got[0].Spent.Cents != 0 {
		t.Errorf("Bills spent = %d, want 0 (September only)", got[0].Spent.Cents)
	}
	if budgets[0].Category != core.Other {
		t.Error("CompareBudgets mutated its input")
	}
}

func TestBudgetCardScenario(t *testing.T) {
	// Food 50 this month and Food 30 last month against a budget of 100.
	expenses := []core.Expense{
		exp("this", 5000, core.Food, "2026-10-05", "Groceries"),
		exp("last", 3000, core.Food, "2026-09-20", "Groceries"),
	}
	card := Card(core.Food, expenses, []core.Budget{budget(core.Food, 10000)}, now)
	if card.Spent.Cents != 5000 {
		t.Errorf("spent = %d, want 5000 (last month excluded)", card.Spent.Cents)
	}
	if card.Percentage != 50 || card.Remaining.Cents != 5000 || !card.HasRemaining || card.OverBudget {
		t.Errorf("unexpected card: %+v", card)
	}
}

func TestBudgetCards(t *testing.T) {
	budgets := []core.Budget{
		budget(core.Food, 4000),
		budget(core.Transport, 0),
		budget(core.Health, 10000),
	}
	cards := BudgetCards(fixture(), budgets, now)
	if len(cards) != len(core.Categories()) {
		t.Fatalf("expected one card per category, got %d", len(cards))
	}
	byCat := map[core.Category]BudgetCard{}
	for i, c := range cards {
		if c.Category != core.Categories()[i] {
			t.Errorf("card %d out of order: %s", i, c.Category)
		}
		byCat[c.Category] = c
	}

	food := byCat[core.Food]
	if food.Percentage != 100 || !food.OverBudget || food.Remaining.Cents != 0 || !food.HasRemaining {
		t.Errorf("food card: %+v", food)
	}

	transport := byCat[core.Transport]
	if transport.Percentage != 0 || !transport.OverBudget {
		t.Errorf("zero budget card: %+v", transport)
	}

	health := byCat[core.Health]
	if health.Percentage != 0 || health.OverBudget || health.Remaining.Cents != 10000 {
		t.Errorf("health card: %+v", health)
	}

	bills := byCat[core.Bills]
	if bills.HasBudget || bills.HasRemaining || bills.Percentage != 0 || bills.OverBudget {
		t.Errorf("card without budget: %+v", bills)
	}
}

func TestBudgetCardExactlyAtBudget(t *testing.T) {
	card := Card(core.Food, fixture(), []core.Budget{budget(core.Food, 5000)}, now)
	if card.OverBudget {
		t.Error("spending equal to the budget must not be over budget")
	}
	if card.Percentage != 100 {
		t.Errorf("percentage = %v, want 100", card.Percentage)
	}
}

func TestFilter(t *testing.T) {
	tests := []struct {
		name     string
		criteria Criteria
		wantIDs  []string
	}{
		{"no criteria", Criteria{}, []string{"1", "2", "3", "4", "5", "6"}},
		{"query case-insensitive", Criteria{Query: "LUNCH"}, []string{"1"}},
		{"category", Criteria{Category: core.Food}, []string{"1", "2", "6"}},
		{"all categories", Criteria{Category: AllCategories}, []string{"1", "2", "3", "4", "5", "6"}},
		{"this month", Criteria{Range: ThisMonth}, []string{"1", "2", "3"}},
		{"last month", Criteria{Range: LastMonth}, []string{"4", "5"}},
		{"last 7 days", Criteria{Range: Last7Days}, []string{"1", "3"}},
		{"conjunction", Criteria{Query: "o", Category: core.Food, Range: ThisMonth}, []string{"2"}},
		{"empty result", Criteria{Query: "zzz"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filter(fixture(), tt.criteria, now)
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("got %d results, want %d", len(got), len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if got[i].ID != id {
					t.Errorf("result %d = %s, want %s", i, got[i].ID, id)
				}
			}
		})
	}
}

func TestFilterLast7DaysBoundary(t *testing.T) {
	expenses := []core.Expense{
		exp("edge", 100, core.Food, "2026-10-10", ""),
		exp("before", 100, core.Food, "2026-10-09", ""),
	}
	got := Filter(expenses, Criteria{Range: Last7Days}, now)
	if len(got) != 1 || got[0].ID != "edge" {
		t.Errorf("expected only the boundary day, got %+v", got)
	}
}

func TestFilterLastMonthRollover(t *testing.T) {
	january := time.Date(2027, time.January, 5, 12, 0, 0, 0, time.UTC)
	expenses := []core.Expense{
		exp("dec", 100, core.Food, "2026-12-20", ""),
		exp("dec-old", 100, core.Food, "2025-12-20", ""),
		exp("jan", 100, core.Food, "2027-01-02", ""),
	}
	got := Filter(expenses, Criteria{Range: LastMonth}, january)
	if len(got) != 1 || got[0].ID != "dec" {
		t.Errorf("expected December of the previous year, got %+v", got)
	}
}

func TestParseDateRange(t *testing.T) {
	tests := []struct {
		in      string
		want    DateRange
		wantErr bool
	}{
		{"", AllTime, false},
		{"all", AllTime, false},
		{"7d", Last7Days, false},
		{"this-month", ThisMonth, false},
		{"Last-Month", LastMonth, false},
		{"yesterday", AllTime, true},
	}
	for _, tt := range tests {
		got, err := ParseDateRange(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseDateRange(%q) = %v, %v", tt.in, got, err)
		}
		if err == nil {
			if back, _ := ParseDateRange(got.String()); back != got {
				t.Errorf("String() of %v does not parse back", got)
			}
		}
	}
}

func TestRecentAndDashboard(t *testing.T) {
	if got := Recent(fixture(), 5); len(got) != 5 || got[0].ID != "1" || got[4].ID != "5" {
		t.Errorf("Recent = %+v", got)
	}
	if got := Recent(nil, 5); len(got) != 0 {
		t.Errorf("Recent(nil) = %+v", got)
	}

	view := Dashboard(fixture(), []core.Budget{budget(core.Food, 10000)}, now)
	if view.MonthLabel != "October 2026" {
		t.Errorf("MonthLabel = %q", view.MonthLabel)
	}
	if view.Summary.Spent.Cents != 6500 || len(view.Breakdown) != 2 || len(view.Comparison) != 1 || len(view.Recent) != RecentCount {
		t.Errorf("unexpected dashboard: %+v", view)
	}
}
