package insights

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"financeflow/internal/core"
)

// DateRange selects the date window of the transaction filter.
type DateRange int

const (
	AllTime DateRange = iota
	Last7Days
	ThisMonth
	LastMonth
)

// AllCategories matches every category in Criteria.
const AllCategories core.Category = "All"

var ErrInvalidDateRange = errors.New("invalid date range")

// Criteria combines the three transaction filters. All must match.
type Criteria struct {
	Query    string        // case-insensitive substring of the description
	Category core.Category // AllCategories or "" for no restriction
	Range    DateRange
}

func (r DateRange) String() string {
	switch r {
	case Last7Days:
		return "last-7-days"
	case ThisMonth:
		return "this-month"
	case LastMonth:
		return "last-month"
	default:
		return "all"
	}
}

// Label is the human form shown in selectors.
func (r DateRange) Label() string {
	switch r {
	case Last7Days:
		return "Last 7 Days"
	case ThisMonth:
		return "This Month"
	case LastMonth:
		return "Last Month"
	default:
		return "All Time"
	}
}

// ParseDateRange accepts the String form plus a few shorthands.
func ParseDateRange(s string) (DateRange, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all", "all-time":
		return AllTime, nil
	case "7d", "week", "last-7-days":
		return Last7Days, nil
	case "month", "this-month":
		return ThisMonth, nil
	case "last-month", "prev-month":
		return LastMonth, nil
	}
	return AllTime, fmt.Errorf("%w: %q", ErrInvalidDateRange, s)
}

// Filter returns the expenses matching every criterion, in input order.
func Filter(expenses []core.Expense, c Criteria, now time.Time) []core.Expense {
	query := strings.ToLower(c.Query)
	inRange := rangeMatcher(c.Range, now)
	out := make([]core.Expense, 0, len(expenses))
	for _, e := range expenses {
		if query != "" && !strings.Contains(strings.ToLower(e.Description), query) {
			continue
		}
		if c.Category != "" && c.Category != AllCategories && e.Category != c.Category {
			continue
		}
		if !inRange(e.Date) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func rangeMatcher(r DateRange, now time.Time) func(core.Date) bool {
	switch r {
	case Last7Days:
		cutoff := core.DateOf(now).AddDays(-7)
		return func(d core.Date) bool { return !d.Before(cutoff.Time) }
	case ThisMonth:
		year, month := now.Year(), now.Month()
		return func(d core.Date) bool { return d.InMonth(year, month) }
	case LastMonth:
		year, month := previousMonth(now)
		return func(d core.Date) bool { return d.InMonth(year, month) }
	default:
		return func(core.Date) bool { return true }
	}
}

func previousMonth(now time.Time) (int, time.Month) {
	if now.Month() == time.January {
		return now.Year() - 1, time.December
	}
	return now.Year(), now.Month() - 1
}

// Recent returns the first n expenses in collection order.
func Recent(expenses []core.Expense, n int) []core.Expense {
	if n > len(expenses) {
		n = len(expenses)
	}
	if n < 0 {
		n = 0
	}
	return append([]core.Expense(nil), expenses[:n]...)
}
