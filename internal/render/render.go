// Package render draws the derived views for a terminal.
//
// Colors come from the category descriptor table. When the output is not a
// terminal the renderer degrades to plain text, which is what the tests see.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"financeflow/internal/core"
	"financeflow/internal/insights"
)

const barWidth = 20

type Renderer struct {
	r *lipgloss.Renderer

	title  lipgloss.Style
	label  lipgloss.Style
	value  lipgloss.Style
	muted  lipgloss.Style
	danger lipgloss.Style
	box    lipgloss.Style
}

// New returns a renderer whose color profile matches w.
func New(w io.Writer) *Renderer {
	r := lipgloss.NewRenderer(w)
	return &Renderer{
		r:      r,
		title:  r.NewStyle().Foreground(lipgloss.Color("#87CEEB")).Bold(true),
		label:  r.NewStyle().Foreground(lipgloss.Color("#9CA3AF")),
		value:  r.NewStyle().Foreground(lipgloss.Color("#D1D5DB")).Bold(true),
		muted:  r.NewStyle().Foreground(lipgloss.Color("#6B7280")),
		danger: r.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true),
		box:    r.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1),
	}
}

// Currency formats m as dollars with two decimals.
func Currency(m core.Money) string {
	if m.Cents < 0 {
		return "-$" + core.Money{Cents: -m.Cents}.String()
	}
	return "$" + m.String()
}

func (r *Renderer) categoryStyle(c core.Category) lipgloss.Style {
	return r.r.NewStyle().Foreground(lipgloss.Color(c.Color()))
}

// Dashboard renders the summary cards, breakdown, budget comparison and
// recent transactions.
func (r *Renderer) Dashboard(v insights.DashboardView) string {
	var b strings.Builder
	b.WriteString(r.title.Render("Dashboard · "+v.MonthLabel) + "\n\n")

	cards := lipgloss.JoinHorizontal(lipgloss.Top,
		r.summaryCard("Total Spent", Currency(v.Summary.Spent)),
		r.summaryCard("Total Budget", Currency(v.Summary.Budgeted)),
		r.summaryCard("Remaining", Currency(v.Summary.Remaining)),
	)
	b.WriteString(cards + "\n\n")

	b.WriteString(r.title.Render("Spending by Category") + "\n")
	if len(v.Breakdown) == 0 {
		b.WriteString(r.muted.Render("No spending this month.") + "\n")
	}
	for _, ca := range v.Breakdown {
		share := 0.0
		if v.Summary.Spent.Cents > 0 {
			share = 100 * float64(ca.Amount.Cents) / float64(v.Summary.Spent.Cents)
		}
		fmt.Fprintf(&b, "%s %s %s\n",
			r.categoryStyle(ca.Category).Render(pad(ca.Category.Label(), 14)),
			pad(Currency(ca.Amount), 12),
			r.muted.Render(fmt.Sprintf("%.0f%%", share)))
	}
	b.WriteString("\n")

	b.WriteString(r.title.Render("Budget vs Actual") + "\n")
	if len(v.Comparison) == 0 {
		b.WriteString(r.muted.Render("No budgets set.") + "\n")
	}
	for _, c := range v.Comparison {
		spent := pad(Currency(c.Spent), 12)
		if c.Spent.Cents > c.Budget.Cents {
			spent = r.danger.Render(spent)
		}
		fmt.Fprintf(&b, "%s %s %s\n",
			r.categoryStyle(c.Category).Render(pad(c.Category.Label(), 14)),
			spent,
			r.label.Render("of "+Currency(c.Budget)))
	}
	b.WriteString("\n")

	b.WriteString(r.title.Render("Recent Transactions") + "\n")
	if len(v.Recent) == 0 {
		b.WriteString(r.muted.Render("No transactions yet.") + "\n")
		return b.String()
	}
	b.WriteString(r.transactionRows(v.Recent))
	return b.String()
}

func (r *Renderer) summaryCard(label, value string) string {
	return r.box.Render(r.label.Render(label) + "\n" + r.value.Render(value))
}

// BudgetCards renders one progress line per category.
func (r *Renderer) BudgetCards(cards []insights.BudgetCard) string {
	var b strings.Builder
	for _, c := range cards {
		budget := "$0"
		if c.HasBudget {
			budget = Currency(c.Budget)
		}
		remaining := "N/A"
		if c.HasRemaining {
			remaining = Currency(c.Remaining)
		}

		fmt.Fprintf(&b, "%s %s / %s  %s %s  %s %s",
			r.categoryStyle(c.Category).Render(pad(c.Category.Label(), 14)),
			Currency(c.Spent),
			budget,
			r.bar(c),
			fmt.Sprintf("%3.0f%%", c.Percentage),
			r.label.Render("Remaining:"),
			remaining)
		if c.OverBudget {
			b.WriteString("  " + r.danger.Render("Over budget"))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (r *Renderer) bar(c insights.BudgetCard) string {
	filled := int(c.Percentage / 100 * barWidth)
	style := r.categoryStyle(c.Category)
	if c.OverBudget {
		style = r.danger
	}
	return style.Render(strings.Repeat("█", filled)) + r.muted.Render(strings.Repeat("░", barWidth-filled))
}

// Transactions renders a filtered transaction list.
func (r *Renderer) Transactions(expenses []core.Expense) string {
	if len(expenses) == 0 {
		return r.muted.Render("No transactions match your filters.") + "\n"
	}
	header := fmt.Sprintf("%-10s  %-14s  %-30s  %10s  %s", "DATE", "CATEGORY", "DESCRIPTION", "AMOUNT", "ID")
	return r.label.Render(header) + "\n" + r.transactionRows(expenses)
}

func (r *Renderer) transactionRows(expenses []core.Expense) string {
	var b strings.Builder
	for _, e := range expenses {
		fmt.Fprintf(&b, "%-10s  %s  %-30s  %10s  %s\n",
			e.Date.String(),
			r.categoryStyle(e.Category).Render(pad(e.Category.Label(), 14)),
			truncate(e.Description, 30),
			Currency(e.Amount),
			r.muted.Render(e.ID))
	}
	return b.String()
}

// Categories renders the category legend.
func (r *Renderer) Categories() string {
	var b strings.Builder
	for _, d := range core.Descriptors() {
		fmt.Fprintf(&b, "%s %s\n", r.categoryStyle(d.Category).Render("●"), d.Label)
	}
	return b.String()
}

func pad(s string, width int) string {
	if w := lipgloss.Width(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}

func truncate(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width-1]) + "…"
}
