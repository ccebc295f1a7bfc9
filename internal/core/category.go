package core

import (
	"fmt"
	"strings"
)

// Category is one of the fixed expense classifications.
type Category string

const (
	Food          Category = "Food"
	Transport     Category = "Transport"
	Bills         Category = "Bills"
	Entertainment Category = "Entertainment"
	Shopping      Category = "Shopping"
	Health        Category = "Health"
	Education     Category = "Education"
	Other         Category = "Other"
)

// CategoryInfo describes how a category is presented.
type CategoryInfo struct {
	Category Category
	Label    string
	Color    string // hex, e.g. "#f87171"
}

// categoryTable is the only place categories are declared. Order is the
// display order used by breakdowns and budget cards.
var categoryTable = []CategoryInfo{
	{Category: Food, Label: "Food", Color: "#f87171"},
	{Category: Transport, Label: "Transport", Color: "#fb923c"},
	{Category: Bills, Label: "Bills", Color: "#fbbf24"},
	{Category: Entertainment, Label: "Entertainment", Color: "#a855f7"},
	{Category: Shopping, Label: "Shopping", Color: "#ec4899"},
	{Category: Health, Label: "Health", Color: "#10b981"},
	{Category: Education, Label: "Education", Color: "#3b82f6"},
	{Category: Other, Label: "Other", Color: "#94a3b8"},
}

// fallbackColor is used for values outside the table (never for a valid category).
const fallbackColor = "#94a3b8"

// Categories returns all categories in display order.
func Categories() []Category {
	out := make([]Category, len(categoryTable))
	for i, info := range categoryTable {
		out[i] = info.Category
	}
	return out
}

// Descriptors returns a copy of the category table.
func Descriptors() []CategoryInfo {
	return append([]CategoryInfo(nil), categoryTable...)
}

func lookup(c Category) (CategoryInfo, bool) {
	for _, info := range categoryTable {
		if info.Category == c {
			return info, true
		}
	}
	return CategoryInfo{}, false
}

// Valid reports whether c belongs to the closed category set.
func (c Category) Valid() bool {
	_, ok := lookup(c)
	return ok
}

// Color returns the display color for c.
func (c Category) Color() string {
	if info, ok := lookup(c); ok {
		return info.Color
	}
	return fallbackColor
}

// Label returns the display label for c.
func (c Category) Label() string {
	if info, ok := lookup(c); ok {
		return info.Label
	}
	return string(c)
}

// ParseCategory matches s against the category set, ignoring case and
// surrounding whitespace.
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(s)
	for _, info := range categoryTable {
		if strings.EqualFold(string(info.Category), s) {
			return info.Category, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
}
