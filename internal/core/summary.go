package core

// CategoryAmount represents an amount aggregated by category.
type CategoryAmount struct {
	Category Category
	Amount   Money
}

// MonthKey identifies a calendar month.
type MonthKey struct {
	Year  int
	Month int // 1-12
}
