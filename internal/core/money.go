// Package core provides money parsing and handling utilities.
//
// Amounts are held as integer cents. Conversion from and to decimal text
// (user input and the JSON wire format) goes through shopspring/decimal so
// that no float rounding leaks into sums.
package core

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is a non-negative currency amount in cents.
type Money struct {
	Cents int64
}

// NewMoney builds a Money from whole units and cents, e.g. NewMoney(12, 34).
func NewMoney(units, cents int64) Money {
	return Money{Cents: units*100 + cents}
}

var (
	maxCents = decimal.NewFromInt(math.MaxInt64)
	minCents = decimal.NewFromInt(math.MinInt64)
)

// MoneyFromDecimal rounds d half-up to the nearest cent. Amounts that do
// not fit in int64 cents return ErrInvalidAmount.
func MoneyFromDecimal(d decimal.Decimal) (Money, error) {
	cents := d.Shift(2).Round(0)
	if cents.GreaterThan(maxCents) || cents.LessThan(minCents) {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: cents.IntPart()}, nil
}

// ParseAmount converts user input to Money.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and rounds
// half-up on the third decimal place. Zero is allowed; negative values and
// anything that is not a plain decimal number return ErrInvalidAmount.
//
// Examples:
//
//	ParseAmount("12.34")  -> 1234 cents
//	ParseAmount("12,345") -> 1235 cents
//	ParseAmount("abc")    -> ErrInvalidAmount
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return Money{}, ErrInvalidAmount
	}
	if strings.ContainsAny(s, "eE") {
		return Money{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	return MoneyFromDecimal(d)
}

// Decimal returns the amount in currency units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// Float64 returns the amount in currency units for display purposes.
// Use cents for calculations.
func (m Money) Float64() float64 {
	f, _ := m.Decimal().Float64()
	return f
}

// Add returns m + o.
func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }

// Sub returns m - o, which may be negative.
func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }

// ClampZero returns m, or zero when m is negative.
func (m Money) ClampZero() Money {
	if m.Cents < 0 {
		return Money{}
	}
	return m
}

// IsZero reports whether m is exactly zero.
func (m Money) IsZero() bool { return m.Cents == 0 }

// String formats the amount with two decimals, e.g. "12.30".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// Validate rejects negative amounts.
func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// MarshalJSON writes the amount as a bare JSON number in currency units.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal().String()), nil
}

// UnmarshalJSON accepts a JSON number or a quoted decimal string.
func (m *Money) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*m = Money{}
		return nil
	}
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return ErrInvalidAmount
	}
	v, err := MoneyFromDecimal(d)
	if err != nil {
		return err
	}
	*m = v
	return nil
}
