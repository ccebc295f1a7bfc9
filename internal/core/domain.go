package core

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

// DateLayout is the wire and display format of calendar dates.
const DateLayout = "2006-01-02"

type (
	// Date is a calendar date without time-of-day semantics. The wrapped
	// time is always midnight UTC of that date.
	Date struct {
		time.Time
	}

	Expense struct {
		ID          string   `json:"id"`
		UserID      string   `json:"userId"`
		Amount      Money    `json:"amount"`
		Category    Category `json:"category"`
		Description string   `json:"description"`
		Date        Date     `json:"date"`
		CreatedAt   int64    `json:"createdAt"` // epoch milliseconds
	}

	// ExpenseInput is an expense as submitted by the user, before the
	// backend assigns id, owner and creation time.
	ExpenseInput struct {
		Amount      Money    `json:"amount"`
		Category    Category `json:"category"`
		Description string   `json:"description"`
		Date        Date     `json:"date"`
	}

	// ExpensePatch carries the fields to change on update; nil fields are
	// left untouched by the backend.
	ExpensePatch struct {
		Amount      *Money    `json:"amount,omitempty"`
		Category    *Category `json:"category,omitempty"`
		Description *string   `json:"description,omitempty"`
		Date        *Date     `json:"date,omitempty"`
	}

	// Budget is a monthly allocation for one category. There is no period
	// field: a budget always means "this month".
	Budget struct {
		ID       string   `json:"id"`
		UserID   string   `json:"userId"`
		Category Category `json:"category"`
		Amount   Money    `json:"amount"`
	}

	BudgetInput struct {
		Category Category `json:"category"`
		Amount   Money    `json:"amount"`
	}

	User struct {
		UID         string `json:"uid"`
		Email       string `json:"email"`
		DisplayName string `json:"displayName"`
	}
)

const maxDescriptionLen = 200

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidCategory    = errors.New("invalid category")
	ErrInvalidDate        = errors.New("invalid date")
	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
	ErrEmptyExpensePatch  = errors.New("expense update has no fields")
)

// NewDate creates a Date from year, month, day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, m, d)
}

// ParseDate accepts YYYY-MM-DD or an RFC 3339 timestamp. For timestamps the
// calendar date is taken in the timestamp's own offset.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return DateOf(t), nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return DateOf(t), nil
	}
	return Date{}, ErrInvalidDate
}

// String formats d as YYYY-MM-DD.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// InMonth reports whether d falls in the given calendar month.
func (d Date) InMonth(year int, month time.Month) bool {
	return d.Year() == year && d.Month() == month
}

// AddDays returns d shifted by n calendar days.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// Validate rejects the zero date.
func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return ErrInvalidDate
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Validate checks the fields a user can submit.
func (in ExpenseInput) Validate() error {
	if err := in.Amount.Validate(); err != nil {
		return err
	}
	if !in.Category.Valid() {
		return ErrInvalidCategory
	}
	if err := in.Date.Validate(); err != nil {
		return err
	}
	if utf8.RuneCountInString(in.Description) > maxDescriptionLen {
		return ErrDescriptionTooLong
	}
	return nil
}

// Validate checks only the fields present in the patch.
func (p ExpensePatch) Validate() error {
	if p.Amount == nil && p.Category == nil && p.Description == nil && p.Date == nil {
		return ErrEmptyExpensePatch
	}
	if p.Amount != nil {
		if err := p.Amount.Validate(); err != nil {
			return err
		}
	}
	if p.Category != nil && !p.Category.Valid() {
		return ErrInvalidCategory
	}
	if p.Date != nil {
		if err := p.Date.Validate(); err != nil {
			return err
		}
	}
	if p.Description != nil && utf8.RuneCountInString(*p.Description) > maxDescriptionLen {
		return ErrDescriptionTooLong
	}
	return nil
}

// Apply returns e with the patch fields applied.
func (p ExpensePatch) Apply(e Expense) Expense {
	if p.Amount != nil {
		e.Amount = *p.Amount
	}
	if p.Category != nil {
		e.Category = *p.Category
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.Date != nil {
		e.Date = *p.Date
	}
	return e
}

// Input strips the server-assigned fields.
func (e Expense) Input() ExpenseInput {
	return ExpenseInput{
		Amount:      e.Amount,
		Category:    e.Category,
		Description: e.Description,
		Date:        e.Date,
	}
}

// Validate checks an expense as received from the backend.
func (e Expense) Validate() error {
	return e.Input().Validate()
}

func (in BudgetInput) Validate() error {
	if err := in.Amount.Validate(); err != nil {
		return err
	}
	if !in.Category.Valid() {
		return ErrInvalidCategory
	}
	return nil
}

// Name returns the best available display name.
func (u User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Email
}
