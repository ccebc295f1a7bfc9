package http

import (
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"financeflow/internal/core"
)

var (
	ErrEmailTaken   = errors.New("email already registered")
	ErrUserNotFound = errors.New("user not found")
	ErrNotFound     = errors.New("not found")
)

type userRecord struct {
	user         core.User
	passwordHash []byte
}

// Store is the in-memory state of the development backend. Safe for
// concurrent use.
type Store struct {
	mu       sync.RWMutex
	byEmail  map[string]*userRecord
	byID     map[string]*userRecord
	expenses map[string]core.Expense // by expense id
	budgets  map[string]core.Budget  // by userID + "/" + category
	now      func() time.Time
}

func NewStore() *Store {
	return &Store{
		byEmail:  make(map[string]*userRecord),
		byID:     make(map[string]*userRecord),
		expenses: make(map[string]core.Expense),
		budgets:  make(map[string]core.Budget),
		now:      time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateUser registers a new account. The display name defaults to the
// local part of the email.
func (s *Store) CreateUser(email string, passwordHash []byte) (core.User, error) {
	key := normalizeEmail(email)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[key]; exists {
		return core.User{}, ErrEmailTaken
	}
	rec := &userRecord{
		user: core.User{
			UID:         uuid.NewString(),
			Email:       key,
			DisplayName: strings.SplitN(key, "@", 2)[0],
		},
		passwordHash: passwordHash,
	}
	s.byEmail[key] = rec
	s.byID[rec.user.UID] = rec
	return rec.user, nil
}

func (s *Store) userByEmail(email string) (userRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.byEmail[normalizeEmail(email)]
	if !ok {
		return userRecord{}, ErrUserNotFound
	}
	return *rec, nil
}

func (s *Store) UserByID(id string) (core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.byID[id]
	if !ok {
		return core.User{}, ErrUserNotFound
	}
	return rec.user, nil
}

// ListExpenses returns the user's expenses, newest date first and, within a
// day, newest created first.
func (s *Store) ListExpenses(userID string) []core.Expense {
	s.mu.RLock()
	out := make([]core.Expense, 0)
	for _, e := range s.expenses {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b core.Expense) int {
		if c := b.Date.Compare(a.Date.Time); c != 0 {
			return c
		}
		if a.CreatedAt != b.CreatedAt {
			if b.CreatedAt > a.CreatedAt {
				return 1
			}
			return -1
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

func (s *Store) CreateExpense(userID string, in core.ExpenseInput) core.Expense {
	e := core.Expense{
		ID:          uuid.NewString(),
		UserID:      userID,
		Amount:      in.Amount,
		Category:    in.Category,
		Description: in.Description,
		Date:        in.Date,
		CreatedAt:   s.now().UnixMilli(),
	}

	s.mu.Lock()
	s.expenses[e.ID] = e
	s.mu.Unlock()
	return e
}

// UpdateExpense applies patch to an expense owned by userID. Expenses of
// other users are reported as not found.
func (s *Store) UpdateExpense(userID, id string, patch core.ExpensePatch) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.expenses[id]
	if !ok || e.UserID != userID {
		return core.Expense{}, ErrNotFound
	}
	e = patch.Apply(e)
	s.expenses[id] = e
	return e, nil
}

func (s *Store) DeleteExpense(userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.expenses[id]
	if !ok || e.UserID != userID {
		return ErrNotFound
	}
	delete(s.expenses, id)
	return nil
}

// ListBudgets returns the user's budgets in category order.
func (s *Store) ListBudgets(userID string) []core.Budget {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]core.Budget, 0)
	for _, c := range core.Categories() {
		if b, ok := s.budgets[budgetKey(userID, c)]; ok {
			out = append(out, b)
		}
	}
	return out
}

// UpsertBudget creates the budget of (user, category) or replaces its
// amount, keeping the id stable.
func (s *Store) UpsertBudget(userID string, in core.BudgetInput) core.Budget {
	key := budgetKey(userID, in.Category)

	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.budgets[key]
	if !ok {
		b = core.Budget{ID: uuid.NewString(), UserID: userID, Category: in.Category}
	}
	b.Amount = in.Amount
	s.budgets[key] = b
	return b
}

func budgetKey(userID string, c core.Category) string {
	return userID + "/" + string(c)
}
