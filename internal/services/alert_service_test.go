package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"financeflow/internal/amqp"
	"financeflow/internal/core"
	"financeflow/internal/storage"
)

type fakePublisher struct {
	msgs []*amqp.BudgetAlertMessage
	err  error
}

func (f *fakePublisher) PublishBudgetAlert(_ context.Context, msg *amqp.BudgetAlertMessage) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msg)
	return nil
}

func alertSnapshot() core.Snapshot {
	return core.Snapshot{
		Expenses: []core.Expense{
			{ID: "1", Amount: core.NewMoney(120, 0), Category: core.Food, Date: core.NewDate(2026, 10, 2)},
			{ID: "2", Amount: core.NewMoney(10, 0), Category: core.Transport, Date: core.NewDate(2026, 10, 3)},
			{ID: "3", Amount: core.NewMoney(500, 0), Category: core.Bills, Date: core.NewDate(2026, 9, 3)},
			{ID: "4", Amount: core.NewMoney(40, 0), Category: core.Shopping, Date: core.NewDate(2026, 10, 4)},
		},
		Budgets: []core.Budget{
			{Category: core.Food, Amount: core.NewMoney(100, 0)},
			{Category: core.Transport, Amount: core.NewMoney(50, 0)},
			{Category: core.Bills, Amount: core.NewMoney(100, 0)},
		},
	}
}

func newAlertService(pub AlertPublisher, log AlertLog, now time.Time) *AlertService {
	s := NewAlertService(pub, log)
	s.now = func() time.Time { return now }
	return s
}

func TestAlertService_PublishesOncePerMonth(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{}
	repo := storage.NewMemoryRepository()
	oct := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

	s := newAlertService(pub, repo, oct)
	n, err := s.Check(ctx, "u1", alertSnapshot())
	if err != nil || n != 1 {
		t.Fatalf("first Check = %d, %v", n, err)
	}
	msg := pub.msgs[0]
	if msg.Category != core.Food || msg.Spent != core.NewMoney(120, 0) || msg.Budget != core.NewMoney(100, 0) {
		t.Errorf("alert = %+v", msg)
	}
	if msg.Year != 2026 || msg.Month != 10 || msg.UserID != "u1" {
		t.Errorf("alert month/user = %+v", msg)
	}

	n, err = s.Check(ctx, "u1", alertSnapshot())
	if err != nil || n != 0 {
		t.Errorf("second Check = %d, %v, want no new alerts", n, err)
	}

	n, _ = s.Check(ctx, "u2", alertSnapshot())
	if n != 1 {
		t.Errorf("other user Check = %d, want 1", n)
	}
}

func TestAlertService_FailedPublishIsRetried(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{err: errors.New("broker down")}
	repo := storage.NewMemoryRepository()
	s := newAlertService(pub, repo, time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC))

	n, err := s.Check(ctx, "u1", alertSnapshot())
	if err == nil || n != 0 {
		t.Fatalf("Check with failing publisher = %d, %v", n, err)
	}

	pub.err = nil
	n, err = s.Check(ctx, "u1", alertSnapshot())
	if err != nil || n != 1 {
		t.Errorf("retry Check = %d, %v", n, err)
	}
}

func TestAlertService_NilPublisher(t *testing.T) {
	s := NewAlertService(nil, storage.NewMemoryRepository())
	n, err := s.Check(context.Background(), "u1", alertSnapshot())
	if err != nil || n != 0 {
		t.Errorf("Check without publisher = %d, %v", n, err)
	}
}
