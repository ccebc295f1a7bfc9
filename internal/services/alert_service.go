package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"financeflow/internal/amqp"
	"financeflow/internal/core"
	"financeflow/internal/insights"
	"financeflow/internal/log"
)

// AlertPublisher delivers budget alerts; implemented by *amqp.Client.
type AlertPublisher interface {
	PublishBudgetAlert(ctx context.Context, msg *amqp.BudgetAlertMessage) error
}

// AlertLog remembers which alerts were already delivered.
type AlertLog interface {
	AlertSent(ctx context.Context, userID string, category core.Category, month core.MonthKey) (bool, error)
	MarkAlertSent(ctx context.Context, userID string, category core.Category, month core.MonthKey, at time.Time) (bool, error)
}

// AlertService publishes one alert per (user, category, month) the first
// time spending in the category exceeds its budget.
type AlertService struct {
	publisher AlertPublisher
	log       AlertLog
	now       func() time.Time
}

func NewAlertService(publisher AlertPublisher, sent AlertLog) *AlertService {
	return &AlertService{publisher: publisher, log: sent, now: time.Now}
}

// Check inspects snap and publishes alerts for newly over-budget
// categories of the current month. It returns how many were published. A
// failed publish is not recorded, so the next cycle retries it.
func (s *AlertService) Check(ctx context.Context, userID string, snap core.Snapshot) (int, error) {
	if s.publisher == nil {
		return 0, nil
	}
	now := s.now()
	month := core.MonthOf(now)

	var (
		published int
		errs      []error
	)
	for _, card := range insights.BudgetCards(snap.Expenses, snap.Budgets, now) {
		if !card.HasBudget || !card.OverBudget {
			continue
		}

		sent, err := s.log.AlertSent(ctx, userID, card.Category, month)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if sent {
			continue
		}

		msg := amqp.NewBudgetAlertMessage(userID, card.Category, card.Budget, card.Spent, month)
		if err := s.publisher.PublishBudgetAlert(ctx, msg); err != nil {
			slog.ErrorContext(ctx, "Failed to publish budget alert",
				log.FieldComponent, log.ComponentAlerts,
				log.FieldOperation, log.OpPublish,
				log.FieldUserID, userID,
				log.FieldCategory, card.Category,
				log.FieldError, err)
			errs = append(errs, fmt.Errorf("publish %s alert: %w", card.Category, err))
			continue
		}
		if _, err := s.log.MarkAlertSent(ctx, userID, card.Category, month, now); err != nil {
			errs = append(errs, err)
			continue
		}
		published++
	}
	return published, errors.Join(errs...)
}
