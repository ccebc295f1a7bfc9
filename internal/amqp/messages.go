package amqp

import (
	"encoding/json"
	"time"

	"financeflow/internal/core"
)

// BudgetAlertMessage announces that a user's spending in a category has
// exceeded its budget for the month.
type BudgetAlertMessage struct {
	UserID    string        `json:"userId"`
	Category  core.Category `json:"category"`
	Budget    core.Money    `json:"budget"`
	Spent     core.Money    `json:"spent"`
	Year      int           `json:"year"`
	Month     int           `json:"month"`
	Timestamp time.Time     `json:"timestamp"`
}

func NewBudgetAlertMessage(userID string, category core.Category, budget, spent core.Money, month core.MonthKey) *BudgetAlertMessage {
	return &BudgetAlertMessage{
		UserID:    userID,
		Category:  category,
		Budget:    budget,
		Spent:     spent,
		Year:      month.Year,
		Month:     month.Month,
		Timestamp: time.Now(),
	}
}

// Overspend returns how far spending is above the budget.
func (m *BudgetAlertMessage) Overspend() core.Money {
	return m.Spent.Sub(m.Budget).ClampZero()
}

func (m *BudgetAlertMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func BudgetAlertMessageFromJSON(data []byte) (*BudgetAlertMessage, error) {
	var msg BudgetAlertMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
