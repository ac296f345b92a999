package amqp

import (
	"encoding/json"
	"time"
)

// BudgetAlertMessage notifies workers that monthly spending crossed the
// configured alert threshold or exceeded the budget outright.
type BudgetAlertMessage struct {
	Status      string    `json:"status"` // "warning" or "exceeded"
	Month       string    `json:"month"`  // YYYY-MM
	SpentCents  int64     `json:"spent_cents"`
	BudgetCents int64     `json:"budget_cents"`
	SpentPct    float64   `json:"spent_pct"`
	Threshold   int       `json:"threshold"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewBudgetAlertMessage creates an alert for the given month snapshot
func NewBudgetAlertMessage(status, month string, spentCents, budgetCents int64, spentPct float64, threshold int) *BudgetAlertMessage {
	return &BudgetAlertMessage{
		Status:      status,
		Month:       month,
		SpentCents:  spentCents,
		BudgetCents: budgetCents,
		SpentPct:    spentPct,
		Threshold:   threshold,
		Timestamp:   time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *BudgetAlertMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// BudgetAlertMessageFromJSON creates a message from JSON bytes
func BudgetAlertMessageFromJSON(data []byte) (*BudgetAlertMessage, error) {
	var msg BudgetAlertMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
