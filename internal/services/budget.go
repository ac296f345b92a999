package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"spendsmart/internal/amqp"
	"spendsmart/internal/core"
	"spendsmart/internal/log"
)

// AlertPublisher pushes budget alerts onto the message queue
type AlertPublisher interface {
	PublishBudgetAlert(ctx context.Context, msg *amqp.BudgetAlertMessage) error
}

// StatusAlert is a user-facing alert entry in the budget status
type StatusAlert struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Icon    string `json:"icon"`
}

// BudgetStatus reports the current month's spending against the budget
type BudgetStatus struct {
	BudgetSet           bool          `json:"budget_set"`
	BudgetAmount        float64       `json:"budget_amount"`
	TotalSpent          float64       `json:"total_spent"`
	RemainingAmount     float64       `json:"remaining_amount"`
	SpentPercentage     float64       `json:"spent_percentage"`
	RemainingPercentage float64       `json:"remaining_percentage"`
	AlertThreshold      int           `json:"alert_threshold"`
	Status              string        `json:"status"`
	Alerts              []StatusAlert `json:"alerts"`
	Month               string        `json:"month"`

	spentCents  int64
	budgetCents int64
}

// BudgetService manages the monthly budget and raises queue alerts
// when spending crosses the alert threshold or the budget itself.
type BudgetService struct {
	repo      Repository
	publisher AlertPublisher
	logger    *log.Logger
	now       func() time.Time
}

func NewBudgetService(repo Repository, publisher AlertPublisher, logger *log.Logger) *BudgetService {
	return &BudgetService{
		repo:      repo,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentBudget),
		now:       time.Now,
	}
}

// Get returns the configured budget, or core.ErrNotFound when unset
func (s *BudgetService) Get(ctx context.Context) (core.Budget, error) {
	return s.repo.GetBudget(ctx)
}

// Set validates and stores the monthly budget
func (s *BudgetService) Set(ctx context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	return s.repo.UpsertBudget(ctx, b)
}

// Status computes the current month's budget status. A nil status with
// nil error means no budget is configured.
func (s *BudgetService) Status(ctx context.Context) (*BudgetStatus, error) {
	budget, err := s.repo.GetBudget(ctx)
	if errors.Is(err, core.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	now := s.now()
	spent, err := s.repo.MonthTotal(ctx, now.Year(), int(now.Month()))
	if err != nil {
		return nil, err
	}

	status := &BudgetStatus{
		BudgetSet:      true,
		BudgetAmount:   budget.Amount.Float(),
		TotalSpent:     spent.Float(),
		AlertThreshold: budget.AlertThreshold,
		Alerts:         []StatusAlert{},
		Month:          now.Format("2006-01"),
		spentCents:     spent.Cents,
		budgetCents:    budget.Amount.Cents,
	}
	status.RemainingAmount = status.BudgetAmount - status.TotalSpent
	if budget.Amount.Cents > 0 {
		status.SpentPercentage = status.TotalSpent / status.BudgetAmount * 100
	}
	status.RemainingPercentage = 100 - status.SpentPercentage

	switch {
	case status.SpentPercentage >= 100:
		status.Status = "exceeded"
		status.Alerts = append(status.Alerts, StatusAlert{
			Type:    "danger",
			Message: fmt.Sprintf("Budget exceeded! You have spent Rs. %.2f out of Rs. %.2f", status.TotalSpent, status.BudgetAmount),
			Icon:    "bi-exclamation-triangle-fill",
		})
	case status.SpentPercentage >= float64(budget.AlertThreshold):
		status.Status = "warning"
		status.Alerts = append(status.Alerts, StatusAlert{
			Type:    "warning",
			Message: fmt.Sprintf("Budget alert! You have spent %.1f%% of your budget (Rs. %.2f out of Rs. %.2f)", status.SpentPercentage, status.TotalSpent, status.BudgetAmount),
			Icon:    "bi-exclamation-triangle",
		})
	default:
		status.Status = "safe"
	}

	return status, nil
}

// CheckAndAlert publishes a queue alert when the budget is in a
// warning or exceeded state. Failures are logged, not propagated;
// alerting must never fail the write that triggered it.
func (s *BudgetService) CheckAndAlert(ctx context.Context) {
	if s.publisher == nil {
		return
	}

	status, err := s.Status(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "Budget check failed", log.FieldError, err)
		return
	}
	if status == nil || status.Status == "safe" {
		return
	}

	msg := amqp.NewBudgetAlertMessage(
		status.Status,
		status.Month,
		status.spentCents,
		status.budgetCents,
		status.SpentPercentage,
		status.AlertThreshold,
	)
	if err := s.publisher.PublishBudgetAlert(ctx, msg); err != nil {
		s.logger.WarnContext(ctx, "Budget alert publish failed",
			log.FieldError, err,
			"status", status.Status,
			log.FieldSpentPct, status.SpentPercentage)
	}
}
