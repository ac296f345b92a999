package services

import (
	"context"
	"fmt"

	"spendsmart/internal/core"
	"spendsmart/internal/log"
	"spendsmart/internal/storage"
)

// Repository is the storage surface the services need
type Repository interface {
	CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
	GetExpense(ctx context.Context, id int64) (core.Expense, error)
	UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
	DeleteExpense(ctx context.Context, id int64) error
	ListExpenses(ctx context.Context, filter storage.ListFilter) ([]core.Expense, error)
	Totals(ctx context.Context) (int64, core.Money, error)
	MonthTotal(ctx context.Context, year, month int) (core.Money, error)
	CategorySums(ctx context.Context, from, to string) ([]storage.CategorySum, error)
	DailySums(ctx context.Context, from, to string) ([]storage.DaySum, error)
	MonthlySums(ctx context.Context, year int) ([]storage.MonthSum, error)
	GetBudget(ctx context.Context) (core.Budget, error)
	UpsertBudget(ctx context.Context, b core.Budget) (core.Budget, error)
}

// Stats summarizes all recorded spending
type Stats struct {
	TotalExpenses int64
	TotalAmount   core.Money
	Categories    []storage.CategorySum
	Recent        []core.Expense
}

// ExpenseService owns the expense lifecycle. Every write invalidates
// derived caches and re-checks the budget for alert conditions.
type ExpenseService struct {
	repo   Repository
	budget *BudgetService
	caches *Caches
	logger *log.Logger
}

func NewExpenseService(repo Repository, budget *BudgetService, caches *Caches, logger *log.Logger) *ExpenseService {
	return &ExpenseService{
		repo:   repo,
		budget: budget,
		caches: caches,
		logger: logger.WithComponent(log.ComponentExpense),
	}
}

func (s *ExpenseService) Create(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	created, err := s.repo.CreateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}

	s.afterWrite(ctx)
	return created, nil
}

func (s *ExpenseService) Get(ctx context.Context, id int64) (core.Expense, error) {
	return s.repo.GetExpense(ctx, id)
}

func (s *ExpenseService) List(ctx context.Context, filter storage.ListFilter) ([]core.Expense, error) {
	return s.repo.ListExpenses(ctx, filter)
}

func (s *ExpenseService) Update(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	updated, err := s.repo.UpdateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, err
	}

	s.afterWrite(ctx)
	return updated, nil
}

func (s *ExpenseService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.DeleteExpense(ctx, id); err != nil {
		return err
	}

	s.afterWrite(ctx)
	return nil
}

// Stats returns the all-time spending summary with the five most
// recent expenses by date.
func (s *ExpenseService) Stats(ctx context.Context) (Stats, error) {
	count, total, err := s.repo.Totals(ctx)
	if err != nil {
		return Stats{}, err
	}

	categories, err := s.repo.CategorySums(ctx, "", "")
	if err != nil {
		return Stats{}, err
	}

	recent, err := s.repo.ListExpenses(ctx, storage.ListFilter{Limit: 5})
	if err != nil {
		return Stats{}, err
	}

	return Stats{
		TotalExpenses: count,
		TotalAmount:   total,
		Categories:    categories,
		Recent:        recent,
	}, nil
}

func (s *ExpenseService) afterWrite(ctx context.Context) {
	if s.caches != nil {
		s.caches.InvalidateDerived()
	}
	if s.budget != nil {
		s.budget.CheckAndAlert(ctx)
	}
}
