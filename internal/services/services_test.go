package services

import (
	"context"
	"io"
	"log/slog"
	"time"

	"spendsmart/internal/amqp"
	"spendsmart/internal/core"
	"spendsmart/internal/log"
	"spendsmart/internal/storage"
)

func testLogger() *log.Logger {
	return log.New(log.Config{
		Component: "test",
		Handler:   slog.NewTextHandler(io.Discard, nil),
	})
}

func fixedNow(iso string) func() time.Time {
	t, err := time.Parse("2006-01-02", iso)
	if err != nil {
		panic(err)
	}
	return func() time.Time { return t }
}

// stubRepo implements Repository with overridable hooks and call counters
type stubRepo struct {
	expenses []core.Expense
	budget   *core.Budget

	monthTotal   core.Money
	categorySums []storage.CategorySum
	dailySums    []storage.DaySum
	monthlySums  []storage.MonthSum

	createErr error

	categorySumsCalls int
	dailySumsCalls    int
	monthlySumsCalls  int
	listCalls         int
}

func (r *stubRepo) CreateExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	if r.createErr != nil {
		return core.Expense{}, r.createErr
	}
	e.ID = int64(len(r.expenses) + 1)
	r.expenses = append(r.expenses, e)
	return e, nil
}

func (r *stubRepo) GetExpense(_ context.Context, id int64) (core.Expense, error) {
	for _, e := range r.expenses {
		if e.ID == id {
			return e, nil
		}
	}
	return core.Expense{}, core.ErrNotFound
}

func (r *stubRepo) UpdateExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	for i := range r.expenses {
		if r.expenses[i].ID == e.ID {
			r.expenses[i] = e
			return e, nil
		}
	}
	return core.Expense{}, core.ErrNotFound
}

func (r *stubRepo) DeleteExpense(_ context.Context, id int64) error {
	for i := range r.expenses {
		if r.expenses[i].ID == id {
			r.expenses = append(r.expenses[:i], r.expenses[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

func (r *stubRepo) ListExpenses(_ context.Context, filter storage.ListFilter) ([]core.Expense, error) {
	r.listCalls++
	out := r.expenses
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *stubRepo) Totals(_ context.Context) (int64, core.Money, error) {
	var total int64
	for _, e := range r.expenses {
		total += e.Amount.Cents
	}
	return int64(len(r.expenses)), core.Money{Cents: total}, nil
}

func (r *stubRepo) MonthTotal(_ context.Context, _, _ int) (core.Money, error) {
	return r.monthTotal, nil
}

func (r *stubRepo) CategorySums(_ context.Context, _, _ string) ([]storage.CategorySum, error) {
	r.categorySumsCalls++
	return r.categorySums, nil
}

func (r *stubRepo) DailySums(_ context.Context, _, _ string) ([]storage.DaySum, error) {
	r.dailySumsCalls++
	return r.dailySums, nil
}

func (r *stubRepo) MonthlySums(_ context.Context, _ int) ([]storage.MonthSum, error) {
	r.monthlySumsCalls++
	return r.monthlySums, nil
}

func (r *stubRepo) GetBudget(_ context.Context) (core.Budget, error) {
	if r.budget == nil {
		return core.Budget{}, core.ErrNotFound
	}
	return *r.budget, nil
}

func (r *stubRepo) UpsertBudget(_ context.Context, b core.Budget) (core.Budget, error) {
	r.budget = &b
	return b, nil
}

// stubPublisher records published budget alerts
type stubPublisher struct {
	published []*amqp.BudgetAlertMessage
	err       error
}

func (p *stubPublisher) PublishBudgetAlert(_ context.Context, msg *amqp.BudgetAlertMessage) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, msg)
	return nil
}
