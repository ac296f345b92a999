package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"spendsmart/internal/core"

	_ "modernc.org/sqlite"
)

// CategorySum is a per-category spending aggregate
type CategorySum struct {
	Category string
	Total    core.Money
	Count    int64
}

// DaySum is a per-day spending aggregate keyed by ISO date
type DaySum struct {
	Day   string
	Total core.Money
}

// MonthSum is a per-month spending aggregate
type MonthSum struct {
	Month int
	Total core.Money
}

// ListFilter narrows ListExpenses. Empty fields are unbounded.
type ListFilter struct {
	Category string
	From     string // ISO date, inclusive
	To       string // ISO date, inclusive
	Limit    int
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// CreateExpense inserts a new expense and returns it with its assigned ID
func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (item, category, amount_cents, expense_date, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.Item, e.Category, e.Amount.Cents, e.Date.ISO(), now, now)
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return core.Expense{}, fmt.Errorf("last insert id: %w", err)
	}

	e.ID = id
	e.CreatedAt = now
	e.UpdatedAt = now

	slog.InfoContext(ctx, "Expense saved",
		"id", e.ID,
		"item", e.Item,
		"category", e.Category,
		"amount_cents", e.Amount.Cents,
		"date", e.Date.ISO())

	return e, nil
}

// GetExpense retrieves a single expense by ID
func (r *SQLiteRepository) GetExpense(ctx context.Context, id int64) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, item, category, amount_cents, expense_date, created_at, updated_at
		 FROM expenses WHERE id = ?`, id)
	return scanExpense(row)
}

// UpdateExpense replaces the mutable fields of an existing expense
func (r *SQLiteRepository) UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET item = ?, category = ?, amount_cents = ?, expense_date = ?, updated_at = ?
		 WHERE id = ?`,
		e.Item, e.Category, e.Amount.Cents, e.Date.ISO(), now, e.ID)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return core.Expense{}, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return core.Expense{}, core.ErrNotFound
	}

	return r.GetExpense(ctx, e.ID)
}

// DeleteExpense removes an expense by ID
func (r *SQLiteRepository) DeleteExpense(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return core.ErrNotFound
	}

	slog.InfoContext(ctx, "Expense deleted", "id", id)
	return nil
}

// ListExpenses returns expenses matching filter, newest first
func (r *SQLiteRepository) ListExpenses(ctx context.Context, filter ListFilter) ([]core.Expense, error) {
	query := `SELECT id, item, category, amount_cents, expense_date, created_at, updated_at
		 FROM expenses WHERE 1=1`
	var args []any

	if filter.Category != "" {
		query += ` AND category = ?`
		args = append(args, filter.Category)
	}
	if filter.From != "" {
		query += ` AND expense_date >= ?`
		args = append(args, filter.From)
	}
	if filter.To != "" {
		query += ` AND expense_date <= ?`
		args = append(args, filter.To)
	}

	query += ` ORDER BY expense_date DESC, id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

// Totals returns the all-time expense count and sum
func (r *SQLiteRepository) Totals(ctx context.Context) (count int64, sum core.Money, err error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(amount_cents), 0) FROM expenses`)
	if err := row.Scan(&count, &sum.Cents); err != nil {
		return 0, core.Money{}, fmt.Errorf("totals: %w", err)
	}
	return count, sum, nil
}

// RangeTotal returns the spending sum for an inclusive ISO date range.
// Empty bounds are unbounded.
func (r *SQLiteRepository) RangeTotal(ctx context.Context, from, to string) (core.Money, error) {
	query := `SELECT COALESCE(SUM(amount_cents), 0) FROM expenses WHERE 1=1`
	var args []any
	if from != "" {
		query += ` AND expense_date >= ?`
		args = append(args, from)
	}
	if to != "" {
		query += ` AND expense_date <= ?`
		args = append(args, to)
	}

	var sum core.Money
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&sum.Cents); err != nil {
		return core.Money{}, fmt.Errorf("range total: %w", err)
	}
	return sum, nil
}

// MonthTotal returns the spending sum for a calendar month
func (r *SQLiteRepository) MonthTotal(ctx context.Context, year int, month int) (core.Money, error) {
	prefix := fmt.Sprintf("%04d-%02d", year, month)
	var sum core.Money
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM expenses WHERE expense_date LIKE ? || '%'`,
		prefix).Scan(&sum.Cents)
	if err != nil {
		return core.Money{}, fmt.Errorf("month total: %w", err)
	}
	return sum, nil
}

// CategorySums returns per-category totals for an inclusive ISO date range,
// largest first. Empty bounds are unbounded.
func (r *SQLiteRepository) CategorySums(ctx context.Context, from, to string) ([]CategorySum, error) {
	query := `SELECT category, COALESCE(SUM(amount_cents), 0), COUNT(*)
		 FROM expenses WHERE 1=1`
	var args []any
	if from != "" {
		query += ` AND expense_date >= ?`
		args = append(args, from)
	}
	if to != "" {
		query += ` AND expense_date <= ?`
		args = append(args, to)
	}
	query += ` GROUP BY category ORDER BY SUM(amount_cents) DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("category sums: %w", err)
	}
	defer rows.Close()

	var sums []CategorySum
	for rows.Next() {
		var cs CategorySum
		if err := rows.Scan(&cs.Category, &cs.Total.Cents, &cs.Count); err != nil {
			return nil, fmt.Errorf("scan category sum: %w", err)
		}
		sums = append(sums, cs)
	}
	return sums, rows.Err()
}

// DailySums returns per-day totals for an inclusive ISO date range in
// ascending date order. Days without expenses are absent.
func (r *SQLiteRepository) DailySums(ctx context.Context, from, to string) ([]DaySum, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT expense_date, COALESCE(SUM(amount_cents), 0)
		 FROM expenses WHERE expense_date >= ? AND expense_date <= ?
		 GROUP BY expense_date ORDER BY expense_date`,
		from, to)
	if err != nil {
		return nil, fmt.Errorf("daily sums: %w", err)
	}
	defer rows.Close()

	var sums []DaySum
	for rows.Next() {
		var ds DaySum
		if err := rows.Scan(&ds.Day, &ds.Total.Cents); err != nil {
			return nil, fmt.Errorf("scan daily sum: %w", err)
		}
		sums = append(sums, ds)
	}
	return sums, rows.Err()
}

// MonthlySums returns per-month totals for a calendar year in ascending
// month order. Months without expenses are absent.
func (r *SQLiteRepository) MonthlySums(ctx context.Context, year int) ([]MonthSum, error) {
	prefix := fmt.Sprintf("%04d-", year)
	rows, err := r.db.QueryContext(ctx,
		`SELECT CAST(substr(expense_date, 6, 2) AS INTEGER), COALESCE(SUM(amount_cents), 0)
		 FROM expenses WHERE expense_date LIKE ? || '%'
		 GROUP BY substr(expense_date, 6, 2) ORDER BY substr(expense_date, 6, 2)`,
		prefix)
	if err != nil {
		return nil, fmt.Errorf("monthly sums: %w", err)
	}
	defer rows.Close()

	var sums []MonthSum
	for rows.Next() {
		var ms MonthSum
		if err := rows.Scan(&ms.Month, &ms.Total.Cents); err != nil {
			return nil, fmt.Errorf("scan monthly sum: %w", err)
		}
		sums = append(sums, ms)
	}
	return sums, rows.Err()
}

// GetBudget returns the monthly budget, or core.ErrNotFound when unset
func (r *SQLiteRepository) GetBudget(ctx context.Context) (core.Budget, error) {
	var b core.Budget
	err := r.db.QueryRowContext(ctx,
		`SELECT amount_cents, alert_threshold, created_at, updated_at FROM budget WHERE id = 1`).
		Scan(&b.Amount.Cents, &b.AlertThreshold, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, core.ErrNotFound
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("get budget: %w", err)
	}
	return b, nil
}

// UpsertBudget creates or replaces the single monthly budget row
func (r *SQLiteRepository) UpsertBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO budget (id, amount_cents, alert_threshold, created_at, updated_at)
		 VALUES (1, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   amount_cents = excluded.amount_cents,
		   alert_threshold = excluded.alert_threshold,
		   updated_at = excluded.updated_at`,
		b.Amount.Cents, b.AlertThreshold, now, now)
	if err != nil {
		return core.Budget{}, fmt.Errorf("upsert budget: %w", err)
	}

	slog.InfoContext(ctx, "Budget saved",
		"amount_cents", b.Amount.Cents,
		"alert_threshold", b.AlertThreshold)

	return r.GetBudget(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (core.Expense, error) {
	var (
		e       core.Expense
		dateStr string
	)
	err := row.Scan(&e.ID, &e.Item, &e.Category, &e.Amount.Cents, &dateStr, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, core.ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("scan expense: %w", err)
	}

	e.Date, err = core.ParseISODate(dateStr)
	if err != nil {
		return core.Expense{}, fmt.Errorf("parse expense date %q: %w", dateStr, err)
	}
	return e, nil
}
