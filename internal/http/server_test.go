package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"spendsmart/internal/core"
	"spendsmart/internal/log"
	"spendsmart/internal/services"
	"spendsmart/internal/storage"
)

// memRepo is an in-memory services.Repository for handler tests
type memRepo struct {
	expenses []core.Expense
	budget   *core.Budget
	nextID   int64
}

func (r *memRepo) CreateExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	r.nextID++
	e.ID = r.nextID
	now := time.Now().UTC()
	e.CreatedAt = now
	e.UpdatedAt = now
	r.expenses = append(r.expenses, e)
	return e, nil
}

func (r *memRepo) GetExpense(_ context.Context, id int64) (core.Expense, error) {
	for _, e := range r.expenses {
		if e.ID == id {
			return e, nil
		}
	}
	return core.Expense{}, core.ErrNotFound
}

func (r *memRepo) UpdateExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	for i := range r.expenses {
		if r.expenses[i].ID == e.ID {
			e.UpdatedAt = time.Now().UTC()
			r.expenses[i] = e
			return e, nil
		}
	}
	return core.Expense{}, core.ErrNotFound
}

func (r *memRepo) DeleteExpense(_ context.Context, id int64) error {
	for i := range r.expenses {
		if r.expenses[i].ID == id {
			r.expenses = append(r.expenses[:i], r.expenses[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

func (r *memRepo) ListExpenses(_ context.Context, filter storage.ListFilter) ([]core.Expense, error) {
	var out []core.Expense
	for _, e := range r.expenses {
		if filter.Category != "" && e.Category != filter.Category {
			continue
		}
		iso := e.Date.ISO()
		if filter.From != "" && iso < filter.From {
			continue
		}
		if filter.To != "" && iso > filter.To {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.ISO() > out[j].Date.ISO() })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *memRepo) Totals(_ context.Context) (int64, core.Money, error) {
	var total int64
	for _, e := range r.expenses {
		total += e.Amount.Cents
	}
	return int64(len(r.expenses)), core.Money{Cents: total}, nil
}

func (r *memRepo) MonthTotal(_ context.Context, year, month int) (core.Money, error) {
	prefix := fmt.Sprintf("%04d-%02d", year, month)
	var total int64
	for _, e := range r.expenses {
		if strings.HasPrefix(e.Date.ISO(), prefix) {
			total += e.Amount.Cents
		}
	}
	return core.Money{Cents: total}, nil
}

func (r *memRepo) CategorySums(_ context.Context, from, to string) ([]storage.CategorySum, error) {
	byCat := map[string]*storage.CategorySum{}
	for _, e := range r.expenses {
		iso := e.Date.ISO()
		if from != "" && iso < from {
			continue
		}
		if to != "" && iso > to {
			continue
		}
		cs, ok := byCat[e.Category]
		if !ok {
			cs = &storage.CategorySum{Category: e.Category}
			byCat[e.Category] = cs
		}
		cs.Total.Cents += e.Amount.Cents
		cs.Count++
	}
	var out []storage.CategorySum
	for _, cs := range byCat {
		out = append(out, *cs)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Total.Cents > out[j].Total.Cents })
	return out, nil
}

func (r *memRepo) DailySums(_ context.Context, from, to string) ([]storage.DaySum, error) {
	byDay := map[string]int64{}
	for _, e := range r.expenses {
		iso := e.Date.ISO()
		if from != "" && iso < from {
			continue
		}
		if to != "" && iso > to {
			continue
		}
		byDay[iso] += e.Amount.Cents
	}
	var out []storage.DaySum
	for day, cents := range byDay {
		out = append(out, storage.DaySum{Day: day, Total: core.Money{Cents: cents}})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	return out, nil
}

func (r *memRepo) MonthlySums(_ context.Context, year int) ([]storage.MonthSum, error) {
	byMonth := map[int]int64{}
	for _, e := range r.expenses {
		if e.Date.Year() == year {
			byMonth[int(e.Date.Month())] += e.Amount.Cents
		}
	}
	var out []storage.MonthSum
	for month, cents := range byMonth {
		out = append(out, storage.MonthSum{Month: month, Total: core.Money{Cents: cents}})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out, nil
}

func (r *memRepo) GetBudget(_ context.Context) (core.Budget, error) {
	if r.budget == nil {
		return core.Budget{}, core.ErrNotFound
	}
	return *r.budget, nil
}

func (r *memRepo) UpsertBudget(_ context.Context, b core.Budget) (core.Budget, error) {
	r.budget = &b
	return b, nil
}

func testLogger() *log.Logger {
	return log.New(log.Config{
		Component: "test",
		Handler:   slog.NewTextHandler(io.Discard, nil),
	})
}

func newTestServer(t *testing.T) (*Server, *memRepo) {
	t.Helper()

	repo := &memRepo{}
	logger := testLogger()
	budget := services.NewBudgetService(repo, nil, logger)
	caches := services.NewCaches(nil, time.Minute)
	expenses := services.NewExpenseService(repo, budget, caches, logger)
	viz := services.NewVisualizationService(repo, caches, logger)

	s := NewServer(":0", Deps{
		Expenses: expenses,
		Budget:   budget,
		Viz:      viz,
	}, logger)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	})
	return s, repo
}

// doJSON performs a request against the server mux and decodes the envelope
func doJSON(t *testing.T, s *Server, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode envelope: %v (body %q)", err, rec.Body.String())
		}
	}
	return rec, env
}

func dataMap(t *testing.T, env envelope) map[string]any {
	t.Helper()
	m, ok := env.Data.(map[string]any)
	if !ok {
		t.Fatalf("envelope data is %T, want object", env.Data)
	}
	return m
}

func TestHealthEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	rec, env := doJSON(t, s, http.MethodGet, "/api/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	data := dataMap(t, env)
	if data["status"] != "healthy" {
		t.Errorf("status = %v, want healthy", data["status"])
	}
	if data["expenses_count"] != float64(0) {
		t.Errorf("expenses_count = %v, want 0", data["expenses_count"])
	}
}

func TestSecurityHeaders(t *testing.T) {
	s, _ := newTestServer(t)

	rec, _ := doJSON(t, s, http.MethodGet, "/api/health", nil)
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want nosniff", got)
	}
	if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q, want DENY", got)
	}
}

func TestRateLimitOnWrites(t *testing.T) {
	s, _ := newTestServer(t)

	payload := map[string]any{"item": "Coffee", "amount": 3.50, "category": "Food & Dining", "date": "2024-03-15"}

	var last *httptest.ResponseRecorder
	for i := 0; i < 61; i++ {
		last, _ = doJSON(t, s, http.MethodPost, "/api/expenses", payload)
	}
	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("status after 61 writes = %d, want 429", last.Code)
	}
	if last.Header().Get("Retry-After") != "60" {
		t.Errorf("Retry-After = %q, want 60", last.Header().Get("Retry-After"))
	}

	// Reads are not rate limited
	rec, _ := doJSON(t, s, http.MethodGet, "/api/health", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("read status = %d, want 200", rec.Code)
	}
}

func TestAIUnavailableWithoutKey(t *testing.T) {
	s, _ := newTestServer(t)

	for _, tt := range []struct {
		method string
		path   string
		body   any
	}{
		{http.MethodGet, "/api/insights", nil},
		{http.MethodPost, "/api/categorize", map[string]any{"item": "coffee"}},
		{http.MethodPost, "/api/categorize/suggestions", map[string]any{"item": "coffee"}},
	} {
		rec, env := doJSON(t, s, tt.method, tt.path, tt.body)
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("%s %s status = %d, want 503", tt.method, tt.path, rec.Code)
		}
		if env.Success {
			t.Errorf("%s %s should not report success", tt.method, tt.path)
		}
	}
}

func TestScanUnavailableWithoutScanner(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/receipt/scan", nil)
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestVisualizationEndpoint(t *testing.T) {
	s, repo := newTestServer(t)

	today := core.Today()
	repo.expenses = []core.Expense{
		{ID: 1, Item: "Lunch", Category: "Food & Dining", Amount: core.Money{Cents: 2500}, Date: today},
	}
	repo.nextID = 1

	rec, env := doJSON(t, s, http.MethodGet, "/api/visualization/data?period=bogus", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	data := dataMap(t, env)
	if data["period"] != "month" {
		t.Errorf("period = %v, want month (default)", data["period"])
	}
	pie, ok := data["pie_chart"].([]any)
	if !ok || len(pie) != 1 {
		t.Fatalf("pie_chart = %v, want one slice", data["pie_chart"])
	}
	slice := pie[0].(map[string]any)
	if slice["label"] != "Food & Dining" || slice["percentage"] != float64(100) {
		t.Errorf("slice = %v, want Food & Dining at 100%%", slice)
	}
}
