package http

import (
	"net/http"
	"testing"

	"spendsmart/internal/core"
)

func TestCreateExpense(t *testing.T) {
	s, _ := newTestServer(t)

	rec, env := doJSON(t, s, http.MethodPost, "/api/expenses", map[string]any{
		"item":     "Pizza dinner",
		"amount":   18.75,
		"category": "Food & Dining",
		"date":     "2024-03-15",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body %s)", rec.Code, rec.Body.String())
	}
	if !env.Success {
		t.Error("expected success envelope")
	}
	if env.Message != "Expense added successfully" {
		t.Errorf("message = %q", env.Message)
	}

	data := dataMap(t, env)
	if data["id"] != float64(1) {
		t.Errorf("id = %v, want 1", data["id"])
	}
	if data["amount"] != 18.75 {
		t.Errorf("amount = %v, want 18.75", data["amount"])
	}
	if data["date"] != "2024-03-15" {
		t.Errorf("date = %v, want 2024-03-15", data["date"])
	}
}

func TestCreateExpense_Defaults(t *testing.T) {
	s, _ := newTestServer(t)

	// Category and date are optional
	rec, env := doJSON(t, s, http.MethodPost, "/api/expenses", map[string]any{
		"item":   "Mystery purchase",
		"amount": 5,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body %s)", rec.Code, rec.Body.String())
	}
	data := dataMap(t, env)
	if data["category"] != core.DefaultCategory {
		t.Errorf("category = %v, want %s", data["category"], core.DefaultCategory)
	}
	if data["date"] != core.Today().ISO() {
		t.Errorf("date = %v, want today", data["date"])
	}
}

func TestCreateExpense_Validation(t *testing.T) {
	s, _ := newTestServer(t)

	tests := []struct {
		name    string
		payload map[string]any
		wantErr string
	}{
		{
			name:    "missing item",
			payload: map[string]any{"amount": 10},
			wantErr: "Item name is required",
		},
		{
			name:    "bad category",
			payload: map[string]any{"item": "x", "amount": 10, "category": "Groceries"},
			wantErr: "Invalid category",
		},
		{
			name:    "zero amount",
			payload: map[string]any{"item": "x", "amount": 0},
			wantErr: "Amount must be a positive number up to 999999.99",
		},
		{
			name:    "negative amount",
			payload: map[string]any{"item": "x", "amount": -5},
			wantErr: "Amount must be a positive number up to 999999.99",
		},
		{
			name:    "bad date",
			payload: map[string]any{"item": "x", "amount": 10, "date": "15-03-2024"},
			wantErr: "Date must be in YYYY-MM-DD format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := doJSON(t, s, http.MethodPost, "/api/expenses", tt.payload)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400 (body %s)", rec.Code, rec.Body.String())
			}
			if env.Success {
				t.Error("expected failure envelope")
			}
			if env.Error != tt.wantErr {
				t.Errorf("error = %q, want %q", env.Error, tt.wantErr)
			}
		})
	}
}

func TestCreateExpense_BadJSON(t *testing.T) {
	s, _ := newTestServer(t)

	rec, env := doJSON(t, s, http.MethodPost, "/api/expenses", "not an object")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if env.Error != "Invalid JSON payload" {
		t.Errorf("error = %q", env.Error)
	}
}

func TestGetExpense_NotFound(t *testing.T) {
	s, _ := newTestServer(t)

	rec, env := doJSON(t, s, http.MethodGet, "/api/expenses/999", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if env.Error != "Expense not found" {
		t.Errorf("error = %q", env.Error)
	}
}

func TestGetExpense_InvalidID(t *testing.T) {
	s, _ := newTestServer(t)

	rec, env := doJSON(t, s, http.MethodGet, "/api/expenses/abc", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if env.Error != "Invalid expense ID" {
		t.Errorf("error = %q", env.Error)
	}
}

func TestUpdateExpense_PartialMerge(t *testing.T) {
	s, _ := newTestServer(t)

	_, created := doJSON(t, s, http.MethodPost, "/api/expenses", map[string]any{
		"item": "Taxi ride", "amount": 12.00, "category": "Transportation", "date": "2024-03-10",
	})
	id := dataMap(t, created)["id"].(float64)

	// Only the amount changes; other fields survive the merge
	rec, env := doJSON(t, s, http.MethodPut, "/api/expenses/1", map[string]any{"amount": 15.50})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	if env.Message != "Expense updated successfully" {
		t.Errorf("message = %q", env.Message)
	}
	data := dataMap(t, env)
	if data["id"] != id {
		t.Errorf("id = %v, want %v", data["id"], id)
	}
	if data["amount"] != 15.5 {
		t.Errorf("amount = %v, want 15.5", data["amount"])
	}
	if data["item"] != "Taxi ride" || data["category"] != "Transportation" {
		t.Errorf("unchanged fields lost: %v", data)
	}
}

func TestUpdateExpense_InvalidMerge(t *testing.T) {
	s, _ := newTestServer(t)

	doJSON(t, s, http.MethodPost, "/api/expenses", map[string]any{
		"item": "Taxi ride", "amount": 12.00, "category": "Transportation", "date": "2024-03-10",
	})

	rec, env := doJSON(t, s, http.MethodPut, "/api/expenses/1", map[string]any{"category": "Rides"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if env.Error != "Invalid category" {
		t.Errorf("error = %q", env.Error)
	}
}

func TestDeleteExpense(t *testing.T) {
	s, _ := newTestServer(t)

	doJSON(t, s, http.MethodPost, "/api/expenses", map[string]any{
		"item": "Snack", "amount": 2.50, "category": "Food & Dining", "date": "2024-03-10",
	})

	rec, env := doJSON(t, s, http.MethodDelete, "/api/expenses/1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if env.Message != "Expense deleted successfully" {
		t.Errorf("message = %q", env.Message)
	}
	if dataMap(t, env)["deleted_id"] != float64(1) {
		t.Errorf("deleted_id = %v, want 1", dataMap(t, env)["deleted_id"])
	}

	rec, _ = doJSON(t, s, http.MethodDelete, "/api/expenses/1", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}
}

func TestListExpenses(t *testing.T) {
	s, _ := newTestServer(t)

	doJSON(t, s, http.MethodPost, "/api/expenses", map[string]any{
		"item": "Older", "amount": 10, "category": "Shopping", "date": "2024-03-01",
	})
	doJSON(t, s, http.MethodPost, "/api/expenses", map[string]any{
		"item": "Newer", "amount": 20, "category": "Food & Dining", "date": "2024-03-15",
	})

	rec, env := doJSON(t, s, http.MethodGet, "/api/expenses", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	items, ok := env.Data.([]any)
	if !ok || len(items) != 2 {
		t.Fatalf("data = %v, want two expenses", env.Data)
	}
	first := items[0].(map[string]any)
	if first["item"] != "Newer" {
		t.Errorf("first item = %v, want Newer (newest first)", first["item"])
	}

	rec, env = doJSON(t, s, http.MethodGet, "/api/expenses?category=Shopping", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("filtered status = %d, want 200", rec.Code)
	}
	items = env.Data.([]any)
	if len(items) != 1 {
		t.Fatalf("filtered count = %d, want 1", len(items))
	}

	rec, _ = doJSON(t, s, http.MethodGet, "/api/expenses?limit=oops", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d, want 400", rec.Code)
	}
}

func TestStats(t *testing.T) {
	s, _ := newTestServer(t)

	doJSON(t, s, http.MethodPost, "/api/expenses", map[string]any{
		"item": "Lunch", "amount": 12.50, "category": "Food & Dining", "date": "2024-03-10",
	})
	doJSON(t, s, http.MethodPost, "/api/expenses", map[string]any{
		"item": "Bus", "amount": 2.50, "category": "Transportation", "date": "2024-03-11",
	})

	rec, env := doJSON(t, s, http.MethodGet, "/api/stats", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	data := dataMap(t, env)
	if data["total_expenses"] != float64(2) {
		t.Errorf("total_expenses = %v, want 2", data["total_expenses"])
	}
	if data["total_amount"] != float64(15) {
		t.Errorf("total_amount = %v, want 15", data["total_amount"])
	}
	categories := data["categories"].(map[string]any)
	food := categories["Food & Dining"].(map[string]any)
	if food["count"] != float64(1) || food["amount"] != 12.5 {
		t.Errorf("Food & Dining = %v, want count 1 amount 12.5", food)
	}
	recent := data["recent_expenses"].([]any)
	if len(recent) != 2 {
		t.Errorf("recent_expenses count = %d, want 2", len(recent))
	}
}
