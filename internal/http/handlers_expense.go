package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"spendsmart/internal/core"
	"spendsmart/internal/log"
	"spendsmart/internal/storage"
)

// expenseJSON is the wire representation of an expense
type expenseJSON struct {
	ID        int64   `json:"id"`
	Item      string  `json:"item"`
	Category  string  `json:"category"`
	Amount    float64 `json:"amount"`
	Date      string  `json:"date"`
	CreatedAt string  `json:"created_at,omitempty"`
	UpdatedAt string  `json:"updated_at,omitempty"`
}

func toExpenseJSON(e core.Expense) expenseJSON {
	out := expenseJSON{
		ID:       e.ID,
		Item:     e.Item,
		Category: e.Category,
		Amount:   e.Amount.Float(),
		Date:     e.Date.ISO(),
	}
	if !e.CreatedAt.IsZero() {
		out.CreatedAt = e.CreatedAt.UTC().Format(time.RFC3339)
	}
	if !e.UpdatedAt.IsZero() {
		out.UpdatedAt = e.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return out
}

func toExpenseList(expenses []core.Expense) []expenseJSON {
	out := make([]expenseJSON, 0, len(expenses))
	for _, e := range expenses {
		out = append(out, toExpenseJSON(e))
	}
	return out
}

// expenseRequest is the create/update payload. Pointer fields
// distinguish "absent" from "empty" so updates can be partial.
type expenseRequest struct {
	Item     *string      `json:"item"`
	Amount   *json.Number `json:"amount"`
	Category *string      `json:"category"`
	Date     *string      `json:"date"`
}

func decodeExpenseRequest(r *http.Request) (expenseRequest, error) {
	var req expenseRequest
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		return expenseRequest{}, err
	}
	return req, nil
}

// applyExpenseRequest merges the request payload onto an expense
func applyExpenseRequest(e *core.Expense, req expenseRequest) error {
	if req.Item != nil {
		e.Item = sanitizeInput(*req.Item)
	}
	if req.Category != nil {
		e.Category = sanitizeInput(*req.Category)
	}
	if req.Amount != nil {
		cents, err := core.ParseDecimalToCents(req.Amount.String())
		if err != nil {
			return err
		}
		e.Amount = core.Money{Cents: cents}
	}
	if req.Date != nil && strings.TrimSpace(*req.Date) != "" {
		d, err := core.ParseISODate(*req.Date)
		if err != nil {
			return err
		}
		e.Date = d
	}
	return nil
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	req, err := decodeExpenseRequest(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	e := core.Expense{Category: core.DefaultCategory, Date: core.Today()}
	if err := applyExpenseRequest(&e, req); err != nil {
		s.respondExpenseError(w, err)
		return
	}
	if e.Category == "" {
		e.Category = core.DefaultCategory
	}

	created, err := s.deps.Expenses.Create(r.Context(), e)
	if err != nil {
		s.respondExpenseError(w, err)
		return
	}

	s.logger.InfoContext(r.Context(), "Expense created",
		log.FieldExpenseID, created.ID,
		log.FieldItem, created.Item,
		log.FieldAmount, created.Amount.String())
	respondMessage(w, http.StatusCreated, toExpenseJSON(created), "Expense added successfully")
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	filter := storage.ListFilter{
		Category: r.URL.Query().Get("category"),
		From:     r.URL.Query().Get("from"),
		To:       r.URL.Query().Get("to"),
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			respondError(w, http.StatusBadRequest, "Invalid limit parameter")
			return
		}
		filter.Limit = limit
	}

	expenses, err := s.deps.Expenses.List(r.Context(), filter)
	if err != nil {
		s.respondExpenseError(w, err)
		return
	}
	respondData(w, http.StatusOK, toExpenseList(expenses))
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	e, err := s.deps.Expenses.Get(r.Context(), id)
	if err != nil {
		s.respondExpenseError(w, err)
		return
	}
	respondData(w, http.StatusOK, toExpenseJSON(e))
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	req, err := decodeExpenseRequest(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	e, err := s.deps.Expenses.Get(r.Context(), id)
	if err != nil {
		s.respondExpenseError(w, err)
		return
	}
	if err := applyExpenseRequest(&e, req); err != nil {
		s.respondExpenseError(w, err)
		return
	}

	updated, err := s.deps.Expenses.Update(r.Context(), e)
	if err != nil {
		s.respondExpenseError(w, err)
		return
	}
	respondMessage(w, http.StatusOK, toExpenseJSON(updated), "Expense updated successfully")
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := s.deps.Expenses.Delete(r.Context(), id); err != nil {
		s.respondExpenseError(w, err)
		return
	}
	respondMessage(w, http.StatusOK, map[string]int64{"deleted_id": id}, "Expense deleted successfully")
}

// categoryStat is one category's slice of the stats summary
type categoryStat struct {
	Count  int64   `json:"count"`
	Amount float64 `json:"amount"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.deps.Expenses.Stats(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to compute statistics")
		return
	}

	categories := make(map[string]categoryStat, len(stats.Categories))
	for _, cs := range stats.Categories {
		categories[cs.Category] = categoryStat{Count: cs.Count, Amount: cs.Total.Float()}
	}

	respondData(w, http.StatusOK, map[string]any{
		"total_expenses":  stats.TotalExpenses,
		"total_amount":    stats.TotalAmount.Float(),
		"categories":      categories,
		"recent_expenses": toExpenseList(stats.Recent),
	})
}

// pathID parses the {id} path segment, responding with 400 on garbage
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "Invalid expense ID")
		return 0, false
	}
	return id, true
}

// respondExpenseError maps domain errors onto API status codes
func (s *Server) respondExpenseError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		respondError(w, http.StatusNotFound, "Expense not found")
	case errors.Is(err, core.ErrEmptyItem):
		respondError(w, http.StatusBadRequest, "Item name is required")
	case errors.Is(err, core.ErrInvalidCategory):
		respondErrorDetails(w, http.StatusBadRequest, "Invalid category", map[string]any{"valid_categories": core.Categories})
	case errors.Is(err, core.ErrInvalidAmount):
		respondError(w, http.StatusBadRequest, "Amount must be a positive number up to 999999.99")
	case errors.Is(err, core.ErrInvalidDate):
		respondError(w, http.StatusBadRequest, "Date must be in YYYY-MM-DD format")
	case errors.Is(err, core.ErrItemTooLong):
		respondError(w, http.StatusBadRequest, "Item name too long (max 200 characters)")
	default:
		s.logger.Error("Expense operation failed", log.FieldError, err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
	}
}
