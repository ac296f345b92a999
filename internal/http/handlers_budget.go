package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"spendsmart/internal/core"
	"spendsmart/internal/log"
)

type budgetJSON struct {
	BudgetSet      bool    `json:"budget_set"`
	Amount         float64 `json:"amount,omitempty"`
	AlertThreshold int     `json:"alert_threshold,omitempty"`
}

type budgetRequest struct {
	Amount         *json.Number `json:"amount"`
	AlertThreshold *int         `json:"alert_threshold"`
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	budget, err := s.deps.Budget.Get(r.Context())
	if errors.Is(err, core.ErrNotFound) {
		respondData(w, http.StatusOK, budgetJSON{BudgetSet: false})
		return
	}
	if err != nil {
		s.logger.Error("Budget read failed", log.FieldError, err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondData(w, http.StatusOK, budgetJSON{
		BudgetSet:      true,
		Amount:         budget.Amount.Float(),
		AlertThreshold: budget.AlertThreshold,
	})
}

func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	if req.Amount == nil {
		respondError(w, http.StatusBadRequest, "Budget amount is required")
		return
	}

	cents, err := core.ParseDecimalToCents(req.Amount.String())
	if err != nil {
		respondError(w, http.StatusBadRequest, "Budget amount must be a positive number")
		return
	}

	budget := core.Budget{Amount: core.Money{Cents: cents}, AlertThreshold: 80}
	if req.AlertThreshold != nil {
		budget.AlertThreshold = *req.AlertThreshold
	}

	saved, err := s.deps.Budget.Set(r.Context(), budget)
	if err != nil {
		if errors.Is(err, core.ErrInvalidThreshold) {
			respondError(w, http.StatusBadRequest, "Alert threshold must be between 50 and 100")
			return
		}
		if errors.Is(err, core.ErrInvalidAmount) {
			respondError(w, http.StatusBadRequest, "Budget amount must be a positive number")
			return
		}
		s.logger.Error("Budget save failed", log.FieldError, err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondMessage(w, http.StatusOK, budgetJSON{
		BudgetSet:      true,
		Amount:         saved.Amount.Float(),
		AlertThreshold: saved.AlertThreshold,
	}, "Budget set successfully")
}

func (s *Server) handleBudgetStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.deps.Budget.Status(r.Context())
	if err != nil {
		s.logger.Error("Budget status failed", log.FieldError, err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if status == nil {
		respondData(w, http.StatusOK, map[string]any{
			"budget_set": false,
			"message":    "No budget set",
		})
		return
	}

	respondData(w, http.StatusOK, status)
}
