package http

import (
	"encoding/json"
	"net/http"
	"time"

	"spendsmart/internal/core"
	"spendsmart/internal/log"
)

func (s *Server) handleVisualizationData(w http.ResponseWriter, r *http.Request) {
	period := r.URL.Query().Get("period")

	data, err := s.deps.Viz.Data(r.Context(), period)
	if err != nil {
		s.logger.Error("Visualization data failed", log.FieldError, err, log.FieldPeriod, period)
		respondError(w, http.StatusInternalServerError, "Failed to build visualization data")
		return
	}
	respondData(w, http.StatusOK, data)
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	if !s.deps.AIConfigured || s.deps.Insights == nil {
		respondError(w, http.StatusServiceUnavailable, "AI insights not available. Please configure GEMINI_API_KEY.")
		return
	}

	period := r.URL.Query().Get("period")
	insights, err := s.deps.Insights.Insights(r.Context(), period)
	if err != nil {
		s.logger.Error("Insights generation failed", log.FieldError, err, log.FieldPeriod, period)
		respondError(w, http.StatusInternalServerError, "Failed to generate insights")
		return
	}
	respondData(w, http.StatusOK, insights)
}

func (s *Server) handleInsightsTrends(w http.ResponseWriter, r *http.Request) {
	if s.deps.Insights == nil {
		respondError(w, http.StatusServiceUnavailable, "Insights not available")
		return
	}

	trend, err := s.deps.Insights.Trends(r.Context())
	if err != nil {
		s.logger.Error("Trend analysis failed", log.FieldError, err)
		respondError(w, http.StatusInternalServerError, "Failed to analyze trends")
		return
	}
	respondData(w, http.StatusOK, trend)
}

type categorizeRequest struct {
	Item   string      `json:"item"`
	Amount json.Number `json:"amount"`
}

func (s *Server) handleCategorize(w http.ResponseWriter, r *http.Request) {
	if !s.deps.AIConfigured || s.deps.Categorizer == nil {
		respondError(w, http.StatusServiceUnavailable, "AI categorization not available. Please configure GEMINI_API_KEY.")
		return
	}

	var req categorizeRequest
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	item := sanitizeInput(req.Item)
	if item == "" {
		respondError(w, http.StatusBadRequest, "Item name is required")
		return
	}

	var amountCents int64
	if req.Amount != "" {
		if cents, err := core.ParseDecimalToCents(req.Amount.String()); err == nil {
			amountCents = cents
		}
	}

	result := s.deps.Categorizer.Categorize(r.Context(), item, amountCents)
	respondData(w, http.StatusOK, result)
}

func (s *Server) handleCategorySuggestions(w http.ResponseWriter, r *http.Request) {
	if !s.deps.AIConfigured || s.deps.Categorizer == nil {
		respondError(w, http.StatusServiceUnavailable, "AI categorization not available. Please configure GEMINI_API_KEY.")
		return
	}

	var req categorizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	item := sanitizeInput(req.Item)
	if item == "" {
		respondError(w, http.StatusBadRequest, "Item name is required")
		return
	}

	suggestions := s.deps.Categorizer.Suggestions(r.Context(), item)
	respondData(w, http.StatusOK, map[string]any{"suggestions": suggestions})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats, err := s.deps.Expenses.Stats(r.Context())
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "Database unavailable")
		return
	}

	respondData(w, http.StatusOK, map[string]any{
		"status":         "healthy",
		"message":        "Expense tracker is running",
		"expenses_count": stats.TotalExpenses,
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	})
}
