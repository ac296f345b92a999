// Package http exposes the expense tracker's JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"spendsmart/internal/ai"
	"spendsmart/internal/log"
	"spendsmart/internal/scanning"
	"spendsmart/internal/services"
)

// Deps carries the services the API handlers depend on. Categorizer,
// Insights, and Scanner may be nil when the corresponding integration
// is not configured.
type Deps struct {
	Expenses    *services.ExpenseService
	Budget      *services.BudgetService
	Viz         *services.VisualizationService
	Insights    *services.InsightsService
	Categorizer *ai.Categorizer
	Scanner     *scanning.Service

	// AIConfigured gates the endpoints that need a Gemini API key
	AIConfigured bool
}

type Server struct {
	http.Server
	deps         Deps
	logger       *log.Logger
	rateLimiter  *rateLimiter
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a
// ready-to-run http.Server.
func NewServer(addr string, deps Deps, logger *log.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		deps:        deps,
		logger:      logger.WithComponent(log.ComponentHTTP),
		rateLimiter: newRateLimiter(60),
	}

	mux.HandleFunc("GET /healthz", handleLiveness)
	mux.HandleFunc("GET /readyz", handleReadiness)
	mux.HandleFunc("GET /api/health", s.wrap(s.handleHealth))

	mux.HandleFunc("GET /api/expenses", s.wrap(s.handleListExpenses))
	mux.HandleFunc("POST /api/expenses", s.wrap(s.handleCreateExpense))
	mux.HandleFunc("GET /api/expenses/{id}", s.wrap(s.handleGetExpense))
	mux.HandleFunc("PUT /api/expenses/{id}", s.wrap(s.handleUpdateExpense))
	mux.HandleFunc("DELETE /api/expenses/{id}", s.wrap(s.handleDeleteExpense))
	mux.HandleFunc("GET /api/stats", s.wrap(s.handleStats))

	mux.HandleFunc("GET /api/budget", s.wrap(s.handleGetBudget))
	mux.HandleFunc("POST /api/budget", s.wrap(s.handleSetBudget))
	mux.HandleFunc("GET /api/budget/status", s.wrap(s.handleBudgetStatus))

	mux.HandleFunc("GET /api/visualization/data", s.wrap(s.handleVisualizationData))
	mux.HandleFunc("GET /api/insights", s.wrap(s.handleInsights))
	mux.HandleFunc("GET /api/insights/trends", s.wrap(s.handleInsightsTrends))

	mux.HandleFunc("POST /api/categorize", s.wrap(s.handleCategorize))
	mux.HandleFunc("POST /api/categorize/suggestions", s.wrap(s.handleCategorySuggestions))

	mux.HandleFunc("POST /api/receipt/scan", s.wrap(s.handleScanReceipt))

	return s
}

// wrap adds security headers, rate limiting on writes, request IDs,
// and request logging around a handler.
func (s *Server) wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := clientAddr(r)
		requestID := generateRequestID()

		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		s.logger.InfoContext(ctx, "Request started",
			log.FieldRequestID, requestID,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldClientIP, clientIP)

		if isMutating(r.Method) && !s.rateLimiter.allow(clientIP) {
			s.logger.WarnContext(ctx, "Rate limit exceeded",
				log.FieldRequestID, requestID,
				log.FieldClientIP, clientIP,
				log.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			respondError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &statusWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		s.logger.InfoContext(ctx, "Request completed",
			log.FieldRequestID, requestID,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldStatusCode, rw.statusCode,
			log.FieldDuration, time.Since(start).Milliseconds())
	}
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}

// Shutdown stops the rate limiter cleanup goroutine and drains the
// HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// statusWriter captures the response status code for logging
type statusWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

type requestIDKey struct{}

func handleLiveness(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReadiness(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
