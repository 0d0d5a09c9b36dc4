package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/solvewatch/solvewatch/internal/clientip"
	"github.com/solvewatch/solvewatch/internal/logger"
	"github.com/solvewatch/solvewatch/internal/models"
	"github.com/solvewatch/solvewatch/internal/ratelimit"
	"github.com/solvewatch/solvewatch/internal/telegram"
)

// Store is the slice of the database the API reads and writes.
type Store interface {
	Ping(ctx context.Context) error
	RecentSolves(ctx context.Context, platforms []models.Platform, limit int) ([]models.SolvedProblem, error)
	TotalSolves(ctx context.Context) (map[models.Platform]int, error)
	GetTarget(ctx context.Context, period models.Period) (models.Target, error)
	SetTarget(ctx context.Context, target models.Target) error
}

// Reporter builds period-windowed solve reports.
type Reporter interface {
	Report(ctx context.Context, period models.Period, now time.Time) (models.Report, error)
}

// Config carries the API surface settings.
type Config struct {
	// AllowedOrigins enables CORS for the listed origins when non-empty.
	AllowedOrigins []string

	// APIToken guards mutating endpoints when set. Empty disables the guard.
	APIToken string

	// WebhookSecret mounts the Telegram webhook when set and is matched
	// against the X-Telegram-Bot-Api-Secret-Token header on every update.
	WebhookSecret string

	// ChatID is the only chat the webhook accepts commands from.
	ChatID int64
}

// Request body size limits. Everything this API accepts is small JSON: a
// target update is three integers, and Telegram caps message text well under
// MaxBodyS. The larger tiers exist for future body-accepting routes.
const (
	MaxBodyXS int64 = 2 * 1024
	MaxBodyS  int64 = 16 * 1024
	MaxBodyM  int64 = 128 * 1024
	MaxBodyL  int64 = 2 * 1024 * 1024
	MaxBodyXL int64 = 16 * 1024 * 1024
)

// withMaxBody caps the request body at limit bytes. Reads past the limit fail
// with *http.MaxBytesError; the handler decides the response. Runs after
// request decompression, so the cap applies to the decompressed stream.
func withMaxBody(limit int64, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, limit)
		}
		next(w, r)
	})
}

// Server holds dependencies for API handlers
type Server struct {
	store    Store
	reporter Reporter
	notifier telegram.Service
	limiter  ratelimit.RateLimiter
	config   Config
}

// NewServer creates a new API server. A nil limiter disables rate limiting.
func NewServer(store Store, reporter Reporter, notifier telegram.Service, limiter ratelimit.RateLimiter, config Config) *Server {
	return &Server{
		store:    store,
		reporter: reporter,
		notifier: notifier,
		limiter:  limiter,
		config:   config,
	}
}

// SetupRoutes configures HTTP routes
func (s *Server) SetupRoutes() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(logger.Middleware)
	r.Use(clientip.Middleware)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(SpanEnricher)

	if len(s.config.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.config.AllowedOrigins,
			AllowedMethods: []string{"GET", "PUT", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
			MaxAge:         300,
		}))
	}

	r.Use(compressResponses())
	r.Use(decompressRequests())
	r.Use(debugLoggingMiddleware())
	r.Use(validateContentType)

	// Health check
	r.Get("/health", s.handleHealth)
	r.Get("/", s.handleRoot)

	// Telegram webhook (mounted only when a secret is configured)
	if s.config.WebhookSecret != "" {
		r.Method(http.MethodPost, "/telegram/webhook", withMaxBody(MaxBodyS, s.handleTelegramWebhook))
	}

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		if s.limiter != nil {
			r.Use(ratelimit.Middleware(s.limiter))
		}

		r.Get("/stats/{period}", s.handleStats)
		r.Get("/solves/recent", s.handleRecentSolves)
		r.Get("/targets/{period}", s.handleGetTarget)
		r.Method(http.MethodPut, "/targets/{period}", withMaxBody(MaxBodyXS, s.handleSetTarget))
	})

	return r
}

// handleHealth returns server health status. The DB ping makes it a real
// readiness signal rather than a bare liveness one.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		logger.Ctx(r.Context()).Error("health check failed", "error", err)
		respondError(w, http.StatusServiceUnavailable, "database unreachable")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// handleRoot returns API info
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"service": "solvewatch",
		"version": "v1",
	})
}

// respondJSON writes a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError writes an error JSON response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
