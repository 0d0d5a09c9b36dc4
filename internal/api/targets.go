package api

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/solvewatch/solvewatch/internal/db"
	"github.com/solvewatch/solvewatch/internal/logger"
	"github.com/solvewatch/solvewatch/internal/models"
)

// handleGetTarget returns the stored thresholds for one period type.
func (s *Server) handleGetTarget(w http.ResponseWriter, r *http.Request) {
	period := models.Period(chi.URLParam(r, "period"))

	target, err := s.store.GetTarget(r.Context(), period)
	if err != nil {
		if errors.Is(err, db.ErrInvalidPeriod) {
			respondError(w, http.StatusBadRequest, "Invalid period: must be daily, weekly, or monthly")
			return
		}
		logger.Ctx(r.Context()).Error("failed to load target", "period", period, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to load target")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"target": target,
	})
}

// setTargetRequest is the body of PUT /api/v1/targets/{period}. All three
// fields are required: a target row is always replaced wholesale, so an
// omitted field would silently zero a threshold.
type setTargetRequest struct {
	Easy   *int `json:"easy"`
	Medium *int `json:"medium"`
	Hard   *int `json:"hard"`
}

// handleSetTarget replaces the thresholds for one period type.
func (s *Server) handleSetTarget(w http.ResponseWriter, r *http.Request) {
	log := logger.Ctx(r.Context())

	if !s.authorize(r) {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	period := models.Period(chi.URLParam(r, "period"))
	if !period.Valid() {
		respondError(w, http.StatusBadRequest, "Invalid period: must be daily, weekly, or monthly")
		return
	}

	var req setTargetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Easy == nil || req.Medium == nil || req.Hard == nil {
		respondError(w, http.StatusBadRequest, "easy, medium and hard are required")
		return
	}

	target := models.Target{
		Period: period,
		Easy:   *req.Easy,
		Medium: *req.Medium,
		Hard:   *req.Hard,
	}

	if err := s.store.SetTarget(r.Context(), target); err != nil {
		switch {
		case errors.Is(err, db.ErrInvalidTarget):
			respondError(w, http.StatusBadRequest, "Targets must be non-negative integers")
		case errors.Is(err, db.ErrInvalidPeriod):
			respondError(w, http.StatusBadRequest, "Invalid period: must be daily, weekly, or monthly")
		default:
			log.Error("failed to set target", "period", period, "error", err)
			respondError(w, http.StatusInternalServerError, "Failed to set target")
		}
		return
	}

	// Re-read so the response carries the stored updated_at.
	stored, err := s.store.GetTarget(r.Context(), period)
	if err != nil {
		log.Error("failed to reload target", "period", period, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to load target")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"target": stored,
	})
}

// authorize checks the bearer token on mutating endpoints. With no token
// configured the endpoints are open.
func (s *Server) authorize(r *http.Request) bool {
	if s.config.APIToken == "" {
		return true
	}

	const prefix = "Bearer "
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, prefix) {
		return false
	}

	token := strings.TrimPrefix(header, prefix)
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.config.APIToken)) == 1
}
