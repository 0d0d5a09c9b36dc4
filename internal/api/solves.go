package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/solvewatch/solvewatch/internal/logger"
	"github.com/solvewatch/solvewatch/internal/models"
)

const (
	defaultRecentLimit = 20
	maxRecentLimit     = 100
)

// handleRecentSolves returns the newest first-solves plus all-time totals.
// Optional query params: limit (1-100, default 20) and platform (repeatable).
func (s *Server) handleRecentSolves(w http.ResponseWriter, r *http.Request) {
	log := logger.Ctx(r.Context())

	limit := defaultRecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxRecentLimit {
			respondError(w, http.StatusBadRequest,
				fmt.Sprintf("limit must be an integer between 1 and %d", maxRecentLimit))
			return
		}
		limit = n
	}

	var platforms []models.Platform
	for _, raw := range r.URL.Query()["platform"] {
		p := models.Platform(raw)
		if !p.Valid() {
			respondError(w, http.StatusBadRequest, "Unknown platform: "+raw)
			return
		}
		platforms = append(platforms, p)
	}

	solves, err := s.store.RecentSolves(r.Context(), platforms, limit)
	if err != nil {
		log.Error("failed to list recent solves", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to list recent solves")
		return
	}
	if solves == nil {
		// Encode as an empty JSON array, not null.
		solves = []models.SolvedProblem{}
	}

	totals, err := s.store.TotalSolves(r.Context())
	if err != nil {
		log.Error("failed to count solves", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to count solves")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"solves": solves,
		"totals": totals,
	})
}
