package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/solvewatch/solvewatch/internal/logger"
	"github.com/solvewatch/solvewatch/internal/models"
	"github.com/solvewatch/solvewatch/internal/stats"
)

// bucketProgress is one difficulty's standing against its target.
type bucketProgress struct {
	Bucket  models.Bucket `json:"bucket"`
	Solved  int           `json:"solved"`
	Target  int           `json:"target"`
	Percent int           `json:"percent"`
}

// statsResponse is the body of GET /api/v1/stats/{period}.
type statsResponse struct {
	Report   models.Report    `json:"report"`
	Target   models.Target    `json:"target"`
	Progress []bucketProgress `json:"progress,omitempty"`
}

// handleStats returns the report for the period containing now, plus the
// configured target and per-difficulty progress when one is set.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	log := logger.Ctx(r.Context())

	period := models.Period(chi.URLParam(r, "period"))
	if !period.Valid() {
		respondError(w, http.StatusBadRequest, "Invalid period: must be daily, weekly, or monthly")
		return
	}

	report, err := s.reporter.Report(r.Context(), period, time.Now().UTC())
	if err != nil {
		log.Error("failed to build report", "period", period, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to build report")
		return
	}

	target, err := s.store.GetTarget(r.Context(), period)
	if err != nil {
		log.Error("failed to load target", "period", period, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to load target")
		return
	}

	respondJSON(w, http.StatusOK, statsResponse{
		Report:   report,
		Target:   target,
		Progress: buildProgress(report, target),
	})
}

// buildProgress compares the LeetCode difficulty counts against the target.
// Targets only cover LeetCode difficulties; Codeforces has no target notion.
func buildProgress(report models.Report, target models.Target) []bucketProgress {
	if target.IsZero() {
		return nil
	}

	var lc models.PlatformStats
	for _, ps := range report.Platforms {
		if ps.Platform == models.PlatformLeetCode {
			lc = ps
			break
		}
	}

	goals := []struct {
		bucket models.Bucket
		target int
	}{
		{models.BucketEasy, target.Easy},
		{models.BucketMedium, target.Medium},
		{models.BucketHard, target.Hard},
	}

	progress := make([]bucketProgress, 0, len(goals))
	for _, g := range goals {
		solved := lc.Count(g.bucket)
		pct, _ := stats.Percent(solved, g.target)
		progress = append(progress, bucketProgress{
			Bucket:  g.bucket,
			Solved:  solved,
			Target:  g.target,
			Percent: pct,
		})
	}
	return progress
}
