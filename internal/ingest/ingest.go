// Package ingest implements the incremental submission sync: fetch a recent
// window from a platform, credit unseen first solves exactly once, and move
// the per-platform cursor forward.
package ingest

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/solvewatch/solvewatch/internal/logger"
	"github.com/solvewatch/solvewatch/internal/models"
)

var tracer = otel.Tracer("solvewatch/ingest")

// Adapter fetches a platform's most recent submissions, newest first. On any
// failure it must return an error, never a valid-looking empty window.
type Adapter interface {
	FetchRecent(ctx context.Context, limit int) ([]models.RawSubmission, error)
}

// RatingResolver is implemented by adapters whose windows carry no rating,
// letting the pipeline look difficulty up per problem before crediting it.
type RatingResolver interface {
	ResolveRating(ctx context.Context, problemKey string) (string, error)
}

// DetailFetcher is implemented by adapters that can enrich a fresh solve
// with runtime, memory and source-code detail.
type DetailFetcher interface {
	SubmissionDetail(ctx context.Context, externalID string) (*models.SolutionDetail, error)
}

// CursorStore persists the per-platform high-water mark.
type CursorStore interface {
	Cursor(ctx context.Context, platform models.Platform) (int64, bool, error)
	SaveCursor(ctx context.Context, platform models.Platform, value int64) error
}

// SolveStore is the dedup store: the insert reports true only for the first
// time a (platform, problem) pair is ever seen.
type SolveStore interface {
	InsertSolveIfAbsent(ctx context.Context, platform models.Platform, problemID string, solveDate time.Time, rating string) (bool, error)
}

// Alerter delivers one notification per fresh solve. Delivery is
// at-most-once: a failed send is logged and never retried, and it does not
// roll the solve back.
type Alerter interface {
	SendSolveAlert(ctx context.Context, event models.SolveEvent) error
}

// SolutionArchiver stores the solution source of a fresh solve.
type SolutionArchiver interface {
	StoreSolution(ctx context.Context, event models.SolveEvent) (string, error)
}

// Config wires one platform's pipeline.
type Config struct {
	Platform models.Platform
	Adapter  Adapter
	Cursors  CursorStore
	Solves   SolveStore
	Alerter  Alerter

	// Archive is optional; when set, solves whose detail carries source
	// code are archived.
	Archive SolutionArchiver

	// FetchLimit is the window size requested from the adapter.
	FetchLimit int

	// Location is the account's timezone; solves are credited to the
	// calendar date of submission there.
	Location *time.Location

	// StatsOnly suppresses per-solve alerts while keeping accounting.
	StatsOnly bool

	// FetchDetail enables the optional detail enrichment for adapters that
	// support it.
	FetchDetail bool
}

// Pipeline runs the sync for a single platform. One tick is one Sync call;
// ticks must not overlap for the same platform.
type Pipeline struct {
	cfg Config
}

func New(cfg Config) *Pipeline {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Pipeline{cfg: cfg}
}

// Sync performs one tick. The cursor only ever moves past a submission after
// that submission has been fully examined and any solve it produced has been
// durably recorded, so a crash or error mid-window re-examines instead of
// skipping. Re-examining is safe because the solve insert is idempotent.
func (p *Pipeline) Sync(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "ingest.sync",
		trace.WithAttributes(attribute.String("platform", string(p.cfg.Platform))))
	defer span.End()

	window, err := p.cfg.Adapter.FetchRecent(ctx, p.cfg.FetchLimit)
	if err != nil {
		return err
	}
	span.SetAttributes(attribute.Int("window.size", len(window)))

	cursor, ok, err := p.cfg.Cursors.Cursor(ctx, p.cfg.Platform)
	if err != nil {
		return err
	}

	if !ok {
		return p.seed(ctx, window)
	}

	// Keep only unseen accepted work, then process it oldest first so the
	// cursor never jumps over an unexamined submission.
	fresh := make([]models.RawSubmission, 0, len(window))
	for _, sub := range window {
		if sub.SequenceValue <= cursor || !sub.Accepted {
			continue
		}
		fresh = append(fresh, sub)
	}
	sort.Slice(fresh, func(i, j int) bool {
		return fresh[i].SequenceValue < fresh[j].SequenceValue
	})

	events := 0
	for _, sub := range fresh {
		emitted, err := p.process(ctx, sub)
		if err != nil {
			span.SetAttributes(attribute.Int("events", events))
			return err
		}
		if emitted {
			events++
		}
		if err := p.cfg.Cursors.SaveCursor(ctx, p.cfg.Platform, sub.SequenceValue); err != nil {
			return err
		}
	}

	span.SetAttributes(attribute.Int("events", events))
	return nil
}

// seed initializes the cursor on the very first run: history is not
// replayed, watching starts from the newest submission visible now.
func (p *Pipeline) seed(ctx context.Context, window []models.RawSubmission) error {
	var newest int64
	for _, sub := range window {
		if sub.SequenceValue > newest {
			newest = sub.SequenceValue
		}
	}
	if err := p.cfg.Cursors.SaveCursor(ctx, p.cfg.Platform, newest); err != nil {
		return err
	}
	logger.Info("seeded submission cursor", "platform", p.cfg.Platform, "cursor", newest)
	return nil
}

// process examines one accepted submission and reports whether it produced a
// solve event. An error here means the solve could not be durably recorded;
// the caller must not advance the cursor past this submission.
func (p *Pipeline) process(ctx context.Context, sub models.RawSubmission) (bool, error) {
	rating := sub.Rating
	if rating == "" {
		if resolver, ok := p.cfg.Adapter.(RatingResolver); ok {
			resolved, err := resolver.ResolveRating(ctx, sub.ProblemKey)
			if err != nil {
				logger.Warn("could not resolve problem rating",
					"platform", p.cfg.Platform, "problem", sub.ProblemKey, "error", err)
			} else {
				rating = resolved
			}
		}
	}

	local := sub.SubmittedAt.In(p.cfg.Location)
	solveDate := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)

	inserted, err := p.cfg.Solves.InsertSolveIfAbsent(ctx, p.cfg.Platform, sub.ProblemKey, solveDate, rating)
	if err != nil {
		return false, err
	}
	if !inserted {
		logger.Debug("problem already credited",
			"platform", p.cfg.Platform, "problem", sub.ProblemKey)
		return false, nil
	}

	event := models.SolveEvent{
		ID:         uuid.NewString(),
		Platform:   p.cfg.Platform,
		ProblemKey: sub.ProblemKey,
		Title:      sub.Title,
		URL:        sub.URL,
		Rating:     rating,
		Language:   sub.Language,
		SolvedOn:   local,
	}

	if p.cfg.FetchDetail {
		if fetcher, ok := p.cfg.Adapter.(DetailFetcher); ok {
			detail, err := fetcher.SubmissionDetail(ctx, sub.ExternalID)
			if err != nil {
				logger.Warn("could not fetch solution detail",
					"platform", p.cfg.Platform, "problem", sub.ProblemKey, "error", err)
			} else {
				event.Detail = detail
			}
		}
	}

	if p.cfg.Archive != nil && event.Detail != nil && event.Detail.Code != "" {
		if key, err := p.cfg.Archive.StoreSolution(ctx, event); err != nil {
			logger.Warn("could not archive solution",
				"platform", p.cfg.Platform, "problem", sub.ProblemKey, "error", err)
		} else {
			logger.Info("archived solution", "platform", p.cfg.Platform, "key", key)
		}
	}

	logger.Info("new unique solve",
		"platform", p.cfg.Platform, "problem", sub.ProblemKey, "rating", event.Rating)

	if p.cfg.StatsOnly {
		return true, nil
	}

	if err := p.cfg.Alerter.SendSolveAlert(ctx, event); err != nil {
		// At-most-once delivery: the solve stays recorded and the cursor
		// still advances past it.
		logger.Error("solve alert delivery failed",
			"platform", p.cfg.Platform, "problem", sub.ProblemKey, "error", err)
	}

	return true, nil
}
