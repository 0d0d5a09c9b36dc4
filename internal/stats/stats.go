// Package stats aggregates first-solve records into period-windowed reports.
package stats

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/solvewatch/solvewatch/internal/db"
	"github.com/solvewatch/solvewatch/internal/models"
)

var tracer = otel.Tracer("solvewatch/stats")

// SolveCounter is the slice of the solve store the aggregator reads.
type SolveCounter interface {
	SolveCounts(ctx context.Context, start, end time.Time) ([]db.SolveCount, error)
}

// Aggregator builds bucketed reports over the solve history. All window
// math happens in the account's timezone so "today" tracks the account's
// calendar day rather than the server's.
type Aggregator struct {
	store SolveCounter
	loc   *time.Location
}

func NewAggregator(store SolveCounter, loc *time.Location) *Aggregator {
	return &Aggregator{store: store, loc: loc}
}

// DateOf strips an instant down to its calendar date, pinned to UTC
// midnight. Solve records are keyed by the account-local date; comparing
// them against zoned instants would shift the window for accounts west of
// UTC.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Window returns the half-open [start, end) range the period covers at the
// given instant: the calendar day, the Monday-to-Sunday week, or the
// calendar month containing it.
func Window(period models.Period, now time.Time) (time.Time, time.Time, error) {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch period {
	case models.PeriodDaily:
		return day, day.AddDate(0, 0, 1), nil
	case models.PeriodWeekly:
		// time.Weekday counts from Sunday; shift so Monday opens the week.
		sinceMonday := (int(now.Weekday()) + 6) % 7
		start := day.AddDate(0, 0, -sinceMonday)
		return start, start.AddDate(0, 0, 7), nil
	case models.PeriodMonthly:
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return start, start.AddDate(0, 1, 0), nil
	default:
		return time.Time{}, time.Time{}, db.ErrInvalidPeriod
	}
}

// Report aggregates the period containing now into per-platform bucket
// counts. Every platform and bucket appears in the result even at zero, so
// a quiet day still yields a fully-shaped report.
func (a *Aggregator) Report(ctx context.Context, period models.Period, now time.Time) (models.Report, error) {
	ctx, span := tracer.Start(ctx, "stats.report",
		trace.WithAttributes(attribute.String("period", string(period))))
	defer span.End()

	start, end, err := Window(period, now.In(a.loc))
	if err != nil {
		return models.Report{}, err
	}

	// The store keys solves by calendar date, so the query window is the
	// date range itself, not the zoned instants.
	counts, err := a.store.SolveCounts(ctx, DateOf(start), DateOf(end))
	if err != nil {
		return models.Report{}, err
	}

	byBucket := make(map[models.Platform]map[models.Bucket]int)
	for _, c := range counts {
		m, ok := byBucket[c.Platform]
		if !ok {
			m = make(map[models.Bucket]int)
			byBucket[c.Platform] = m
		}
		m[models.BucketFor(c.Platform, c.Rating)] += c.Count
	}

	report := models.Report{Period: period, Start: start, End: end}
	for _, p := range models.AllPlatforms() {
		ps := models.PlatformStats{Platform: p}
		for _, b := range models.PlatformBuckets(p) {
			n := byBucket[p][b]
			ps.Buckets = append(ps.Buckets, models.BucketCount{Bucket: b, Count: n})
			ps.Total += n
		}
		report.Platforms = append(report.Platforms, ps)
		report.Total += ps.Total
	}

	span.SetAttributes(attribute.Int("report.total", report.Total))
	return report, nil
}
