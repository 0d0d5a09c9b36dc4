// Package schedule runs the watcher's background jobs: interval jobs for
// platform polling and daily jobs for report delivery. Each job runs on its
// own goroutine; runs of the same job never overlap because the goroutine
// fires them sequentially.
package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/solvewatch/solvewatch/internal/logger"
)

var tracer = otel.Tracer("solvewatch/schedule")

type job struct {
	name string
	fn   func(context.Context)

	// interval jobs
	first time.Duration
	every time.Duration

	// daily jobs
	daily  bool
	hour   int
	minute int
	loc    *time.Location
}

// Runner owns a set of background jobs.
type Runner struct {
	jobs []job
	wg   sync.WaitGroup
}

// NewRunner creates an empty job runner.
func NewRunner() *Runner {
	return &Runner{}
}

// AddInterval registers a job that first fires after the given delay and
// then repeats on a fixed cadence.
func (r *Runner) AddInterval(name string, first, every time.Duration, fn func(context.Context)) {
	r.jobs = append(r.jobs, job{
		name:  name,
		fn:    fn,
		first: first,
		every: every,
	})
}

// AddDaily registers a job that fires once per day at the given wall-clock
// time ("15:04" format) in the given location.
func (r *Runner) AddDaily(name, at string, loc *time.Location, fn func(context.Context)) error {
	parsed, err := time.Parse("15:04", at)
	if err != nil {
		return fmt.Errorf("invalid daily time %q: %w", at, err)
	}
	r.jobs = append(r.jobs, job{
		name:   name,
		fn:     fn,
		daily:  true,
		hour:   parsed.Hour(),
		minute: parsed.Minute(),
		loc:    loc,
	})
	return nil
}

// Start launches one goroutine per job. It returns immediately; cancel the
// context to stop the jobs and call Wait to block until they have drained.
func (r *Runner) Start(ctx context.Context) {
	for _, j := range r.jobs {
		r.wg.Add(1)
		go func(j job) {
			defer r.wg.Done()
			if j.daily {
				r.runDaily(ctx, j)
			} else {
				r.runInterval(ctx, j)
			}
		}(j)
	}
	logger.Info("scheduler started", "jobs", len(r.jobs))
}

// Wait blocks until all job goroutines have stopped.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) runInterval(ctx context.Context, j job) {
	timer := time.NewTimer(j.first)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return
	case <-timer.C:
		r.fire(ctx, j)
	}

	ticker := time.NewTicker(j.every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.fire(ctx, j)
		}
	}
}

func (r *Runner) runDaily(ctx context.Context, j job) {
	for {
		now := time.Now().In(j.loc)
		timer := time.NewTimer(time.Until(NextDaily(now, j.hour, j.minute)))

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			r.fire(ctx, j)
		}
	}
}

// fire runs one job cycle. A panicking job is logged and recovered so one
// bad cycle cannot take the scheduler down.
func (r *Runner) fire(ctx context.Context, j job) {
	ctx, span := tracer.Start(ctx, "schedule.run",
		trace.WithAttributes(attribute.String("job.name", j.name)))
	defer span.End()
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("job panicked", "job", j.name, "panic", rec)
			span.SetStatus(codes.Error, fmt.Sprint(rec))
		}
	}()

	j.fn(ctx)
}

// NextDaily returns the next time after now with the given wall-clock hour
// and minute, in now's location. A now exactly on the boundary schedules the
// following day.
func NextDaily(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// IsLastDayOfWeek reports whether t falls on the last day of a
// Monday-through-Sunday week.
func IsLastDayOfWeek(t time.Time) bool {
	return t.Weekday() == time.Sunday
}

// IsLastDayOfMonth reports whether t falls on its month's final day.
func IsLastDayOfMonth(t time.Time) bool {
	return t.AddDate(0, 0, 1).Day() == 1
}
