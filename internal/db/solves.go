package db

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/solvewatch/solvewatch/internal/models"
)

// InsertSolveIfAbsent records a problem as solved for the first time. The
// (platform, problem_id) pair is the dedup key: when a row already exists the
// insert is a durable no-op and the function reports false. The existence
// check and the insert are one atomic statement, so concurrent callers can
// never both be told they inserted the row.
func (db *DB) InsertSolveIfAbsent(ctx context.Context, platform models.Platform, problemID string, solveDate time.Time, rating string) (bool, error) {
	if !platform.Valid() {
		return false, ErrInvalidPlatform
	}
	if rating == "" {
		rating = "NA"
	}

	query := `
		INSERT INTO solved_problems (platform, problem_id, first_solve_date, rating)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (platform, problem_id) DO NOTHING
	`
	result, err := db.conn.ExecContext(ctx, query, platform, problemID, solveDate, rating)
	if err != nil {
		return false, fmt.Errorf("failed to insert solved problem: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read insert result: %w", err)
	}

	return rows == 1, nil
}

// SolveCount is one (platform, rating) group within a date window. Bucketing
// of the raw rating strings happens in the stats package; the store only
// groups and counts.
type SolveCount struct {
	Platform models.Platform
	Rating   string
	Count    int
}

// SolveCounts returns per-(platform, rating) first-solve counts for the
// half-open window [start, end). Dates compare on the stored calendar date.
func (db *DB) SolveCounts(ctx context.Context, start, end time.Time) ([]SolveCount, error) {
	query := `
		SELECT platform, rating, COUNT(*)
		FROM solved_problems
		WHERE first_solve_date >= $1 AND first_solve_date < $2
		GROUP BY platform, rating
		ORDER BY platform, rating
	`

	rows, err := db.conn.QueryContext(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query solve counts: %w", err)
	}
	defer rows.Close()

	var counts []SolveCount
	for rows.Next() {
		var sc SolveCount
		if err := rows.Scan(&sc.Platform, &sc.Rating, &sc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan solve count: %w", err)
		}
		counts = append(counts, sc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating solve counts: %w", err)
	}

	return counts, nil
}

// RecentSolves returns the newest first-solve rows for the given platforms,
// most recent date first.
func (db *DB) RecentSolves(ctx context.Context, platforms []models.Platform, limit int) ([]models.SolvedProblem, error) {
	if limit <= 0 {
		limit = 20
	}
	// No filter means every platform, not none.
	if len(platforms) == 0 {
		platforms = models.AllPlatforms()
	}

	names := make([]string, 0, len(platforms))
	for _, p := range platforms {
		if !p.Valid() {
			return nil, ErrInvalidPlatform
		}
		names = append(names, string(p))
	}

	query := `
		SELECT platform, problem_id, first_solve_date, rating
		FROM solved_problems
		WHERE platform = ANY($1)
		ORDER BY first_solve_date DESC, created_at DESC
		LIMIT $2
	`

	rows, err := db.conn.QueryContext(ctx, query, pq.Array(names), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent solves: %w", err)
	}
	defer rows.Close()

	var solves []models.SolvedProblem
	for rows.Next() {
		var sp models.SolvedProblem
		if err := rows.Scan(&sp.Platform, &sp.ProblemID, &sp.FirstSolveDate, &sp.Rating); err != nil {
			return nil, fmt.Errorf("failed to scan solved problem: %w", err)
		}
		solves = append(solves, sp)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recent solves: %w", err)
	}

	return solves, nil
}

// TotalSolves returns the all-time count of first-solves per platform.
func (db *DB) TotalSolves(ctx context.Context) (map[models.Platform]int, error) {
	query := `SELECT platform, COUNT(*) FROM solved_problems GROUP BY platform`

	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query solve totals: %w", err)
	}
	defer rows.Close()

	totals := make(map[models.Platform]int)
	for rows.Next() {
		var platform models.Platform
		var count int
		if err := rows.Scan(&platform, &count); err != nil {
			return nil, fmt.Errorf("failed to scan solve total: %w", err)
		}
		totals[platform] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating solve totals: %w", err)
	}

	return totals, nil
}
