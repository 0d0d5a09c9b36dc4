package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/solvewatch/solvewatch/internal/models"
)

// SetTarget stores the per-bucket thresholds for one period type, overwriting
// any previous row wholesale.
func (db *DB) SetTarget(ctx context.Context, target models.Target) error {
	if !target.Period.Valid() {
		return ErrInvalidPeriod
	}
	if target.Easy < 0 || target.Medium < 0 || target.Hard < 0 {
		return ErrInvalidTarget
	}

	query := `
		INSERT INTO targets (period_type, easy_target, medium_target, hard_target, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (period_type) DO UPDATE SET
			easy_target = EXCLUDED.easy_target,
			medium_target = EXCLUDED.medium_target,
			hard_target = EXCLUDED.hard_target,
			updated_at = NOW()
	`
	_, err := db.conn.ExecContext(ctx, query, target.Period, target.Easy, target.Medium, target.Hard)
	if err != nil {
		return fmt.Errorf("failed to set target: %w", err)
	}

	return nil
}

// GetTarget returns the stored thresholds for one period type. An unset
// period comes back as the all-zero target, which readers treat the same as
// an explicit all-zero row: no target.
func (db *DB) GetTarget(ctx context.Context, period models.Period) (models.Target, error) {
	if !period.Valid() {
		return models.Target{}, ErrInvalidPeriod
	}

	query := `
		SELECT period_type, easy_target, medium_target, hard_target, updated_at
		FROM targets
		WHERE period_type = $1
	`

	var target models.Target
	err := db.conn.QueryRowContext(ctx, query, period).Scan(
		&target.Period,
		&target.Easy,
		&target.Medium,
		&target.Hard,
		&target.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.Target{Period: period}, nil
		}
		return models.Target{}, fmt.Errorf("failed to get target: %w", err)
	}

	return target, nil
}
