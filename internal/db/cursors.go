package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/solvewatch/solvewatch/internal/models"
)

// Cursor returns the per-platform high-water mark of the newest raw
// submission already examined. ok is false when the platform has never been
// synced, which is how the first-run seeding path is detected.
func (db *DB) Cursor(ctx context.Context, platform models.Platform) (value int64, ok bool, err error) {
	query := `SELECT sequence_value FROM cursors WHERE platform = $1`

	err = db.conn.QueryRowContext(ctx, query, platform).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to get cursor: %w", err)
	}

	return value, true, nil
}

// SaveCursor advances a platform's cursor. The upsert keeps the stored value
// monotone: writing a value below the current one leaves the row unchanged,
// so the cursor can never regress even under a misbehaving caller.
func (db *DB) SaveCursor(ctx context.Context, platform models.Platform, value int64) error {
	if !platform.Valid() {
		return ErrInvalidPlatform
	}

	query := `
		INSERT INTO cursors (platform, sequence_value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (platform) DO UPDATE SET
			sequence_value = GREATEST(cursors.sequence_value, EXCLUDED.sequence_value),
			updated_at = NOW()
	`
	_, err := db.conn.ExecContext(ctx, query, platform, value)
	if err != nil {
		return fmt.Errorf("failed to save cursor: %w", err)
	}

	return nil
}
