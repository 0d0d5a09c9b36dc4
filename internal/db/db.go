package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/solvewatch/solvewatch/internal/logger"
)

// DB wraps a PostgreSQL database connection
type DB struct {
	conn *sql.DB
}

// Connect establishes a connection to PostgreSQL
func Connect(dsn string) (*DB, error) {
	conn, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// A single-account watcher only ever has the scheduler jobs plus a few
	// API requests on the pool at once.
	conn.SetMaxOpenConns(10)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(30 * time.Minute)

	return &DB{conn: conn}, nil
}

// ConnectWithRetry keeps calling Connect until it succeeds or ctx ends. The
// watcher usually boots alongside Postgres, so the first attempts are allowed
// to fail while the database finishes starting.
func ConnectWithRetry(ctx context.Context, dsn string) (*DB, error) {
	const retryDelay = time.Second

	var lastErr error
	for {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return nil, fmt.Errorf("gave up connecting to database: %w (last attempt: %v)", err, lastErr)
			}
			return nil, fmt.Errorf("gave up connecting to database: %w", err)
		}

		database, err := Connect(dsn)
		if err == nil {
			return database, nil
		}
		lastErr = err
		logger.Warn("database not ready, retrying", "error", err)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("gave up connecting to database: %w (last attempt: %v)", ctx.Err(), lastErr)
		case <-time.After(retryDelay):
		}
	}
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping verifies the database is reachable. Used by the health endpoint.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Exec executes a query without returning rows (for testing/migrations)
func (db *DB) Exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return db.conn.ExecContext(ctx, query, args...)
}

// QueryRow executes a query that returns at most one row (for testing)
func (db *DB) QueryRow(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return db.conn.QueryRowContext(ctx, query, args...)
}

// Conn returns the underlying *sql.DB connection.
// Used by the migration runner and by testutil.
func (db *DB) Conn() *sql.DB {
	return db.conn
}
