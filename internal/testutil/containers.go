// Package testutil provides containerized test infrastructure for
// integration tests. It starts real Postgres and MinIO instances via
// testcontainers so tests exercise the same storage paths production runs.
package testutil

import (
	"context"
	"fmt"
	"log"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/minio"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/solvewatch/solvewatch/internal/archive"
	"github.com/solvewatch/solvewatch/internal/db"
)

// TestEnvironment bundles the live dependencies an integration test runs
// against: a migrated Postgres database and a MinIO-backed solution archive.
type TestEnvironment struct {
	DB      *db.DB
	Archive *archive.Client

	PostgresContainer *postgres.PostgresContainer
	MinioContainer    *minio.MinioContainer
	Ctx               context.Context
}

// SetupTestEnvironment starts the Postgres and MinIO containers, runs the
// schema migrations, and prepares the archive bucket. Teardown is
// registered via t.Cleanup, so callers only need CleanDB between cases.
func SetupTestEnvironment(t *testing.T) *TestEnvironment {
	t.Helper()
	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("solvewatch_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	database, err := db.Connect(connStr)
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}

	if err := db.RunMigrations(database.Conn()); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	minioContainer, err := minio.Run(ctx,
		"minio/minio:latest",
		minio.WithUsername("minioadmin"),
		minio.WithPassword("minioadmin"),
	)
	if err != nil {
		t.Fatalf("failed to start minio container: %v", err)
	}

	endpoint, err := minioContainer.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("failed to get minio endpoint: %v", err)
	}

	archiveClient, err := archive.New(archive.Config{
		Endpoint:        endpoint,
		AccessKeyID:     "minioadmin",
		SecretAccessKey: "minioadmin",
		Bucket:          "solvewatch-test",
		UseSSL:          false,
	})
	if err != nil {
		t.Fatalf("failed to create archive client: %v", err)
	}

	// MinIO accepts TCP connections slightly before the S3 API is usable,
	// so give bucket creation a few retries.
	for i := 0; i < 10; i++ {
		if err = archiveClient.EnsureBucket(ctx); err == nil {
			break
		}
		time.Sleep(500 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("failed to prepare archive bucket: %v", err)
	}

	env := &TestEnvironment{
		DB:                database,
		Archive:           archiveClient,
		PostgresContainer: postgresContainer,
		MinioContainer:    minioContainer,
		Ctx:               ctx,
	}
	t.Cleanup(env.Cleanup)
	return env
}

// Cleanup closes the database pool and terminates both containers.
func (env *TestEnvironment) Cleanup() {
	if env.DB != nil {
		if err := env.DB.Close(); err != nil {
			log.Printf("failed to close test database: %s", err)
		}
	}
	if env.PostgresContainer != nil {
		if err := env.PostgresContainer.Terminate(env.Ctx); err != nil {
			log.Printf("failed to terminate postgres container: %s", err)
		}
	}
	if env.MinioContainer != nil {
		if err := env.MinioContainer.Terminate(env.Ctx); err != nil {
			log.Printf("failed to terminate minio container: %s", err)
		}
	}
}

// CleanDB truncates every data table so each test starts from an empty
// history.
func (env *TestEnvironment) CleanDB(t *testing.T) {
	t.Helper()
	tables := []string{"solved_problems", "cursors", "targets"}
	for _, table := range tables {
		if _, err := env.DB.Exec(env.Ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)); err != nil {
			t.Fatalf("failed to clean table %s: %v", table, err)
		}
	}
}
