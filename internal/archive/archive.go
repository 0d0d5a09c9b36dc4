// Package archive stores fetched solution source code in S3/MinIO. The
// archive is optional: the pipeline logs failed uploads and keeps going.
package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/solvewatch/solvewatch/internal/models"
)

var tracer = otel.Tracer("solvewatch/archive")

// Sentinel errors for archive operations
var (
	// ErrObjectNotFound indicates the requested object does not exist
	ErrObjectNotFound = errors.New("object not found")

	// ErrAccessDenied indicates insufficient permissions for the operation
	ErrAccessDenied = errors.New("access denied")

	// ErrNetworkError indicates a network connectivity issue
	ErrNetworkError = errors.New("network error")
)

// Config holds S3/MinIO configuration
type Config struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UseSSL          bool
}

// Client handles solution object storage
type Client struct {
	client *minio.Client
	bucket string
}

// New creates a new S3/MinIO archive client
func New(config Config) (*Client, error) {
	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKeyID, config.SecretAccessKey, ""),
		Secure: config.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}

	return &Client{
		client: client,
		bucket: config.Bucket,
	}, nil
}

// EnsureBucket creates the archive bucket when it does not exist yet. The
// watcher owns its bucket, so it is created on startup rather than
// out-of-band.
func (c *Client) EnsureBucket(ctx context.Context) error {
	exists, err := c.client.BucketExists(ctx, c.bucket)
	if err != nil {
		return classifyError(err, "check bucket")
	}
	if exists {
		return nil
	}
	if err := c.client.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{}); err != nil {
		return classifyError(err, "create bucket")
	}
	return nil
}

// solutionKey builds the object key for a solve's source code.
// Key format: {platform}/{problem_key}/{event_id}.txt
func solutionKey(event models.SolveEvent) string {
	return fmt.Sprintf("%s/%s/%s.txt", event.Platform, event.ProblemKey, event.ID)
}

// StoreSolution uploads the solve's source code and returns the object key.
func (c *Client) StoreSolution(ctx context.Context, event models.SolveEvent) (string, error) {
	if event.Detail == nil || event.Detail.Code == "" {
		return "", fmt.Errorf("solve %s carries no solution code", event.ProblemKey)
	}

	key := solutionKey(event)
	ctx, span := tracer.Start(ctx, "archive.store_solution",
		trace.WithAttributes(
			attribute.String("solve.platform", string(event.Platform)),
			attribute.String("solve.problem_key", event.ProblemKey),
			attribute.String("archive.key", key),
			attribute.Int("file.size", len(event.Detail.Code)),
		))
	defer span.End()

	reader := strings.NewReader(event.Detail.Code)
	_, err := c.client.PutObject(ctx, c.bucket, key, reader, int64(len(event.Detail.Code)), minio.PutObjectOptions{
		ContentType: "text/plain; charset=utf-8",
		UserMetadata: map[string]string{
			"Language": event.Language,
			"Solved":   event.SolvedOn.Format("2006-01-02"),
		},
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", classifyError(err, "store solution")
	}

	return key, nil
}

// Get retrieves an archived solution by key
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "archive.get",
		trace.WithAttributes(attribute.String("archive.key", key)))
	defer span.End()

	object, err := c.client.GetObject(ctx, c.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, classifyError(err, "get")
	}
	defer object.Close()

	data, err := io.ReadAll(object)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, classifyError(err, "get")
	}

	span.SetAttributes(attribute.Int("file.size", len(data)))
	return data, nil
}

// Remove deletes an archived solution by key
func (c *Client) Remove(ctx context.Context, key string) error {
	ctx, span := tracer.Start(ctx, "archive.remove",
		trace.WithAttributes(attribute.String("archive.key", key)))
	defer span.End()

	err := c.client.RemoveObject(ctx, c.bucket, key, minio.RemoveObjectOptions{})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to remove from archive: %w", err)
	}
	return nil
}

// classifyError examines a storage error and returns an appropriate sentinel error
func classifyError(err error, operation string) error {
	if err == nil {
		return nil
	}

	// Check for MinIO error response
	var minioErr minio.ErrorResponse
	if errors.As(err, &minioErr) {
		switch minioErr.Code {
		case "NoSuchKey", "NoSuchBucket":
			return fmt.Errorf("%s: %w", operation, ErrObjectNotFound)
		case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch":
			return fmt.Errorf("%s: %w", operation, ErrAccessDenied)
		}
	}

	// Check for network/connection errors
	errStr := err.Error()
	for _, marker := range []string{"connection", "timeout", "network", "dial", "refused"} {
		if strings.Contains(errStr, marker) {
			return fmt.Errorf("%s network issue: %w", operation, ErrNetworkError)
		}
	}

	// Return wrapped generic error for unknown cases
	return fmt.Errorf("%s failed: %w", operation, err)
}
