package archive

import (
	"context"
	"errors"
	"testing"

	"github.com/minio/minio-go/v7"

	"github.com/solvewatch/solvewatch/internal/models"
)

func TestSolutionKey(t *testing.T) {
	tests := []struct {
		name  string
		event models.SolveEvent
		want  string
	}{
		{
			name: "codeforces solve",
			event: models.SolveEvent{
				ID:         "5f2b9d41",
				Platform:   models.PlatformCodeforces,
				ProblemKey: "1900-B",
			},
			want: "codeforces/1900-B/5f2b9d41.txt",
		},
		{
			name: "leetcode solve",
			event: models.SolveEvent{
				ID:         "0c61a7e3",
				Platform:   models.PlatformLeetCode,
				ProblemKey: "two-sum",
			},
			want: "leetcode/two-sum/0c61a7e3.txt",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := solutionKey(tt.event); got != tt.want {
				t.Errorf("solutionKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		operation     string
		expectedError error
	}{
		{
			name:          "nil error",
			err:           nil,
			operation:     "get",
			expectedError: nil,
		},
		{
			name:          "NoSuchKey error",
			err:           minio.ErrorResponse{Code: "NoSuchKey"},
			operation:     "get",
			expectedError: ErrObjectNotFound,
		},
		{
			name:          "NoSuchBucket error",
			err:           minio.ErrorResponse{Code: "NoSuchBucket"},
			operation:     "get",
			expectedError: ErrObjectNotFound,
		},
		{
			name:          "AccessDenied error",
			err:           minio.ErrorResponse{Code: "AccessDenied"},
			operation:     "store solution",
			expectedError: ErrAccessDenied,
		},
		{
			name:          "InvalidAccessKeyId error",
			err:           minio.ErrorResponse{Code: "InvalidAccessKeyId"},
			operation:     "store solution",
			expectedError: ErrAccessDenied,
		},
		{
			name:          "connection error string",
			err:           errors.New("dial tcp: connection refused"),
			operation:     "store solution",
			expectedError: ErrNetworkError,
		},
		{
			name:          "timeout error string",
			err:           errors.New("context deadline exceeded: timeout"),
			operation:     "get",
			expectedError: ErrNetworkError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := classifyError(tt.err, tt.operation)

			if tt.expectedError == nil {
				if result != nil {
					t.Errorf("expected nil, got %v", result)
				}
				return
			}
			if !errors.Is(result, tt.expectedError) {
				t.Errorf("classifyError(%v, %q) should wrap %v, got %v",
					tt.err, tt.operation, tt.expectedError, result)
			}
		})
	}

	t.Run("unknown error is wrapped without sentinel", func(t *testing.T) {
		cause := errors.New("some unknown error")
		result := classifyError(cause, "get")
		if !errors.Is(result, cause) {
			t.Errorf("expected wrapped cause, got %v", result)
		}
		for _, sentinel := range []error{ErrObjectNotFound, ErrAccessDenied, ErrNetworkError} {
			if errors.Is(result, sentinel) {
				t.Errorf("unexpected sentinel %v in %v", sentinel, result)
			}
		}
	})
}

func TestStoreSolutionRequiresCode(t *testing.T) {
	c := &Client{bucket: "solutions"}
	event := models.SolveEvent{
		ID:         "5f2b9d41",
		Platform:   models.PlatformCodeforces,
		ProblemKey: "1900-B",
	}
	if _, err := c.StoreSolution(context.Background(), event); err == nil {
		t.Fatal("expected error for solve without detail, got nil")
	}

	event.Detail = &models.SolutionDetail{}
	if _, err := c.StoreSolution(context.Background(), event); err == nil {
		t.Fatal("expected error for solve with empty code, got nil")
	}
}
