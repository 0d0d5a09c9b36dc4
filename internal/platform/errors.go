// Package platform holds the error contract shared by the submission
// sources. Adapters must never return a valid-but-empty window on failure;
// they return one of these typed errors so the caller can tell transport
// trouble from an upstream refusal.
package platform

import (
	"fmt"

	"github.com/solvewatch/solvewatch/internal/models"
)

// FetchError is a transport-level failure: the request never completed or
// the response could not be read. The platform was not necessarily reached.
type FetchError struct {
	Platform models.Platform
	Op       string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s: %s failed: %v", e.Platform, e.Op, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// UpstreamError is an answer from the platform that refuses the request: an
// HTTP error status, a FAILED API status, or a GraphQL error payload.
type UpstreamError struct {
	Platform   models.Platform
	Op         string
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %s rejected (status %d): %s", e.Platform, e.Op, e.StatusCode, e.Message)
}
