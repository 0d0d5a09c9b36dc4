package db

import "errors"

// Sentinel errors for type-safe error checking
// Use errors.Is() instead of string comparison
var (
	// ErrInvalidPlatform is returned when a store write names an unknown platform.
	ErrInvalidPlatform = errors.New("invalid platform")

	// ErrInvalidPeriod is returned when a target operation names an unknown period type.
	ErrInvalidPeriod = errors.New("invalid period type")

	// ErrInvalidTarget is returned when a target write carries a negative threshold.
	ErrInvalidTarget = errors.New("target thresholds must be non-negative")
)
