package ratemeter

import "errors"

var (
	// ErrInvalidCapacity is returned when a limiter is configured with a
	// capacity below one cell.
	ErrInvalidCapacity = errors.New("capacity must be at least 1")

	// ErrInvalidTimeUnit is returned when the configured time unit is zero
	// or negative, or too short to give each cell a positive emission
	// interval.
	ErrInvalidTimeUnit = errors.New("time unit must be positive")

	// ErrUnsupportedWeight is returned when a per-cell weight other than 1
	// is requested. The decision algorithms assume uniform unit-cost cells.
	ErrUnsupportedWeight = errors.New("only unit cell weight is supported")
)
