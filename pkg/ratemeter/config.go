package ratemeter

import (
	"fmt"
	"time"
)

// Config holds the knobs for constructing a limiter. The zero value is not
// usable; Capacity must be set.
type Config struct {
	// Capacity is the maximum burst size in cells. Required, >= 1.
	Capacity int64

	// TimeUnit is the duration over which Capacity cells are allowed.
	// Defaults to one second.
	TimeUnit time.Duration

	// Weight is the cost of a single cell. Defaults to 1, which is also
	// the only supported value: the decision algorithms assume uniform
	// unit-cost cells, and any other weight is a configuration error.
	Weight int64

	// Clock supplies "now" for Allow calls that don't pass an instant.
	// Defaults to the system clock.
	Clock Clock
}

// Validate reports whether the configuration can produce a limiter.
// All configuration errors surface here, at construction time; checks made
// after construction always succeed and return a Decision.
func (c Config) Validate() error {
	_, err := c.finalize()
	return err
}

// params is the immutable arithmetic derived from a Config. It is shared
// read-only by every decision call, so no synchronization is needed around
// it.
type params struct {
	capacity int64
	emission time.Duration // steady-state time per cell
	window   time.Duration // capacity expressed in time units
	burst    time.Duration // GCRA tolerance: (capacity-1) * emission
}

// finalize validates the config and derives the immutable parameters.
// The division happens exactly once here; the per-call decision paths are
// comparison and addition only.
func (c Config) finalize() (params, error) {
	if c.Capacity < 1 {
		return params{}, fmt.Errorf("%w: got %d", ErrInvalidCapacity, c.Capacity)
	}
	if c.Weight != 0 && c.Weight != 1 {
		return params{}, fmt.Errorf("%w: got %d", ErrUnsupportedWeight, c.Weight)
	}
	unit := c.TimeUnit
	if unit == 0 {
		unit = time.Second
	}
	if unit < 0 {
		return params{}, fmt.Errorf("%w: got %v", ErrInvalidTimeUnit, c.TimeUnit)
	}
	emission := unit / time.Duration(c.Capacity)
	if emission <= 0 {
		return params{}, fmt.Errorf("%w: %v splits into less than 1ns per cell at capacity %d",
			ErrInvalidTimeUnit, unit, c.Capacity)
	}
	return params{
		capacity: c.Capacity,
		emission: emission,
		// The window is capacity*emission rather than the raw time unit, so
		// that a burst of exactly Capacity cells fits even when the unit
		// does not divide evenly.
		window: emission * time.Duration(c.Capacity),
		burst:  time.Duration(c.Capacity-1) * emission,
	}, nil
}

func (c Config) clock() Clock {
	if c.Clock != nil {
		return c.Clock
	}
	return SystemClock()
}
