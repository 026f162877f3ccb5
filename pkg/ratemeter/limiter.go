package ratemeter

import "time"

// Limiter is the decision interface shared by every driver in this package.
// Implementations decide, per call, whether one unit-weight cell may proceed
// at the given instant. They never sleep, block on I/O, or hold work items:
// a denial is a normal result carrying the earliest useful retry instant,
// and what to do with it (queue, reject, back off) is the caller's policy.
type Limiter interface {
	// Allow checks one cell at the clock's current instant.
	Allow() Decision

	// AllowAt checks one cell arriving at the given instant. Supplying
	// the instant makes decisions reproducible in tests.
	AllowAt(now time.Time) Decision
}

var (
	_ Limiter = (*GCRA)(nil)
	_ Limiter = (*LeakyBucket)(nil)
	_ Limiter = (*ThreadsafeGCRA)(nil)
	_ Limiter = (*ThreadsafeLeakyBucket)(nil)
	_ Limiter = Allower{}
)
