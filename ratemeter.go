package ratemeter

import (
	"github.com/mkessel/ratemeter/pkg/ratemeter"
)

// Re-export the core types for convenience, so small programs can depend on
// the module root alone.
type (
	Config   = ratemeter.Config
	Decision = ratemeter.Decision
	Limiter  = ratemeter.Limiter
	Clock    = ratemeter.Clock
	Jitter   = ratemeter.Jitter
)

var (
	NewGCRA                  = ratemeter.NewGCRA
	NewLeakyBucket           = ratemeter.NewLeakyBucket
	NewThreadsafeGCRA        = ratemeter.NewThreadsafeGCRA
	NewThreadsafeLeakyBucket = ratemeter.NewThreadsafeLeakyBucket
	SystemClock              = ratemeter.SystemClock
	NewFakeClock             = ratemeter.NewFakeClock
)
