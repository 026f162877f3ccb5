package ratemeter

import (
	"fmt"
	"time"
)

// Decision is the outcome of a single rate limit check.
type Decision struct {
	// Allowed reports whether the cell may proceed now.
	Allowed bool

	// RetryAt is the earliest instant at which a retry could succeed.
	// It is the zero time when Allowed is true, and never precedes the
	// instant the denied check was made at.
	RetryAt time.Time
}

// RetryAfter converts the decision's retry instant into a wait duration
// measured from now. It returns 0 for allowed decisions and never returns
// a negative duration. The library itself never waits; callers own all
// sleeping, queuing and backoff.
func (d Decision) RetryAfter(now time.Time) time.Duration {
	if d.Allowed || !d.RetryAt.After(now) {
		return 0
	}
	return d.RetryAt.Sub(now)
}

// String renders the decision for logs and test failures.
func (d Decision) String() string {
	if d.Allowed {
		return "allowed"
	}
	return fmt.Sprintf("denied until %v", d.RetryAt)
}
