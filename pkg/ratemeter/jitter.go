package ratemeter

import (
	"math/rand"
	"time"
)

// Jitter inflates denial retry instants by a random duration between Min
// and Min+Interval. When many clients hit the same limit at once, the raw
// RetryAt values all land on the same instant and the retries stampede
// together; jitter spreads them out. The zero Jitter is a no-op.
type Jitter struct {
	// Min is always added to a denial's retry instant.
	Min time.Duration

	// Interval is the width of the random range added on top of Min.
	Interval time.Duration
}

// JitterUpTo returns a Jitter adding between zero and max.
func JitterUpTo(max time.Duration) Jitter {
	return Jitter{Interval: max}
}

// Apply returns d with the jitter added to its retry instant. Allowed
// decisions pass through untouched.
func (j Jitter) Apply(d Decision) Decision {
	if d.Allowed {
		return d
	}
	extra := j.Min
	if j.Interval > 0 {
		extra += time.Duration(rand.Int63n(int64(j.Interval) + 1))
	}
	if extra > 0 {
		d.RetryAt = d.RetryAt.Add(extra)
	}
	return d
}
