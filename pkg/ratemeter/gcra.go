package ratemeter

import "time"

// decideGCRA is the pure GCRA decision function, the virtual scheduling
// form of the Generic Cell Rate Algorithm (ITU-T I.371).
//
// tat is the theoretical arrival time: the instant at which, under ideal
// pacing, the next cell would be expected. The zero time means no cell has
// ever been seen, in which case the state initializes to now and the cell
// is always admitted. A cell arriving at or after tat minus the burst
// tolerance conforms; equality admits.
//
// The successor TAT is returned on both outcomes. On denial it equals the
// input unchanged, and RetryAt is the exact instant the comparison would
// first flip, so a retry at RetryAt (with no traffic in between) succeeds.
func (p params) decideGCRA(tat, now time.Time) (time.Time, Decision) {
	if tat.IsZero() {
		tat = now
	}
	allowedAt := tat.Add(-p.burst)
	if now.Before(allowedAt) {
		return tat, Decision{Allowed: false, RetryAt: allowedAt}
	}
	next := tat
	if now.After(next) {
		next = now
	}
	return next.Add(p.emission), Decision{Allowed: true}
}

// GCRA is a single-threaded GCRA limiter. It owns its bucket state
// exclusively and performs no synchronization: callers must not invoke it
// concurrently on the same instance. Use ThreadsafeGCRA for shared access.
type GCRA struct {
	p     params
	clock Clock
	tat   time.Time
}

// NewGCRA constructs a single-threaded GCRA limiter from cfg.
func NewGCRA(cfg Config) (*GCRA, error) {
	p, err := cfg.finalize()
	if err != nil {
		return nil, err
	}
	return &GCRA{p: p, clock: cfg.clock()}, nil
}

// Allow checks one cell against the configured rate at the clock's current
// instant.
func (g *GCRA) Allow() Decision {
	return g.AllowAt(g.clock.Now())
}

// AllowAt checks one cell arriving at the given instant. It makes a single
// immediate decision and returns; it never waits.
func (g *GCRA) AllowAt(now time.Time) Decision {
	tat, d := g.p.decideGCRA(g.tat, now)
	g.tat = tat
	return d
}
