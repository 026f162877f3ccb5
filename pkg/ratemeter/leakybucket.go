package ratemeter

import "time"

// decideLeakyBucket is the pure leaky-bucket-as-a-meter decision function.
//
// The bucket keeps a fill level expressed in time units, which drips down
// linearly as wall-clock time passes; there is no background task, the
// level is re-derived on every call. A conforming cell raises the level by
// one emission interval. A cell that would push the level past the window
// is denied, and RetryAt is the instant at which enough will have dripped
// out for it to fit.
//
// The zero lastUpdate means no cell has ever been seen. If now precedes
// lastUpdate the call is answered from lastUpdate onwards instead: the
// clock is supposed to be monotonic, and clamping bounds the damage of
// jitter without failing open or closed.
func (p params) decideLeakyBucket(level time.Duration, lastUpdate, now time.Time) (time.Duration, time.Time, Decision) {
	if lastUpdate.IsZero() {
		lastUpdate = now
	}
	if now.Before(lastUpdate) {
		now = lastUpdate
	}
	if elapsed := now.Sub(lastUpdate); elapsed >= level {
		level = 0
	} else {
		level -= elapsed
	}
	if level+p.emission <= p.window {
		return level + p.emission, now, Decision{Allowed: true}
	}
	retryAt := now.Add(level + p.emission - p.window)
	return level, now, Decision{Allowed: false, RetryAt: retryAt}
}

// LeakyBucket is a single-threaded leaky bucket limiter. It owns its bucket
// state exclusively and performs no synchronization: callers must not
// invoke it concurrently on the same instance. Use ThreadsafeLeakyBucket
// for shared access.
type LeakyBucket struct {
	p          params
	clock      Clock
	level      time.Duration
	lastUpdate time.Time
}

// NewLeakyBucket constructs a single-threaded leaky bucket limiter from cfg.
func NewLeakyBucket(cfg Config) (*LeakyBucket, error) {
	p, err := cfg.finalize()
	if err != nil {
		return nil, err
	}
	return &LeakyBucket{p: p, clock: cfg.clock()}, nil
}

// Allow checks one cell against the configured rate at the clock's current
// instant.
func (l *LeakyBucket) Allow() Decision {
	return l.AllowAt(l.clock.Now())
}

// AllowAt checks one cell arriving at the given instant. The decayed level
// and update instant are written back on both outcomes: a denial still
// consumes wall-clock progress.
func (l *LeakyBucket) AllowAt(now time.Time) Decision {
	level, last, d := l.p.decideLeakyBucket(l.level, l.lastUpdate, now)
	l.level, l.lastUpdate = level, last
	return d
}
