package ratemeter

import (
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// tatUnset marks a ThreadsafeGCRA that has never seen a cell. Real TAT
// values are Unix nanoseconds and never reach the int64 minimum.
const tatUnset = math.MinInt64

// ThreadsafeGCRA is a GCRA limiter safe for concurrent use by any number of
// goroutines. The theoretical arrival time fits in a single machine word
// (Unix nanoseconds), so updates are lock-free: a compare-and-swap loop
// re-reads the authoritative state on every conflict, which means each
// retry observes another goroutine's completed update and the loop cannot
// livelock. Denials write nothing and take no retry at all.
type ThreadsafeGCRA struct {
	p     params
	clock Clock
	tat   atomic.Int64
}

// NewThreadsafeGCRA constructs a concurrent GCRA limiter from cfg.
func NewThreadsafeGCRA(cfg Config) (*ThreadsafeGCRA, error) {
	p, err := cfg.finalize()
	if err != nil {
		return nil, err
	}
	g := &ThreadsafeGCRA{p: p, clock: cfg.clock()}
	g.tat.Store(tatUnset)
	return g, nil
}

// Allow checks one cell at the clock's current instant.
func (g *ThreadsafeGCRA) Allow() Decision {
	return g.AllowAt(g.clock.Now())
}

// AllowAt checks one cell arriving at the given instant. Concurrent calls
// are linearizable per bucket: every admitted cell corresponds to exactly
// one successful swap, so racing goroutines can never both consume the same
// slot.
func (g *ThreadsafeGCRA) AllowAt(now time.Time) Decision {
	for {
		cur := g.tat.Load()
		var tat time.Time
		if cur != tatUnset {
			tat = time.Unix(0, cur)
		}
		next, d := g.p.decideGCRA(tat, now)
		if !d.Allowed {
			// The algorithm leaves the TAT untouched on denial, so there
			// is nothing to swap and nothing to race on.
			return d
		}
		if g.tat.CompareAndSwap(cur, next.UnixNano()) {
			return d
		}
	}
}

// ThreadsafeLeakyBucket is a leaky bucket limiter safe for concurrent use.
// Its state is a (level, lastUpdate) pair, too wide for a single atomic
// word, so the read-decide-write step runs under a mutex instead. The lock
// covers only in-memory arithmetic; nothing inside it sleeps or does I/O.
type ThreadsafeLeakyBucket struct {
	p     params
	clock Clock

	mu         sync.Mutex
	level      time.Duration
	lastUpdate time.Time
}

// NewThreadsafeLeakyBucket constructs a concurrent leaky bucket limiter
// from cfg.
func NewThreadsafeLeakyBucket(cfg Config) (*ThreadsafeLeakyBucket, error) {
	p, err := cfg.finalize()
	if err != nil {
		return nil, err
	}
	return &ThreadsafeLeakyBucket{p: p, clock: cfg.clock()}, nil
}

// Allow checks one cell at the clock's current instant.
func (l *ThreadsafeLeakyBucket) Allow() Decision {
	return l.AllowAt(l.clock.Now())
}

// AllowAt checks one cell arriving at the given instant.
func (l *ThreadsafeLeakyBucket) AllowAt(now time.Time) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()
	level, last, d := l.p.decideLeakyBucket(l.level, l.lastUpdate, now)
	l.level, l.lastUpdate = level, last
	return d
}
