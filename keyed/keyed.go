// Package keyed tracks one rate limit across many keys, e.g. per-customer
// or per-IP limits on a server. Buckets are created lazily on a key's first
// check and can be evicted once idle; every key gets an independent bucket,
// so no key's traffic delays another's.
package keyed

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mkessel/ratemeter/pkg/ratemeter"
)

// ErrInvalidKey is returned when a rate limit check is made with an empty key.
var ErrInvalidKey = errors.New("rate limit key cannot be empty")

// Algorithm selects the decision algorithm backing each key's bucket.
type Algorithm string

const (
	// AlgorithmGCRA is the default: lock-free buckets, traffic-shaping
	// admission.
	AlgorithmGCRA Algorithm = "gcra"

	// AlgorithmLeakyBucket uses mutex-guarded leaky bucket meters.
	AlgorithmLeakyBucket Algorithm = "leakybucket"
)

// Limiter regulates a single configured rate for any number of keys,
// entirely in process memory. It is safe for concurrent use.
type Limiter struct {
	cfg   ratemeter.Config
	alg   Algorithm
	clock ratemeter.Clock

	mu      sync.RWMutex
	buckets map[string]*bucket
}

type bucket struct {
	lim      ratemeter.Limiter
	lastSeen atomic.Int64 // UnixNano of the most recent check; read by Cleanup
}

// Option customizes a keyed Limiter.
type Option func(*Limiter) error

// WithAlgorithm selects the decision algorithm for all buckets.
func WithAlgorithm(a Algorithm) Option {
	return func(l *Limiter) error {
		switch a {
		case AlgorithmGCRA, AlgorithmLeakyBucket:
			l.alg = a
			return nil
		default:
			return fmt.Errorf("unknown algorithm %q", a)
		}
	}
}

// New creates a keyed limiter where every key is held to cfg's rate.
// The configuration is validated here, once; checks never fail afterwards.
func New(cfg ratemeter.Config, opts ...Option) (*Limiter, error) {
	l := &Limiter{
		cfg:     cfg,
		alg:     AlgorithmGCRA,
		buckets: make(map[string]*bucket),
	}
	for _, opt := range opts {
		if err := opt(l); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	l.clock = cfg.Clock
	if l.clock == nil {
		l.clock = ratemeter.SystemClock()
	}
	return l, nil
}

// Allow checks one cell for key at the clock's current instant.
func (l *Limiter) Allow(key string) (ratemeter.Decision, error) {
	return l.AllowAt(key, l.clock.Now())
}

// AllowAt checks one cell for key arriving at the given instant. The
// bucket for a previously unseen key is created on the spot; a fresh bucket
// always admits.
func (l *Limiter) AllowAt(key string, now time.Time) (ratemeter.Decision, error) {
	if key == "" {
		return ratemeter.Decision{}, ErrInvalidKey
	}
	b, err := l.bucket(key)
	if err != nil {
		return ratemeter.Decision{}, err
	}
	b.lastSeen.Store(now.UnixNano())
	return b.lim.AllowAt(now), nil
}

func (l *Limiter) bucket(key string) (*bucket, error) {
	l.mu.RLock()
	b, ok := l.buckets[key]
	l.mu.RUnlock()
	if ok {
		return b, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if b, ok := l.buckets[key]; ok {
		return b, nil
	}
	lim, err := l.newBucketLimiter()
	if err != nil {
		// New validated the config, so this is unreachable in practice.
		return nil, err
	}
	b = &bucket{lim: lim}
	l.buckets[key] = b
	return b, nil
}

func (l *Limiter) newBucketLimiter() (ratemeter.Limiter, error) {
	switch l.alg {
	case AlgorithmLeakyBucket:
		return ratemeter.NewThreadsafeLeakyBucket(l.cfg)
	default:
		return ratemeter.NewThreadsafeGCRA(l.cfg)
	}
}

// Len reports the number of live buckets.
func (l *Limiter) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.buckets)
}

// Cleanup evicts buckets that have not been checked for at least idleFor
// and returns how many were removed. Evicting an idle bucket is safe: the
// next check for that key behaves as a cold start, which can only be more
// permissive after a long idle period.
func (l *Limiter) Cleanup(idleFor time.Duration) int {
	cutoff := l.clock.Now().Add(-idleFor).UnixNano()

	l.mu.Lock()
	defer l.mu.Unlock()
	removed := 0
	for key, b := range l.buckets {
		if b.lastSeen.Load() < cutoff {
			delete(l.buckets, key)
			removed++
		}
	}
	return removed
}

// StartBackgroundCleanup evicts buckets idle for longer than idleFor on the
// given interval, until the returned stop function is called.
func (l *Limiter) StartBackgroundCleanup(interval, idleFor time.Duration) (stop func()) {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				l.Cleanup(idleFor)
			case <-done:
				return
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			ticker.Stop()
			close(done)
		})
	}
}
