package keyed

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mkessel/ratemeter/pkg/ratemeter"
)

//go:embed gcra.lua
var gcraScript string

// RedisLimiter shares one keyed GCRA limit across processes by keeping each
// key's theoretical arrival time in Redis. The whole read-decide-write step
// runs inside a Lua script, so concurrent checks from any number of clients
// are atomic per key, mirroring the in-process compare-and-swap guarantee.
//
// Only GCRA is offered here: its state is a single number, which keeps the
// script trivial and the value self-expiring. Times are microsecond
// resolution; emission intervals below 1us are rejected at construction.
type RedisLimiter struct {
	client    redis.UniversalClient
	script    *redis.Script
	keyPrefix string

	emissionMicros int64
	burstMicros    int64
}

// RedisOption customizes a RedisLimiter.
type RedisOption func(*RedisLimiter)

// WithKeyPrefix changes the Redis key namespace. Default "ratemeter:".
func WithKeyPrefix(prefix string) RedisOption {
	return func(l *RedisLimiter) { l.keyPrefix = prefix }
}

// NewRedis creates a Redis-backed keyed limiter holding every key to cfg's
// rate. It pings the server so that connection problems surface at
// construction, not on the first check.
func NewRedis(ctx context.Context, client redis.UniversalClient, cfg ratemeter.Config, opts ...RedisOption) (*RedisLimiter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	emission := cfg.TimeUnit
	if emission == 0 {
		emission = time.Second
	}
	emission /= time.Duration(cfg.Capacity)
	if emission < time.Microsecond {
		return nil, fmt.Errorf("%w: emission interval %v is below 1us, too fine for the redis backend",
			ratemeter.ErrInvalidTimeUnit, emission)
	}

	l := &RedisLimiter{
		client:         client,
		script:         redis.NewScript(gcraScript),
		keyPrefix:      "ratemeter:",
		emissionMicros: emission.Microseconds(),
		burstMicros:    (time.Duration(cfg.Capacity-1) * emission).Microseconds(),
	}
	for _, opt := range opts {
		opt(l)
	}

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return l, nil
}

// Allow checks one cell for key at the current instant. Unlike the
// in-process limiters this can fail, since it talks to the network; a
// failure is an error, never a silent admit or deny.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (ratemeter.Decision, error) {
	return l.AllowAt(ctx, key, time.Now())
}

// AllowAt checks one cell for key arriving at the given instant.
func (l *RedisLimiter) AllowAt(ctx context.Context, key string, now time.Time) (ratemeter.Decision, error) {
	if key == "" {
		return ratemeter.Decision{}, ErrInvalidKey
	}

	res, err := l.script.Run(ctx, l.client,
		[]string{l.keyPrefix + key},
		l.emissionMicros,
		l.burstMicros,
		now.UnixMicro(),
	).Result()
	if err != nil {
		return ratemeter.Decision{}, fmt.Errorf("gcra script failed: %w", err)
	}

	values, ok := res.([]interface{})
	if !ok || len(values) != 2 {
		return ratemeter.Decision{}, errors.New("unexpected gcra script reply shape")
	}
	allowed, ok := values[0].(int64)
	if !ok {
		return ratemeter.Decision{}, errors.New("unexpected gcra script reply shape")
	}
	instant, ok := values[1].(int64)
	if !ok {
		return ratemeter.Decision{}, errors.New("unexpected gcra script reply shape")
	}

	if allowed == 1 {
		return ratemeter.Decision{Allowed: true}, nil
	}
	return ratemeter.Decision{Allowed: false, RetryAt: time.UnixMicro(instant)}, nil
}
