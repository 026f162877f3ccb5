// Package middleware applies keyed rate limits to net/http handlers,
// answering denied requests with 429 and the standard rate limit headers.
package middleware

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/mkessel/ratemeter/keyed"
	"github.com/mkessel/ratemeter/pkg/ratemeter"
)

// Config assembles a rate limiting middleware.
type Config struct {
	// Policies supplies the default policy and per-route overrides.
	// Required.
	Policies *keyed.Config

	// KeyFunc identifies the client. Defaults to ExtractIPWithProxy.
	KeyFunc KeyFunc

	// OnDecision, when set, observes every decision made, keyed by route.
	// Metrics and logging hook in here.
	OnDecision func(route string, d ratemeter.Decision)

	// SkipPaths are served without any rate limiting, e.g. health checks.
	SkipPaths []string
}

// RateLimiter is an http middleware enforcing the configured policies.
// Each route with its own policy gets its own keyed limiter; routes without
// one share the default. Disabled policies admit everything.
type RateLimiter struct {
	keyFunc    KeyFunc
	onDecision func(route string, d ratemeter.Decision)
	skip       map[string]struct{}

	defaults *keyed.Limiter // nil when the default policy is disabled
	defCap   int64
	routes   map[string]*routeLimiter
}

type routeLimiter struct {
	lim      *keyed.Limiter // nil when the route's policy is disabled
	capacity int64
}

// NewRateLimiter builds the middleware, constructing every limiter eagerly
// so that configuration errors surface before the server starts.
func NewRateLimiter(cfg Config) (*RateLimiter, error) {
	if cfg.Policies == nil {
		return nil, fmt.Errorf("%w: Policies is required", keyed.ErrInvalidConfig)
	}
	if err := cfg.Policies.Validate(); err != nil {
		return nil, err
	}

	rl := &RateLimiter{
		keyFunc:    cfg.KeyFunc,
		onDecision: cfg.OnDecision,
		skip:       make(map[string]struct{}, len(cfg.SkipPaths)),
		routes:     make(map[string]*routeLimiter, len(cfg.Policies.Policies)),
		defCap:     cfg.Policies.Defaults.Capacity,
	}
	if rl.keyFunc == nil {
		rl.keyFunc = ExtractIPWithProxy()
	}
	for _, p := range cfg.SkipPaths {
		rl.skip[p] = struct{}{}
	}

	if cfg.Policies.Defaults.Enabled {
		lim, err := cfg.Policies.Defaults.Limiter()
		if err != nil {
			return nil, err
		}
		rl.defaults = lim
	}
	for route, p := range cfg.Policies.Policies {
		r := &routeLimiter{capacity: p.Capacity}
		if p.Enabled {
			lim, err := p.Limiter()
			if err != nil {
				return nil, fmt.Errorf("route %s: %w", route, err)
			}
			r.lim = lim
		}
		rl.routes[route] = r
	}
	return rl, nil
}

// StartBackgroundCleanup evicts idle buckets from every route's limiter on
// the given interval, until the returned stop function is called.
func (rl *RateLimiter) StartBackgroundCleanup(interval, idleFor time.Duration) (stop func()) {
	var stops []func()
	if rl.defaults != nil {
		stops = append(stops, rl.defaults.StartBackgroundCleanup(interval, idleFor))
	}
	for _, r := range rl.routes {
		if r.lim != nil {
			stops = append(stops, r.lim.StartBackgroundCleanup(interval, idleFor))
		}
	}
	return func() {
		for _, s := range stops {
			s()
		}
	}
}

// Middleware wraps next with rate limiting.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := rl.skip[r.URL.Path]; ok {
			next.ServeHTTP(w, r)
			return
		}

		route := r.URL.Path
		lim, capacity := rl.limiterFor(route)
		if lim == nil {
			// Rate limiting disabled for this route.
			next.ServeHTTP(w, r)
			return
		}

		key, err := rl.keyFunc(r)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "key_extraction_failed",
				"could not identify client for rate limiting")
			return
		}

		now := time.Now()
		d, err := lim.AllowAt(key, now)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "rate_limiter_error",
				"internal rate limiter error")
			return
		}
		if rl.onDecision != nil {
			rl.onDecision(route, d)
		}

		w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(capacity, 10))
		if !d.Allowed {
			retryAfter := d.RetryAfter(now)
			secs := int64(math.Ceil(retryAfter.Seconds()))
			if secs < 1 {
				secs = 1
			}
			w.Header().Set("Retry-After", strconv.FormatInt(secs, 10))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(d.RetryAt.Unix(), 10))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error":        "rate_limit_exceeded",
				"message":      "Too many requests. Please try again later.",
				"retryAfterMs": retryAfter.Milliseconds(),
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) limiterFor(route string) (*keyed.Limiter, int64) {
	if r, ok := rl.routes[route]; ok {
		return r.lim, r.capacity
	}
	return rl.defaults, rl.defCap
}

func writeError(w http.ResponseWriter, code int, errCode, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error":   errCode,
		"message": msg,
	})
}
