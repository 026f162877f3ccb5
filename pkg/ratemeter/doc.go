// Package ratemeter implements rate-limiting as a decision function.
//
// Given a stream of discrete cells (requests, messages, packets), a limiter
// answers one question per cell: may it proceed now, and if not, when is
// the earliest instant a retry could succeed? The library never sleeps,
// queues, or holds work items — every call returns immediately with a
// Decision, and what to do with a denial is entirely the caller's policy.
//
// # Quick start
//
// Allow 100 cells per second with bursts up to 100:
//
//	lim, err := ratemeter.NewThreadsafeGCRA(ratemeter.Config{Capacity: 100})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	d := lim.Allow()
//	if !d.Allowed {
//	    fmt.Printf("denied, retry after %v\n", d.RetryAfter(time.Now()))
//	}
//
// # Algorithms
//
// Two decision algorithms are provided, selected by constructor:
//
//   - GCRA, the Generic Cell Rate Algorithm, tracks a single "theoretical
//     arrival time" and both limits and shapes traffic: at steady state,
//     admitted cells end up at least one emission interval apart.
//   - LeakyBucket, the classic leaky bucket as a meter, tracks a fill level
//     that drips down over time and admits any distribution of cells that
//     fits under the capacity.
//
// Both configured from the same Config: Capacity cells per TimeUnit, with
// the emission interval (TimeUnit/Capacity) derived once at construction.
// All cells have unit weight; requesting any other Weight is a
// configuration error.
//
// # Drivers
//
// Each algorithm comes in two flavors with an identical contract:
//
//   - GCRA and LeakyBucket own their state exclusively and do no
//     synchronization. They are for single-goroutine use.
//   - ThreadsafeGCRA and ThreadsafeLeakyBucket are safe for concurrent use.
//     The GCRA variant is lock-free (the state fits one atomic word and is
//     updated in a compare-and-swap loop); the leaky bucket variant guards
//     its two-word state with a mutex. Either way, concurrent checks are
//     linearizable per bucket: no race can over-admit.
//
// All four satisfy the Limiter interface.
//
// # Deterministic time
//
// Limiters read time from a Clock, pluggable via Config.Clock, and every
// driver has an AllowAt variant taking an explicit instant. FakeClock is
// the standard test double.
//
// # Per-key limiting
//
// The keyed subpackage maps string keys (per user, per IP, per API key) to
// independent buckets, with idle-bucket eviction and an optional
// Redis-backed variant for sharing limits across processes. The middleware
// subpackage turns a keyed limiter into net/http middleware with standard
// X-RateLimit headers.
package ratemeter
