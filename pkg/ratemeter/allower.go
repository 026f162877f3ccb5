package ratemeter

import "time"

// Allower is the most permissive limiter in existence: it admits every
// cell unconditionally and keeps no state. It is useful as a drop-in for
// routes or keys where rate limiting is disabled, so callers don't need a
// nil check next to every Allow call.
type Allower struct{}

// Allow admits the cell.
func (Allower) Allow() Decision { return Decision{Allowed: true} }

// AllowAt admits the cell regardless of the instant.
func (Allower) AllowAt(time.Time) Decision { return Decision{Allowed: true} }
