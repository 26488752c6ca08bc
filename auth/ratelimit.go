package auth

import (
	"sync"
	"time"
)

// Named rate-limit buckets. Each bucket is an independent counter space;
// exhausting one never affects another.
const (
	BucketDefault  = "default"  // ordinary request traffic
	BucketCrypto   = "crypto"   // signing and key-derivation operations
	BucketConfig   = "config"   // configuration writes
	BucketRecovery = "recovery" // credential-recovery / login attempts
	BucketAdmin    = "admin"    // privileged admin operations
)

// Limit is the window configuration for one bucket.
type Limit struct {
	Max    int
	Window time.Duration
}

// Decision is the outcome of a rate-limit check. Denial is a structured
// result, never an error; the caller maps it to a 429 with a Retry-After
// hint taken from RetryAfter.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

type counterKey struct {
	bucket string
	client string
}

type windowCounter struct {
	count   int
	resetAt time.Time
}

// RateLimiter implements fixed-window counters per (bucket, client identity).
// Client identity is derived by the caller (e.g. trusted-proxy-aware IP
// extraction); the limiter does not parse transport addresses itself.
type RateLimiter struct {
	mu        sync.Mutex
	enabled   bool
	def       Limit
	overrides map[string]Limit
	counters  map[counterKey]*windowCounter
	lastPrune time.Time
}

// NewRateLimiter creates a limiter with the given default limit and
// per-bucket overrides. When enabled is false every check passes and
// reports the bucket maximum as remaining.
func NewRateLimiter(enabled bool, def Limit, overrides map[string]Limit) *RateLimiter {
	ov := make(map[string]Limit, len(overrides))
	for name, l := range overrides {
		if l.Window <= 0 {
			l.Window = def.Window
		}
		ov[name] = l
	}
	return &RateLimiter{
		enabled:   enabled,
		def:       def,
		overrides: ov,
		counters:  make(map[counterKey]*windowCounter),
		lastPrune: time.Now(),
	}
}

// BucketLimit returns the effective limit for a bucket name.
func (rl *RateLimiter) BucketLimit(bucket string) Limit {
	if l, ok := rl.overrides[bucket]; ok {
		return l
	}
	return rl.def
}

// Check counts one request against (bucket, clientID) and reports whether
// it is allowed. Crossing the window boundary resets the counter to 1.
func (rl *RateLimiter) Check(bucket, clientID string) Decision {
	limit := rl.BucketLimit(bucket)
	if !rl.enabled {
		return Decision{Allowed: true, Remaining: limit.Max}
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	rl.pruneLocked(now)

	key := counterKey{bucket: bucket, client: clientID}
	c, ok := rl.counters[key]
	if !ok || !now.Before(c.resetAt) {
		rl.counters[key] = &windowCounter{count: 1, resetAt: now.Add(limit.Window)}
		return Decision{Allowed: true, Remaining: limit.Max - 1}
	}

	if c.count >= limit.Max {
		return Decision{Allowed: false, Remaining: 0, RetryAfter: time.Until(c.resetAt)}
	}
	c.count++
	return Decision{Allowed: true, Remaining: limit.Max - c.count}
}

// pruneLocked lazily drops counters whose window has long passed. Stale
// entries are harmless for correctness (Check resets them on access), this
// only bounds memory for churning client identities.
func (rl *RateLimiter) pruneLocked(now time.Time) {
	if now.Sub(rl.lastPrune) < rl.def.Window {
		return
	}
	for key, c := range rl.counters {
		if !now.Before(c.resetAt) {
			delete(rl.counters, key)
		}
	}
	rl.lastPrune = now
}
