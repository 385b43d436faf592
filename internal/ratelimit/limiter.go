// Package ratelimit implements per-tenant, per-operation admission control
// with lock-free token buckets.
package ratelimit

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"
)

// microPerToken is the fixed-point scale of the bucket: one token is 1e6 units.
const microPerToken = 1_000_000

// Clock returns the current time. Limiters only use differences between readings.
type Clock func() time.Time

// Limiter is a token bucket that never blocks.
//
// The bucket starts full. Tokens accrue continuously at PermitsPerSecond and
// are capped at Burst. The token count and the refill time live in one
// immutable bucket swapped by CAS, so a refill and the deduction it pays for
// are a single step.
type Limiter struct {
	name             string
	permitsPerSecond float64
	burst            int
	capacity         int64

	state atomic.Pointer[bucket]

	start time.Time
	now   Clock
}

// bucket is a snapshot of the limiter. It is never modified once published.
type bucket struct {
	tokens     int64 // micro-tokens in [0, capacity]
	lastRefill int64 // nanoseconds since start
}

// NewLimiter creates a full bucket. permitsPerSecond and burst must be positive.
func NewLimiter(name string, permitsPerSecond float64, burst int) (*Limiter, error) {
	return newLimiter(name, permitsPerSecond, burst, time.Now)
}

func newLimiter(name string, permitsPerSecond float64, burst int, now Clock) (*Limiter, error) {
	if !(permitsPerSecond > 0) || math.IsInf(permitsPerSecond, 0) {
		return nil, fmt.Errorf("limiter %s: permits per second must be positive, got %v", name, permitsPerSecond)
	}
	if burst <= 0 {
		return nil, fmt.Errorf("limiter %s: burst must be positive, got %d", name, burst)
	}
	if int64(burst) > math.MaxInt64/microPerToken {
		return nil, errors.New("limiter " + name + ": burst too large")
	}

	l := &Limiter{
		name:             name,
		permitsPerSecond: permitsPerSecond,
		burst:            burst,
		capacity:         int64(burst) * microPerToken,
		start:            now(),
		now:              now,
	}
	l.state.Store(&bucket{tokens: l.capacity})
	return l, nil
}

// Name returns the limiter key.
func (l *Limiter) Name() string { return l.name }

// PermitsPerSecond returns the refill rate.
func (l *Limiter) PermitsPerSecond() float64 { return l.permitsPerSecond }

// Burst returns the bucket capacity in tokens.
func (l *Limiter) Burst() int { return l.burst }

// TryAcquire takes permits tokens if available and reports whether it did.
// Non-positive permits are rejected.
func (l *Limiter) TryAcquire(permits int) bool {
	if permits <= 0 {
		return false
	}
	need := int64(permits) * microPerToken
	if need > l.capacity {
		return false
	}

	for {
		cur := l.state.Load()
		next := l.refilled(cur)
		if next.tokens < need {
			return false
		}
		next.tokens -= need
		if l.state.CompareAndSwap(cur, &next) {
			return true
		}
	}
}

// Available returns the current token count, including accrued refill.
func (l *Limiter) Available() float64 {
	b := l.refilled(l.state.Load())
	return float64(b.tokens) / microPerToken
}

// refilled returns b advanced to the current time. The refill time only moves
// when at least one micro-token is credited, so short intervals accumulate.
func (l *Limiter) refilled(b *bucket) bucket {
	next := *b
	now := l.now().Sub(l.start).Nanoseconds()
	elapsed := now - b.lastRefill
	if elapsed <= 0 {
		return next
	}
	add := int64(float64(elapsed) * l.permitsPerSecond * microPerToken / float64(time.Second))
	if add <= 0 {
		return next
	}
	next.lastRefill = now
	next.tokens += add
	if next.tokens > l.capacity || next.tokens < b.tokens {
		next.tokens = l.capacity
	}
	return next
}
