package ratelimit

import (
	"sync"
	"time"
)

// bucket holds the token state for a single limiter key.
// All fields are guarded by mu.
type bucket struct {
	mu         sync.Mutex
	tokens     int64
	lastRefill time.Time
	lastAccess time.Time
}

// newBucket creates a bucket starting at full capacity.
func newBucket(capacity int64, now time.Time) *bucket {
	return &bucket{
		tokens:     capacity,
		lastRefill: now,
		lastAccess: now,
	}
}

// take refills the bucket for elapsed whole intervals and attempts to
// consume one token.
func (b *bucket) take(cfg Config, now time.Time) Decision {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastAccess = now

	// Credit elapsed whole intervals. The refill clock advances by exactly
	// the credited intervals, not to now, so partial progress toward the
	// next refill carries over.
	if elapsed := now.Sub(b.lastRefill); elapsed >= cfg.RefillInterval {
		intervals := int64(elapsed / cfg.RefillInterval)
		b.tokens += intervals * cfg.RefillAmount
		if b.tokens > cfg.Capacity {
			b.tokens = cfg.Capacity
		}
		b.lastRefill = b.lastRefill.Add(time.Duration(intervals) * cfg.RefillInterval)
	}

	if b.tokens >= 1 {
		b.tokens--
		return Decision{Allowed: true, Remaining: b.tokens}
	}

	return Decision{
		Allowed:    false,
		Remaining:  0,
		RetryAfter: cfg.RefillInterval - now.Sub(b.lastRefill),
	}
}

// idleSince reports the time of the last check against this bucket.
func (b *bucket) idleSince() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastAccess
}
