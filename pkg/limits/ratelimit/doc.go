// Package ratelimit provides per-key token-bucket admission control.
//
// # Overview
//
// Each key (a user, a team, or a single shared key, depending on limiter
// scope) owns one token bucket with a configured capacity, refill amount, and
// refill interval. A request consumes one token; when the bucket is empty the
// request is denied with a retry-after hint:
//
//	limiter, _ := ratelimit.NewLimiter(ratelimit.Config{
//	    Capacity:       10,
//	    RefillAmount:   10,
//	    RefillInterval: time.Minute,
//	})
//	defer limiter.Close()
//
//	d := limiter.Allow("alice/engineering")
//	if !d.Allowed {
//	    // deny with d.RetryAfter
//	}
//
// # Refill Algorithm
//
// Refill is computed lazily at check time; there are no background timers on
// the request path. On each check the limiter computes how many whole refill
// intervals elapsed since the last refill, credits that many refill amounts
// (capped at capacity), and advances the refill clock by exactly the credited
// intervals so fractional progress toward the next refill is never lost.
//
// # Thread Safety
//
// Checks against the same key are serialized by a per-bucket mutex; buckets
// for different keys never block each other. Keys idle beyond a configured
// TTL are evicted by a background janitor to bound memory; a concurrently
// in-flight check against an evicted key completes against the orphaned
// bucket, and the next check recreates the key with a full bucket.
package ratelimit
