package ratelimit

import "time"

// Config describes the token-bucket parameters shared by all keys of a
// limiter. Every key gets its own bucket with these dimensions.
type Config struct {
	// Capacity is the maximum number of tokens a bucket can hold.
	// A fresh key starts with a full bucket.
	Capacity int64

	// RefillAmount is the number of tokens credited per elapsed interval.
	RefillAmount int64

	// RefillInterval is the quantum of refill. Tokens are credited only in
	// whole-interval increments.
	RefillInterval time.Duration

	// IdleTTL evicts buckets not checked for this long. Zero disables
	// eviction; use zero only for bounded key spaces.
	IdleTTL time.Duration
}

// Decision is the outcome of a single rate limit check.
type Decision struct {
	// Allowed indicates whether the request may proceed.
	Allowed bool

	// Remaining is the number of tokens left in the bucket after this check.
	Remaining int64

	// RetryAfter is the time until the next refill credits tokens.
	// Set only on denial.
	RetryAfter time.Duration
}
