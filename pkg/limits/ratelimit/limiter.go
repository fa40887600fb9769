package ratelimit

import (
	"fmt"
	"sync"
	"time"
)

// Limiter is a keyed token-bucket rate limiter. Buckets are created on first
// use and evicted after Config.IdleTTL of inactivity.
type Limiter struct {
	cfg Config

	mu      sync.RWMutex
	buckets map[string]*bucket

	// now is replaceable for deterministic tests.
	now func() time.Time

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewLimiter creates a limiter and, when eviction is enabled, starts its
// background janitor. Callers must Close the limiter when done with it.
func NewLimiter(cfg Config) (*Limiter, error) {
	if cfg.Capacity <= 0 {
		return nil, fmt.Errorf("ratelimit: capacity must be positive, got %d", cfg.Capacity)
	}
	if cfg.RefillAmount <= 0 {
		return nil, fmt.Errorf("ratelimit: refill amount must be positive, got %d", cfg.RefillAmount)
	}
	if cfg.RefillInterval <= 0 {
		return nil, fmt.Errorf("ratelimit: refill interval must be positive, got %v", cfg.RefillInterval)
	}
	if cfg.IdleTTL < 0 {
		return nil, fmt.Errorf("ratelimit: idle TTL must not be negative, got %v", cfg.IdleTTL)
	}

	l := &Limiter{
		cfg:     cfg,
		buckets: make(map[string]*bucket),
		now:     time.Now,
		done:    make(chan struct{}),
	}

	if cfg.IdleTTL > 0 {
		l.wg.Add(1)
		go l.janitor()
	}

	return l, nil
}

// Allow checks whether one request for the given key may proceed, consuming
// a token when it may. The first check for a key sees a full bucket.
func (l *Limiter) Allow(key string) Decision {
	return l.getBucket(key).take(l.cfg, l.now())
}

// getBucket returns the bucket for key, creating it at full capacity on
// first use.
func (l *Limiter) getBucket(key string) *bucket {
	l.mu.RLock()
	b, ok := l.buckets[key]
	l.mu.RUnlock()
	if ok {
		return b
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if b, ok := l.buckets[key]; ok {
		return b
	}
	b = newBucket(l.cfg.Capacity, l.now())
	l.buckets[key] = b
	return b
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.buckets)
}

// Close stops the janitor. The limiter remains usable for checks after
// Close, but idle buckets are no longer evicted.
func (l *Limiter) Close() {
	l.closeOnce.Do(func() {
		close(l.done)
	})
	l.wg.Wait()
}

// janitor periodically evicts buckets idle beyond the configured TTL.
func (l *Limiter) janitor() {
	defer l.wg.Done()

	ticker := time.NewTicker(l.cfg.IdleTTL)
	defer ticker.Stop()

	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			l.evictIdle(l.now())
		}
	}
}

// evictIdle removes buckets whose last check is older than the TTL.
// It returns the number of evicted keys.
func (l *Limiter) evictIdle(now time.Time) int {
	cutoff := now.Add(-l.cfg.IdleTTL)

	l.mu.Lock()
	defer l.mu.Unlock()

	evicted := 0
	for key, b := range l.buckets {
		if b.idleSince().Before(cutoff) {
			delete(l.buckets, key)
			evicted++
		}
	}
	return evicted
}
