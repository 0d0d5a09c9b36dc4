package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter is the interface the HTTP middleware consumes.
// Keeping it an interface lets tests substitute a deterministic limiter
// and leaves room for a distributed implementation later.
type RateLimiter interface {
	// Allow reports whether a single request from the given key is allowed.
	Allow(ctx context.Context, key string) bool

	// AllowN reports whether n requests from the given key are allowed.
	AllowN(ctx context.Context, key string, n int) bool
}

// InMemoryRateLimiter rate-limits using per-key token buckets.
// The watcher runs as a single instance, so in-process state is enough.
type InMemoryRateLimiter struct {
	// rate is the sustained requests per second per key.
	rate rate.Limit

	// burst is the maximum burst size per key.
	burst int

	// limiters stores per-key token buckets.
	limiters sync.Map // map[string]*rate.Limiter

	// lastAccess tracks when each bucket was last used.
	lastAccess sync.Map // map[string]time.Time

	// cleanupInterval is how often stale buckets are swept.
	cleanupInterval time.Duration

	// maxAge is how long an idle bucket survives before the sweep drops it.
	maxAge time.Duration

	// stopCleanup signals the sweep goroutine to exit.
	stopCleanup chan struct{}
}

// NewInMemoryRateLimiter creates an in-memory rate limiter allowing rps
// sustained requests per second with bursts up to burst per key.
func NewInMemoryRateLimiter(rps float64, burst int) *InMemoryRateLimiter {
	limiter := &InMemoryRateLimiter{
		rate:            rate.Limit(rps),
		burst:           burst,
		cleanupInterval: 5 * time.Minute,
		maxAge:          10 * time.Minute,
		stopCleanup:     make(chan struct{}),
	}

	go limiter.cleanup()

	return limiter
}

// Allow checks if a single request is allowed.
func (l *InMemoryRateLimiter) Allow(ctx context.Context, key string) bool {
	return l.AllowN(ctx, key, 1)
}

// AllowN checks if n requests are allowed.
func (l *InMemoryRateLimiter) AllowN(ctx context.Context, key string, n int) bool {
	limiter := l.getLimiter(key)

	l.lastAccess.Store(key, time.Now().UTC())

	return limiter.AllowN(time.Now().UTC(), n)
}

// getLimiter returns the token bucket for key, creating it on first use.
func (l *InMemoryRateLimiter) getLimiter(key string) *rate.Limiter {
	if limiter, exists := l.limiters.Load(key); exists {
		return limiter.(*rate.Limiter)
	}

	limiter := rate.NewLimiter(l.rate, l.burst)

	// Two goroutines may race to create the bucket; LoadOrStore keeps one.
	actual, loaded := l.limiters.LoadOrStore(key, limiter)
	if loaded {
		return actual.(*rate.Limiter)
	}

	l.lastAccess.Store(key, time.Now().UTC())

	return limiter
}

// cleanup periodically removes idle buckets so the maps do not grow forever.
func (l *InMemoryRateLimiter) cleanup() {
	ticker := time.NewTicker(l.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.sweep()
		case <-l.stopCleanup:
			return
		}
	}
}

// sweep drops buckets that have been idle for longer than maxAge.
func (l *InMemoryRateLimiter) sweep() {
	cutoff := time.Now().UTC().Add(-l.maxAge)
	var stale []string

	l.lastAccess.Range(func(key, value interface{}) bool {
		if value.(time.Time).Before(cutoff) {
			stale = append(stale, key.(string))
		}
		return true
	})

	for _, key := range stale {
		l.limiters.Delete(key)
		l.lastAccess.Delete(key)
	}
}

// Stop stops the cleanup goroutine.
func (l *InMemoryRateLimiter) Stop() {
	close(l.stopCleanup)
}
