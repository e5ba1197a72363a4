// Implements a thread-safe token bucket rate limiter.

// Package ratelimit implements token bucket rate limiting for HTTP handlers.
package ratelimit

import (
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Result contains the outcome of a rate limit check.
type Result struct {
	Allowed    bool
	Limit      int           // requests per window
	Remaining  int           // requests left in current window
	ResetAt    time.Time     // when the bucket will be full again
	RetryAfter time.Duration // how long to wait before retrying (0 if allowed)
}

// Limiter manages rate limit buckets per key using the token bucket algorithm.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rate    rate.Limit
	burst   int
	window  time.Duration
	stop    chan struct{}
	once    sync.Once
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLimiter creates a rate limiter allowing requests tokens per window with burst capacity.
func NewLimiter(requests int, window time.Duration, burst int) *Limiter {
	l := &Limiter{
		buckets: make(map[string]*bucket),
		rate:    rate.Limit(float64(requests) / window.Seconds()),
		burst:   burst,
		window:  window,
		stop:    make(chan struct{}),
	}
	go l.cleanupLoop()
	return l
}

// Allow checks if a request with the given key is allowed.
func (l *Limiter) Allow(key string) Result {
	now := time.Now()
	l.mu.Lock()
	b, exists := l.buckets[key]
	if !exists {
		b = &bucket{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now
	l.mu.Unlock()

	reservation := b.limiter.ReserveN(now, 1)
	allowed := reservation.OK() && reservation.DelayFrom(now) == 0
	if !allowed && reservation.OK() {
		reservation.CancelAt(now)
	}

	tokens := b.limiter.TokensAt(now)
	res := Result{
		Allowed:   allowed,
		Limit:     int(math.Round(float64(l.rate) * l.window.Seconds())),
		Remaining: max(int(tokens), 0),
		ResetAt:   now.Add(l.seconds(float64(l.burst) - tokens)),
	}
	if !allowed {
		res.RetryAfter = max(l.seconds(1).Round(time.Second), time.Second)
	}
	return res
}

// seconds returns how long it takes to refill n tokens.
func (l *Limiter) seconds(n float64) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(n / float64(l.rate) * float64(time.Second))
}

// cleanupLoop removes stale buckets every 10 minutes.
func (l *Limiter) cleanupLoop() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.cleanup(time.Now())
		case <-l.stop:
			return
		}
	}
}

// cleanup removes buckets that haven't been used recently and are full.
func (l *Limiter) cleanup(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	stale := now.Add(-10 * time.Minute)
	for key, b := range l.buckets {
		if b.lastSeen.Before(stale) && b.limiter.TokensAt(now) >= float64(l.burst) {
			delete(l.buckets, key)
		}
	}
}

// Close stops the cleanup goroutine. It is safe to call more than once.
func (l *Limiter) Close() {
	l.once.Do(func() { close(l.stop) })
}
