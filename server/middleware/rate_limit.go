// Package middleware holds HTTP middleware shared across the API.
package middleware

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter keeps an independent token bucket per key, typically the
// client IP.
type RateLimiter struct {
	mu     sync.Mutex
	limits map[string]*rate.Limiter

	interval time.Duration
	burst    int
}

// NewRateLimiter creates a limiter allowing one request per interval
// with the given burst.
func NewRateLimiter(interval time.Duration, burst int) *RateLimiter {
	return &RateLimiter{
		limits:   make(map[string]*rate.Limiter),
		interval: interval,
		burst:    burst,
	}
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if limiter, ok := rl.limits[key]; ok {
		return limiter
	}
	limiter := rate.NewLimiter(rate.Every(rl.interval), rl.burst)
	rl.limits[key] = limiter
	return limiter
}

// Allow reports whether a request for the key may proceed now.
func (rl *RateLimiter) Allow(key string) bool {
	return rl.getLimiter(key).Allow()
}
