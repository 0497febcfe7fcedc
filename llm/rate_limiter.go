package llm

import (
	"sync"
	"time"
)

// RateLimiter is a fixed-window request counter keyed by caller
type RateLimiter struct {
	counters     map[string]*rateLimitEntry
	mu           sync.Mutex
	maxRequests  int           // Maximum requests per window
	windowPeriod time.Duration // Time window for rate limiting
	now          func() time.Time
}

type rateLimitEntry struct {
	count       int
	windowStart time.Time
}

// NewRateLimiter creates a new rate limiter with the specified configuration
func NewRateLimiter(maxRequests int, windowPeriod time.Duration) *RateLimiter {
	return &RateLimiter{
		counters:     make(map[string]*rateLimitEntry),
		maxRequests:  maxRequests,
		windowPeriod: windowPeriod,
		now:          time.Now,
	}
}

// CheckLimit counts a request for key and reports whether it exceeds the limit
func (r *RateLimiter) CheckLimit(key string) RateLimitStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	entry, ok := r.counters[key]
	if !ok || now.Sub(entry.windowStart) > r.windowPeriod {
		r.counters[key] = &rateLimitEntry{count: 1, windowStart: now}
		return RateLimitStatus{Count: 1, ResetTime: now.Add(r.windowPeriod)}
	}

	entry.count++
	return RateLimitStatus{
		Limited:   entry.count > r.maxRequests,
		Count:     entry.count,
		ResetTime: entry.windowStart.Add(r.windowPeriod),
	}
}
