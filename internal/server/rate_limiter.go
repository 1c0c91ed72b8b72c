package server

import (
	"sync"
	"time"

	"github.com/civicgrid/civicbill/internal/billingctx"
	"github.com/gin-gonic/gin"
)

// RateLimiter is a fixed-window in-memory limiter keyed per caller. Windows
// reset wholesale rather than sliding, which keeps the bookkeeping to one
// counter per key.
type RateLimiter struct {
	mu      sync.Mutex
	counts  map[string]int
	resetAt time.Time

	limit  int
	window time.Duration
	now    func() time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = 120
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{
		counts: make(map[string]int),
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

// Allow reports whether the key may proceed in the current window.
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if now.After(r.resetAt) {
		r.counts = make(map[string]int)
		r.resetAt = now.Add(r.window)
	}

	if r.counts[key] >= r.limit {
		return false
	}
	r.counts[key]++
	return true
}

// Middleware limits by authenticated customer, falling back to client IP.
func (r *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if customerID, ok := billingctx.CustomerIDFromContext(c.Request.Context()); ok {
			key = customerID.String()
		}
		if !r.Allow(key) {
			AbortWithError(c, ErrRateLimited)
			return
		}
		c.Next()
	}
}
