package server

import (
	"testing"
	"time"
)

func TestRateLimiterFixedWindow(t *testing.T) {
	limiter := NewRateLimiter(2, time.Minute)
	now := time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	if !limiter.Allow("a") || !limiter.Allow("a") {
		t.Fatal("first two requests must pass")
	}
	if limiter.Allow("a") {
		t.Fatal("third request in the window must be rejected")
	}
	// Other keys have their own budget.
	if !limiter.Allow("b") {
		t.Fatal("separate key must not share the budget")
	}

	now = now.Add(2 * time.Minute)
	if !limiter.Allow("a") {
		t.Fatal("new window must reset the counter")
	}
}

func TestRateLimiterDefaults(t *testing.T) {
	limiter := NewRateLimiter(0, 0)
	if limiter.limit != 120 || limiter.window != time.Minute {
		t.Fatalf("unexpected defaults: limit=%d window=%v", limiter.limit, limiter.window)
	}
}
