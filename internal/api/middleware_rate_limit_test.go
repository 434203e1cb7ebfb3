package api

import (
	"testing"
	"time"
)

func TestIPRateLimiterBurstAndRefill(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	limiter := NewIPRateLimiter(1, 2)
	limiter.now = func() time.Time { return now }

	if !limiter.Allow("10.0.0.1") || !limiter.Allow("10.0.0.1") {
		t.Fatal("expected burst of two to be allowed")
	}
	if limiter.Allow("10.0.0.1") {
		t.Fatal("expected third request in the same instant to be limited")
	}
	if !limiter.Allow("10.0.0.2") {
		t.Fatal("expected other addresses to have their own bucket")
	}

	now = now.Add(time.Second)
	if !limiter.Allow("10.0.0.1") {
		t.Fatal("expected a token to refill after one second")
	}

	now = now.Add(ipLimiterIdleTTL + time.Second)
	limiter.Allow("10.0.0.3")
	if _, ok := limiter.entries["10.0.0.1"]; ok {
		t.Fatal("expected idle buckets to be evicted")
	}
}
