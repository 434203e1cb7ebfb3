package api

import (
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
)

// attemptLimiter counts failures per key inside a sliding window.
type attemptLimiter struct {
	mu       sync.Mutex
	failures map[string][]time.Time
	limit    int
	window   time.Duration
}

func newAttemptLimiter(limit int, window time.Duration) *attemptLimiter {
	return &attemptLimiter{
		failures: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
	}
}

// blocked reports whether key has used up its failures and, if so, how long
// until the oldest one leaves the window.
func (limiter *attemptLimiter) blocked(key string, now time.Time) (bool, time.Duration) {
	limiter.mu.Lock()
	defer limiter.mu.Unlock()

	recent := limiter.recentLocked(key, now)
	if len(recent) < limiter.limit {
		return false, 0
	}
	return true, recent[0].Add(limiter.window).Sub(now)
}

func (limiter *attemptLimiter) recordFailure(key string, now time.Time) {
	limiter.mu.Lock()
	defer limiter.mu.Unlock()

	limiter.failures[key] = append(limiter.recentLocked(key, now), now)
}

func (limiter *attemptLimiter) clear(key string) {
	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	delete(limiter.failures, key)
}

func (limiter *attemptLimiter) recentLocked(key string, now time.Time) []time.Time {
	values := limiter.failures[key]
	threshold := now.Add(-limiter.window)

	kept := values[:0]
	for _, value := range values {
		if value.After(threshold) {
			kept = append(kept, value)
		}
	}
	if len(kept) == 0 {
		delete(limiter.failures, key)
		return nil
	}
	limiter.failures[key] = kept
	return kept
}

func requestLimiterKey(c *fiber.Ctx) string {
	key := strings.TrimSpace(c.IP())
	if key == "" {
		return "unknown"
	}
	return key
}
