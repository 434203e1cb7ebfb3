package api

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"
)

const ipLimiterIdleTTL = 10 * time.Minute

type ipLimiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter keeps one token bucket per client address.
type IPRateLimiter struct {
	mu      sync.Mutex
	entries map[string]*ipLimiterEntry
	rps     rate.Limit
	burst   int
	now     func() time.Time
}

func NewIPRateLimiter(rps float64, burst int) *IPRateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &IPRateLimiter{
		entries: make(map[string]*ipLimiterEntry),
		rps:     rate.Limit(rps),
		burst:   burst,
		now:     time.Now,
	}
}

func (limiter *IPRateLimiter) Allow(key string) bool {
	limiter.mu.Lock()
	defer limiter.mu.Unlock()

	now := limiter.now()
	entry, ok := limiter.entries[key]
	if !ok {
		entry = &ipLimiterEntry{limiter: rate.NewLimiter(limiter.rps, limiter.burst)}
		limiter.entries[key] = entry
	}
	entry.lastSeen = now
	limiter.evictLocked(now)
	return entry.limiter.AllowN(now, 1)
}

func (limiter *IPRateLimiter) evictLocked(now time.Time) {
	for key, entry := range limiter.entries {
		if now.Sub(entry.lastSeen) > ipLimiterIdleTTL {
			delete(limiter.entries, key)
		}
	}
}

func (limiter *IPRateLimiter) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if limiter.rps <= 0 {
			return c.Next()
		}
		if !limiter.Allow(requestLimiterKey(c)) {
			return apiError(c, fiber.StatusTooManyRequests, "rate limit exceeded")
		}
		return c.Next()
	}
}
