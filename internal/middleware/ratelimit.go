package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"
)

// APIKeyHeader carries the subscriber's key on gateway calls.
const APIKeyHeader = "X-itouch-key"

// CallRateLimiter implements per-API-key fixed window rate limiting on the
// gateway. It bounds bursts only; the subscription quota is enforced by the
// gateway itself. Only keys that passed authorization are counted, so the
// map never grows with made-up keys.
type CallRateLimiter struct {
	mu          sync.Mutex
	max         int
	window      time.Duration
	counters    map[string]*window
	lastCleanup time.Time
}

type window struct {
	count    int
	resetAt  time.Time
	lastSeen time.Time
}

const (
	cleanupInterval    = 5 * time.Minute
	expiredWindowGrace = 10 * time.Minute
	staleEntryTTL      = 24 * time.Hour
)

// NewCallRateLimiter creates an in-memory limiter allowing limit calls per
// period for each key.
func NewCallRateLimiter(limit int, period time.Duration) *CallRateLimiter {
	if limit <= 0 {
		limit = 60
	}
	if period <= 0 {
		period = time.Minute
	}
	return &CallRateLimiter{
		max:         limit,
		window:      period,
		counters:    make(map[string]*window),
		lastCleanup: time.Now(),
	}
}

// Allow checks if key is within its rate limit.
// Returns (allowed, remaining, resetAt).
func (rl *CallRateLimiter) Allow(key string) (bool, int, time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()

	w, exists := rl.counters[key]
	if !exists || now.After(w.resetAt) {
		rl.counters[key] = &window{
			count:    1,
			resetAt:  now.Add(rl.window),
			lastSeen: now,
		}
		rl.cleanupLocked(now)
		return true, rl.max - 1, now.Add(rl.window)
	}

	w.lastSeen = now
	resetAt := w.resetAt

	if w.count >= rl.max {
		rl.cleanupLocked(now)
		return false, 0, resetAt
	}

	w.count++
	rl.cleanupLocked(now)
	return true, rl.max - w.count, resetAt
}

// Admit counts one call for an authorized key and sets the X-RateLimit-*
// headers on h. It reports whether the call may proceed.
func (rl *CallRateLimiter) Admit(h http.Header, key string) bool {
	allowed, remaining, resetAt := rl.Allow(key)

	h.Set("X-RateLimit-Limit", strconv.Itoa(rl.max))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
	return allowed
}

// Tracked is the number of keys currently holding a window.
func (rl *CallRateLimiter) Tracked() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.counters)
}

func (rl *CallRateLimiter) cleanupLocked(now time.Time) {
	if now.Sub(rl.lastCleanup) < cleanupInterval {
		return
	}

	for key, w := range rl.counters {
		if now.Sub(w.lastSeen) > staleEntryTTL || now.After(w.resetAt.Add(expiredWindowGrace)) {
			delete(rl.counters, key)
		}
	}

	rl.lastCleanup = now
}
