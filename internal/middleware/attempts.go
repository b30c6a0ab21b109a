package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/api-marketplace-gateway/internal/metrics"
)

// Attempt scopes. Counters in different scopes never affect each other.
const (
	ScopeUserToken = "user_token"
	ScopeAPIKey    = "api_key"
)

// AttemptPolicy bounds credential failures per client. A client that
// reaches MaxFailures inside Window is refused for Block.
type AttemptPolicy struct {
	MaxFailures int
	Window      time.Duration
	Block       time.Duration
}

func (p AttemptPolicy) withDefaults() AttemptPolicy {
	if p.MaxFailures <= 0 {
		p.MaxFailures = 5
	}
	if p.Window <= 0 {
		p.Window = 5 * time.Minute
	}
	if p.Block <= 0 {
		p.Block = 15 * time.Minute
	}
	return p
}

// AttemptLimiter counts credential failures per (scope, client IP).
type AttemptLimiter struct {
	policy AttemptPolicy
	now    func() time.Time

	mu          sync.Mutex
	clients     map[string]*attempts
	lastSweep   time.Time
	sweepEvery  time.Duration
	forgetAfter time.Duration
}

type attempts struct {
	failures     int
	windowStart  time.Time
	blockedUntil time.Time
	lastSeen     time.Time
}

func NewAttemptLimiter(policy AttemptPolicy) *AttemptLimiter {
	return &AttemptLimiter{
		policy:      policy.withDefaults(),
		now:         time.Now,
		clients:     make(map[string]*attempts),
		lastSweep:   time.Now(),
		sweepEvery:  5 * time.Minute,
		forgetAfter: 24 * time.Hour,
	}
}

// Allow reports whether the client behind r may present a credential in
// scope.
func (l *AttemptLimiter) Allow(r *http.Request, scope string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	defer l.sweepLocked(now)

	a, ok := l.clients[clientKey(r, scope)]
	if !ok {
		return true
	}
	a.lastSeen = now
	if now.Before(a.blockedUntil) {
		return false
	}
	if now.Sub(a.windowStart) > l.policy.Window {
		a.failures = 0
		a.windowStart = now
	}
	return true
}

// Fail records a rejected credential and starts a block once the policy's
// threshold is reached.
func (l *AttemptLimiter) Fail(r *http.Request, scope string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	defer l.sweepLocked(now)

	key := clientKey(r, scope)
	a, ok := l.clients[key]
	if !ok || now.Sub(a.windowStart) > l.policy.Window {
		if !ok {
			a = &attempts{}
			l.clients[key] = a
		}
		a.failures = 0
		a.windowStart = now
	}
	a.lastSeen = now
	a.failures++

	if a.failures >= l.policy.MaxFailures {
		a.blockedUntil = now.Add(l.policy.Block)
		a.failures = 0
		a.windowStart = now
		metrics.CredentialBlocks.WithLabelValues(scope).Inc()
		log.Warn().Str("client", key).Dur("block", l.policy.Block).Msg("client blocked after repeated credential failures")
	}
}

// Succeed clears the client's failures in scope.
func (l *AttemptLimiter) Succeed(r *http.Request, scope string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.clients, clientKey(r, scope))
	l.sweepLocked(l.now())
}

func (l *AttemptLimiter) sweepLocked(now time.Time) {
	if now.Sub(l.lastSweep) < l.sweepEvery {
		return
	}
	for key, a := range l.clients {
		if now.Sub(a.lastSeen) > l.forgetAfter && !now.Before(a.blockedUntil) {
			delete(l.clients, key)
		}
	}
	l.lastSweep = now
}

func clientKey(r *http.Request, scope string) string {
	host := r.RemoteAddr
	if h, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		host = h
	}
	if host == "" {
		host = "unknown"
	}
	return scope + ":" + host
}
