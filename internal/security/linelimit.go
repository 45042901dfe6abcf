package security

import (
	"fmt"
	"sync"

	"golang.org/x/time/rate"
)

// LineLimiter throttles chat input lines per session using a token bucket,
// independent of the connection-admission SlidingLimiter. It guards against
// a connected client flooding the matchmaker with rapid "next" churn or
// spamming chat content; it never affects connection admission (P4 is
// enforced solely by SlidingLimiter).
type LineLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rpm      int
}

// NewLineLimiter creates a per-session line limiter allowing ratePerMinute
// lines per minute, with a burst of at least 1.
func NewLineLimiter(ratePerMinute int) *LineLimiter {
	return &LineLimiter{
		limiters: make(map[string]*rate.Limiter),
		rpm:      ratePerMinute,
	}
}

// Allow reports whether a line from sessionID may be processed now.
func (l *LineLimiter) Allow(sessionID string) error {
	if !l.limiterFor(sessionID).Allow() {
		return fmt.Errorf("line rate limit exceeded (limit: %d/min)", l.rpm)
	}
	return nil
}

// Forget drops the limiter for a session that has disconnected.
func (l *LineLimiter) Forget(sessionID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.limiters, sessionID)
}

func (l *LineLimiter) limiterFor(sessionID string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if limiter, ok := l.limiters[sessionID]; ok {
		return limiter
	}

	rps := rate.Limit(float64(l.rpm) / 60.0)
	burst := max(l.rpm/10, 1)
	limiter := rate.NewLimiter(rps, burst)
	l.limiters[sessionID] = limiter
	return limiter
}
