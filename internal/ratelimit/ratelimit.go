package ratelimit

import (
	"log/slog"
	"sync"
	"time"
)

// Limiter enforces a daily budget of embedding provider requests.
// A max of 0 means unlimited.
type Limiter struct {
	mu      sync.Mutex
	count   int
	max     int
	resetAt time.Time
}

func New(max int) *Limiter {
	return &Limiter{
		max:     max,
		resetAt: time.Now().Add(24 * time.Hour),
	}
}

// Allow reports whether another provider request fits the budget and, if so,
// consumes one slot.
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if time.Now().After(l.resetAt) {
		l.count = 0
		l.resetAt = time.Now().Add(24 * time.Hour)
	}

	if l.max > 0 && l.count >= l.max {
		slog.Warn("embedding request budget exhausted", "used", l.count, "max", l.max)
		return false
	}

	l.count++
	return true
}

// Used returns requests consumed in the current window.
func (l *Limiter) Used() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}
