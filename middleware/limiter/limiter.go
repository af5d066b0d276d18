package limiter

import (
	"sync"
	"time"

	"github.com/sweetpotato0/mcpx-agents/middleware"
)

// ErrRateLimitExceeded indicates rate limit has been exceeded
var ErrRateLimitExceeded = middleware.ErrRateLimitExceeded

// RateLimiter admits at most maxRequests runs per window. A zero window
// counts for the lifetime of the limiter.
type RateLimiter struct {
	maxRequests int
	window      time.Duration

	mu      sync.Mutex
	counter int
	started time.Time
	now     func() time.Time
}

// NewRateLimiter creates a rate limiting middleware
func NewRateLimiter(maxRequests int) *RateLimiter {
	return &RateLimiter{maxRequests: maxRequests, now: time.Now}
}

// NewWindowLimiter creates a limiter whose counter resets every window.
func NewWindowLimiter(maxRequests int, window time.Duration) *RateLimiter {
	return &RateLimiter{maxRequests: maxRequests, window: window, now: time.Now}
}

// Name returns the middleware name
func (m *RateLimiter) Name() string {
	return "RateLimiter"
}

// Execute checks rate limit
func (m *RateLimiter) Execute(ctx *middleware.Context, next middleware.Handler) error {
	if !m.admit() {
		return ErrRateLimitExceeded
	}
	return next(ctx)
}

func (m *RateLimiter) admit() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.window > 0 {
		now := m.now()
		if m.started.IsZero() || now.Sub(m.started) >= m.window {
			m.started = now
			m.counter = 0
		}
	}
	if m.counter >= m.maxRequests {
		return false
	}
	m.counter++
	return true
}

// Reset resets the rate limiter counter
func (m *RateLimiter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter = 0
	m.started = time.Time{}
}

// GetCounter returns current request count
func (m *RateLimiter) GetCounter() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counter
}
