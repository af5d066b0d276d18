package limiter

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sweetpotato0/mcpx-agents/middleware"
)

func pass(*middleware.Context) error { return nil }

func TestRateLimiter(t *testing.T) {
	t.Run("allows requests within limit", func(t *testing.T) {
		limiter := NewRateLimiter(2)
		ctx := &middleware.Context{}

		if err := limiter.Execute(ctx, pass); err != nil {
			t.Errorf("first request failed: %v", err)
		}
		if err := limiter.Execute(ctx, pass); err != nil {
			t.Errorf("second request failed: %v", err)
		}
	})

	t.Run("blocks requests exceeding limit", func(t *testing.T) {
		limiter := NewRateLimiter(1)
		ctx := &middleware.Context{}

		_ = limiter.Execute(ctx, pass)
		err := limiter.Execute(ctx, pass)
		if !errors.Is(err, ErrRateLimitExceeded) {
			t.Errorf("expected ErrRateLimitExceeded, got %v", err)
		}
	})

	t.Run("can reset counter", func(t *testing.T) {
		limiter := NewRateLimiter(1)
		ctx := &middleware.Context{}

		_ = limiter.Execute(ctx, pass)
		limiter.Reset()

		if err := limiter.Execute(ctx, pass); err != nil {
			t.Errorf("request after reset failed: %v", err)
		}
	})

	t.Run("counts concurrent requests", func(t *testing.T) {
		limiter := NewRateLimiter(100)
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = limiter.Execute(&middleware.Context{}, pass)
			}()
		}
		wg.Wait()
		if got := limiter.GetCounter(); got != 50 {
			t.Errorf("expected counter 50, got %d", got)
		}
	})
}

func TestWindowLimiter(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewWindowLimiter(1, time.Minute)
	limiter.now = func() time.Time { return now }
	ctx := &middleware.Context{}

	if err := limiter.Execute(ctx, pass); err != nil {
		t.Fatalf("first request failed: %v", err)
	}
	if err := limiter.Execute(ctx, pass); !errors.Is(err, ErrRateLimitExceeded) {
		t.Fatalf("expected limit within window, got %v", err)
	}

	now = now.Add(time.Minute)
	if err := limiter.Execute(ctx, pass); err != nil {
		t.Fatalf("request in next window failed: %v", err)
	}
}
