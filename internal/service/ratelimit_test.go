package service

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRateLimiter_Acquire(t *testing.T) {
	limiter := NewRateLimiter(RateLimiterConfig{MaxTokens: 1, RefillRate: 20})
	ctx := context.Background()

	start := time.Now()
	if err := limiter.Acquire(ctx); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if time.Since(start) > 40*time.Millisecond {
		t.Error("first acquire should be immediate")
	}

	start = time.Now()
	if err := limiter.Acquire(ctx); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed < 25*time.Millisecond {
		t.Errorf("second acquire should wait for refill, elapsed = %v", elapsed)
	}
}

func TestRateLimiter_TryAcquire(t *testing.T) {
	limiter := NewRateLimiter(RateLimiterConfig{MaxTokens: 2, RefillRate: 0.01})

	if !limiter.TryAcquire() || !limiter.TryAcquire() {
		t.Fatal("bucket should start full")
	}
	if limiter.TryAcquire() {
		t.Error("third TryAcquire should fail on an empty bucket")
	}
}

func TestRateLimiter_ContextCancel(t *testing.T) {
	limiter := NewRateLimiter(RateLimiterConfig{MaxTokens: 1, RefillRate: 0.01})
	limiter.TryAcquire()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := limiter.Acquire(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Acquire() error = %v, want deadline exceeded", err)
	}
}

func TestRateLimiter_ZeroRateDisables(t *testing.T) {
	limiter := NewRateLimiter(RateLimiterConfig{MaxTokens: 1, RefillRate: 0})
	for i := 0; i < 5; i++ {
		if !limiter.TryAcquire() {
			t.Fatalf("TryAcquire() #%d failed with limiting disabled", i)
		}
	}
}

func TestRateLimiter_RefillCapped(t *testing.T) {
	limiter := NewRateLimiter(RateLimiterConfig{MaxTokens: 3, RefillRate: 1})
	base := time.Now()
	limiter.now = func() time.Time { return base.Add(time.Hour) }

	if got := limiter.Available(); got != 3 {
		t.Errorf("Available() = %v, want capped at 3", got)
	}
}
