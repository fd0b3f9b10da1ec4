package ratelimit

import (
	"context"
	"testing"
	"time"
)

func newTestLimiter(max int, window time.Duration) (*MemoryLimiter, *time.Time) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewMemoryLimiter(max, window)
	l.now = func() time.Time { return now }
	return l, &now
}

func TestMemoryLimiter_BlocksAfterMaxAttempts(t *testing.T) {
	l, _ := newTestLimiter(3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if ok, _ := l.Allow(ctx, "sam@org.com"); !ok {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
	}
	if ok, _ := l.Allow(ctx, "SAM@org.com "); ok {
		t.Fatalf("fourth attempt should be blocked regardless of case")
	}
	if ok, _ := l.Allow(ctx, "jane@gmail.com"); !ok {
		t.Fatalf("other keys must not be affected")
	}
}

func TestMemoryLimiter_RefillsOverWindow(t *testing.T) {
	l, now := newTestLimiter(2, time.Minute)
	ctx := context.Background()

	l.Allow(ctx, "k")
	l.Allow(ctx, "k")
	if ok, _ := l.Allow(ctx, "k"); ok {
		t.Fatalf("expected block")
	}

	*now = now.Add(30 * time.Second)
	if ok, _ := l.Allow(ctx, "k"); !ok {
		t.Fatalf("one token should refill after half the window")
	}
}

func TestMemoryLimiter_ResetAndEvict(t *testing.T) {
	l, now := newTestLimiter(1, time.Minute)
	ctx := context.Background()

	l.Allow(ctx, "k")
	if err := l.Reset(ctx, "K"); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if ok, _ := l.Allow(ctx, "k"); !ok {
		t.Fatalf("reset key should be allowed again")
	}

	*now = now.Add(4 * time.Minute)
	l.evict(*now)
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.visitors) != 0 {
		t.Fatalf("idle visitors should be evicted, got %d", len(l.visitors))
	}
}
