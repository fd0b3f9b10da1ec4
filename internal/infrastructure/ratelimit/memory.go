// Package ratelimit throttles sign-in attempts in process when no Redis is
// configured. State is lost on restart and is not shared between replicas.
package ratelimit

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/talentflow/recruiting/internal/core/ports"
)

const idleAfter = 3

// MemoryLimiter keeps one token bucket per key. Each bucket holds maxAttempts
// tokens and refills completely over window.
type MemoryLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	window   time.Duration
	now      func() time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

var _ ports.LoginLimiter = (*MemoryLimiter)(nil)

func NewMemoryLimiter(maxAttempts int, window time.Duration) *MemoryLimiter {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &MemoryLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Every(window / time.Duration(maxAttempts)),
		burst:    maxAttempts,
		window:   window,
		now:      time.Now,
	}
}

// Allow consumes one attempt for key.
func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	now := l.now()
	return l.visitor(key, now).AllowN(now, 1), nil
}

// Reset forgets key after a successful sign-in.
func (l *MemoryLimiter) Reset(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.visitors, normalizeKey(key))
	return nil
}

// Run evicts idle buckets until ctx is cancelled.
func (l *MemoryLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.evict(l.now())
		}
	}
}

func (l *MemoryLimiter) visitor(key string, now time.Time) *rate.Limiter {
	key = normalizeKey(key)

	l.mu.Lock()
	defer l.mu.Unlock()

	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter
}

func (l *MemoryLimiter) evict(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, v := range l.visitors {
		if now.Sub(v.lastSeen) > idleAfter*l.window {
			delete(l.visitors, key)
		}
	}
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
