package ratelimit

import (
	"context"
	"sync"
	"time"
)

// TokenLimiter grants up to capacity tokens per refill period and refills all at once.
type TokenLimiter struct {
	mu           sync.Mutex
	capacity     int
	remaining    int
	refillPeriod time.Duration
	lastRefill   time.Time
	pollInterval time.Duration
	now          func() time.Time
}

func NewTokenLimiter(tokensPerPeriod int, refillPeriod time.Duration) *TokenLimiter {
	return &TokenLimiter{
		capacity:     tokensPerPeriod,
		remaining:    tokensPerPeriod,
		refillPeriod: refillPeriod,
		lastRefill:   time.Now(),
		pollInterval: 100 * time.Millisecond,
		now:          time.Now,
	}
}

// TryTake takes tokens without blocking and reports whether it succeeded.
func (l *TokenLimiter) TryTake(tokens int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refillLocked()
	if l.remaining >= tokens {
		l.remaining -= tokens
		return true
	}
	return false
}

// Wait blocks until tokens are available or ctx is done.
func (l *TokenLimiter) Wait(ctx context.Context, tokens int) error {
	for {
		if l.TryTake(tokens) {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.pollInterval):
		}
	}
}

func (l *TokenLimiter) refillLocked() {
	now := l.now()
	if now.Sub(l.lastRefill) >= l.refillPeriod {
		l.remaining = l.capacity
		l.lastRefill = now
	}
}

func (l *TokenLimiter) Remaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.remaining
}
