package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/felixgeelhaar/mediacatalog/domain/clock"
)

// TokenBucket is a clock-driven token bucket. It starts full.
type TokenBucket struct {
	mu         sync.Mutex
	clock      clock.Clock
	capacity   float64
	refillRate float64
	retryWait  time.Duration
	tokens     float64
	lastRefill time.Time
}

// NewTokenBucket creates a full bucket.
func NewTokenBucket(cfg Config, clk clock.Clock) *TokenBucket {
	if clk == nil {
		clk = clock.System{}
	}
	capacity := math.Max(cfg.Capacity, 0)
	return &TokenBucket{
		clock:      clk,
		capacity:   capacity,
		refillRate: math.Max(cfg.RefillPerSecond, 0),
		retryWait:  cfg.RetryWait,
		tokens:     capacity,
		lastRefill: clk.Now(),
	}
}

// Acquire takes a token, waiting once for RetryWait when the bucket is
// empty. The lock is not held while waiting.
func (b *TokenBucket) Acquire(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if b.take() {
		return true, nil
	}

	if err := b.clock.Sleep(ctx, b.retryWait); err != nil {
		return false, err
	}
	return b.take(), nil
}

// Tokens returns the current token count after refilling.
func (b *TokenBucket) Tokens() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refill()
	return b.tokens
}

// Capacity returns the bucket size.
func (b *TokenBucket) Capacity() float64 {
	return b.capacity
}

func (b *TokenBucket) take() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refill()
	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// refill must be called with the lock held.
func (b *TokenBucket) refill() {
	now := b.clock.Now()
	elapsed := now.Sub(b.lastRefill).Seconds()
	if elapsed <= 0 {
		return
	}
	b.tokens = math.Min(b.capacity, b.tokens+elapsed*b.refillRate)
	b.lastRefill = now
}

var _ Limiter = (*TokenBucket)(nil)
