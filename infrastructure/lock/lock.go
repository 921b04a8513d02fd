// Package lock provides keyed, expiring locks that guard read-modify-write
// cycles against a shared store.
package lock

import (
	"context"
	"errors"
	"time"

	"github.com/felixgeelhaar/mediacatalog/domain/clock"
)

// Lock defines the interface for keyed locks.
type Lock interface {
	// Acquire attempts to acquire the lock.
	// Returns true if the lock was acquired, false if already held.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Release releases the lock.
	Release(ctx context.Context, key string) error
}

// Common errors.
var (
	ErrLockNotHeld = errors.New("lock not held")
	ErrLockHeld    = errors.New("lock already held by another owner")
	ErrInvalidTTL  = errors.New("invalid TTL")
)

// Option configures acquisition retries.
type Option func(*options)

type options struct {
	retryInterval time.Duration
	maxRetries    int
	clock         clock.Clock
}

// WithRetryInterval sets the interval between acquisition attempts.
func WithRetryInterval(interval time.Duration) Option {
	return func(o *options) {
		o.retryInterval = interval
	}
}

// WithMaxRetries sets the maximum number of acquisition retries.
func WithMaxRetries(max int) Option {
	return func(o *options) {
		o.maxRetries = max
	}
}

// WithClock sets the clock used to wait between attempts.
func WithClock(clk clock.Clock) Option {
	return func(o *options) {
		o.clock = clk
	}
}

// AcquireWithRetry attempts to acquire a lock, waiting between attempts.
func AcquireWithRetry(ctx context.Context, l Lock, key string, ttl time.Duration, opts ...Option) (bool, error) {
	o := options{
		retryInterval: 20 * time.Millisecond,
		maxRetries:    50,
		clock:         clock.System{},
	}
	for _, opt := range opts {
		opt(&o)
	}

	for i := 0; i <= o.maxRetries; i++ {
		acquired, err := l.Acquire(ctx, key, ttl)
		if err != nil {
			return false, err
		}
		if acquired {
			return true, nil
		}
		if i < o.maxRetries {
			if err := o.clock.Sleep(ctx, o.retryInterval); err != nil {
				return false, err
			}
		}
	}
	return false, nil
}

// With runs fn while holding key. It returns ErrLockHeld when the lock
// cannot be acquired within the retry budget.
func With(ctx context.Context, l Lock, key string, ttl time.Duration, fn func(ctx context.Context) error, opts ...Option) error {
	acquired, err := AcquireWithRetry(ctx, l, key, ttl, opts...)
	if err != nil {
		return err
	}
	if !acquired {
		return ErrLockHeld
	}
	defer func() { _ = l.Release(context.WithoutCancel(ctx), key) }()

	return fn(ctx)
}
