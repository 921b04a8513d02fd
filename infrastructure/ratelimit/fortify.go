package ratelimit

import (
	"context"
	"math"

	"github.com/felixgeelhaar/fortify/ratelimit"
)

const fortifyKey = "catalog"

// FortifyLimiter adapts fortify's rate limiter to Limiter. It tries once
// immediately, then waits at most RetryWait for a token.
type FortifyLimiter struct {
	limiter ratelimit.RateLimiter
	cfg     Config
}

// NewFortifyLimiter creates a fortify-backed limiter.
func NewFortifyLimiter(cfg Config) *FortifyLimiter {
	rate := int(math.Ceil(cfg.RefillPerSecond))
	if rate <= 0 {
		rate = 1
	}
	burst := int(cfg.Capacity)
	if burst <= 0 {
		burst = rate
	}

	return &FortifyLimiter{
		limiter: ratelimit.New(&ratelimit.Config{
			Rate:  rate,
			Burst: burst,
		}),
		cfg: cfg,
	}
}

// Acquire implements Limiter.
func (f *FortifyLimiter) Acquire(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if f.limiter.Allow(ctx, fortifyKey) {
		return true, nil
	}
	if f.cfg.RetryWait <= 0 {
		return false, nil
	}

	waitCtx, cancel := context.WithTimeout(ctx, f.cfg.RetryWait)
	defer cancel()

	if err := f.limiter.Wait(waitCtx, fortifyKey); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		return false, nil
	}
	return true, nil
}

var _ Limiter = (*FortifyLimiter)(nil)
