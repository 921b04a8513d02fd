// Package resilience bounds and protects outbound fetches using fortify.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/fortify/bulkhead"
	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/felixgeelhaar/fortify/ferrors"

	"github.com/felixgeelhaar/mediacatalog/domain/catalog"
	"github.com/felixgeelhaar/mediacatalog/infrastructure/logging"
	"github.com/felixgeelhaar/mediacatalog/infrastructure/telemetry"
)

const breakerName = "catalog.fetch"

// Config configures the guard.
type Config struct {
	// MaxConcurrent limits concurrent fetch calls.
	MaxConcurrent int

	// MaxQueue is how many calls may wait for a slot. Queued calls wait
	// until their context ends.
	MaxQueue int

	// CircuitBreaker enables the circuit breaker.
	CircuitBreaker bool

	// CircuitBreakerThreshold is the number of consecutive failed calls
	// before opening.
	CircuitBreakerThreshold int

	// CircuitBreakerTimeout is how long the circuit stays open.
	CircuitBreakerTimeout time.Duration
}

// DefaultConfig returns six concurrent fetches, a queue of 64 and a
// disabled breaker.
func DefaultConfig() Config {
	return Config{
		MaxConcurrent:           6,
		MaxQueue:                64,
		CircuitBreaker:          false,
		CircuitBreakerThreshold: 5,
		CircuitBreakerTimeout:   30 * time.Second,
	}
}

// Guard applies a bulkhead and an optional circuit breaker to fetch calls.
// Composition order: Bulkhead → Circuit Breaker → call.
type Guard struct {
	bulkhead bulkhead.Bulkhead[catalog.Payload]
	breaker  circuitbreaker.CircuitBreaker[catalog.Payload]
	metrics  telemetry.Metrics
}

// New creates a guard. A nil metrics records nothing.
func New(config Config, metrics telemetry.Metrics) *Guard {
	if metrics == nil {
		metrics = telemetry.NoopMetricsProvider{}
	}
	maxConcurrent := config.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultConfig().MaxConcurrent
	}
	maxQueue := config.MaxQueue
	if maxQueue <= 0 {
		maxQueue = DefaultConfig().MaxQueue
	}
	threshold := config.CircuitBreakerThreshold
	if threshold <= 0 {
		threshold = DefaultConfig().CircuitBreakerThreshold
	}
	timeout := config.CircuitBreakerTimeout
	if timeout <= 0 {
		timeout = DefaultConfig().CircuitBreakerTimeout
	}

	g := &Guard{
		bulkhead: bulkhead.New[catalog.Payload](bulkhead.Config{
			MaxConcurrent: maxConcurrent,
			MaxQueue:      maxQueue,
		}),
		metrics: metrics,
	}
	if config.CircuitBreaker {
		g.breaker = circuitbreaker.New[catalog.Payload](circuitbreaker.Config{
			MaxRequests: 1,
			Interval:    timeout,
			Timeout:     timeout,
			ReadyToTrip: func(counts circuitbreaker.Counts) bool {
				return counts.ConsecutiveFailures >= uint32(threshold) // #nosec G115 -- bounds checked above
			},
		})
	}
	return g
}

// Execute runs fn under the guard. Client, decode and cancellation errors
// are returned to the caller without counting as breaker failures. A call
// turned away by a full queue fails with catalog.ErrRateLimited.
func (g *Guard) Execute(ctx context.Context, fn func(context.Context) (catalog.Payload, error)) (catalog.Payload, error) {
	payload, err := g.execute(ctx, fn)
	if errors.Is(err, ferrors.ErrBulkheadFull) {
		return catalog.Payload{}, fmt.Errorf("%w: %w", catalog.ErrRateLimited, err)
	}
	return payload, err
}

func (g *Guard) execute(ctx context.Context, fn func(context.Context) (catalog.Payload, error)) (catalog.Payload, error) {
	return g.bulkhead.Execute(ctx, func(ctx context.Context) (catalog.Payload, error) {
		if g.breaker == nil {
			return fn(ctx)
		}

		before := g.breaker.State()
		var clientErr error
		payload, err := g.breaker.Execute(ctx, func(ctx context.Context) (catalog.Payload, error) {
			p, err := fn(ctx)
			if notBreakerFailure(err) {
				clientErr = err
				return p, nil
			}
			return p, err
		})
		if after := g.breaker.State(); after != before {
			open := after.String() == "open"
			g.metrics.RecordCircuitBreakerStateChange(ctx, breakerName, open)
			logging.Warn().
				Add(logging.Component("resilience")).
				Add(logging.FromState(before.String())).
				Add(logging.ToState(after.String())).
				Msg("circuit breaker state changed")
		}
		if clientErr != nil {
			return catalog.Payload{}, clientErr
		}
		return payload, err
	})
}

// CircuitBreakerState returns the breaker state, or "disabled".
func (g *Guard) CircuitBreakerState() string {
	if g.breaker == nil {
		return "disabled"
	}
	return g.breaker.State().String()
}

func notBreakerFailure(err error) bool {
	if errors.Is(err, context.Canceled) {
		return true
	}
	fe, ok := catalog.AsFetchError(err)
	if !ok {
		return false
	}
	switch fe.Kind {
	case catalog.FailureFatalClient, catalog.FailureDecode, catalog.FailureCanceled:
		return true
	default:
		return false
	}
}
