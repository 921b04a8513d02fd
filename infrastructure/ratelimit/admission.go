package ratelimit

import (
	"context"

	"github.com/felixgeelhaar/mediacatalog/domain/catalog"
	"github.com/felixgeelhaar/mediacatalog/infrastructure/logging"
	"github.com/felixgeelhaar/mediacatalog/infrastructure/telemetry"
)

// Admission applies a Mode to a Limiter's decisions.
type Admission struct {
	limiter Limiter
	mode    Mode
	metrics telemetry.Metrics
}

// NewAdmission creates an admission policy. A nil metrics records nothing.
func NewAdmission(limiter Limiter, mode Mode, metrics telemetry.Metrics) *Admission {
	if metrics == nil {
		metrics = telemetry.NoopMetricsProvider{}
	}
	if mode == "" {
		mode = ModeAdvisory
	}
	return &Admission{limiter: limiter, mode: mode, metrics: metrics}
}

// Mode returns the admission mode.
func (a *Admission) Mode() Mode {
	return a.mode
}

// Admit acquires a token for operation. In gate mode a denial returns
// catalog.ErrRateLimited; in advisory mode it is logged and ignored.
// A cancelled ctx is always returned as an error.
func (a *Admission) Admit(ctx context.Context, operation string) error {
	if a == nil || a.limiter == nil {
		return nil
	}

	ok, err := a.limiter.Acquire(ctx)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	a.metrics.RecordRateLimitDenied(ctx, string(a.mode))
	logging.Warn().
		Add(logging.Component("ratelimit")).
		Add(logging.Operation(operation)).
		Add(logging.Str("mode", string(a.mode))).
		Msg("rate limit token unavailable")

	if a.mode == ModeGate {
		return catalog.ErrRateLimited
	}
	return nil
}
