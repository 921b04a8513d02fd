package ratelimit

import "github.com/felixgeelhaar/mediacatalog/infrastructure/telemetry"

// countingMetrics embeds the no-op provider so tests override only what they count.
type countingMetrics struct {
	telemetry.NoopMetricsProvider
}
