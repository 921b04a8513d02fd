// Package telemetry provides OpenTelemetry metrics for the catalog client.
package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsProvider provides access to metrics instruments.
type MetricsProvider struct {
	meter metric.Meter

	// Counters
	fetchAttempts   metric.Int64Counter
	retries         metric.Int64Counter
	cacheHits       metric.Int64Counter
	cacheMisses     metric.Int64Counter
	rateLimitDenied metric.Int64Counter
	coalesced       metric.Int64Counter
	errors          metric.Int64Counter

	// Histograms
	fetchDuration metric.Float64Histogram
	queryDuration metric.Float64Histogram
	backoff       metric.Float64Histogram

	// Gauges (using UpDownCounter for OpenTelemetry)
	inFlight           metric.Int64UpDownCounter
	circuitBreakerOpen metric.Int64UpDownCounter

	initOnce sync.Once
	initErr  error
}

// MetricsConfig configures the metrics provider.
type MetricsConfig struct {
	// MeterName is the name of the meter.
	MeterName string
	// MeterVersion is the version of the meter.
	MeterVersion string
	// Provider overrides the global meter provider.
	Provider metric.MeterProvider
}

// DefaultMetricsConfig returns a default metrics configuration.
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		MeterName:    "github.com/felixgeelhaar/mediacatalog",
		MeterVersion: "1.0.0",
	}
}

// NewMetricsProvider creates a new metrics provider.
func NewMetricsProvider(config MetricsConfig) *MetricsProvider {
	if config.MeterName == "" {
		config.MeterName = DefaultMetricsConfig().MeterName
	}

	provider := config.Provider
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	meter := provider.Meter(
		config.MeterName,
		metric.WithInstrumentationVersion(config.MeterVersion),
	)

	mp := &MetricsProvider{
		meter: meter,
	}

	mp.initOnce.Do(func() {
		mp.initErr = mp.initInstruments()
	})

	return mp
}

func (mp *MetricsProvider) initInstruments() error {
	var err error

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
		unit string
	}{
		{&mp.fetchAttempts, "catalog.fetch.attempts", "Number of network fetch attempts", "{attempt}"},
		{&mp.retries, "catalog.fetch.retries", "Number of retried fetch attempts", "{retry}"},
		{&mp.cacheHits, "catalog.cache.hits", "Number of response cache hits", "{hit}"},
		{&mp.cacheMisses, "catalog.cache.misses", "Number of response cache misses", "{miss}"},
		{&mp.rateLimitDenied, "catalog.ratelimit.denied", "Number of denied rate limit acquisitions", "{denial}"},
		{&mp.coalesced, "catalog.query.coalesced", "Number of queries served by another in-flight call", "{query}"},
		{&mp.errors, "catalog.errors", "Number of errors", "{error}"},
	}
	for _, c := range counters {
		*c.dst, err = mp.meter.Int64Counter(c.name, metric.WithDescription(c.desc), metric.WithUnit(c.unit))
		if err != nil {
			return err
		}
	}

	mp.fetchDuration, err = mp.meter.Float64Histogram(
		"catalog.fetch.duration",
		metric.WithDescription("Duration of single fetch attempts"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	mp.queryDuration, err = mp.meter.Float64Histogram(
		"catalog.query.duration",
		metric.WithDescription("Duration of query operations including retries"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	mp.backoff, err = mp.meter.Float64Histogram(
		"catalog.fetch.backoff",
		metric.WithDescription("Backoff waited before a retry"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	mp.inFlight, err = mp.meter.Int64UpDownCounter(
		"catalog.fetch.inflight",
		metric.WithDescription("Number of fetches in progress"),
		metric.WithUnit("{fetch}"),
	)
	if err != nil {
		return err
	}

	mp.circuitBreakerOpen, err = mp.meter.Int64UpDownCounter(
		"catalog.circuitbreaker.open",
		metric.WithDescription("Number of open circuit breakers"),
		metric.WithUnit("{circuit}"),
	)
	return err
}

// Error returns any initialization error.
func (mp *MetricsProvider) Error() error {
	return mp.initErr
}

// RecordFetchAttempt records one network attempt and its outcome.
func (mp *MetricsProvider) RecordFetchAttempt(ctx context.Context, attempt int, outcome string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.Int("fetch.attempt", attempt),
		attribute.String("fetch.outcome", outcome),
	)

	mp.fetchAttempts.Add(ctx, 1, attrs)
	mp.fetchDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
}

// RecordRetry records a retry decision and the backoff it waits.
func (mp *MetricsProvider) RecordRetry(ctx context.Context, kind string, backoff time.Duration) {
	attrs := metric.WithAttributes(attribute.String("failure.kind", kind))

	mp.retries.Add(ctx, 1, attrs)
	mp.backoff.Record(ctx, float64(backoff.Milliseconds()), attrs)
}

// RecordCacheHit records a response cache hit.
func (mp *MetricsProvider) RecordCacheHit(ctx context.Context, operation string) {
	mp.cacheHits.Add(ctx, 1, metric.WithAttributes(attribute.String("query.operation", operation)))
}

// RecordCacheMiss records a response cache miss.
func (mp *MetricsProvider) RecordCacheMiss(ctx context.Context, operation string) {
	mp.cacheMisses.Add(ctx, 1, metric.WithAttributes(attribute.String("query.operation", operation)))
}

// RecordRateLimitDenied records a denied token acquisition.
func (mp *MetricsProvider) RecordRateLimitDenied(ctx context.Context, mode string) {
	mp.rateLimitDenied.Add(ctx, 1, metric.WithAttributes(attribute.String("ratelimit.mode", mode)))
}

// RecordCoalesced records a query that shared another caller's fetch.
func (mp *MetricsProvider) RecordCoalesced(ctx context.Context, operation string) {
	mp.coalesced.Add(ctx, 1, metric.WithAttributes(attribute.String("query.operation", operation)))
}

// RecordQuery records a completed query operation.
func (mp *MetricsProvider) RecordQuery(ctx context.Context, operation string, cached, success bool, duration time.Duration) {
	mp.queryDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(
		attribute.String("query.operation", operation),
		attribute.Bool("cached", cached),
		attribute.Bool("success", success),
	))
}

// RecordError records an error.
func (mp *MetricsProvider) RecordError(ctx context.Context, errorType string, details map[string]string) {
	attrs := []attribute.KeyValue{
		attribute.String("error.type", errorType),
	}
	for k, v := range details {
		attrs = append(attrs, attribute.String(k, v))
	}

	mp.errors.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// IncrementInFlight increments the in-flight fetch gauge.
func (mp *MetricsProvider) IncrementInFlight(ctx context.Context) {
	mp.inFlight.Add(ctx, 1)
}

// DecrementInFlight decrements the in-flight fetch gauge.
func (mp *MetricsProvider) DecrementInFlight(ctx context.Context) {
	mp.inFlight.Add(ctx, -1)
}

// RecordCircuitBreakerStateChange records a circuit breaker opening or closing.
func (mp *MetricsProvider) RecordCircuitBreakerStateChange(ctx context.Context, name string, isOpen bool) {
	attrs := metric.WithAttributes(attribute.String("circuit.name", name))

	if isOpen {
		mp.circuitBreakerOpen.Add(ctx, 1, attrs)
	} else {
		mp.circuitBreakerOpen.Add(ctx, -1, attrs)
	}
}

// NoopMetricsProvider is a no-op metrics provider for testing or when metrics are disabled.
type NoopMetricsProvider struct{}

// RecordFetchAttempt is a no-op.
func (NoopMetricsProvider) RecordFetchAttempt(context.Context, int, string, time.Duration) {}

// RecordRetry is a no-op.
func (NoopMetricsProvider) RecordRetry(context.Context, string, time.Duration) {}

// RecordCacheHit is a no-op.
func (NoopMetricsProvider) RecordCacheHit(context.Context, string) {}

// RecordCacheMiss is a no-op.
func (NoopMetricsProvider) RecordCacheMiss(context.Context, string) {}

// RecordRateLimitDenied is a no-op.
func (NoopMetricsProvider) RecordRateLimitDenied(context.Context, string) {}

// RecordCoalesced is a no-op.
func (NoopMetricsProvider) RecordCoalesced(context.Context, string) {}

// RecordQuery is a no-op.
func (NoopMetricsProvider) RecordQuery(context.Context, string, bool, bool, time.Duration) {}

// RecordError is a no-op.
func (NoopMetricsProvider) RecordError(context.Context, string, map[string]string) {}

// IncrementInFlight is a no-op.
func (NoopMetricsProvider) IncrementInFlight(context.Context) {}

// DecrementInFlight is a no-op.
func (NoopMetricsProvider) DecrementInFlight(context.Context) {}

// RecordCircuitBreakerStateChange is a no-op.
func (NoopMetricsProvider) RecordCircuitBreakerStateChange(context.Context, string, bool) {}

// Metrics defines the interface for metrics recording.
type Metrics interface {
	RecordFetchAttempt(ctx context.Context, attempt int, outcome string, duration time.Duration)
	RecordRetry(ctx context.Context, kind string, backoff time.Duration)
	RecordCacheHit(ctx context.Context, operation string)
	RecordCacheMiss(ctx context.Context, operation string)
	RecordRateLimitDenied(ctx context.Context, mode string)
	RecordCoalesced(ctx context.Context, operation string)
	RecordQuery(ctx context.Context, operation string, cached, success bool, duration time.Duration)
	RecordError(ctx context.Context, errorType string, details map[string]string)
	IncrementInFlight(ctx context.Context)
	DecrementInFlight(ctx context.Context)
	RecordCircuitBreakerStateChange(ctx context.Context, name string, isOpen bool)
}

// Ensure implementations satisfy the interface.
var (
	_ Metrics = (*MetricsProvider)(nil)
	_ Metrics = NoopMetricsProvider{}
)
