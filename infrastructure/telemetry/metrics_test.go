package telemetry

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// setupTestMetrics creates a provider bound to its own manual reader.
func setupTestMetrics(t *testing.T) (*metric.ManualReader, *MetricsProvider) {
	t.Helper()

	reader := metric.NewManualReader()
	provider := metric.NewMeterProvider(metric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	cfg := DefaultMetricsConfig()
	cfg.Provider = provider
	mp := NewMetricsProvider(cfg)
	if mp.Error() != nil {
		t.Fatalf("failed to create metrics provider: %v", mp.Error())
	}

	return reader, mp
}

func collect(t *testing.T, reader *metric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}

	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumInt64(t *testing.T, m metricdata.Metrics) int64 {
	t.Helper()

	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("expected Sum[int64] for %s, got %T", m.Name, m.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestNewMetricsProvider(t *testing.T) {
	t.Parallel()

	_, mp := setupTestMetrics(t)
	if mp == nil {
		t.Fatal("NewMetricsProvider returned nil")
	}
}

func TestMetricsProvider_Counters(t *testing.T) {
	t.Parallel()

	reader, mp := setupTestMetrics(t)
	ctx := context.Background()

	mp.RecordFetchAttempt(ctx, 1, "retryable_failure", 20*time.Millisecond)
	mp.RecordFetchAttempt(ctx, 2, "success", 10*time.Millisecond)
	mp.RecordRetry(ctx, "transient_server", 200*time.Millisecond)
	mp.RecordCacheHit(ctx, "media")
	mp.RecordCacheMiss(ctx, "media")
	mp.RecordCacheMiss(ctx, "search")
	mp.RecordRateLimitDenied(ctx, "advisory")
	mp.RecordCoalesced(ctx, "details")
	mp.RecordError(ctx, "fatal_client", map[string]string{"query.operation": "details"})

	metrics := collect(t, reader)

	want := map[string]int64{
		"catalog.fetch.attempts":   2,
		"catalog.fetch.retries":    1,
		"catalog.cache.hits":       1,
		"catalog.cache.misses":     2,
		"catalog.ratelimit.denied": 1,
		"catalog.query.coalesced":  1,
		"catalog.errors":           1,
	}
	for name, total := range want {
		m, ok := metrics[name]
		if !ok {
			t.Errorf("%s metric not found", name)
			continue
		}
		if got := sumInt64(t, m); got != total {
			t.Errorf("%s = %d, want %d", name, got, total)
		}
	}

	if _, ok := metrics["catalog.fetch.duration"]; !ok {
		t.Error("catalog.fetch.duration metric not found")
	}
	if _, ok := metrics["catalog.fetch.backoff"]; !ok {
		t.Error("catalog.fetch.backoff metric not found")
	}
}

func TestMetricsProvider_Gauges(t *testing.T) {
	t.Parallel()

	reader, mp := setupTestMetrics(t)
	ctx := context.Background()

	mp.IncrementInFlight(ctx)
	mp.IncrementInFlight(ctx)
	mp.DecrementInFlight(ctx)
	mp.RecordCircuitBreakerStateChange(ctx, "fetch", true)

	metrics := collect(t, reader)
	if got := sumInt64(t, metrics["catalog.fetch.inflight"]); got != 1 {
		t.Errorf("inflight = %d, want 1", got)
	}
	if got := sumInt64(t, metrics["catalog.circuitbreaker.open"]); got != 1 {
		t.Errorf("circuitbreaker.open = %d, want 1", got)
	}
}

func TestMetricsProvider_QueryDuration(t *testing.T) {
	t.Parallel()

	reader, mp := setupTestMetrics(t)
	mp.RecordQuery(context.Background(), "search", false, true, 42*time.Millisecond)

	m, ok := collect(t, reader)["catalog.query.duration"]
	if !ok {
		t.Fatal("catalog.query.duration metric not found")
	}
	hist, ok := m.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("expected Histogram[float64], got %T", m.Data)
	}
	if len(hist.DataPoints) != 1 || hist.DataPoints[0].Count != 1 {
		t.Errorf("unexpected data points: %+v", hist.DataPoints)
	}
}

func TestNoopMetricsProvider(t *testing.T) {
	t.Parallel()

	var m Metrics = NoopMetricsProvider{}
	ctx := context.Background()

	m.RecordFetchAttempt(ctx, 1, "success", time.Millisecond)
	m.RecordRetry(ctx, "timeout", time.Millisecond)
	m.RecordCacheHit(ctx, "media")
	m.RecordCacheMiss(ctx, "media")
	m.RecordRateLimitDenied(ctx, "gate")
	m.RecordCoalesced(ctx, "media")
	m.RecordQuery(ctx, "media", true, true, time.Millisecond)
	m.RecordError(ctx, "x", nil)
	m.IncrementInFlight(ctx)
	m.DecrementInFlight(ctx)
	m.RecordCircuitBreakerStateChange(ctx, "fetch", false)
}
