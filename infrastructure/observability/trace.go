package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// Span attribute keys.
const (
	AttrOperation = attribute.Key("catalog.operation")
	AttrCacheKey  = attribute.Key("catalog.cache_key")
	AttrCached    = attribute.Key("catalog.cached")
	AttrURL       = attribute.Key("http.url")
	AttrAttempt   = attribute.Key("catalog.fetch.attempt")
	AttrStatus    = attribute.Key("http.status_code")
	AttrOutcome   = attribute.Key("catalog.fetch.outcome")
)

// Tracer starts catalog spans.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer creates a tracer from tp. A nil provider yields a no-op tracer.
func NewTracer(tp trace.TracerProvider, name string) *Tracer {
	if tp == nil {
		tp = tracenoop.NewTracerProvider()
	}
	if name == "" {
		name = "mediacatalog"
	}
	return &Tracer{tracer: tp.Tracer(name)}
}

// StartQuery starts the span covering one query operation.
func (t *Tracer) StartQuery(ctx context.Context, operation, cacheKey string) (context.Context, trace.Span) {
	return t.start(ctx, "catalog.query",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			AttrOperation.String(operation),
			AttrCacheKey.String(cacheKey),
		),
	)
}

// StartFetch starts the span covering one resilient fetch call.
func (t *Tracer) StartFetch(ctx context.Context, url string) (context.Context, trace.Span) {
	return t.start(ctx, "catalog.fetch",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(AttrURL.String(url)),
	)
}

// StartAttempt starts the span covering one network attempt.
func (t *Tracer) StartAttempt(ctx context.Context, url string, attempt int) (context.Context, trace.Span) {
	return t.start(ctx, "catalog.fetch.attempt",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			AttrURL.String(url),
			AttrAttempt.Int(attempt),
		),
	)
}

func (t *Tracer) start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	if t == nil || t.tracer == nil {
		return tracenoop.NewTracerProvider().Tracer("").Start(ctx, name)
	}
	return t.tracer.Start(ctx, name, opts...)
}

// End records err on span, if any, and ends it.
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
