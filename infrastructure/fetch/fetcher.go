// Package fetch performs one resilient GET: per-attempt timeouts, bounded
// retries with backoff, and response decoding.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/felixgeelhaar/mediacatalog/domain/catalog"
	"github.com/felixgeelhaar/mediacatalog/domain/clock"
	"github.com/felixgeelhaar/mediacatalog/infrastructure/logging"
	"github.com/felixgeelhaar/mediacatalog/infrastructure/observability"
	"github.com/felixgeelhaar/mediacatalog/infrastructure/statemachine"
	"github.com/felixgeelhaar/mediacatalog/infrastructure/telemetry"
)

// Doer executes HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config configures a Fetcher.
type Config struct {
	Policy Policy

	// Proxy forwards every request as ProxyBase?target=<url>.
	Proxy bool

	// ProxyBase is the proxy endpoint used when Proxy is set.
	ProxyBase string

	// UserAgent is sent on every request.
	UserAgent string
}

// DefaultConfig returns the default policy without a proxy.
func DefaultConfig() Config {
	return Config{
		Policy:    DefaultPolicy(),
		ProxyBase: catalog.DefaultProxyBase,
		UserAgent: "mediacatalog/1.0",
	}
}

// Fetcher runs fetch calls. It is safe for concurrent use.
type Fetcher struct {
	config  Config
	client  Doer
	clock   clock.Clock
	metrics telemetry.Metrics
	tracer  *observability.Tracer
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithClient sets the HTTP client.
func WithClient(c Doer) Option {
	return func(f *Fetcher) {
		f.client = c
	}
}

// WithClock sets the clock used for backoff waits.
func WithClock(c clock.Clock) Option {
	return func(f *Fetcher) {
		f.clock = c
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m telemetry.Metrics) Option {
	return func(f *Fetcher) {
		f.metrics = m
	}
}

// WithTracer sets the tracer.
func WithTracer(t *observability.Tracer) Option {
	return func(f *Fetcher) {
		f.tracer = t
	}
}

// New creates a Fetcher.
func New(config Config, opts ...Option) *Fetcher {
	config.Policy = config.Policy.withDefaults()
	if config.ProxyBase == "" {
		config.ProxyBase = catalog.DefaultProxyBase
	}

	f := &Fetcher{
		config:  config,
		client:  http.DefaultClient,
		clock:   clock.System{},
		metrics: telemetry.NoopMetricsProvider{},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Policy returns the effective policy.
func (f *Fetcher) Policy() Policy {
	return f.config.Policy
}

// Target returns the URL actually requested for rawURL.
func (f *Fetcher) Target(rawURL string) (string, error) {
	if !f.config.Proxy {
		return rawURL, nil
	}
	return catalog.ProxyURL(f.config.ProxyBase, rawURL)
}

// Fetch GETs rawURL. It returns the decoded payload, or a *catalog.FetchError
// whose kind says why the call failed. Cancelling ctx aborts both the
// in-flight attempt and any backoff wait.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (payload catalog.Payload, err error) {
	target, err := f.Target(rawURL)
	if err != nil {
		return catalog.Payload{}, err
	}

	ctx, span := f.tracer.StartFetch(ctx, logging.RedactURL(target))
	defer func() { observability.End(span, err) }()

	machine, err := statemachine.NewFetchMachine()
	if err != nil {
		return catalog.Payload{}, fmt.Errorf("build fetch machine: %w", err)
	}
	mc := statemachine.NewContext(target, f.config.Policy.MaxAttempts)
	interp := statemachine.NewInterpreter(machine, mc)
	interp.Start()
	defer interp.Stop()

	for {
		attempt := mc.Attempt
		p, ferr := f.attempt(ctx, target, attempt)
		if ferr == nil {
			if err := interp.Fire(statemachine.EventSucceed, nil); err != nil {
				return catalog.Payload{}, err
			}
			return p, nil
		}

		if !ferr.Retryable() {
			if err := interp.Fire(statemachine.EventFatalFail, ferr); err != nil {
				return catalog.Payload{}, err
			}
			f.metrics.RecordError(ctx, ferr.Kind.String(), map[string]string{"url": logging.RedactURL(target)})
			return catalog.Payload{}, ferr
		}

		if err := interp.Fire(statemachine.EventRetryableFail, ferr); err != nil {
			return catalog.Payload{}, err
		}

		if !mc.AttemptsRemain() {
			if err := interp.Fire(statemachine.EventExhaust, nil); err != nil {
				return catalog.Payload{}, err
			}
			exhausted := &catalog.FetchError{
				Kind:    catalog.FailureExhausted,
				URL:     logging.RedactURL(target),
				Attempt: attempt,
				Status:  ferr.Status,
				Err:     mc.LastErr,
			}
			f.metrics.RecordError(ctx, exhausted.Kind.String(), map[string]string{"url": logging.RedactURL(target)})
			logging.Error().
				Add(logging.Component("fetch")).
				Add(logging.URL(target)).
				Add(logging.Attempt(attempt)).
				Add(logging.ErrorField(ferr)).
				Msg("fetch retries exhausted")
			return catalog.Payload{}, exhausted
		}

		wait := f.config.Policy.Backoff(ferr.Kind, attempt, ferr.RetryAfter)
		f.metrics.RecordRetry(ctx, ferr.Kind.String(), wait)
		logging.Warn().
			Add(logging.Component("fetch")).
			Add(logging.URL(target)).
			Add(logging.Attempt(attempt)).
			Add(logging.Status(ferr.Status)).
			Add(logging.Backoff(wait)).
			Add(logging.ErrorField(ferr)).
			Msg("fetch attempt failed, retrying")

		if err := f.clock.Sleep(ctx, wait); err != nil {
			return catalog.Payload{}, &catalog.FetchError{
				Kind:    catalog.FailureCanceled,
				URL:     logging.RedactURL(target),
				Attempt: attempt,
				Err:     err,
			}
		}

		if err := interp.Fire(statemachine.EventRetry, nil); err != nil {
			return catalog.Payload{}, err
		}
	}
}

// attempt performs one request under its own timeout.
func (f *Fetcher) attempt(ctx context.Context, target string, attempt int) (payload catalog.Payload, ferr *catalog.FetchError) {
	start := f.clock.Now()
	ctx, span := f.tracer.StartAttempt(ctx, logging.RedactURL(target), attempt)
	f.metrics.IncrementInFlight(ctx)
	defer func() {
		f.metrics.DecrementInFlight(ctx)
		outcome := "success"
		var err error
		if ferr != nil {
			outcome = ferr.Kind.String()
			err = ferr
			if ferr.Status != 0 {
				span.SetAttributes(observability.AttrStatus.Int(ferr.Status))
			}
		}
		span.SetAttributes(observability.AttrOutcome.String(outcome))
		observability.End(span, err)
		f.metrics.RecordFetchAttempt(ctx, attempt, outcome, f.clock.Now().Sub(start))
	}()

	attemptCtx, cancel := context.WithTimeout(ctx, f.config.Policy.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, target, nil)
	if err != nil {
		return catalog.Payload{}, &catalog.FetchError{Kind: catalog.FailureFatalClient, URL: logging.RedactURL(target), Attempt: attempt, Err: redactError(err)}
	}
	req.Header.Set("Accept", "application/json")
	if f.config.UserAgent != "" {
		req.Header.Set("User-Agent", f.config.UserAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return catalog.Payload{}, f.requestError(ctx, attemptCtx, target, attempt, err)
	}
	defer resp.Body.Close()

	logging.Debug().
		Add(logging.Component("fetch")).
		Add(logging.URL(target)).
		Add(logging.Attempt(attempt)).
		Add(logging.Status(resp.StatusCode)).
		Msg("fetch response")

	kind := ClassifyStatus(resp.StatusCode)
	if kind != 0 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, f.config.Policy.MaxErrorBody))
		fe := &catalog.FetchError{
			Kind:    kind,
			URL:     logging.RedactURL(target),
			Attempt: attempt,
			Status:  resp.StatusCode,
			Body:    strings.TrimSpace(string(snippet)),
		}
		if kind == catalog.FailureTransientServer {
			fe.RetryAfter = f.config.Policy.RetryAfter(resp.Header.Get("Retry-After"), f.clock.Now())
		}
		return catalog.Payload{}, fe
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.config.Policy.MaxBody))
	if err != nil {
		return catalog.Payload{}, f.requestError(ctx, attemptCtx, target, attempt, err)
	}

	p, err := catalog.NewPayload(resp.Header.Get("Content-Type"), body)
	if err != nil {
		return catalog.Payload{}, &catalog.FetchError{
			Kind:    catalog.FailureDecode,
			URL:     logging.RedactURL(target),
			Attempt: attempt,
			Status:  resp.StatusCode,
			Err:     err,
		}
	}
	return p, nil
}

// requestError classifies a failure to obtain or read a response.
func (f *Fetcher) requestError(parent, attemptCtx context.Context, target string, attempt int, err error) *catalog.FetchError {
	fe := &catalog.FetchError{URL: logging.RedactURL(target), Attempt: attempt, Err: redactError(err)}

	var netErr net.Error
	switch {
	case parent.Err() != nil:
		fe.Kind = catalog.FailureCanceled
		fe.Err = parent.Err()
	case errors.Is(attemptCtx.Err(), context.DeadlineExceeded),
		errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr) && netErr.Timeout():
		fe.Kind = catalog.FailureTimeout
	default:
		fe.Kind = catalog.FailureTransport
	}
	return fe
}

// redactError masks the api key in the URL a *url.Error carries.
func redactError(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return &url.Error{Op: ue.Op, URL: logging.RedactURL(ue.URL), Err: ue.Err}
	}
	return err
}
