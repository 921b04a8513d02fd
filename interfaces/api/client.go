// Package api provides the public API for the media catalog client.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/felixgeelhaar/mediacatalog/application"
	"github.com/felixgeelhaar/mediacatalog/domain/catalog"
	"github.com/felixgeelhaar/mediacatalog/domain/clock"
	domainconfig "github.com/felixgeelhaar/mediacatalog/domain/config"
	infraconfig "github.com/felixgeelhaar/mediacatalog/infrastructure/config"
	"github.com/felixgeelhaar/mediacatalog/infrastructure/fetch"
	"github.com/felixgeelhaar/mediacatalog/infrastructure/logging"
	"github.com/felixgeelhaar/mediacatalog/infrastructure/observability"
	"github.com/felixgeelhaar/mediacatalog/infrastructure/ratelimit"
	"github.com/felixgeelhaar/mediacatalog/infrastructure/resilience"
	"github.com/felixgeelhaar/mediacatalog/infrastructure/storage/memory"
	"github.com/felixgeelhaar/mediacatalog/infrastructure/telemetry"
)

// Client is a fully wired catalog client.
type Client struct {
	catalog  *application.Catalog
	browser  *application.Browser
	comments *application.CommentService
	fetcher  *fetch.Fetcher
	images   catalog.ImageURLBuilder
	provider *observability.Provider
	metrics  *telemetry.MetricsProvider
	closers  []func() error
}

type clientOptions struct {
	httpClient   fetch.Doer
	clock        clock.Clock
	lookup       infraconfig.LookupFunc
	metricReader sdkmetric.Reader
	keyOptional  bool
	skipLogging  bool
	extraObs     []observability.Option
}

// ClientOption configures NewClient.
type ClientOption func(*clientOptions)

// WithHTTPClient sets the HTTP client used for every fetch.
func WithHTTPClient(c fetch.Doer) ClientOption {
	return func(o *clientOptions) {
		o.httpClient = c
	}
}

// WithClock sets the clock for backoff waits, the limiter, cache expiry
// and comment timestamps.
func WithClock(c clock.Clock) ClientOption {
	return func(o *clientOptions) {
		o.clock = c
	}
}

// WithLookupEnv sets how the API key variable is resolved.
func WithLookupEnv(lookup func(string) (string, bool)) ClientOption {
	return func(o *clientOptions) {
		o.lookup = lookup
	}
}

// WithMetricReader records metrics into reader.
func WithMetricReader(reader sdkmetric.Reader) ClientOption {
	return func(o *clientOptions) {
		o.metricReader = reader
	}
}

// WithoutAPIKey builds a client that does not require an API key, for
// commands that never reach the network.
func WithoutAPIKey() ClientOption {
	return func(o *clientOptions) {
		o.keyOptional = true
	}
}

// WithoutLoggingSetup leaves the process logger untouched.
func WithoutLoggingSetup() ClientOption {
	return func(o *clientOptions) {
		o.skipLogging = true
	}
}

// WithObservability adds telemetry provider options after the configured ones.
func WithObservability(opts ...observability.Option) ClientOption {
	return func(o *clientOptions) {
		o.extraObs = append(o.extraObs, opts...)
	}
}

// NewClient builds a client from config. A nil config uses the defaults.
func NewClient(config *CatalogConfig, opts ...ClientOption) (*Client, error) {
	o := clientOptions{
		httpClient: http.DefaultClient,
		clock:      clock.System{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	if config == nil {
		def := domainconfig.DefaultConfig()
		config = &def
	}

	var builderOpts []infraconfig.BuilderOption
	if o.lookup != nil {
		builderOpts = append(builderOpts, infraconfig.WithLookupEnv(o.lookup))
	}
	if o.keyOptional {
		builderOpts = append(builderOpts, infraconfig.WithAPIKeyOptional())
	}
	result, err := infraconfig.NewBuilder(config, builderOpts...).Build()
	if err != nil {
		return nil, err
	}

	if !o.skipLogging {
		logging.Configure(result.Logging)
	}

	c := &Client{images: result.Images}

	obsOpts := append([]observability.Option{}, result.Observability...)
	if o.metricReader != nil {
		obsOpts = append(obsOpts, observability.WithMetricReader(o.metricReader))
	}
	obsOpts = append(obsOpts, o.extraObs...)
	c.provider, err = observability.New(obsOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating telemetry provider: %w", err)
	}
	c.closers = append(c.closers, func() error {
		return c.provider.Shutdown(context.Background())
	})

	metricsCfg := telemetry.DefaultMetricsConfig()
	metricsCfg.Provider = c.provider.MeterProvider()
	c.metrics = telemetry.NewMetricsProvider(metricsCfg)
	if err := c.metrics.Error(); err != nil {
		logging.Warn().
			Add(logging.Component("api")).
			Add(logging.ErrorField(err)).
			Msg("metric instruments unavailable")
	}
	tracer := c.provider.Tracer()

	c.fetcher = fetch.New(result.Fetch,
		fetch.WithClient(o.httpClient),
		fetch.WithClock(o.clock),
		fetch.WithMetrics(c.metrics),
		fetch.WithTracer(tracer),
	)

	var limiter ratelimit.Limiter
	switch result.RateLimitBackend {
	case ratelimit.BackendFortify:
		limiter = ratelimit.NewFortifyLimiter(result.RateLimit)
	default:
		limiter = ratelimit.NewTokenBucket(result.RateLimit, o.clock)
	}

	c.catalog, err = application.NewCatalog(application.CatalogConfig{
		Endpoints: result.Endpoints,
		Fetcher:   c.fetcher,
		Cache:     memory.NewCache(memory.WithMaxEntries(result.CacheMaxEntries), memory.WithClock(o.clock)),
		Admission: ratelimit.NewAdmission(limiter, result.RateLimitMode, c.metrics),
		Guard:     resilience.New(result.Resilience, c.metrics),
		TTLs:      result.TTLs,
		Metrics:   c.metrics,
		Tracer:    tracer,
	})
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	c.browser = application.NewBrowser(c.catalog)

	store, closeStore, err := result.Comments.Open(o.clock)
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	c.closers = append(c.closers, closeStore)

	c.comments, err = application.NewCommentService(application.CommentConfig{
		Store:             store,
		Clock:             o.clock,
		RetryMaxAttempts:  result.Comments.Retry.MaxAttempts,
		RetryInitialDelay: result.Comments.Retry.InitialDelay,
		RetryMultiplier:   result.Comments.Retry.Multiplier,
	})
	if err != nil {
		_ = c.Close()
		return nil, err
	}

	logging.Debug().
		Add(logging.Component("api")).
		Add(logging.Str("comments", string(result.Comments.Backend))).
		Add(logging.Str("rate_limit_mode", string(result.RateLimitMode))).
		Msg("catalog client ready")

	return c, nil
}

// Catalog returns the query operations.
func (c *Client) Catalog() *application.Catalog {
	return c.catalog
}

// Browser returns the page browser.
func (c *Client) Browser() *application.Browser {
	return c.browser
}

// Comments returns the comment service.
func (c *Client) Comments() *application.CommentService {
	return c.comments
}

// Fetcher returns the resilient fetcher.
func (c *Client) Fetcher() *fetch.Fetcher {
	return c.fetcher
}

// ImageURL returns the URL of an image path at size. An empty path yields
// the placeholder image.
func (c *Client) ImageURL(path string, size catalog.ImageSize) (string, error) {
	return c.images.URL(path, size)
}

// Close releases the comment store and flushes telemetry.
func (c *Client) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}
