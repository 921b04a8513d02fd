// Package observability provides OpenTelemetry tracing and metric providers.
package observability

import (
	"io"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// ExporterType names a span exporter.
type ExporterType string

const (
	ExporterNoop   ExporterType = "noop"
	ExporterStdout ExporterType = "stdout"
	ExporterOTLP   ExporterType = "otlp"
)

// ParseExporterType parses an exporter name. Empty means noop.
func ParseExporterType(s string) (ExporterType, bool) {
	switch e := ExporterType(s); e {
	case "":
		return ExporterNoop, true
	case ExporterNoop, ExporterStdout, ExporterOTLP:
		return e, true
	}
	return "", false
}

// Config describes the providers New builds.
type Config struct {
	ServiceName    string
	ServiceVersion string

	// Exporter is noop unless tracing is turned on.
	Exporter ExporterType

	// Endpoint is the OTLP gRPC collector address.
	Endpoint string
	Insecure bool

	// SampleRate is clamped to [0, 1]; 1 samples every query.
	SampleRate float64

	// BatchTimeout is how long spans wait before export.
	BatchTimeout time.Duration

	// TraceWriter receives stdout exporter output. Defaults to os.Stdout.
	TraceWriter io.Writer

	// MetricReader, when set, turns on the SDK meter provider.
	MetricReader sdkmetric.Reader
}

// DefaultConfig exports nothing.
func DefaultConfig() Config {
	return Config{
		ServiceName:    "mediacatalog",
		ServiceVersion: "dev",
		Exporter:       ExporterNoop,
		SampleRate:     1,
		BatchTimeout:   5 * time.Second,
	}
}

// Option configures the providers.
type Option func(*Config)

// WithServiceName sets the service.name resource attribute.
func WithServiceName(name string) Option {
	return func(c *Config) { c.ServiceName = name }
}

// WithServiceVersion sets the service.version resource attribute.
func WithServiceVersion(version string) Option {
	return func(c *Config) { c.ServiceVersion = version }
}

// WithTracing selects an exporter and its endpoint.
func WithTracing(exporter ExporterType, endpoint string) Option {
	return func(c *Config) {
		c.Exporter = exporter
		c.Endpoint = endpoint
	}
}

// WithTracingInsecure dials the OTLP endpoint without TLS.
func WithTracingInsecure() Option {
	return func(c *Config) { c.Insecure = true }
}

// WithSampleRate sets the fraction of queries traced.
func WithSampleRate(rate float64) Option {
	return func(c *Config) { c.SampleRate = rate }
}

// WithTraceWriter selects the stdout exporter writing to w.
func WithTraceWriter(w io.Writer) Option {
	return func(c *Config) {
		c.Exporter = ExporterStdout
		c.TraceWriter = w
	}
}

// WithMetricReader attaches reader to an SDK meter provider.
func WithMetricReader(reader sdkmetric.Reader) Option {
	return func(c *Config) { c.MetricReader = reader }
}
