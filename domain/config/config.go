// Package config provides domain models for catalog client configuration.
package config

import (
	"time"

	"github.com/felixgeelhaar/mediacatalog/domain/catalog"
)

// CatalogConfig represents the complete client configuration.
type CatalogConfig struct {
	// Name is a human-readable name for this configuration.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
	// Version is the configuration schema version.
	Version string `json:"version,omitempty" yaml:"version,omitempty"`

	// API configures the upstream endpoints and credentials.
	API APIConfig `json:"api" yaml:"api"`
	// Fetch configures per-call timeouts and retries.
	Fetch FetchConfig `json:"fetch,omitempty" yaml:"fetch,omitempty"`
	// RateLimit configures the outbound token bucket.
	RateLimit RateLimitConfig `json:"rate_limit,omitempty" yaml:"rate_limit,omitempty"`
	// Cache configures the response cache.
	Cache CacheConfig `json:"cache,omitempty" yaml:"cache,omitempty"`
	// Resilience configures the bulkhead and circuit breaker.
	Resilience ResilienceConfig `json:"resilience,omitempty" yaml:"resilience,omitempty"`
	// Comments configures the comment store.
	Comments CommentsConfig `json:"comments,omitempty" yaml:"comments,omitempty"`
	// Logging configures the logger.
	Logging LoggingConfig `json:"logging,omitempty" yaml:"logging,omitempty"`
	// Telemetry configures tracing.
	Telemetry TelemetryConfig `json:"telemetry,omitempty" yaml:"telemetry,omitempty"`
}

// APIConfig configures the upstream API.
type APIConfig struct {
	// BaseURL is the API root, including the version path.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	// ImageBaseURL is the root for sized image URLs.
	ImageBaseURL string `json:"image_base_url,omitempty" yaml:"image_base_url,omitempty"`
	// OriginalImageURL is the root for original-size image URLs.
	OriginalImageURL string `json:"original_image_url,omitempty" yaml:"original_image_url,omitempty"`
	// PlaceholderURL is returned for media without an image.
	PlaceholderURL string `json:"placeholder_url,omitempty" yaml:"placeholder_url,omitempty"`
	// APIKey is a literal key. Prefer APIKeyEnv.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	// APIKeyEnv names the environment variable holding the key.
	APIKeyEnv string `json:"api_key_env,omitempty" yaml:"api_key_env,omitempty"`
	// APIKeyFile is a file holding the key, read when the variable is unset.
	APIKeyFile string `json:"api_key_file,omitempty" yaml:"api_key_file,omitempty"`
	// Proxy forwards requests through ProxyBase, which attaches the key.
	Proxy bool `json:"proxy,omitempty" yaml:"proxy,omitempty"`
	// ProxyBase is the proxy endpoint.
	ProxyBase string `json:"proxy_base,omitempty" yaml:"proxy_base,omitempty"`
	// UserAgent is sent on every request.
	UserAgent string `json:"user_agent,omitempty" yaml:"user_agent,omitempty"`
}

// FetchConfig configures the resilient fetcher.
type FetchConfig struct {
	// Timeout bounds each attempt.
	Timeout Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	// MaxAttempts is the total number of attempts per call.
	MaxAttempts int `json:"max_attempts,omitempty" yaml:"max_attempts,omitempty"`
	// TimeoutBackoff is the per-attempt wait unit after a timeout.
	TimeoutBackoff Duration `json:"timeout_backoff,omitempty" yaml:"timeout_backoff,omitempty"`
	// ServerBackoff is the per-attempt wait unit after a 5xx or 429.
	ServerBackoff Duration `json:"server_backoff,omitempty" yaml:"server_backoff,omitempty"`
	// TransportBackoff is the per-attempt wait unit after a connection failure.
	TransportBackoff Duration `json:"transport_backoff,omitempty" yaml:"transport_backoff,omitempty"`
	// RetryAfterFallback is waited when Retry-After cannot be parsed.
	RetryAfterFallback Duration `json:"retry_after_fallback,omitempty" yaml:"retry_after_fallback,omitempty"`
	// RetryAfterCap bounds server-provided waits.
	RetryAfterCap Duration `json:"retry_after_cap,omitempty" yaml:"retry_after_cap,omitempty"`
}

// RateLimitConfig configures the outbound limiter.
type RateLimitConfig struct {
	// Backend is the limiter implementation (bucket, fortify).
	Backend string `json:"backend,omitempty" yaml:"backend,omitempty"`
	// Mode is the admission mode (advisory, gate).
	Mode string `json:"mode,omitempty" yaml:"mode,omitempty"`
	// Capacity is the bucket size.
	Capacity float64 `json:"capacity,omitempty" yaml:"capacity,omitempty"`
	// RefillPerSecond is the refill rate.
	RefillPerSecond float64 `json:"refill_per_second,omitempty" yaml:"refill_per_second,omitempty"`
	// RetryWait is the single wait on an empty bucket.
	RetryWait Duration `json:"retry_wait,omitempty" yaml:"retry_wait,omitempty"`
}

// CacheConfig configures the response cache.
type CacheConfig struct {
	// MaxEntries caps the cache size; 0 means unbounded.
	MaxEntries int `json:"max_entries" yaml:"max_entries"`
	// TTL holds per-operation time-to-live values.
	TTL TTLConfig `json:"ttl,omitempty" yaml:"ttl,omitempty"`
}

// TTLConfig holds per-operation cache lifetimes.
type TTLConfig struct {
	Media   Duration `json:"media,omitempty" yaml:"media,omitempty"`
	Details Duration `json:"details,omitempty" yaml:"details,omitempty"`
	Search  Duration `json:"search,omitempty" yaml:"search,omitempty"`
	Videos  Duration `json:"videos,omitempty" yaml:"videos,omitempty"`
	Season  Duration `json:"season,omitempty" yaml:"season,omitempty"`
}

// ResilienceConfig contains resilience settings.
type ResilienceConfig struct {
	// Bulkhead configures bulkhead behavior.
	Bulkhead BulkheadConfig `json:"bulkhead,omitempty" yaml:"bulkhead,omitempty"`
	// CircuitBreaker configures circuit breaker behavior.
	CircuitBreaker CircuitBreakerConfig `json:"circuit_breaker,omitempty" yaml:"circuit_breaker,omitempty"`
}

// BulkheadConfig configures bulkhead behavior.
type BulkheadConfig struct {
	// MaxConcurrent is the maximum concurrent fetch calls.
	MaxConcurrent int `json:"max_concurrent,omitempty" yaml:"max_concurrent,omitempty"`
	// MaxQueue is how many fetch calls may wait for a free slot.
	MaxQueue int `json:"max_queue,omitempty" yaml:"max_queue,omitempty"`
}

// CircuitBreakerConfig configures circuit breaker behavior.
type CircuitBreakerConfig struct {
	// Enabled enables circuit breaker.
	Enabled bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	// Threshold is consecutive failed calls before opening.
	Threshold int `json:"threshold,omitempty" yaml:"threshold,omitempty"`
	// Timeout is how long the circuit stays open.
	Timeout Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// CommentsConfig configures the comment store.
type CommentsConfig struct {
	// Backend is the store (memory, redis, badger, sqlite, postgres,
	// dynamodb, mongodb, s3).
	Backend string `json:"backend,omitempty" yaml:"backend,omitempty"`
	// Redis configures the redis backend.
	Redis RedisConfig `json:"redis,omitempty" yaml:"redis,omitempty"`
	// Badger configures the badger backend.
	Badger BadgerConfig `json:"badger,omitempty" yaml:"badger,omitempty"`
	// SQLite configures the sqlite backend.
	SQLite SQLiteConfig `json:"sqlite,omitempty" yaml:"sqlite,omitempty"`
	// Postgres configures the postgres backend.
	Postgres PostgresConfig `json:"postgres,omitempty" yaml:"postgres,omitempty"`
	// DynamoDB configures the dynamodb backend.
	DynamoDB DynamoDBConfig `json:"dynamodb,omitempty" yaml:"dynamodb,omitempty"`
	// MongoDB configures the mongodb backend.
	MongoDB MongoDBConfig `json:"mongodb,omitempty" yaml:"mongodb,omitempty"`
	// S3 configures the s3 backend.
	S3 S3Config `json:"s3,omitempty" yaml:"s3,omitempty"`
	// Retry configures retries of store writes.
	Retry RetryConfig `json:"retry,omitempty" yaml:"retry,omitempty"`
}

// RedisConfig configures the redis comment backend.
type RedisConfig struct {
	Address   string `json:"address,omitempty" yaml:"address,omitempty"`
	Password  string `json:"password,omitempty" yaml:"password,omitempty"`
	DB        int    `json:"db,omitempty" yaml:"db,omitempty"`
	KeyPrefix string `json:"key_prefix,omitempty" yaml:"key_prefix,omitempty"`
}

// BadgerConfig configures the badger comment backend.
type BadgerConfig struct {
	Dir      string `json:"dir,omitempty" yaml:"dir,omitempty"`
	InMemory bool   `json:"in_memory,omitempty" yaml:"in_memory,omitempty"`
}

// SQLiteConfig configures the sqlite comment backend.
type SQLiteConfig struct {
	DSN string `json:"dsn,omitempty" yaml:"dsn,omitempty"`
}

// PostgresConfig configures the postgres comment backend.
type PostgresConfig struct {
	Host     string `json:"host,omitempty" yaml:"host,omitempty"`
	Port     int    `json:"port,omitempty" yaml:"port,omitempty"`
	Database string `json:"database,omitempty" yaml:"database,omitempty"`
	User     string `json:"user,omitempty" yaml:"user,omitempty"`
	Password string `json:"password,omitempty" yaml:"password,omitempty"`
	SSLMode  string `json:"ssl_mode,omitempty" yaml:"ssl_mode,omitempty"`
	Schema   string `json:"schema,omitempty" yaml:"schema,omitempty"`
}

// DynamoDBConfig configures the dynamodb comment backend.
type DynamoDBConfig struct {
	Region      string `json:"region,omitempty" yaml:"region,omitempty"`
	Endpoint    string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	Table       string `json:"table,omitempty" yaml:"table,omitempty"`
	CreateTable bool   `json:"create_table,omitempty" yaml:"create_table,omitempty"`
}

// MongoDBConfig configures the mongodb comment backend.
type MongoDBConfig struct {
	URI        string `json:"uri,omitempty" yaml:"uri,omitempty"`
	Database   string `json:"database,omitempty" yaml:"database,omitempty"`
	Collection string `json:"collection,omitempty" yaml:"collection,omitempty"`
}

// S3Config configures the s3 comment backend. Credentials come from the
// default AWS chain unless both keys are set.
type S3Config struct {
	Region          string `json:"region,omitempty" yaml:"region,omitempty"`
	Bucket          string `json:"bucket,omitempty" yaml:"bucket,omitempty"`
	Endpoint        string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	AccessKeyID     string `json:"access_key_id,omitempty" yaml:"access_key_id,omitempty"`
	SecretAccessKey string `json:"secret_access_key,omitempty" yaml:"secret_access_key,omitempty"`
	KeyPrefix       string `json:"key_prefix,omitempty" yaml:"key_prefix,omitempty"`
}

// RetryConfig configures retry behavior.
type RetryConfig struct {
	// MaxAttempts is the maximum attempts.
	MaxAttempts int `json:"max_attempts,omitempty" yaml:"max_attempts,omitempty"`
	// InitialDelay is the first retry delay.
	InitialDelay Duration `json:"initial_delay,omitempty" yaml:"initial_delay,omitempty"`
	// Multiplier is the backoff multiplier.
	Multiplier float64 `json:"multiplier,omitempty" yaml:"multiplier,omitempty"`
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	// Level is the minimum level (trace, debug, info, warn, error).
	Level string `json:"level,omitempty" yaml:"level,omitempty"`
	// Format is the output format (console, json).
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
}

// TelemetryConfig configures tracing.
type TelemetryConfig struct {
	// ServiceName is reported on every span.
	ServiceName string `json:"service_name,omitempty" yaml:"service_name,omitempty"`
	// Tracing configures the span exporter.
	Tracing TracingConfig `json:"tracing,omitempty" yaml:"tracing,omitempty"`
}

// TracingConfig configures the span exporter.
type TracingConfig struct {
	Enabled    bool    `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Exporter   string  `json:"exporter,omitempty" yaml:"exporter,omitempty"`
	Endpoint   string  `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	Insecure   bool    `json:"insecure,omitempty" yaml:"insecure,omitempty"`
	SampleRate float64 `json:"sample_rate,omitempty" yaml:"sample_rate,omitempty"`
}

// DefaultAPIKeyEnv is the environment variable read for the API key.
const DefaultAPIKeyEnv = "TMDB_API_KEY"

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() CatalogConfig {
	return CatalogConfig{
		Name:    "mediacatalog",
		Version: "1.0",
		API: APIConfig{
			BaseURL:          catalog.DefaultBaseURL,
			ImageBaseURL:     catalog.DefaultImageBaseURL,
			OriginalImageURL: catalog.DefaultOriginalImageURL,
			PlaceholderURL:   catalog.DefaultPlaceholderURL,
			APIKeyEnv:        DefaultAPIKeyEnv,
			ProxyBase:        catalog.DefaultProxyBase,
			UserAgent:        "mediacatalog/1.0",
		},
		Fetch: FetchConfig{
			Timeout:            Duration(8 * time.Second),
			MaxAttempts:        3,
			TimeoutBackoff:     Duration(200 * time.Millisecond),
			ServerBackoff:      Duration(200 * time.Millisecond),
			TransportBackoff:   Duration(150 * time.Millisecond),
			RetryAfterFallback: Duration(time.Second),
			RetryAfterCap:      Duration(60 * time.Second),
		},
		RateLimit: RateLimitConfig{
			Backend:         "bucket",
			Mode:            "advisory",
			Capacity:        8,
			RefillPerSecond: 4,
			RetryWait:       Duration(250 * time.Millisecond),
		},
		Cache: CacheConfig{
			MaxEntries: 1000,
			TTL: TTLConfig{
				Media:   Duration(60 * time.Second),
				Details: Duration(5 * time.Minute),
				Search:  Duration(30 * time.Second),
				Videos:  Duration(60 * time.Second),
				Season:  Duration(5 * time.Minute),
			},
		},
		Resilience: ResilienceConfig{
			Bulkhead: BulkheadConfig{MaxConcurrent: 6, MaxQueue: 64},
			CircuitBreaker: CircuitBreakerConfig{
				Enabled:   false,
				Threshold: 5,
				Timeout:   Duration(30 * time.Second),
			},
		},
		Comments: CommentsConfig{
			Backend: "memory",
			Redis: RedisConfig{
				Address:   "localhost:6379",
				KeyPrefix: "catalog:",
			},
			Badger: BadgerConfig{Dir: "./data/comments"},
			SQLite: SQLiteConfig{DSN: "file:catalog.db?mode=rwc"},
			Postgres: PostgresConfig{
				Host:     "localhost",
				Port:     5432,
				Database: "catalog",
				User:     "postgres",
				SSLMode:  "disable",
				Schema:   "public",
			},
			DynamoDB: DynamoDBConfig{
				Region: "us-east-1",
				Table:  "catalog_kv",
			},
			MongoDB: MongoDBConfig{
				URI:        "mongodb://localhost:27017",
				Database:   "catalog",
				Collection: "kv",
			},
			S3: S3Config{
				Region:    "us-east-1",
				Bucket:    "catalog",
				KeyPrefix: "catalog/",
			},
			Retry: RetryConfig{
				MaxAttempts:  3,
				InitialDelay: Duration(50 * time.Millisecond),
				Multiplier:   2.0,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Telemetry: TelemetryConfig{
			ServiceName: "mediacatalog",
			Tracing: TracingConfig{
				Exporter:   "noop",
				SampleRate: 1.0,
			},
		},
	}
}

// Duration is a time.Duration that supports JSON/YAML string representation.
type Duration time.Duration

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Duration(d).String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	// Handle null
	if string(b) == "null" {
		return nil
	}

	// Remove quotes
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}

	// Parse duration
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
