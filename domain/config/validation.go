package config

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	// Path is the JSON path to the invalid field.
	Path string
	// Message describes the validation error.
	Message string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("%d validation errors:\n  - %s", len(e), strings.Join(msgs, "\n  - "))
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates catalog configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate validates the configuration and returns any errors.
func (v *Validator) Validate(config *CatalogConfig) ValidationErrors {
	v.errors = nil

	v.validateAPI(config)
	v.validateFetch(config)
	v.validateRateLimit(config)
	v.validateCache(config)
	v.validateResilience(config)
	v.validateComments(config)
	v.validateLogging(config)
	v.validateTelemetry(config)

	return v.errors
}

func (v *Validator) addError(path, message string) {
	v.errors = append(v.errors, ValidationError{Path: path, Message: message})
}

func (v *Validator) validateAbsoluteURL(path, raw string, required bool) {
	if raw == "" {
		if required {
			v.addError(path, "URL is required")
		}
		return
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		v.addError(path, fmt.Sprintf("invalid absolute URL: %s", raw))
	}
}

func (v *Validator) validateAPI(config *CatalogConfig) {
	api := config.API
	v.validateAbsoluteURL("api.base_url", api.BaseURL, true)
	v.validateAbsoluteURL("api.image_base_url", api.ImageBaseURL, false)
	v.validateAbsoluteURL("api.original_image_url", api.OriginalImageURL, false)
	v.validateAbsoluteURL("api.placeholder_url", api.PlaceholderURL, false)
	if api.Proxy {
		v.validateAbsoluteURL("api.proxy_base", api.ProxyBase, true)
	}
}

func (v *Validator) validateFetch(config *CatalogConfig) {
	f := config.Fetch
	if f.Timeout < 0 {
		v.addError("fetch.timeout", "timeout must be non-negative")
	}
	if f.MaxAttempts < 0 {
		v.addError("fetch.max_attempts", "max_attempts must be non-negative")
	}
	for path, d := range map[string]Duration{
		"fetch.timeout_backoff":      f.TimeoutBackoff,
		"fetch.server_backoff":       f.ServerBackoff,
		"fetch.transport_backoff":    f.TransportBackoff,
		"fetch.retry_after_fallback": f.RetryAfterFallback,
		"fetch.retry_after_cap":      f.RetryAfterCap,
	} {
		if d < 0 {
			v.addError(path, "duration must be non-negative")
		}
	}
}

func (v *Validator) validateRateLimit(config *CatalogConfig) {
	rl := config.RateLimit
	switch rl.Backend {
	case "", "bucket", "fortify":
	default:
		v.addError("rate_limit.backend", fmt.Sprintf("invalid backend: %s", rl.Backend))
	}
	switch strings.ToLower(rl.Mode) {
	case "", "advisory", "gate":
	default:
		v.addError("rate_limit.mode", fmt.Sprintf("invalid mode: %s", rl.Mode))
	}
	if rl.Capacity < 0 {
		v.addError("rate_limit.capacity", "capacity must be non-negative")
	}
	if rl.RefillPerSecond < 0 {
		v.addError("rate_limit.refill_per_second", "refill_per_second must be non-negative")
	}
	if rl.RetryWait < 0 {
		v.addError("rate_limit.retry_wait", "retry_wait must be non-negative")
	}
}

func (v *Validator) validateCache(config *CatalogConfig) {
	if config.Cache.MaxEntries < 0 {
		v.addError("cache.max_entries", "max_entries must be non-negative")
	}
	ttl := config.Cache.TTL
	for path, d := range map[string]Duration{
		"cache.ttl.media":   ttl.Media,
		"cache.ttl.details": ttl.Details,
		"cache.ttl.search":  ttl.Search,
		"cache.ttl.videos":  ttl.Videos,
		"cache.ttl.season":  ttl.Season,
	} {
		if d < 0 {
			v.addError(path, "ttl must be non-negative")
		}
	}
}

func (v *Validator) validateResilience(config *CatalogConfig) {
	if config.Resilience.Bulkhead.MaxConcurrent < 0 {
		v.addError("resilience.bulkhead.max_concurrent", "max_concurrent must be non-negative")
	}
	if config.Resilience.Bulkhead.MaxQueue < 0 {
		v.addError("resilience.bulkhead.max_queue", "max_queue must be non-negative")
	}
	if config.Resilience.CircuitBreaker.Enabled {
		if config.Resilience.CircuitBreaker.Threshold <= 0 {
			v.addError("resilience.circuit_breaker.threshold", "threshold must be positive when enabled")
		}
	}
}

func (v *Validator) validateComments(config *CatalogConfig) {
	c := config.Comments
	switch c.Backend {
	case "", "memory":
	case "redis":
		if c.Redis.Address == "" {
			v.addError("comments.redis.address", "address is required for redis backend")
		}
	case "badger":
		if !c.Badger.InMemory && c.Badger.Dir == "" {
			v.addError("comments.badger.dir", "dir is required unless in_memory is set")
		}
	case "sqlite":
		if c.SQLite.DSN == "" {
			v.addError("comments.sqlite.dsn", "dsn is required for sqlite backend")
		}
	case "postgres":
		if c.Postgres.Host == "" {
			v.addError("comments.postgres.host", "host is required for postgres backend")
		}
		if c.Postgres.Port < 0 || c.Postgres.Port > 65535 {
			v.addError("comments.postgres.port", "port must be between 0 and 65535")
		}
		if c.Postgres.Database == "" {
			v.addError("comments.postgres.database", "database is required for postgres backend")
		}
	case "dynamodb":
		if c.DynamoDB.Region == "" {
			v.addError("comments.dynamodb.region", "region is required for dynamodb backend")
		}
		if c.DynamoDB.Table == "" {
			v.addError("comments.dynamodb.table", "table is required for dynamodb backend")
		}
	case "mongodb":
		if c.MongoDB.URI == "" {
			v.addError("comments.mongodb.uri", "uri is required for mongodb backend")
		}
		if c.MongoDB.Database == "" {
			v.addError("comments.mongodb.database", "database is required for mongodb backend")
		}
	case "s3":
		if c.S3.Bucket == "" {
			v.addError("comments.s3.bucket", "bucket is required for s3 backend")
		}
		if (c.S3.AccessKeyID == "") != (c.S3.SecretAccessKey == "") {
			v.addError("comments.s3.secret_access_key", "access_key_id and secret_access_key must be set together")
		}
	default:
		v.addError("comments.backend", fmt.Sprintf("invalid backend: %s", c.Backend))
	}
	if c.Retry.MaxAttempts < 0 {
		v.addError("comments.retry.max_attempts", "max_attempts must be non-negative")
	}
	if c.Retry.Multiplier != 0 && c.Retry.Multiplier < 1 {
		v.addError("comments.retry.multiplier", "multiplier must be >= 1")
	}
}

func (v *Validator) validateLogging(config *CatalogConfig) {
	switch config.Logging.Level {
	case "", "trace", "debug", "info", "warn", "error":
	default:
		v.addError("logging.level", fmt.Sprintf("invalid level: %s", config.Logging.Level))
	}
	switch config.Logging.Format {
	case "", "console", "json":
	default:
		v.addError("logging.format", fmt.Sprintf("invalid format: %s", config.Logging.Format))
	}
}

func (v *Validator) validateTelemetry(config *CatalogConfig) {
	tr := config.Telemetry.Tracing
	switch tr.Exporter {
	case "", "noop", "stdout":
	case "otlp":
		if tr.Enabled && tr.Endpoint == "" {
			v.addError("telemetry.tracing.endpoint", "endpoint is required for otlp exporter")
		}
	default:
		v.addError("telemetry.tracing.exporter", fmt.Sprintf("invalid exporter: %s", tr.Exporter))
	}
	if tr.SampleRate < 0 || tr.SampleRate > 1 {
		v.addError("telemetry.tracing.sample_rate", "sample_rate must be between 0 and 1")
	}
}
