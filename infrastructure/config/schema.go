package config

import (
	"encoding/json"
)

// JSONSchema represents a JSON Schema document.
type JSONSchema struct {
	Schema               string                 `json:"$schema,omitempty"`
	ID                   string                 `json:"$id,omitempty"`
	Title                string                 `json:"title,omitempty"`
	Description          string                 `json:"description,omitempty"`
	Type                 string                 `json:"type,omitempty"`
	Properties           map[string]*JSONSchema `json:"properties,omitempty"`
	Required             []string               `json:"required,omitempty"`
	Items                *JSONSchema            `json:"items,omitempty"`
	AdditionalProperties *JSONSchema            `json:"additionalProperties,omitempty"`
	Enum                 []string               `json:"enum,omitempty"`
	Default              any                    `json:"default,omitempty"`
	Minimum              *float64               `json:"minimum,omitempty"`
	Maximum              *float64               `json:"maximum,omitempty"`
	Pattern              string                 `json:"pattern,omitempty"`
	Format               string                 `json:"format,omitempty"`
}

// GenerateSchema generates a JSON Schema for the CatalogConfig.
func GenerateSchema() *JSONSchema {
	return &JSONSchema{
		Schema:      "https://json-schema.org/draft/2020-12/schema",
		ID:          "https://github.com/felixgeelhaar/mediacatalog/catalog-config.schema.json",
		Title:       "Catalog Configuration",
		Description: "Configuration schema for the mediacatalog client",
		Type:        "object",
		Properties: map[string]*JSONSchema{
			"name": {
				Type:        "string",
				Description: "A human-readable name for this configuration",
			},
			"version": {
				Type:        "string",
				Description: "The configuration schema version",
				Default:     "1.0",
			},
			"api":        generateAPISchema(),
			"fetch":      generateFetchSchema(),
			"rate_limit": generateRateLimitSchema(),
			"cache":      generateCacheSchema(),
			"resilience": generateResilienceSchema(),
			"comments":   generateCommentsSchema(),
			"logging":    generateLoggingSchema(),
			"telemetry":  generateTelemetrySchema(),
		},
	}
}

func generateAPISchema() *JSONSchema {
	return &JSONSchema{
		Type:        "object",
		Description: "Upstream endpoints and credentials",
		Properties: map[string]*JSONSchema{
			"base_url":           uriProp("API root including the version path", "https://api.themoviedb.org/3"),
			"image_base_url":     uriProp("Root for sized image URLs", "https://image.tmdb.org/t/p/"),
			"original_image_url": uriProp("Root for original-size image URLs", "https://image.tmdb.org/t/p/original"),
			"placeholder_url":    uriProp("Image returned for media without a poster", nil),
			"api_key": {
				Type:        "string",
				Description: "Literal API key; prefer api_key_env",
			},
			"api_key_env": {
				Type:        "string",
				Description: "Environment variable holding the API key",
				Default:     "TMDB_API_KEY",
			},
			"api_key_file": {
				Type:        "string",
				Description: "File holding the API key, read when the variable is unset",
			},
			"proxy": {
				Type:        "boolean",
				Description: "Forward requests through proxy_base, which attaches the key",
				Default:     false,
			},
			"proxy_base": uriProp("Proxy endpoint", "http://localhost:3000/api/tmdb"),
			"user_agent": {
				Type:        "string",
				Description: "User-Agent header sent on every request",
			},
		},
	}
}

func generateFetchSchema() *JSONSchema {
	return &JSONSchema{
		Type:        "object",
		Description: "Per-call timeouts and retries",
		Properties: map[string]*JSONSchema{
			"timeout": durationProp("Per-attempt timeout", "8s"),
			"max_attempts": {
				Type:        "integer",
				Description: "Total attempts per call, including the first",
				Minimum:     floatPtr(1),
				Default:     3,
			},
			"timeout_backoff":      durationProp("Wait unit after a timeout, multiplied by the attempt number", "200ms"),
			"server_backoff":       durationProp("Wait unit after a 5xx or 429 without Retry-After", "200ms"),
			"transport_backoff":    durationProp("Wait unit after a connection failure", "150ms"),
			"retry_after_fallback": durationProp("Wait when Retry-After cannot be parsed", "1s"),
			"retry_after_cap":      durationProp("Upper bound on server-provided waits", "60s"),
		},
	}
}

func generateRateLimitSchema() *JSONSchema {
	return &JSONSchema{
		Type:        "object",
		Description: "Outbound token bucket",
		Properties: map[string]*JSONSchema{
			"backend": {
				Type:        "string",
				Description: "Limiter implementation",
				Enum:        []string{"bucket", "fortify"},
				Default:     "bucket",
			},
			"mode": {
				Type:        "string",
				Description: "What a denial means: advisory proceeds, gate fails",
				Enum:        []string{"advisory", "gate"},
				Default:     "advisory",
			},
			"capacity": {
				Type:        "number",
				Description: "Bucket size",
				Minimum:     floatPtr(0),
				Default:     8,
			},
			"refill_per_second": {
				Type:        "number",
				Description: "Tokens added per second",
				Minimum:     floatPtr(0),
				Default:     4,
			},
			"retry_wait": durationProp("Single wait on an empty bucket", "250ms"),
		},
	}
}

func generateCacheSchema() *JSONSchema {
	return &JSONSchema{
		Type:        "object",
		Description: "Response cache",
		Properties: map[string]*JSONSchema{
			"max_entries": {
				Type:        "integer",
				Description: "Maximum cached responses; 0 is unbounded",
				Minimum:     floatPtr(0),
				Default:     1000,
			},
			"ttl": {
				Type:        "object",
				Description: "Per-operation lifetimes",
				Properties: map[string]*JSONSchema{
					"media":   durationProp("Media lists", "60s"),
					"details": durationProp("Title details", "5m"),
					"search":  durationProp("Search results", "30s"),
					"videos":  durationProp("Video lists", "60s"),
					"season":  durationProp("Season details", "5m"),
				},
			},
		},
	}
}

func generateResilienceSchema() *JSONSchema {
	return &JSONSchema{
		Type:        "object",
		Description: "Resilience settings",
		Properties: map[string]*JSONSchema{
			"bulkhead": {
				Type:        "object",
				Description: "Bulkhead behavior",
				Properties: map[string]*JSONSchema{
					"max_concurrent": {
						Type:        "integer",
						Description: "Maximum concurrent fetch calls",
						Minimum:     floatPtr(1),
						Default:     6,
					},
					"max_queue": {
						Type:        "integer",
						Description: "Fetch calls that may wait for a free slot",
						Minimum:     floatPtr(1),
						Default:     64,
					},
				},
			},
			"circuit_breaker": {
				Type:        "object",
				Description: "Circuit breaker behavior",
				Properties: map[string]*JSONSchema{
					"enabled": {
						Type:    "boolean",
						Default: false,
					},
					"threshold": {
						Type:        "integer",
						Description: "Consecutive failed calls before opening",
						Minimum:     floatPtr(1),
						Default:     5,
					},
					"timeout": durationProp("How long the circuit stays open", "30s"),
				},
			},
		},
	}
}

func generateCommentsSchema() *JSONSchema {
	return &JSONSchema{
		Type:        "object",
		Description: "Comment store",
		Properties: map[string]*JSONSchema{
			"backend": {
				Type:    "string",
				Enum:    []string{"memory", "redis", "badger", "sqlite", "postgres", "dynamodb", "mongodb", "s3"},
				Default: "memory",
			},
			"redis": {
				Type: "object",
				Properties: map[string]*JSONSchema{
					"address":    {Type: "string", Default: "localhost:6379"},
					"password":   {Type: "string"},
					"db":         {Type: "integer", Minimum: floatPtr(0)},
					"key_prefix": {Type: "string", Default: "catalog:"},
				},
			},
			"badger": {
				Type: "object",
				Properties: map[string]*JSONSchema{
					"dir":       {Type: "string", Default: "./data/comments"},
					"in_memory": {Type: "boolean", Default: false},
				},
			},
			"sqlite": {
				Type: "object",
				Properties: map[string]*JSONSchema{
					"dsn": {Type: "string", Default: "file:catalog.db?mode=rwc"},
				},
			},
			"postgres": {
				Type: "object",
				Properties: map[string]*JSONSchema{
					"host":     {Type: "string", Default: "localhost"},
					"port":     {Type: "integer", Minimum: floatPtr(0), Maximum: floatPtr(65535), Default: 5432},
					"database": {Type: "string", Default: "catalog"},
					"user":     {Type: "string", Default: "postgres"},
					"password": {Type: "string"},
					"ssl_mode": {
						Type:    "string",
						Enum:    []string{"disable", "require", "verify-ca", "verify-full"},
						Default: "disable",
					},
					"schema": {Type: "string", Default: "public"},
				},
			},
			"dynamodb": {
				Type: "object",
				Properties: map[string]*JSONSchema{
					"region":       {Type: "string", Default: "us-east-1"},
					"endpoint":     {Type: "string", Format: "uri"},
					"table":        {Type: "string", Default: "catalog_kv"},
					"create_table": {Type: "boolean", Default: false},
				},
			},
			"mongodb": {
				Type: "object",
				Properties: map[string]*JSONSchema{
					"uri":        {Type: "string", Default: "mongodb://localhost:27017"},
					"database":   {Type: "string", Default: "catalog"},
					"collection": {Type: "string", Default: "kv"},
				},
			},
			"s3": {
				Type: "object",
				Properties: map[string]*JSONSchema{
					"region":            {Type: "string", Default: "us-east-1"},
					"bucket":            {Type: "string", Default: "catalog"},
					"endpoint":          {Type: "string", Format: "uri"},
					"access_key_id":     {Type: "string"},
					"secret_access_key": {Type: "string"},
					"key_prefix":        {Type: "string", Default: "catalog/"},
				},
			},
			"retry": {
				Type:        "object",
				Description: "Retries of store operations",
				Properties: map[string]*JSONSchema{
					"max_attempts": {
						Type:    "integer",
						Minimum: floatPtr(1),
						Default: 3,
					},
					"initial_delay": durationProp("First retry delay", "50ms"),
					"multiplier": {
						Type:    "number",
						Minimum: floatPtr(1),
						Default: 2.0,
					},
				},
			},
		},
	}
}

func generateLoggingSchema() *JSONSchema {
	return &JSONSchema{
		Type:        "object",
		Description: "Logger settings",
		Properties: map[string]*JSONSchema{
			"level": {
				Type:    "string",
				Enum:    []string{"trace", "debug", "info", "warn", "error"},
				Default: "info",
			},
			"format": {
				Type:    "string",
				Enum:    []string{"console", "json"},
				Default: "console",
			},
		},
	}
}

func generateTelemetrySchema() *JSONSchema {
	return &JSONSchema{
		Type:        "object",
		Description: "Tracing settings",
		Properties: map[string]*JSONSchema{
			"service_name": {
				Type:    "string",
				Default: "mediacatalog",
			},
			"tracing": {
				Type: "object",
				Properties: map[string]*JSONSchema{
					"enabled": {Type: "boolean", Default: false},
					"exporter": {
						Type:    "string",
						Enum:    []string{"otlp", "stdout", "noop"},
						Default: "noop",
					},
					"endpoint": {
						Type:        "string",
						Description: "OTLP gRPC endpoint (e.g., localhost:4317)",
					},
					"insecure": {Type: "boolean", Default: false},
					"sample_rate": {
						Type:    "number",
						Minimum: floatPtr(0),
						Maximum: floatPtr(1),
						Default: 1.0,
					},
				},
			},
		},
	}
}

func durationProp(description, def string) *JSONSchema {
	return &JSONSchema{
		Type:        "string",
		Description: description + " (e.g., '250ms', '5m')",
		Format:      "duration",
		Default:     def,
	}
}

func uriProp(description string, def any) *JSONSchema {
	return &JSONSchema{
		Type:        "string",
		Description: description,
		Format:      "uri",
		Default:     def,
	}
}

func floatPtr(f float64) *float64 {
	return &f
}

// SchemaJSON returns the JSON Schema as a JSON string.
func SchemaJSON() (string, error) {
	schema := GenerateSchema()
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
