package api

import (
	domainconfig "github.com/felixgeelhaar/mediacatalog/domain/config"
	infraconfig "github.com/felixgeelhaar/mediacatalog/infrastructure/config"
	"github.com/felixgeelhaar/mediacatalog/infrastructure/secrets"
)

// Configuration document types, so callers can build a CatalogConfig in code.
type (
	CatalogConfig       = domainconfig.CatalogConfig
	APIConfig           = domainconfig.APIConfig
	FetchConfigSpec     = domainconfig.FetchConfig
	RateLimitConfigSpec = domainconfig.RateLimitConfig
	CacheConfigSpec     = domainconfig.CacheConfig
	TTLConfigSpec       = domainconfig.TTLConfig
	ResilienceConfig    = domainconfig.ResilienceConfig
	CommentsConfig      = domainconfig.CommentsConfig
	LoggingConfigSpec   = domainconfig.LoggingConfig
	TelemetryConfigSpec = domainconfig.TelemetryConfig
	ConfigDuration      = domainconfig.Duration
	ValidationError     = domainconfig.ValidationError
	ValidationErrors    = domainconfig.ValidationErrors
)

// Loading and building.
type (
	ConfigLoader        = infraconfig.Loader
	ConfigLoaderOption  = infraconfig.LoaderOption
	ConfigBuilder       = infraconfig.Builder
	ConfigBuilderOption = infraconfig.BuilderOption
	ConfigBuildResult   = infraconfig.BuildResult
	JSONSchema          = infraconfig.JSONSchema
)

// Formats accepted by ConfigLoader.LoadString.
const (
	ConfigFormatYAML = infraconfig.FormatYAML
	ConfigFormatJSON = infraconfig.FormatJSON
)

// Configuration errors, matchable with errors.Is.
var (
	ErrConfigNotFound    = domainconfig.ErrConfigNotFound
	ErrInvalidFormat     = domainconfig.ErrInvalidFormat
	ErrUnsupportedFormat = domainconfig.ErrUnsupportedFormat
	ErrValidationFailed  = domainconfig.ErrValidationFailed
	ErrMissingEnvVar     = domainconfig.ErrMissingEnvVar
	ErrBuildFailed       = domainconfig.ErrBuildFailed

	// ErrMissingAPIKey means direct mode found no key in the config, the
	// environment or the key file.
	ErrMissingAPIKey = infraconfig.ErrMissingAPIKey
)

// NewConfigLoader returns a loader that expands ${VAR} references and validates.
func NewConfigLoader() *ConfigLoader {
	return infraconfig.NewLoader()
}

// NewConfigLoaderWithOptions returns a loader with opts applied.
func NewConfigLoaderWithOptions(opts ...ConfigLoaderOption) *ConfigLoader {
	return infraconfig.NewLoaderWithOptions(opts...)
}

// ConfigWithEnvExpansion toggles ${VAR} expansion.
func ConfigWithEnvExpansion(enabled bool) ConfigLoaderOption {
	return infraconfig.WithEnvExpansion(enabled)
}

// ConfigWithStrictEnv makes an unset variable without a default an error.
func ConfigWithStrictEnv(enabled bool) ConfigLoaderOption {
	return infraconfig.WithStrictEnv(enabled)
}

// ConfigWithValidation toggles validation after loading.
func ConfigWithValidation(enabled bool) ConfigLoaderOption {
	return infraconfig.WithValidation(enabled)
}

// NewConfigBuilder translates config into component settings.
func NewConfigBuilder(config *CatalogConfig, opts ...ConfigBuilderOption) *ConfigBuilder {
	return infraconfig.NewBuilder(config, opts...)
}

// ConfigWithAPIKeyOptional lets a direct-mode build succeed without a key.
func ConfigWithAPIKeyOptional() ConfigBuilderOption {
	return infraconfig.WithAPIKeyOptional()
}

// ConfigWithLookupEnv replaces os.LookupEnv for API key resolution.
func ConfigWithLookupEnv(lookup func(string) (string, bool)) ConfigBuilderOption {
	return infraconfig.WithLookupEnv(lookup)
}

// DefaultCatalogConfig returns the configuration used when no file is given.
func DefaultCatalogConfig() *CatalogConfig {
	cfg := domainconfig.DefaultConfig()
	return &cfg
}

// GenerateConfigSchema describes CatalogConfig as a JSON Schema.
func GenerateConfigSchema() *JSONSchema {
	return infraconfig.GenerateSchema()
}

// ConfigSchemaJSON renders GenerateConfigSchema as indented JSON.
func ConfigSchemaJSON() (string, error) {
	return infraconfig.SchemaJSON()
}

// RedactSecret masks all but the last four characters of a secret.
func RedactSecret(v string) string {
	return secrets.Redact(v)
}
