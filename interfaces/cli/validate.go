package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	api "github.com/felixgeelhaar/mediacatalog/interfaces/api"
)

// validateOptions holds options for the validate command.
type validateOptions struct {
	strict     bool
	showSchema bool
	watch      bool
}

// newValidateCmd creates the validate command.
func (a *App) newValidateCmd() *cobra.Command {
	opts := &validateOptions{}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a configuration file",
		Long: `Validate a catalog configuration file for correctness.

This command checks:
  - File format (YAML or JSON)
  - Field types and constraints
  - Backend names for the limiter and comment store
  - Environment variable references and the API key (in strict mode)

Without -c the built-in defaults are validated.

Examples:
  # Validate a configuration file
  catalog validate -c catalog.yaml

  # Strict validation (fail on missing env vars or API key)
  catalog validate -c catalog.yaml --strict

  # Re-validate every time the file is saved
  catalog validate -c catalog.yaml --watch

  # Show the JSON schema for configuration
  catalog validate --schema`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.showSchema {
				return a.showConfigSchema()
			}
			if opts.watch {
				return a.watchConfig(cmd.Context(), opts)
			}
			return a.validateConfig(opts)
		},
	}

	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Enable strict validation (fail on missing env vars or API key)")
	cmd.Flags().BoolVar(&opts.showSchema, "schema", false, "Show JSON schema for configuration")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "Re-validate whenever the configuration file changes")

	return cmd
}

func newValidateLoader(opts *validateOptions) *api.ConfigLoader {
	loaderOpts := []api.ConfigLoaderOption{
		api.ConfigWithValidation(true),
	}
	if opts.strict {
		loaderOpts = append(loaderOpts, api.ConfigWithStrictEnv(true))
	}
	return api.NewConfigLoaderWithOptions(loaderOpts...)
}

// validateConfig validates the configuration file.
func (a *App) validateConfig(opts *validateOptions) error {
	config, err := newValidateLoader(opts).LoadFile(a.configPath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return a.reportConfig(config, opts)
}

// watchConfig validates once, then again on every change until ctx is done.
func (a *App) watchConfig(ctx context.Context, opts *validateOptions) error {
	if a.configPath == "" {
		return fmt.Errorf("--watch needs a configuration file (-c)")
	}
	if err := a.validateConfig(opts); err != nil {
		_, _ = fmt.Fprintf(a.stdout, "✗ %v\n", err)
	}
	_, _ = fmt.Fprintf(a.stderr, "Watching %s (Ctrl+C to stop)\n", a.configPath)

	loader := newValidateLoader(opts)
	return loader.Watch(ctx, a.configPath, func(config *api.CatalogConfig, err error) {
		_, _ = fmt.Fprintln(a.stdout)
		if err == nil {
			err = a.reportConfig(config, opts)
		}
		if err != nil {
			_, _ = fmt.Fprintf(a.stdout, "✗ validation failed: %v\n", err)
		}
	})
}

// reportConfig builds the loaded configuration and prints a summary.
func (a *App) reportConfig(config *api.CatalogConfig, opts *validateOptions) error {
	var builderOpts []api.ConfigBuilderOption
	if !opts.strict {
		builderOpts = append(builderOpts, api.ConfigWithAPIKeyOptional())
	}
	result, err := api.NewConfigBuilder(config, builderOpts...).Build()
	if err != nil {
		return fmt.Errorf("configuration build failed: %w", err)
	}

	_, _ = fmt.Fprintf(a.stdout, "✓ Configuration is valid\n")
	if config.Name != "" {
		_, _ = fmt.Fprintf(a.stdout, "  Name: %s\n", config.Name)
	}
	if config.Version != "" {
		_, _ = fmt.Fprintf(a.stdout, "  Version: %s\n", config.Version)
	}

	_, _ = fmt.Fprintf(a.stdout, "\nConfiguration summary:\n")
	if config.API.Proxy {
		_, _ = fmt.Fprintf(a.stdout, "  API: proxy via %s\n", config.API.ProxyBase)
	} else {
		_, _ = fmt.Fprintf(a.stdout, "  API: %s\n", config.API.BaseURL)
		if result.APIKey == "" {
			_, _ = fmt.Fprintf(a.stdout, "  API key: not set\n")
		} else {
			_, _ = fmt.Fprintf(a.stdout, "  API key: %s\n", api.RedactSecret(result.APIKey))
		}
	}
	_, _ = fmt.Fprintf(a.stdout, "  Fetch: %d attempts, timeout %s\n",
		result.Fetch.Policy.MaxAttempts, result.Fetch.Policy.Timeout)
	_, _ = fmt.Fprintf(a.stdout, "  Rate limit: %s/%s (capacity=%g, refill=%g/s)\n",
		result.RateLimitBackend, result.RateLimitMode, result.RateLimit.Capacity, result.RateLimit.RefillPerSecond)
	if result.CacheMaxEntries > 0 {
		_, _ = fmt.Fprintf(a.stdout, "  Cache: up to %d entries\n", result.CacheMaxEntries)
	} else {
		_, _ = fmt.Fprintf(a.stdout, "  Cache: unbounded\n")
	}
	_, _ = fmt.Fprintf(a.stdout, "  Comments: %s\n", result.Comments.Backend)

	if config.Resilience.CircuitBreaker.Enabled {
		_, _ = fmt.Fprintf(a.stdout, "  Circuit breaker: enabled (threshold=%d)\n",
			config.Resilience.CircuitBreaker.Threshold)
	}
	if config.Telemetry.Tracing.Enabled {
		_, _ = fmt.Fprintf(a.stdout, "  Tracing: %s\n", config.Telemetry.Tracing.Exporter)
	}

	return nil
}

// showConfigSchema displays the JSON schema for configuration.
func (a *App) showConfigSchema() error {
	schemaJSON, err := api.ConfigSchemaJSON()
	if err != nil {
		return fmt.Errorf("failed to generate schema: %w", err)
	}

	_, _ = fmt.Fprintln(a.stdout, schemaJSON)
	return nil
}
