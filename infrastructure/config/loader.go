// Package config loads catalog client configuration and turns it into
// component settings.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/mediacatalog/domain/config"
)

// Loader reads a CatalogConfig from YAML or JSON.
type Loader struct {
	ExpandEnv bool // expand ${VAR}, ${VAR:-default} and ${VAR:?msg}
	StrictEnv bool // an unset ${VAR} without default is an error
	Validate  bool // run config.Validator after decoding
}

// NewLoader expands and validates, tolerating unset variables.
func NewLoader() *Loader {
	return &Loader{ExpandEnv: true, Validate: true}
}

// LoaderOption configures the loader.
type LoaderOption func(*Loader)

// WithEnvExpansion toggles variable expansion.
func WithEnvExpansion(enabled bool) LoaderOption {
	return func(l *Loader) { l.ExpandEnv = enabled }
}

// WithStrictEnv toggles strict variable checking.
func WithStrictEnv(enabled bool) LoaderOption {
	return func(l *Loader) { l.StrictEnv = enabled }
}

// WithValidation toggles validation.
func WithValidation(enabled bool) LoaderOption {
	return func(l *Loader) { l.Validate = enabled }
}

// NewLoaderWithOptions returns NewLoader with opts applied.
func NewLoaderWithOptions(opts ...LoaderOption) *Loader {
	l := NewLoader()
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Format is a configuration document encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFromPath infers the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %s", config.ErrUnsupportedFormat, ext)
	}
}

// LoadFile loads configuration from a file path. An empty path yields
// the defaults.
func (l *Loader) LoadFile(path string) (*config.CatalogConfig, error) {
	if path == "" {
		return l.LoadDefault()
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", config.ErrInvalidFormat, path)
	}

	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return l.LoadBytes(data, format)
}

// LoadDefault returns the default configuration, validated.
func (l *Loader) LoadDefault() (*config.CatalogConfig, error) {
	cfg := config.DefaultConfig()
	if err := l.validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Load reads a document from r. See LoadBytes.
func (l *Loader) Load(r io.Reader, format Format) (*config.CatalogConfig, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return l.LoadBytes(data, format)
}

// LoadString decodes content. See LoadBytes.
func (l *Loader) LoadString(content string, format Format) (*config.CatalogConfig, error) {
	return l.LoadBytes([]byte(content), format)
}

// LoadBytes decodes data over the defaults, so a partial document is a
// complete configuration, then validates the result.
func (l *Loader) LoadBytes(data []byte, format Format) (*config.CatalogConfig, error) {
	if l.ExpandEnv {
		expanded, err := (&envExpander{strict: l.StrictEnv}).Expand(string(data))
		if err != nil {
			return nil, err
		}
		data = []byte(expanded)
	}

	cfg := config.DefaultConfig()
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("%w: %v", config.ErrInvalidFormat, err)
		}
	case FormatJSON:
		if len(bytes.TrimSpace(data)) > 0 {
			if err := json.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("%w: %v", config.ErrInvalidFormat, err)
			}
		}
	default:
		return nil, fmt.Errorf("%w: %s", config.ErrUnsupportedFormat, format)
	}

	if err := l.validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (l *Loader) validate(cfg *config.CatalogConfig) error {
	if !l.Validate {
		return nil
	}
	if errs := config.NewValidator().Validate(cfg); errs.HasErrors() {
		return fmt.Errorf("%w: %v", config.ErrValidationFailed, errs)
	}
	return nil
}
