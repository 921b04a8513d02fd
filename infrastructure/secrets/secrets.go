// Package secrets resolves named secrets such as the API key from the
// environment or from mounted files.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrSecretNotFound is returned when a source has no value for a name.
var ErrSecretNotFound = errors.New("secret not found")

// Source resolves a secret by name.
type Source interface {
	Get(ctx context.Context, name string) (string, error)
}

// Env reads secrets from environment variables through Lookup.
type Env struct {
	// Lookup defaults to os.LookupEnv.
	Lookup func(string) (string, bool)
}

// Get implements Source. Empty values count as missing.
func (e Env) Get(_ context.Context, name string) (string, error) {
	lookup := e.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if v, ok := lookup(name); ok && v != "" {
		return v, nil
	}
	return "", fmt.Errorf("%w: environment variable %s", ErrSecretNotFound, name)
}

// File reads one secret from a file such as /run/secrets/tmdb_api_key.
// The name is ignored and surrounding whitespace is trimmed.
type File struct {
	Path string
}

// Get implements Source.
func (f File) Get(_ context.Context, _ string) (string, error) {
	if f.Path == "" {
		return "", ErrSecretNotFound
	}
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("%w: file %s", ErrSecretNotFound, f.Path)
	}
	if err != nil {
		return "", fmt.Errorf("reading secret file: %w", err)
	}
	v := strings.TrimSpace(string(data))
	if v == "" {
		return "", fmt.Errorf("%w: file %s is empty", ErrSecretNotFound, f.Path)
	}
	return v, nil
}

// Chain tries each source in order. A source reporting ErrSecretNotFound
// passes to the next; any other error stops the chain.
type Chain []Source

// Get implements Source.
func (c Chain) Get(ctx context.Context, name string) (string, error) {
	for _, src := range c {
		v, err := src.Get(ctx, name)
		if err == nil {
			return v, nil
		}
		if !errors.Is(err, ErrSecretNotFound) {
			return "", err
		}
	}
	return "", ErrSecretNotFound
}

// Redact masks all but the last four characters of v.
func Redact(v string) string {
	if len(v) <= 4 {
		return strings.Repeat("*", len(v))
	}
	return strings.Repeat("*", len(v)-4) + v[len(v)-4:]
}
