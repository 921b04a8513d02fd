package config

import "errors"

// Configuration errors. Loader and builder failures wrap one of these.
var (
	ErrConfigNotFound    = errors.New("config: file not found")
	ErrInvalidFormat     = errors.New("config: malformed document")
	ErrUnsupportedFormat = errors.New("config: unsupported file extension")
	ErrValidationFailed  = errors.New("config: validation failed")
	ErrMissingEnvVar     = errors.New("config: required environment variable not set")
	ErrBuildFailed       = errors.New("config: cannot build client")
)
