// Package ratelimit throttles outbound requests with a token bucket.
package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Limiter grants or denies permission for one outbound request.
type Limiter interface {
	// Acquire takes one token. A false result with a nil error is a
	// denial; a non-nil error means ctx ended while waiting.
	Acquire(ctx context.Context) (bool, error)
}

// Mode decides what a denial means for the caller.
type Mode string

// Admission modes.
const (
	// ModeAdvisory logs and counts denials but lets the request proceed.
	ModeAdvisory Mode = "advisory"
	// ModeGate fails the request on denial.
	ModeGate Mode = "gate"
)

// ParseMode parses an admission mode. Empty means advisory.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "", ModeAdvisory:
		return ModeAdvisory, nil
	case ModeGate:
		return ModeGate, nil
	default:
		return "", fmt.Errorf("unknown rate limit mode %q", s)
	}
}

// Backend selects the limiter implementation.
type Backend string

// Limiter backends.
const (
	BackendBucket  Backend = "bucket"
	BackendFortify Backend = "fortify"
)

// Config configures a limiter.
type Config struct {
	// Capacity is the bucket size.
	Capacity float64

	// RefillPerSecond is the number of tokens added per second.
	RefillPerSecond float64

	// RetryWait is the single wait before the second and last try.
	RetryWait time.Duration
}

// DefaultConfig returns 8 tokens refilled at 4 per second with a 250ms retry wait.
func DefaultConfig() Config {
	return Config{
		Capacity:        8,
		RefillPerSecond: 4,
		RetryWait:       250 * time.Millisecond,
	}
}
