package fetch

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/felixgeelhaar/mediacatalog/domain/catalog"
)

// Policy holds the timeout, retry and backoff parameters of a fetch call.
type Policy struct {
	// Timeout bounds each attempt.
	Timeout time.Duration

	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// TimeoutBackoff is multiplied by the attempt number after a timeout.
	TimeoutBackoff time.Duration

	// ServerBackoff is multiplied by the attempt number after a 5xx or 429
	// without a Retry-After hint.
	ServerBackoff time.Duration

	// TransportBackoff is multiplied by the attempt number after a
	// connection-level failure.
	TransportBackoff time.Duration

	// RetryAfterFallback is waited when Retry-After is present but unparseable.
	RetryAfterFallback time.Duration

	// RetryAfterCap bounds any server-provided wait.
	RetryAfterCap time.Duration

	// MaxErrorBody bounds the body snippet kept on failed responses.
	MaxErrorBody int64

	// MaxBody bounds successful response bodies.
	MaxBody int64
}

// DefaultPolicy returns an 8s timeout with 3 attempts.
func DefaultPolicy() Policy {
	return Policy{
		Timeout:            8 * time.Second,
		MaxAttempts:        3,
		TimeoutBackoff:     200 * time.Millisecond,
		ServerBackoff:      200 * time.Millisecond,
		TransportBackoff:   150 * time.Millisecond,
		RetryAfterFallback: time.Second,
		RetryAfterCap:      60 * time.Second,
		MaxErrorBody:       1024,
		MaxBody:            16 << 20,
	}
}

func (p Policy) withDefaults() Policy {
	d := DefaultPolicy()
	if p.Timeout <= 0 {
		p.Timeout = d.Timeout
	}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = d.MaxAttempts
	}
	if p.TimeoutBackoff < 0 {
		p.TimeoutBackoff = d.TimeoutBackoff
	}
	if p.ServerBackoff < 0 {
		p.ServerBackoff = d.ServerBackoff
	}
	if p.TransportBackoff < 0 {
		p.TransportBackoff = d.TransportBackoff
	}
	if p.RetryAfterFallback <= 0 {
		p.RetryAfterFallback = d.RetryAfterFallback
	}
	if p.RetryAfterCap <= 0 {
		p.RetryAfterCap = d.RetryAfterCap
	}
	if p.MaxErrorBody <= 0 {
		p.MaxErrorBody = d.MaxErrorBody
	}
	if p.MaxBody <= 0 {
		p.MaxBody = d.MaxBody
	}
	return p
}

// ClassifyStatus maps an HTTP status to a failure kind. Zero means success.
func ClassifyStatus(code int) catalog.FailureKind {
	switch {
	case code >= 200 && code < 300:
		return 0
	case code == http.StatusTooManyRequests || code >= 500:
		return catalog.FailureTransientServer
	default:
		return catalog.FailureFatalClient
	}
}

// Backoff returns the wait before the attempt following a failure of kind
// on attempt. retryAfter is the server hint, if any, already parsed.
func (p Policy) Backoff(kind catalog.FailureKind, attempt int, retryAfter time.Duration) time.Duration {
	n := time.Duration(attempt)
	switch kind {
	case catalog.FailureTimeout:
		return p.TimeoutBackoff * n
	case catalog.FailureTransientServer:
		if retryAfter > 0 {
			return min(retryAfter, p.RetryAfterCap)
		}
		return p.ServerBackoff * n
	case catalog.FailureTransport:
		return p.TransportBackoff * n
	default:
		return 0
	}
}

// RetryAfter interprets a Retry-After header value: delta seconds or an
// HTTP date relative to now, capped at RetryAfterCap. An absent header
// yields 0. A header that is unparseable, zero or a past date yields the
// fallback.
func (p Policy) RetryAfter(header string, now time.Time) time.Duration {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0
	}
	d, ok := ParseRetryAfter(header, now)
	if !ok || d <= 0 {
		return p.RetryAfterFallback
	}
	if p.RetryAfterCap > 0 {
		d = min(d, p.RetryAfterCap)
	}
	return d
}

// maxRetryAfterSeconds is the largest delta that fits a time.Duration.
const maxRetryAfterSeconds = math.MaxInt64 / int64(time.Second)

// ParseRetryAfter parses delta seconds or an HTTP date.
func ParseRetryAfter(v string, now time.Time) (time.Duration, bool) {
	v = strings.TrimSpace(v)
	if secs, err := strconv.ParseInt(v, 10, 64); err == nil {
		if secs < 0 {
			return 0, false
		}
		secs = min(secs, maxRetryAfterSeconds)
		return time.Duration(secs) * time.Second, true
	}
	t, err := http.ParseTime(v)
	if err != nil {
		return 0, false
	}
	if d := t.Sub(now); d > 0 {
		return d, true
	}
	return 0, true
}
