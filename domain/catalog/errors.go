package catalog

import (
	"errors"
	"fmt"
	"time"
)

// Fetch failure sentinels. A *FetchError matches exactly one of these
// through errors.Is.
var (
	// ErrTimeout indicates an attempt exceeded its deadline.
	ErrTimeout = errors.New("request timed out")

	// ErrTransientServer indicates a 5xx or 429 response.
	ErrTransientServer = errors.New("transient server error")

	// ErrFatalClient indicates a non-retryable 4xx response.
	ErrFatalClient = errors.New("client error")

	// ErrTransport indicates the request never produced a response.
	ErrTransport = errors.New("transport error")

	// ErrExhaustedRetries indicates every allowed attempt failed.
	ErrExhaustedRetries = errors.New("retries exhausted")

	// ErrDecode indicates a successful response whose body could not be decoded.
	ErrDecode = errors.New("response decode failed")

	// ErrCanceled indicates the caller abandoned the request.
	ErrCanceled = errors.New("request canceled")
)

// Query layer errors.
var (
	// ErrRateLimited is returned in gate mode when no token could be acquired,
	// and when the fetch queue is full.
	ErrRateLimited = errors.New("rate limited")

	// ErrInvalidArgument indicates a missing or malformed operation argument.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidImageSize indicates an image size outside the supported set.
	ErrInvalidImageSize = errors.New("invalid image size")

	// ErrUnknownPage indicates a page name without a section layout.
	ErrUnknownPage = errors.New("unknown page")

	// ErrEmptyComment indicates a comment with no text.
	ErrEmptyComment = errors.New("comment text is empty")
)

// FailureKind classifies a failed fetch.
type FailureKind int

// Failure kinds.
const (
	FailureTimeout FailureKind = iota + 1
	FailureTransientServer
	FailureFatalClient
	FailureTransport
	FailureDecode
	FailureCanceled
	FailureExhausted
)

var failureSentinels = map[FailureKind]error{
	FailureTimeout:         ErrTimeout,
	FailureTransientServer: ErrTransientServer,
	FailureFatalClient:     ErrFatalClient,
	FailureTransport:       ErrTransport,
	FailureDecode:          ErrDecode,
	FailureCanceled:        ErrCanceled,
	FailureExhausted:       ErrExhaustedRetries,
}

// Sentinel returns the sentinel error matching this kind.
func (k FailureKind) Sentinel() error {
	return failureSentinels[k]
}

// Retryable reports whether another attempt may succeed.
func (k FailureKind) Retryable() bool {
	switch k {
	case FailureTimeout, FailureTransientServer, FailureTransport:
		return true
	default:
		return false
	}
}

// String returns a short name for the kind.
func (k FailureKind) String() string {
	switch k {
	case FailureTimeout:
		return "timeout"
	case FailureTransientServer:
		return "transient_server"
	case FailureFatalClient:
		return "fatal_client"
	case FailureTransport:
		return "transport"
	case FailureDecode:
		return "decode"
	case FailureCanceled:
		return "canceled"
	case FailureExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// FetchError describes a failed fetch. For FailureExhausted, Err holds the
// last attempt's error so errors.Is also matches the underlying kind.
type FetchError struct {
	Kind       FailureKind
	URL        string
	Attempt    int
	Status     int
	Body       string
	RetryAfter time.Duration
	Err        error
}

// Error implements error.
func (e *FetchError) Error() string {
	msg := fmt.Sprintf("%s (attempt %d)", e.Kind.Sentinel(), e.Attempt)
	if e.Status != 0 {
		msg = fmt.Sprintf("%s: HTTP %d", msg, e.Status)
	}
	if e.Body != "" {
		msg = fmt.Sprintf("%s - %s", msg, e.Body)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind.
func (e *FetchError) Is(target error) bool {
	s := e.Kind.Sentinel()
	return s != nil && target == s
}

// Retryable reports whether the failure may succeed on another attempt.
func (e *FetchError) Retryable() bool {
	return e.Kind.Retryable()
}

// AsFetchError extracts a *FetchError from an error chain.
func AsFetchError(err error) (*FetchError, bool) {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}
