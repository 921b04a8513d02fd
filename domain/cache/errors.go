package cache

import "errors"

// Domain errors for store operations.
var (
	// ErrInvalidKey is returned when a key is invalid (e.g., empty).
	ErrInvalidKey = errors.New("invalid store key")

	// ErrConnectionFailed is returned when connection to the store backend fails.
	ErrConnectionFailed = errors.New("store connection failed")

	// ErrOperationTimeout is returned when a store operation times out.
	ErrOperationTimeout = errors.New("store operation timeout")

	// ErrClosed is returned when a store is used after Close.
	ErrClosed = errors.New("store closed")
)
