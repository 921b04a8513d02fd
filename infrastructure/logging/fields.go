package logging

import (
	"strconv"
	"time"

	"github.com/felixgeelhaar/bolt/v3"
)

// Field applies structured data to a log event.
type Field func(*bolt.Event) *bolt.Event

// Str adds a string field.
func Str(key, value string) Field {
	return func(e *bolt.Event) *bolt.Event { return e.Str(key, value) }
}

// Int adds an integer field.
func Int(key string, value int) Field {
	return func(e *bolt.Event) *bolt.Event { return e.Int(key, value) }
}

// Float64 adds a float rendered with two decimals.
func Float64(key string, value float64) Field {
	return Str(key, strconv.FormatFloat(value, 'f', 2, 64))
}

func millis(key string, d time.Duration) Field {
	return func(e *bolt.Event) *bolt.Event { return e.Int64(key, d.Milliseconds()) }
}

// Operation names the query kind: media, details, search, videos or season.
func Operation(op string) Field { return Str("operation", op) }

// CacheKey adds the response cache key.
func CacheKey(key string) Field { return Str("cache_key", key) }

// URL adds a request URL with its api_key parameter redacted.
func URL(u string) Field { return Str("url", RedactURL(u)) }

// Attempt adds the 1-based fetch attempt.
func Attempt(n int) Field { return Int("attempt", n) }

// Status adds an HTTP status code.
func Status(code int) Field { return Int("status", code) }

// Duration adds an elapsed time as duration_ms.
func Duration(d time.Duration) Field { return millis("duration_ms", d) }

// Backoff adds a retry wait as backoff_ms.
func Backoff(d time.Duration) Field { return millis("backoff_ms", d) }

// Component tags the emitting package.
func Component(name string) Field { return Str("component", name) }

// FromState and ToState describe a fetch machine transition.
func FromState(s string) Field { return Str("from_state", s) }

// ToState is the state a transition entered.
func ToState(s string) Field { return Str("to_state", s) }

// Cached reports whether a result came from the response cache.
func Cached(cached bool) Field {
	return func(e *bolt.Event) *bolt.Event { return e.Bool("cached", cached) }
}

// ErrorField adds err. A nil error adds nothing.
func ErrorField(err error) Field {
	return func(e *bolt.Event) *bolt.Event {
		if err == nil {
			return e
		}
		return e.Err(err)
	}
}
