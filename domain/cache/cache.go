// Package cache defines the response cache and the byte key-value store
// used for comments.
package cache

import (
	"context"
	"time"

	"github.com/felixgeelhaar/mediacatalog/domain/catalog"
)

// Entry is one cached response.
type Entry struct {
	StoredAt time.Time
	TTL      time.Duration
	Payload  catalog.Payload
}

// Age returns how long ago the entry was stored.
func (e Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.StoredAt)
}

// Expired reports whether the entry is stale at now. An entry whose age
// equals its TTL is still fresh.
func (e Entry) Expired(now time.Time) bool {
	return e.Age(now) > e.TTL
}

// ResponseCache maps query cache keys to payloads.
type ResponseCache interface {
	// Get returns the payload stored under key. Stale entries are evicted
	// and reported absent.
	Get(key string) (catalog.Payload, bool)

	// Set stores payload under key, replacing any previous entry.
	Set(key string, payload catalog.Payload, ttl time.Duration)
}

// Store is a byte key-value store. Implementations live under
// infrastructure/storage.
type Store interface {
	// Get retrieves a value by key.
	// Returns the value, whether it was found, and any error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value with the given key and options.
	Set(ctx context.Context, key string, value []byte, opts SetOptions) error

	// Delete removes an entry by key.
	Delete(ctx context.Context, key string) error

	// Exists checks if a key exists.
	Exists(ctx context.Context, key string) (bool, error)

	// Clear removes all entries.
	Clear(ctx context.Context) error
}

// SetOptions configures how a value is stored.
type SetOptions struct {
	// TTL is the time-to-live for the entry.
	// Zero means no expiration.
	TTL time.Duration
}

// Stats provides cache statistics.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	// Expired counts entries dropped because they outlived their TTL.
	Expired int64
	Size    int64
	// MaxSize is the maximum number of entries (0 = unlimited).
	MaxSize int64
}

// HitRatio returns hits over lookups, or 0 before the first lookup.
func (s Stats) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// StatsProvider is an optional interface for caches that report statistics.
type StatsProvider interface {
	Stats() Stats
}
