// Package badger provides a BadgerDB-backed key-value store.
package badger

import (
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// ErrOpenFailed is returned when the database cannot be opened.
var ErrOpenFailed = errors.New("badger: open failed")

// Config locates the database and tunes value log GC.
type Config struct {
	// Dir holds the LSM tree and value log. Ignored when InMemory is set.
	Dir      string
	InMemory bool

	// SyncWrites fsyncs every commit.
	SyncWrites bool

	// GCInterval runs value log GC periodically. Zero disables it.
	GCInterval     time.Duration
	GCDiscardRatio float64

	// KeyPrefix namespaces every key this store writes.
	KeyPrefix string

	// Logger receives badger's own log output. Nil silences it.
	Logger badger.Logger
}

// DefaultConfig collects garbage every five minutes.
func DefaultConfig() Config {
	return Config{
		GCInterval:     5 * time.Minute,
		GCDiscardRatio: 0.5,
		KeyPrefix:      "catalog:",
	}
}

// Option configures BadgerDB storage.
type Option func(*Config)

// WithDir sets the data directory.
func WithDir(dir string) Option {
	return func(c *Config) { c.Dir = dir }
}

// WithInMemory keeps the database in memory only.
func WithInMemory() Option {
	return func(c *Config) { c.InMemory = true }
}

// WithSyncWrites fsyncs every commit.
func WithSyncWrites() Option {
	return func(c *Config) { c.SyncWrites = true }
}

// WithGCInterval sets the value log GC interval. Zero disables GC.
func WithGCInterval(d time.Duration) Option {
	return func(c *Config) { c.GCInterval = d }
}

// WithKeyPrefix sets the key prefix.
func WithKeyPrefix(prefix string) Option {
	return func(c *Config) { c.KeyPrefix = prefix }
}

func openDB(cfg Config) (*badger.DB, error) {
	opts := badger.DefaultOptions(cfg.Dir).
		WithInMemory(cfg.InMemory).
		WithSyncWrites(cfg.SyncWrites).
		WithNumVersionsToKeep(1).
		WithLogger(cfg.Logger)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Join(ErrOpenFailed, err)
	}
	return db, nil
}
