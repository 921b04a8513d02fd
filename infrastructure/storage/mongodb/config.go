// Package mongodb provides a MongoDB-backed key-value store.
package mongodb

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/felixgeelhaar/mediacatalog/domain/cache"
	"github.com/felixgeelhaar/mediacatalog/domain/clock"
)

// Config locates the kv collection.
type Config struct {
	URI        string
	Database   string
	Collection string

	// ConnectTimeout bounds the dial and the initial ping.
	ConnectTimeout time.Duration

	// QueryTimeout bounds every store operation.
	QueryTimeout time.Duration

	MaxPoolSize uint64

	// KeyPrefix namespaces document ids in a shared collection.
	KeyPrefix string

	// Clock decides expiry. Defaults to the system clock.
	Clock clock.Clock
}

// DefaultConfig targets a local mongod.
func DefaultConfig() Config {
	return Config{
		URI:            "mongodb://localhost:27017",
		Database:       "catalog",
		Collection:     "kv",
		ConnectTimeout: 10 * time.Second,
		QueryTimeout:   10 * time.Second,
		MaxPoolSize:    8,
		KeyPrefix:      "catalog:",
	}
}

// ConfigOption configures the store.
type ConfigOption func(*Config)

// WithURI sets the MongoDB connection URI.
func WithURI(uri string) ConfigOption {
	return func(c *Config) { c.URI = uri }
}

// WithDatabase sets the database name.
func WithDatabase(db string) ConfigOption {
	return func(c *Config) { c.Database = db }
}

// WithCollection sets the collection name.
func WithCollection(name string) ConfigOption {
	return func(c *Config) { c.Collection = name }
}

// WithQueryTimeout sets the default query timeout.
func WithQueryTimeout(d time.Duration) ConfigOption {
	return func(c *Config) { c.QueryTimeout = d }
}

// WithKeyPrefix sets the key prefix.
func WithKeyPrefix(prefix string) ConfigOption {
	return func(c *Config) { c.KeyPrefix = prefix }
}

// WithClock sets the clock used for expiry.
func WithClock(clk clock.Clock) ConfigOption {
	return func(c *Config) { c.Clock = clk }
}

// connect dials MongoDB and verifies the connection.
func connect(ctx context.Context, cfg Config) (*mongo.Client, error) {
	clientOpts := options.Client().
		ApplyURI(cfg.URI).
		SetMaxPoolSize(cfg.MaxPoolSize)

	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, clientOpts)
	if err != nil {
		return nil, errors.Join(cache.ErrConnectionFailed, err)
	}

	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Join(cache.ErrConnectionFailed, err)
	}
	return client, nil
}
