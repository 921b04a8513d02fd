// Package redis provides a Redis-backed key-value store.
package redis

import (
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds the server address and client tuning.
type Config struct {
	Address  string
	Password string
	DB       int

	// Timeout bounds dialing and each read or write.
	Timeout time.Duration

	// MaxRetries is handed to the client for idempotent commands.
	MaxRetries int

	// PoolSize caps open connections.
	PoolSize int

	// KeyPrefix namespaces every key this store writes.
	KeyPrefix string
}

// DefaultConfig targets a local server on the default port.
func DefaultConfig() Config {
	return Config{
		Address:    "localhost:6379",
		Timeout:    3 * time.Second,
		MaxRetries: 2,
		PoolSize:   4,
		KeyPrefix:  "catalog:",
	}
}

// clientOptions translates the config into go-redis options.
func (c Config) clientOptions() *redis.Options {
	return &redis.Options{
		Addr:         c.Address,
		Password:     c.Password,
		DB:           c.DB,
		MaxRetries:   c.MaxRetries,
		DialTimeout:  c.Timeout,
		ReadTimeout:  c.Timeout,
		WriteTimeout: c.Timeout,
		PoolSize:     c.PoolSize,
	}
}

// ConfigOption configures the Redis connection.
type ConfigOption func(*Config)

// WithAddress sets host:port.
func WithAddress(addr string) ConfigOption {
	return func(c *Config) { c.Address = addr }
}

// WithPassword sets the AUTH password.
func WithPassword(password string) ConfigOption {
	return func(c *Config) { c.Password = password }
}

// WithDB selects the database index.
func WithDB(db int) ConfigOption {
	return func(c *Config) { c.DB = db }
}

// WithKeyPrefix sets the key prefix.
func WithKeyPrefix(prefix string) ConfigOption {
	return func(c *Config) { c.KeyPrefix = prefix }
}

// WithTimeout sets the dial and I/O timeout.
func WithTimeout(d time.Duration) ConfigOption {
	return func(c *Config) { c.Timeout = d }
}
