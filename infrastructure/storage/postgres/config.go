// Package postgres provides a PostgreSQL-backed key-value store.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/felixgeelhaar/mediacatalog/domain/cache"
	"github.com/felixgeelhaar/mediacatalog/domain/clock"
)

// Config holds the comment table location and pool settings.
type Config struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string

	// SSLMode is one of disable, require, verify-ca or verify-full.
	SSLMode string

	// MaxConns caps the pool. Comment writes are rare, a few connections do.
	MaxConns int32

	// ConnectTimeout bounds dialing and the initial ping.
	ConnectTimeout time.Duration

	// Schema holds the kv table.
	Schema string

	// AutoMigrate creates the kv table on open.
	AutoMigrate bool

	// KeyPrefix namespaces keys inside a shared table.
	KeyPrefix string

	// Clock decides expiry. Defaults to the system clock.
	Clock clock.Clock
}

// DefaultConfig targets a local server with the catalog database.
func DefaultConfig() Config {
	return Config{
		Host:           "localhost",
		Port:           5432,
		Database:       "catalog",
		User:           "postgres",
		SSLMode:        "disable",
		MaxConns:       4,
		ConnectTimeout: 10 * time.Second,
		Schema:         "public",
		AutoMigrate:    true,
		KeyPrefix:      "catalog:",
	}
}

// URL renders the config as a postgres:// connection URL. Credentials
// are percent-encoded so any password survives.
func (c Config) URL() string {
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   "/" + c.Database,
	}
	if c.Password != "" {
		u.User = url.UserPassword(c.User, c.Password)
	} else if c.User != "" {
		u.User = url.User(c.User)
	}
	if c.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {c.SSLMode}}.Encode()
	}
	return u.String()
}

// ConfigOption configures the PostgreSQL connection.
type ConfigOption func(*Config)

// WithHost sets the server host.
func WithHost(host string) ConfigOption {
	return func(c *Config) { c.Host = host }
}

// WithPort sets the server port.
func WithPort(port int) ConfigOption {
	return func(c *Config) { c.Port = port }
}

// WithDatabase sets the database name.
func WithDatabase(db string) ConfigOption {
	return func(c *Config) { c.Database = db }
}

// WithCredentials sets the login.
func WithCredentials(user, password string) ConfigOption {
	return func(c *Config) {
		c.User = user
		c.Password = password
	}
}

// WithSSLMode sets the SSL mode.
func WithSSLMode(mode string) ConfigOption {
	return func(c *Config) { c.SSLMode = mode }
}

// WithMaxConns caps the pool size.
func WithMaxConns(n int32) ConfigOption {
	return func(c *Config) { c.MaxConns = n }
}

// WithSchema sets the schema holding the kv table.
func WithSchema(schema string) ConfigOption {
	return func(c *Config) { c.Schema = schema }
}

// WithKeyPrefix sets the key prefix.
func WithKeyPrefix(prefix string) ConfigOption {
	return func(c *Config) { c.KeyPrefix = prefix }
}

// WithClock sets the clock used for expiry.
func WithClock(clk clock.Clock) ConfigOption {
	return func(c *Config) { c.Clock = clk }
}

// NewPool opens a pool and pings the server once.
func NewPool(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL())
	if err != nil {
		return nil, fmt.Errorf("parsing postgres url: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.ConnectTimeout > 0 {
		poolCfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, errors.Join(cache.ErrConnectionFailed, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Join(cache.ErrConnectionFailed, err)
	}
	return pool, nil
}
