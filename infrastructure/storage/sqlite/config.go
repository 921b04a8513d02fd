// Package sqlite provides a SQLite-backed key-value store.
package sqlite

import (
	"database/sql"
	"errors"
	"net/url"
	"strconv"
	"strings"

	"github.com/felixgeelhaar/mediacatalog/domain/clock"
)

// Errors
var (
	ErrConnectionFailed = errors.New("sqlite: connection failed")
	ErrMigrationFailed  = errors.New("sqlite: migration failed")
)

// Config locates the database file.
type Config struct {
	// DSN is a go-sqlite3 data source, e.g. "file:catalog.db?mode=rwc".
	DSN string

	// AutoMigrate creates the kv table on open.
	AutoMigrate bool

	// JournalMode and BusyTimeout (ms) are applied to every connection.
	JournalMode string
	BusyTimeout int

	// KeyPrefix namespaces every key this store writes.
	KeyPrefix string

	// Clock decides expiry. Defaults to the system clock.
	Clock clock.Clock
}

// DefaultConfig opens catalog.db in the working directory.
func DefaultConfig() Config {
	return Config{
		DSN:         "file:catalog.db?mode=rwc",
		AutoMigrate: true,
		JournalMode: "WAL",
		BusyTimeout: 5000,
		KeyPrefix:   "catalog:",
	}
}

// Option configures SQLite storage.
type Option func(*Config)

// WithDSN sets the data source name.
func WithDSN(dsn string) Option {
	return func(c *Config) { c.DSN = dsn }
}

// WithJournalMode sets the journal mode, e.g. WAL or DELETE.
func WithJournalMode(mode string) Option {
	return func(c *Config) { c.JournalMode = mode }
}

// WithBusyTimeout sets the busy timeout in milliseconds.
func WithBusyTimeout(ms int) Option {
	return func(c *Config) { c.BusyTimeout = ms }
}

// WithKeyPrefix sets the key prefix.
func WithKeyPrefix(prefix string) Option {
	return func(c *Config) { c.KeyPrefix = prefix }
}

// WithClock sets the clock used for expiry.
func WithClock(clk clock.Clock) Option {
	return func(c *Config) { c.Clock = clk }
}

// dsn adds the journal and busy settings as go-sqlite3 DSN parameters
// unless the DSN already names them.
func (c Config) dsn() string {
	base, query, _ := strings.Cut(c.DSN, "?")
	params, err := url.ParseQuery(query)
	if err != nil {
		return c.DSN
	}
	if c.JournalMode != "" && !params.Has("_journal_mode") && !params.Has("_journal") {
		params.Set("_journal_mode", c.JournalMode)
	}
	if c.BusyTimeout > 0 && !params.Has("_busy_timeout") && !params.Has("_timeout") {
		params.Set("_busy_timeout", strconv.Itoa(c.BusyTimeout))
	}
	if len(params) == 0 {
		return base
	}
	return base + "?" + params.Encode()
}

// openDB uses a single connection so in-memory databases are shared and
// writers never contend inside the process.
func openDB(cfg Config) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", cfg.dsn())
	if err != nil {
		return nil, errors.Join(ErrConnectionFailed, err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.Join(ErrConnectionFailed, err)
	}
	return db, nil
}
