package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/felixgeelhaar/mediacatalog/domain/cache"
	"github.com/felixgeelhaar/mediacatalog/domain/clock"
)

// ErrMigrationFailed is returned when the kv table cannot be created.
var ErrMigrationFailed = errors.New("postgres: migration failed")

// Querier is the subset of *pgxpool.Pool the store uses.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is a PostgreSQL-backed cache.Store.
type Store struct {
	db        Querier
	pool      *pgxpool.Pool
	schema    string
	keyPrefix string
	clock     clock.Clock
}

// NewStore connects to PostgreSQL and migrates the schema when configured.
func NewStore(ctx context.Context, cfg Config, opts ...ConfigOption) (*Store, error) {
	for _, opt := range opts {
		opt(&cfg)
	}

	pool, err := NewPool(ctx, cfg)
	if err != nil {
		return nil, err
	}

	s := NewStoreFromQuerier(pool, cfg)
	s.pool = pool
	if cfg.AutoMigrate {
		if err := s.Migrate(ctx); err != nil {
			pool.Close()
			return nil, err
		}
	}
	return s, nil
}

// NewStoreFromQuerier wraps an existing pool or connection.
func NewStoreFromQuerier(db Querier, cfg Config) *Store {
	schema := cfg.Schema
	if schema == "" {
		schema = "public"
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.System{}
	}
	return &Store{
		db:        db,
		schema:    schema,
		keyPrefix: cfg.KeyPrefix,
		clock:     clk,
	}
}

// tableName returns the fully qualified table name.
func (s *Store) tableName() string {
	return fmt.Sprintf("%s.kv", s.schema)
}

// Migrate creates the kv table and its expiry index.
func (s *Store) Migrate(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]s (
			key TEXT PRIMARY KEY,
			value BYTEA NOT NULL,
			expires_at BIGINT,
			updated_at BIGINT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS %[2]s_kv_expires_at ON %[1]s (expires_at);
	`, s.tableName(), s.schema)
	if _, err := s.db.Exec(ctx, query); err != nil {
		return errors.Join(ErrMigrationFailed, err)
	}
	return nil
}

func (s *Store) prefixKey(key string) string {
	return s.keyPrefix + key
}

func (s *Store) now() int64 {
	return s.clock.Now().UnixNano()
}

// Get retrieves a value. Expired rows are deleted on read.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	k := s.prefixKey(key)
	var value []byte
	var expiresAt *int64

	query := fmt.Sprintf("SELECT value, expires_at FROM %s WHERE key = $1", s.tableName())
	err := s.db.QueryRow(ctx, query, k).Scan(&value, &expiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, wrapError(err)
	}

	if expiresAt != nil && *expiresAt <= s.now() {
		_, _ = s.db.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE key = $1", s.tableName()), k)
		return nil, false, nil
	}
	return value, true, nil
}

// Set stores a value.
func (s *Store) Set(ctx context.Context, key string, value []byte, opts cache.SetOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if key == "" {
		return cache.ErrInvalidKey
	}

	now := s.now()
	var expiresAt *int64
	if opts.TTL > 0 {
		exp := now + int64(opts.TTL)
		expiresAt = &exp
	}
	if value == nil {
		value = []byte{}
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (key, value, expires_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			expires_at = EXCLUDED.expires_at,
			updated_at = EXCLUDED.updated_at
	`, s.tableName())
	_, err := s.db.Exec(ctx, query, s.prefixKey(key), value, expiresAt, now)
	return wrapError(err)
}

// Delete removes a value.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.db.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE key = $1", s.tableName()), s.prefixKey(key))
	return wrapError(err)
}

// Exists checks if a key holds a live value.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	var one int
	query := fmt.Sprintf(
		"SELECT 1 FROM %s WHERE key = $1 AND (expires_at IS NULL OR expires_at > $2)", s.tableName())
	err := s.db.QueryRow(ctx, query, s.prefixKey(key), s.now()).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, wrapError(err)
	}
	return true, nil
}

// Clear removes every key under the store prefix.
func (s *Store) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if s.keyPrefix == "" {
		_, err := s.db.Exec(ctx, fmt.Sprintf("DELETE FROM %s", s.tableName()))
		return wrapError(err)
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE key LIKE $1 ESCAPE '\'`, s.tableName())
	_, err := s.db.Exec(ctx, query, likePrefix(s.keyPrefix))
	return wrapError(err)
}

// Close releases the pool when the store owns one.
func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

func likePrefix(prefix string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(prefix) + "%"
}

// wrapError wraps database errors with store errors.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return errors.Join(cache.ErrOperationTimeout, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return err
	}
	return errors.Join(cache.ErrConnectionFailed, err)
}

var _ cache.Store = (*Store)(nil)
