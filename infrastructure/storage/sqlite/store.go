package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/felixgeelhaar/mediacatalog/domain/cache"
	"github.com/felixgeelhaar/mediacatalog/domain/clock"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Store is a SQLite-backed cache.Store.
type Store struct {
	db        *sql.DB
	keyPrefix string
	clock     clock.Clock
}

// NewStore opens the database and migrates the schema when configured.
func NewStore(cfg Config, opts ...Option) (*Store, error) {
	for _, opt := range opts {
		opt(&cfg)
	}

	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}

	s := newStore(db, cfg)
	if cfg.AutoMigrate {
		if err := s.migrate(); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return s, nil
}

// NewStoreFromDB wraps an existing connection and migrates the schema.
func NewStoreFromDB(db *sql.DB, keyPrefix string) (*Store, error) {
	s := newStore(db, Config{KeyPrefix: keyPrefix})
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func newStore(db *sql.DB, cfg Config) *Store {
	clk := cfg.Clock
	if clk == nil {
		clk = clock.System{}
	}
	return &Store{db: db, keyPrefix: cfg.KeyPrefix, clock: clk}
}

func (s *Store) migrate() error {
	const schema = `
		CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value BLOB NOT NULL,
			expires_at INTEGER,
			updated_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_kv_expires_at ON kv(expires_at);
	`
	if _, err := s.db.Exec(schema); err != nil {
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
	var expiresAt sql.NullInt64

	err := s.db.QueryRowContext(ctx, "SELECT value, expires_at FROM kv WHERE key = ?", k).Scan(&value, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	if expiresAt.Valid && expiresAt.Int64 <= s.now() {
		_, _ = s.db.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", k)
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
	var expiresAt sql.NullInt64
	if opts.TTL > 0 {
		expiresAt = sql.NullInt64{Int64: now + int64(opts.TTL), Valid: true}
	}
	if value == nil {
		value = []byte{}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, expires_at, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET
		   value = excluded.value,
		   expires_at = excluded.expires_at,
		   updated_at = excluded.updated_at`,
		s.prefixKey(key), value, expiresAt, now,
	)
	return err
}

// Delete removes a value.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", s.prefixKey(key))
	return err
}

// Exists checks if a key holds a live value.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	var one int
	err := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM kv WHERE key = ? AND (expires_at IS NULL OR expires_at > ?)",
		s.prefixKey(key), s.now(),
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Clear removes every key under the store prefix.
func (s *Store) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if s.keyPrefix == "" {
		_, err := s.db.ExecContext(ctx, "DELETE FROM kv")
		return err
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key LIKE ? ESCAPE '\'`, likePrefix(s.keyPrefix))
	return err
}

// Cleanup removes expired rows and returns how many were deleted.
func (s *Store) Cleanup(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	result, err := s.db.ExecContext(ctx,
		"DELETE FROM kv WHERE expires_at IS NOT NULL AND expires_at <= ?", s.now())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func likePrefix(prefix string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(prefix) + "%"
}

var _ cache.Store = (*Store)(nil)
