package postgres

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/felixgeelhaar/mediacatalog/domain/cache"
	"github.com/felixgeelhaar/mediacatalog/domain/clock"
)

type fakeRow struct {
	value     []byte
	expiresAt *int64
	err       error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	switch len(dest) {
	case 1:
		*dest[0].(*int) = 1
	case 2:
		*dest[0].(*[]byte) = r.value
		*dest[1].(**int64) = r.expiresAt
	}
	return nil
}

type fakeRecord struct {
	value     []byte
	expiresAt *int64
}

// fakeDB answers the statements Store issues against an in-memory table.
type fakeDB struct {
	mu      sync.Mutex
	rows    map[string]fakeRecord
	queries []string
	execErr error
}

func newFakeDB() *fakeDB {
	return &fakeDB{rows: make(map[string]fakeRecord)}
}

func (db *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.queries = append(db.queries, sql)
	if db.execErr != nil {
		return pgconn.CommandTag{}, db.execErr
	}

	q := strings.TrimSpace(sql)
	switch {
	case strings.HasPrefix(q, "CREATE TABLE"):
		return pgconn.NewCommandTag("CREATE TABLE"), nil
	case strings.HasPrefix(q, "INSERT INTO"):
		db.rows[args[0].(string)] = fakeRecord{value: args[1].([]byte), expiresAt: args[2].(*int64)}
		return pgconn.NewCommandTag("INSERT 0 1"), nil
	case strings.Contains(q, "WHERE key LIKE"):
		prefix := strings.NewReplacer(`\_`, "_", `\%`, "%", `\\`, `\`).Replace(strings.TrimSuffix(args[0].(string), "%"))
		for k := range db.rows {
			if strings.HasPrefix(k, prefix) {
				delete(db.rows, k)
			}
		}
	case strings.Contains(q, "WHERE key = $1"):
		delete(db.rows, args[0].(string))
	case strings.HasPrefix(q, "DELETE FROM"):
		db.rows = make(map[string]fakeRecord)
	}
	return pgconn.NewCommandTag("DELETE"), nil
}

func (db *fakeDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.queries = append(db.queries, sql)

	rec, ok := db.rows[args[0].(string)]
	if !ok {
		return fakeRow{err: pgx.ErrNoRows}
	}
	if strings.HasPrefix(sql, "SELECT 1") {
		now := args[1].(int64)
		if rec.expiresAt != nil && *rec.expiresAt <= now {
			return fakeRow{err: pgx.ErrNoRows}
		}
	}
	return fakeRow{value: rec.value, expiresAt: rec.expiresAt}
}

func (db *fakeDB) size() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.rows)
}

func newTestStore(t *testing.T, prefix string) (*Store, *fakeDB, *clock.Manual) {
	t.Helper()
	db := newFakeDB()
	clk := clock.NewManual(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	s := NewStoreFromQuerier(db, Config{KeyPrefix: prefix, Clock: clk})
	return s, db, clk
}

func TestNewStoreFromQuerier(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		schema string
		want   string
	}{
		{"default schema", "", "public.kv"},
		{"custom schema", "media", "media.kv"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := NewStoreFromQuerier(newFakeDB(), Config{Schema: tt.schema})
			if got := s.tableName(); got != tt.want {
				t.Errorf("tableName() = %s, want %s", got, tt.want)
			}
			if err := s.Close(); err != nil {
				t.Errorf("Close() error = %v", err)
			}
		})
	}
}

func TestStore_Migrate(t *testing.T) {
	t.Parallel()

	s, db, _ := newTestStore(t, "")
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if len(db.queries) != 1 || !strings.Contains(db.queries[0], "CREATE TABLE IF NOT EXISTS public.kv") {
		t.Errorf("queries = %v", db.queries)
	}

	db.execErr = errors.New("permission denied")
	if err := s.Migrate(context.Background()); !errors.Is(err, ErrMigrationFailed) {
		t.Errorf("Migrate() error = %v, want ErrMigrationFailed", err)
	}
}

func TestStore_SetAndGet(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, db, _ := newTestStore(t, "catalog:")

	if _, ok, err := s.Get(ctx, "comments:603"); err != nil || ok {
		t.Fatalf("Get() on empty store = %v, %v", ok, err)
	}
	if err := s.Set(ctx, "comments:603", []byte(`[]`), cache.SetOptions{}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if _, ok := db.rows["catalog:comments:603"]; !ok {
		t.Errorf("row not stored under prefixed key: %v", db.rows)
	}

	got, ok, err := s.Get(ctx, "comments:603")
	if err != nil || !ok {
		t.Fatalf("Get() = %v, %v", ok, err)
	}
	if string(got) != `[]` {
		t.Errorf("Get() = %s, want []", got)
	}

	exists, err := s.Exists(ctx, "comments:603")
	if err != nil || !exists {
		t.Errorf("Exists() = %v, %v", exists, err)
	}
}

func TestStore_Expiry(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, db, clk := newTestStore(t, "")

	if err := s.Set(ctx, "k", []byte("v"), cache.SetOptions{TTL: time.Minute}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	clk.Advance(59 * time.Second)
	if _, ok, _ := s.Get(ctx, "k"); !ok {
		t.Fatal("entry expired early")
	}

	clk.Advance(time.Second)
	if exists, _ := s.Exists(ctx, "k"); exists {
		t.Error("Exists() = true after expiry")
	}
	if _, ok, _ := s.Get(ctx, "k"); ok {
		t.Error("Get() found expired entry")
	}
	if db.size() != 0 {
		t.Errorf("expired row not deleted, size = %d", db.size())
	}
}

func TestStore_ClearRespectsPrefix(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, db, _ := newTestStore(t, "a_")
	db.rows["other"] = fakeRecord{value: []byte("x")}

	for _, k := range []string{"one", "two"} {
		if err := s.Set(ctx, k, []byte("v"), cache.SetOptions{}); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
	}
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if db.size() != 1 {
		t.Errorf("size after Clear = %d, want 1", db.size())
	}
	if got := likePrefix("a_"); got != `a\_%` {
		t.Errorf("likePrefix() = %s", got)
	}
}

func TestStore_DeleteAndInvalidKey(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, db, _ := newTestStore(t, "")

	if err := s.Set(ctx, "", []byte("v"), cache.SetOptions{}); !errors.Is(err, cache.ErrInvalidKey) {
		t.Errorf("Set(\"\") error = %v, want ErrInvalidKey", err)
	}
	_ = s.Set(ctx, "k", []byte("v"), cache.SetOptions{})
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if db.size() != 0 {
		t.Errorf("size after Delete = %d", db.size())
	}
}

func TestStore_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s, db, _ := newTestStore(t, "")

	if _, _, err := s.Get(ctx, "k"); !errors.Is(err, context.Canceled) {
		t.Errorf("Get() error = %v, want context.Canceled", err)
	}
	if err := s.Set(ctx, "k", nil, cache.SetOptions{}); !errors.Is(err, context.Canceled) {
		t.Errorf("Set() error = %v, want context.Canceled", err)
	}
	if len(db.queries) != 0 {
		t.Errorf("queries issued on canceled context: %v", db.queries)
	}
}

func TestWrapError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"deadline", context.DeadlineExceeded, cache.ErrOperationTimeout},
		{"canceled", context.Canceled, context.Canceled},
		{"network", errors.New("connection refused"), cache.ErrConnectionFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := wrapError(tt.err); !errors.Is(got, tt.want) {
				t.Errorf("wrapError() = %v, want %v", got, tt.want)
			}
		})
	}

	pgErr := &pgconn.PgError{Code: "42P01"}
	if got := wrapError(pgErr); errors.Is(got, cache.ErrConnectionFailed) {
		t.Errorf("wrapError(PgError) = %v, want unwrapped", got)
	}
	if wrapError(nil) != nil {
		t.Error("wrapError(nil) != nil")
	}
}
