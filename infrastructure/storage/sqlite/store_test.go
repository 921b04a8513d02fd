package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/felixgeelhaar/mediacatalog/domain/cache"
	"github.com/felixgeelhaar/mediacatalog/domain/clock"
	"github.com/felixgeelhaar/mediacatalog/infrastructure/storage/sqlite"
)

func newTestStore(t *testing.T, opts ...sqlite.Option) *sqlite.Store {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "catalog.db") + "?mode=rwc"
	opts = append([]sqlite.Option{sqlite.WithDSN(dsn)}, opts...)

	s, err := sqlite.NewStore(sqlite.DefaultConfig(), opts...)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_SetAndGet(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Set(ctx, "comments:550", []byte(`[{"text":"hi"}]`), cache.SetOptions{}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, found, err := s.Get(ctx, "comments:550")
	if err != nil || !found {
		t.Fatalf("Get() = %v, %v", found, err)
	}
	if string(got) != `[{"text":"hi"}]` {
		t.Errorf("Get() = %s", got)
	}

	if err := s.Set(ctx, "comments:550", []byte(`[]`), cache.SetOptions{}); err != nil {
		t.Fatalf("Set() overwrite error = %v", err)
	}
	got, _, _ = s.Get(ctx, "comments:550")
	if string(got) != `[]` {
		t.Errorf("overwrite Get() = %s", got)
	}
}

func TestStore_Expiry(t *testing.T) {
	t.Parallel()

	clk := clock.NewManual(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	s := newTestStore(t, sqlite.WithClock(clk))
	ctx := context.Background()

	if err := s.Set(ctx, "k", []byte("v"), cache.SetOptions{TTL: time.Minute}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if ok, _ := s.Exists(ctx, "k"); !ok {
		t.Fatal("fresh key should exist")
	}

	clk.Advance(2 * time.Minute)
	if _, found, _ := s.Get(ctx, "k"); found {
		t.Error("expired key should be absent")
	}
}

func TestStore_Cleanup(t *testing.T) {
	t.Parallel()

	clk := clock.NewManual(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	s := newTestStore(t, sqlite.WithClock(clk))
	ctx := context.Background()

	_ = s.Set(ctx, "short", []byte("v"), cache.SetOptions{TTL: time.Second})
	_ = s.Set(ctx, "forever", []byte("v"), cache.SetOptions{})
	clk.Advance(time.Minute)

	n, err := s.Cleanup(ctx)
	if err != nil {
		t.Fatalf("Cleanup() error = %v", err)
	}
	if n != 1 {
		t.Errorf("Cleanup() = %d, want 1", n)
	}
}

func TestStore_ClearRespectsPrefix(t *testing.T) {
	t.Parallel()

	dsn := "file:" + filepath.Join(t.TempDir(), "shared.db") + "?mode=rwc"
	a, err := sqlite.NewStore(sqlite.DefaultConfig(), sqlite.WithDSN(dsn), sqlite.WithKeyPrefix("a_"))
	if err != nil {
		t.Fatalf("NewStore(a) error = %v", err)
	}
	defer a.Close()
	b, err := sqlite.NewStore(sqlite.DefaultConfig(), sqlite.WithDSN(dsn), sqlite.WithKeyPrefix("ab"))
	if err != nil {
		t.Fatalf("NewStore(b) error = %v", err)
	}
	defer b.Close()

	ctx := context.Background()
	_ = a.Set(ctx, "k", []byte("1"), cache.SetOptions{})
	_ = b.Set(ctx, "k", []byte("2"), cache.SetOptions{})

	if err := a.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if ok, _ := a.Exists(ctx, "k"); ok {
		t.Error("a:k should be cleared")
	}
	if ok, _ := b.Exists(ctx, "k"); !ok {
		t.Error("Clear on prefix a_ must not match ab (underscore is literal)")
	}
}

func TestStore_DeleteAndInvalidKey(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	_ = s.Set(ctx, "k", []byte("v"), cache.SetOptions{})
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if ok, _ := s.Exists(ctx, "k"); ok {
		t.Error("deleted key exists")
	}
	if err := s.Set(ctx, "", []byte("v"), cache.SetOptions{}); err != cache.ErrInvalidKey {
		t.Errorf("Set(empty) error = %v", err)
	}
}
