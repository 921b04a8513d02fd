package mongodb

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/felixgeelhaar/mediacatalog/domain/cache"
	"github.com/felixgeelhaar/mediacatalog/domain/clock"
)

// fakeCollection keeps documents in a map keyed on _id.
type fakeCollection struct {
	mu      sync.Mutex
	docs    map[string]kvDocument
	upserts int
	err     error
}

func newFakeCollection() *fakeCollection {
	return &fakeCollection{docs: make(map[string]kvDocument)}
}

func idOf(filter any) string {
	return filter.(bson.M)["_id"].(string)
}

func (c *fakeCollection) FindOne(_ context.Context, filter any, _ ...*options.FindOneOptions) *mongo.SingleResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return mongo.NewSingleResultFromDocument(bson.D{}, c.err, nil)
	}
	doc, ok := c.docs[idOf(filter)]
	if !ok {
		return mongo.NewSingleResultFromDocument(bson.D{}, mongo.ErrNoDocuments, nil)
	}
	return mongo.NewSingleResultFromDocument(doc, nil, nil)
}

func (c *fakeCollection) UpdateOne(_ context.Context, filter any, update any, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	if len(opts) == 1 && opts[0].Upsert != nil && *opts[0].Upsert {
		c.upserts++
	}
	c.docs[idOf(filter)] = update.(bson.M)["$set"].(kvDocument)
	return &mongo.UpdateResult{MatchedCount: 1}, nil
}

func (c *fakeCollection) DeleteOne(_ context.Context, filter any, _ ...*options.DeleteOptions) (*mongo.DeleteResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.docs, idOf(filter))
	return &mongo.DeleteResult{DeletedCount: 1}, nil
}

func (c *fakeCollection) DeleteMany(_ context.Context, filter any, _ ...*options.DeleteOptions) (*mongo.DeleteResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	match := func(string) bool { return true }
	if cond, ok := filter.(bson.M)["_id"]; ok {
		re := regexp.MustCompile(cond.(bson.M)["$regex"].(string))
		match = re.MatchString
	}
	var n int64
	for k := range c.docs {
		if match(k) {
			delete(c.docs, k)
			n++
		}
	}
	return &mongo.DeleteResult{DeletedCount: n}, nil
}

func (c *fakeCollection) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.docs)
}

func newTestStore(t *testing.T, prefix string) (*Store, *fakeCollection, *clock.Manual) {
	t.Helper()
	coll := newFakeCollection()
	clk := clock.NewManual(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	cfg := DefaultConfig()
	cfg.KeyPrefix = prefix
	cfg.Clock = clk
	return NewStoreFromCollection(coll, cfg), coll, clk
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	for _, opt := range []ConfigOption{
		WithURI("mongodb://db:27017"),
		WithDatabase("media"),
		WithCollection("comments"),
		WithQueryTimeout(time.Second),
		WithKeyPrefix("mc:"),
	} {
		opt(&cfg)
	}

	if cfg.URI != "mongodb://db:27017" || cfg.Database != "media" || cfg.Collection != "comments" {
		t.Errorf("URI/Database/Collection = %s/%s/%s", cfg.URI, cfg.Database, cfg.Collection)
	}
	if cfg.QueryTimeout != time.Second || cfg.KeyPrefix != "mc:" {
		t.Errorf("QueryTimeout/KeyPrefix = %v/%s", cfg.QueryTimeout, cfg.KeyPrefix)
	}
}

func TestStore_SetAndGet(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, coll, _ := newTestStore(t, "catalog:")

	if _, ok, err := s.Get(ctx, "comments:603"); err != nil || ok {
		t.Fatalf("Get() on empty collection = %v, %v", ok, err)
	}
	if err := s.Set(ctx, "comments:603", []byte(`[{"id":"1"}]`), cache.SetOptions{}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if coll.upserts != 1 {
		t.Errorf("upserts = %d, want 1", coll.upserts)
	}
	if _, ok := coll.docs["catalog:comments:603"]; !ok {
		t.Error("document not stored under prefixed key")
	}

	got, ok, err := s.Get(ctx, "comments:603")
	if err != nil || !ok {
		t.Fatalf("Get() = %v, %v", ok, err)
	}
	if string(got) != `[{"id":"1"}]` {
		t.Errorf("Get() = %s", got)
	}

	exists, err := s.Exists(ctx, "comments:603")
	if err != nil || !exists {
		t.Errorf("Exists() = %v, %v", exists, err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestStore_Expiry(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, coll, clk := newTestStore(t, "")

	if err := s.Set(ctx, "k", []byte("v"), cache.SetOptions{TTL: time.Minute}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	clk.Advance(59 * time.Second)
	if _, ok, _ := s.Get(ctx, "k"); !ok {
		t.Fatal("document expired early")
	}

	clk.Advance(time.Second)
	if exists, _ := s.Exists(ctx, "k"); exists {
		t.Error("Exists() = true after expiry")
	}
	if _, ok, _ := s.Get(ctx, "k"); ok {
		t.Error("Get() found expired document")
	}
	if coll.size() != 0 {
		t.Errorf("expired document not deleted, size = %d", coll.size())
	}
}

func TestStore_ClearRespectsPrefix(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, coll, _ := newTestStore(t, "a.")
	coll.docs["abc"] = kvDocument{Key: "abc"}

	for _, k := range []string{"one", "two"} {
		if err := s.Set(ctx, k, []byte("v"), cache.SetOptions{}); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
	}
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if coll.size() != 1 {
		t.Errorf("size after Clear = %d, want 1", coll.size())
	}
}

func TestStore_DeleteAndInvalidKey(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, coll, _ := newTestStore(t, "")

	if err := s.Set(ctx, "", []byte("v"), cache.SetOptions{}); !errors.Is(err, cache.ErrInvalidKey) {
		t.Errorf("Set(\"\") error = %v, want ErrInvalidKey", err)
	}
	_ = s.Set(ctx, "k", []byte("v"), cache.SetOptions{})
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if coll.size() != 0 {
		t.Errorf("size after Delete = %d", coll.size())
	}
}

func TestStore_WrapsTimeout(t *testing.T) {
	t.Parallel()

	s, coll, _ := newTestStore(t, "")
	coll.err = context.DeadlineExceeded

	if _, _, err := s.Get(context.Background(), "k"); !errors.Is(err, cache.ErrOperationTimeout) {
		t.Errorf("Get() error = %v, want ErrOperationTimeout", err)
	}
	if err := s.Set(context.Background(), "k", nil, cache.SetOptions{}); !errors.Is(err, cache.ErrOperationTimeout) {
		t.Errorf("Set() error = %v, want ErrOperationTimeout", err)
	}
	if wrapError(nil) != nil {
		t.Error("wrapError(nil) != nil")
	}
}
