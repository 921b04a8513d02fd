package dynamodb

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/felixgeelhaar/mediacatalog/domain/cache"
	"github.com/felixgeelhaar/mediacatalog/domain/clock"
)

// fakeAPI is an in-memory table keyed on the "key" attribute.
type fakeAPI struct {
	mu      sync.Mutex
	items   map[string]map[string]types.AttributeValue
	batches int
	err     error
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{items: make(map[string]map[string]types.AttributeValue)}
}

func keyOf(av map[string]types.AttributeValue) string {
	return av["key"].(*types.AttributeValueMemberS).Value
}

func (f *fakeAPI) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &dynamodb.GetItemOutput{Item: f.items[keyOf(in.Key)]}, nil
}

func (f *fakeAPI) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.items[keyOf(in.Item)] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeAPI) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items, keyOf(in.Key))
	return &dynamodb.DeleteItemOutput{}, nil
}

func (f *fakeAPI) Scan(_ context.Context, _ *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := &dynamodb.ScanOutput{}
	for _, it := range f.items {
		out.Items = append(out.Items, map[string]types.AttributeValue{"key": it["key"]})
	}
	return out, nil
}

func (f *fakeAPI) BatchWriteItem(_ context.Context, in *dynamodb.BatchWriteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches++
	for _, reqs := range in.RequestItems {
		if len(reqs) > batchSize {
			return nil, errors.New("too many items in batch")
		}
		for _, r := range reqs {
			delete(f.items, keyOf(r.DeleteRequest.Key))
		}
	}
	return &dynamodb.BatchWriteItemOutput{}, nil
}

func (f *fakeAPI) size() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

func newTestStore(t *testing.T, prefix string) (*Store, *fakeAPI, *clock.Manual) {
	t.Helper()
	api := newFakeAPI()
	clk := clock.NewManual(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	cfg := DefaultConfig()
	cfg.KeyPrefix = prefix
	cfg.Clock = clk
	return NewStoreFromAPI(api, cfg), api, clk
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	for _, opt := range []ConfigOption{
		WithRegion("eu-west-1"),
		WithEndpoint("http://localhost:8000"),
		WithTableName("comments"),
		WithQueryTimeout(time.Second),
		WithCreateTable(),
	} {
		opt(&cfg)
	}

	if cfg.Region != "eu-west-1" || cfg.Endpoint != "http://localhost:8000" {
		t.Errorf("Region/Endpoint = %s/%s", cfg.Region, cfg.Endpoint)
	}
	if cfg.TableName != "comments" || !cfg.CreateTable {
		t.Errorf("TableName/CreateTable = %s/%v", cfg.TableName, cfg.CreateTable)
	}
	if cfg.QueryTimeout != time.Second {
		t.Errorf("QueryTimeout = %v", cfg.QueryTimeout)
	}
	if DefaultConfig().KeyPrefix != "catalog:" {
		t.Errorf("KeyPrefix = %s, want catalog:", DefaultConfig().KeyPrefix)
	}
}

func TestStore_SetAndGet(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, api, _ := newTestStore(t, "catalog:")

	if _, ok, err := s.Get(ctx, "comments:603"); err != nil || ok {
		t.Fatalf("Get() on empty table = %v, %v", ok, err)
	}
	if err := s.Set(ctx, "comments:603", []byte(`[{"id":"1"}]`), cache.SetOptions{}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if _, ok := api.items["catalog:comments:603"]; !ok {
		t.Error("item not stored under prefixed key")
	}
	if _, ok := api.items["catalog:comments:603"]["expires_at"]; ok {
		t.Error("expires_at written without a TTL")
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
}

func TestStore_Expiry(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, api, clk := newTestStore(t, "")

	if err := s.Set(ctx, "k", []byte("v"), cache.SetOptions{TTL: time.Minute}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	clk.Advance(59 * time.Second)
	if _, ok, _ := s.Get(ctx, "k"); !ok {
		t.Fatal("item expired early")
	}

	clk.Advance(time.Second)
	if exists, _ := s.Exists(ctx, "k"); exists {
		t.Error("Exists() = true after expiry")
	}
	if _, ok, _ := s.Get(ctx, "k"); ok {
		t.Error("Get() found expired item")
	}
	if api.size() != 0 {
		t.Errorf("expired item not deleted, size = %d", api.size())
	}
}

func TestStore_ClearRespectsPrefix(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, api, _ := newTestStore(t, "mc:")
	api.items["other"] = map[string]types.AttributeValue{"key": &types.AttributeValueMemberS{Value: "other"}}

	for i := 0; i < 30; i++ {
		if err := s.Set(ctx, string(rune('a'+i)), []byte("v"), cache.SetOptions{}); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
	}
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if api.size() != 1 {
		t.Errorf("size after Clear = %d, want 1", api.size())
	}
	if api.batches != 2 {
		t.Errorf("batches = %d, want 2", api.batches)
	}
}

func TestStore_DeleteAndInvalidKey(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, api, _ := newTestStore(t, "")

	if err := s.Set(ctx, "", []byte("v"), cache.SetOptions{}); !errors.Is(err, cache.ErrInvalidKey) {
		t.Errorf("Set(\"\") error = %v, want ErrInvalidKey", err)
	}
	_ = s.Set(ctx, "k", []byte("v"), cache.SetOptions{})
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if api.size() != 0 {
		t.Errorf("size after Delete = %d", api.size())
	}
}

func TestStore_WrapsThrottling(t *testing.T) {
	t.Parallel()

	s, api, _ := newTestStore(t, "")
	api.err = &types.ProvisionedThroughputExceededException{}

	if _, _, err := s.Get(context.Background(), "k"); !errors.Is(err, cache.ErrOperationTimeout) {
		t.Errorf("Get() error = %v, want ErrOperationTimeout", err)
	}
	if err := s.Set(context.Background(), "k", nil, cache.SetOptions{}); !errors.Is(err, cache.ErrOperationTimeout) {
		t.Errorf("Set() error = %v, want ErrOperationTimeout", err)
	}
}
