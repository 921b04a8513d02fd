package mongodb

import (
	"context"
	"errors"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/felixgeelhaar/mediacatalog/domain/cache"
	"github.com/felixgeelhaar/mediacatalog/domain/clock"
)

// Collection is the subset of *mongo.Collection the store uses.
type Collection interface {
	FindOne(ctx context.Context, filter any, opts ...*options.FindOneOptions) *mongo.SingleResult
	UpdateOne(ctx context.Context, filter any, update any, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	DeleteOne(ctx context.Context, filter any, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error)
	DeleteMany(ctx context.Context, filter any, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error)
}

// kvDocument is the MongoDB document representation of an entry.
// ExpiresAt is in unix nanoseconds; zero means no expiry.
type kvDocument struct {
	Key       string `bson:"_id"`
	Value     []byte `bson:"value"`
	ExpiresAt int64  `bson:"expires_at,omitempty"`
	UpdatedAt int64  `bson:"updated_at"`
}

// Store is a MongoDB-backed cache.Store.
type Store struct {
	collection   Collection
	client       *mongo.Client
	keyPrefix    string
	queryTimeout time.Duration
	clock        clock.Clock
}

// NewStore connects to MongoDB and opens the configured collection.
func NewStore(ctx context.Context, cfg Config, opts ...ConfigOption) (*Store, error) {
	for _, opt := range opts {
		opt(&cfg)
	}

	client, err := connect(ctx, cfg)
	if err != nil {
		return nil, err
	}

	s := NewStoreFromCollection(client.Database(cfg.Database).Collection(cfg.Collection), cfg)
	s.client = client
	return s, nil
}

// NewStoreFromCollection wraps an existing collection.
func NewStoreFromCollection(coll Collection, cfg Config) *Store {
	clk := cfg.Clock
	if clk == nil {
		clk = clock.System{}
	}
	timeout := cfg.QueryTimeout
	if timeout <= 0 {
		timeout = DefaultConfig().QueryTimeout
	}
	return &Store{
		collection:   coll,
		keyPrefix:    cfg.KeyPrefix,
		queryTimeout: timeout,
		clock:        clk,
	}
}

func (s *Store) prefixKey(key string) string {
	return s.keyPrefix + key
}

func (s *Store) expired(doc *kvDocument) bool {
	return doc.ExpiresAt > 0 && doc.ExpiresAt <= s.clock.Now().UnixNano()
}

func (s *Store) find(ctx context.Context, key string) (*kvDocument, error) {
	var doc kvDocument
	err := s.collection.FindOne(ctx, bson.M{"_id": s.prefixKey(key)}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapError(err)
	}
	return &doc, nil
}

// Get retrieves a value. Expired documents are deleted on read.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	doc, err := s.find(ctx, key)
	if err != nil || doc == nil {
		return nil, false, err
	}
	if s.expired(doc) {
		_, _ = s.collection.DeleteOne(ctx, bson.M{"_id": doc.Key})
		return nil, false, nil
	}
	if doc.Value == nil {
		doc.Value = []byte{}
	}
	return doc.Value, true, nil
}

// Set stores a value.
func (s *Store) Set(ctx context.Context, key string, value []byte, opts cache.SetOptions) error {
	if key == "" {
		return cache.ErrInvalidKey
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	now := s.clock.Now().UnixNano()
	doc := kvDocument{Key: s.prefixKey(key), Value: value, UpdatedAt: now}
	if opts.TTL > 0 {
		doc.ExpiresAt = now + int64(opts.TTL)
	}

	_, err := s.collection.UpdateOne(ctx,
		bson.M{"_id": doc.Key},
		bson.M{"$set": doc},
		options.Update().SetUpsert(true),
	)
	return wrapError(err)
}

// Delete removes a value.
func (s *Store) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	_, err := s.collection.DeleteOne(ctx, bson.M{"_id": s.prefixKey(key)})
	return wrapError(err)
}

// Exists checks if a key holds a live value.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	doc, err := s.find(ctx, key)
	if err != nil || doc == nil {
		return false, err
	}
	return !s.expired(doc), nil
}

// Clear removes every document under the store prefix.
func (s *Store) Clear(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	filter := bson.M{}
	if s.keyPrefix != "" {
		filter = bson.M{"_id": bson.M{"$regex": "^" + regexp.QuoteMeta(s.keyPrefix)}}
	}
	_, err := s.collection.DeleteMany(ctx, filter)
	return wrapError(err)
}

// Close disconnects when the store owns the client.
func (s *Store) Close() error {
	if s.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.queryTimeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// wrapError wraps MongoDB errors with store errors.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || mongo.IsTimeout(err) {
		return errors.Join(cache.ErrOperationTimeout, err)
	}
	if mongo.IsNetworkError(err) {
		return errors.Join(cache.ErrConnectionFailed, err)
	}
	return err
}

var _ cache.Store = (*Store)(nil)
