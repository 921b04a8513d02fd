package dynamodb

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/felixgeelhaar/mediacatalog/domain/cache"
	"github.com/felixgeelhaar/mediacatalog/domain/clock"
)

// API is the subset of *dynamodb.Client the store uses.
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

// item is a key-value entry in DynamoDB. ExpiresAt is in unix seconds so
// the table's TTL attribute can reap it.
type item struct {
	Key       string `dynamodbav:"key"`
	Value     []byte `dynamodbav:"value"`
	ExpiresAt int64  `dynamodbav:"expires_at,omitempty"`
}

// batchSize is the BatchWriteItem request limit.
const batchSize = 25

// Store is a DynamoDB-backed cache.Store.
type Store struct {
	client       API
	tableName    string
	keyPrefix    string
	queryTimeout time.Duration
	clock        clock.Clock
}

// NewStore creates a client from the default AWS credential chain and
// optionally creates the table.
func NewStore(ctx context.Context, cfg Config, opts ...ConfigOption) (*Store, error) {
	for _, opt := range opts {
		opt(&cfg)
	}

	client, err := newClient(ctx, cfg)
	if err != nil {
		return nil, errors.Join(cache.ErrConnectionFailed, err)
	}
	if cfg.CreateTable {
		if err := createTable(ctx, client, cfg.TableName); err != nil {
			return nil, errors.Join(cache.ErrConnectionFailed, err)
		}
	}
	return NewStoreFromAPI(client, cfg), nil
}

// NewStoreFromAPI wraps an existing client.
func NewStoreFromAPI(client API, cfg Config) *Store {
	clk := cfg.Clock
	if clk == nil {
		clk = clock.System{}
	}
	timeout := cfg.QueryTimeout
	if timeout <= 0 {
		timeout = DefaultConfig().QueryTimeout
	}
	return &Store{
		client:       client,
		tableName:    cfg.TableName,
		keyPrefix:    cfg.KeyPrefix,
		queryTimeout: timeout,
		clock:        clk,
	}
}

func (s *Store) prefixKey(key string) string {
	return s.keyPrefix + key
}

func (s *Store) keyAttr(key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"key": &types.AttributeValueMemberS{Value: s.prefixKey(key)},
	}
}

func (s *Store) expired(expiresAt int64) bool {
	return expiresAt > 0 && s.clock.Now().Unix() >= expiresAt
}

// Get retrieves a value. Expired items are deleted on read.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            s.keyAttr(key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, false, wrapError(err)
	}
	if result.Item == nil {
		return nil, false, nil
	}

	var it item
	if err := attributevalue.UnmarshalMap(result.Item, &it); err != nil {
		return nil, false, err
	}

	if s.expired(it.ExpiresAt) {
		_, _ = s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName: aws.String(s.tableName),
			Key:       s.keyAttr(key),
		})
		return nil, false, nil
	}
	if it.Value == nil {
		it.Value = []byte{}
	}
	return it.Value, true, nil
}

// Set stores a value.
func (s *Store) Set(ctx context.Context, key string, value []byte, opts cache.SetOptions) error {
	if key == "" {
		return cache.ErrInvalidKey
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	it := item{Key: s.prefixKey(key), Value: value}
	if opts.TTL > 0 {
		it.ExpiresAt = s.clock.Now().Add(opts.TTL).Unix()
	}

	av, err := attributevalue.MarshalMap(it)
	if err != nil {
		return err
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      av,
	})
	return wrapError(err)
}

// Delete removes a value.
func (s *Store) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key:       s.keyAttr(key),
	})
	return wrapError(err)
}

// Exists checks if a key holds a live value.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:            aws.String(s.tableName),
		Key:                  s.keyAttr(key),
		ProjectionExpression: aws.String("#k, expires_at"),
		ExpressionAttributeNames: map[string]string{
			"#k": "key",
		},
	})
	if err != nil {
		return false, wrapError(err)
	}
	if result.Item == nil {
		return false, nil
	}

	var it item
	if err := attributevalue.UnmarshalMap(result.Item, &it); err != nil {
		return false, err
	}
	return !s.expired(it.ExpiresAt), nil
}

// Clear removes every item under the store prefix.
func (s *Store) Clear(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	var lastKey map[string]types.AttributeValue
	for {
		result, err := s.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:            aws.String(s.tableName),
			ExclusiveStartKey:    lastKey,
			ProjectionExpression: aws.String("#k"),
			ExpressionAttributeNames: map[string]string{
				"#k": "key",
			},
		})
		if err != nil {
			return wrapError(err)
		}

		var deletes []types.WriteRequest
		for _, av := range result.Items {
			k, ok := av["key"].(*types.AttributeValueMemberS)
			if !ok || !strings.HasPrefix(k.Value, s.keyPrefix) {
				continue
			}
			deletes = append(deletes, types.WriteRequest{
				DeleteRequest: &types.DeleteRequest{
					Key: map[string]types.AttributeValue{"key": k},
				},
			})
		}

		for i := 0; i < len(deletes); i += batchSize {
			end := min(i+batchSize, len(deletes))
			_, err = s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
				RequestItems: map[string][]types.WriteRequest{
					s.tableName: deletes[i:end],
				},
			})
			if err != nil {
				return wrapError(err)
			}
		}

		if result.LastEvaluatedKey == nil {
			return nil
		}
		lastKey = result.LastEvaluatedKey
	}
}

// Close is a no-op; the SDK client holds no connections to release.
func (s *Store) Close() error {
	return nil
}

// wrapError wraps DynamoDB errors with store errors.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return errors.Join(cache.ErrOperationTimeout, err)
	}

	var throughputExceeded *types.ProvisionedThroughputExceededException
	if errors.As(err, &throughputExceeded) {
		return errors.Join(cache.ErrOperationTimeout, err)
	}

	return err
}

var _ cache.Store = (*Store)(nil)
