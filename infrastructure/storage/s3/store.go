package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/felixgeelhaar/mediacatalog/domain/cache"
	"github.com/felixgeelhaar/mediacatalog/domain/clock"
)

// API is the subset of *s3.Client the store uses.
type API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// expiresAtKey is the object metadata entry holding the expiry in unix
// nanoseconds.
const expiresAtKey = "expires-at"

// deleteBatchSize is the DeleteObjects request limit.
const deleteBatchSize = 1000

// Store is an S3-backed cache.Store.
type Store struct {
	client       API
	bucket       string
	keyPrefix    string
	queryTimeout time.Duration
	clock        clock.Clock
}

// NewStore creates a client from cfg.
func NewStore(ctx context.Context, cfg Config, opts ...ConfigOption) (*Store, error) {
	for _, opt := range opts {
		opt(&cfg)
	}
	client, err := newClient(ctx, cfg)
	if err != nil {
		return nil, errors.Join(cache.ErrConnectionFailed, err)
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
		bucket:       cfg.Bucket,
		keyPrefix:    cfg.KeyPrefix,
		queryTimeout: timeout,
		clock:        clk,
	}
}

func (s *Store) objectKey(key string) *string {
	return aws.String(s.keyPrefix + key)
}

func (s *Store) expired(metadata map[string]string) bool {
	raw, ok := metadata[expiresAtKey]
	if !ok {
		return false
	}
	exp, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return false
	}
	return exp <= s.clock.Now().UnixNano()
}

// Get retrieves a value. Expired objects are deleted on read.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    s.objectKey(key),
	})
	if isNotFound(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, wrapError(err)
	}
	defer out.Body.Close()

	if s.expired(out.Metadata) {
		_ = s.Delete(ctx, key)
		return nil, false, nil
	}

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, false, wrapError(err)
	}
	return data, true, nil
}

// Set stores a value.
func (s *Store) Set(ctx context.Context, key string, value []byte, opts cache.SetOptions) error {
	if key == "" {
		return cache.ErrInvalidKey
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         s.objectKey(key),
		Body:        bytes.NewReader(value),
		ContentType: aws.String("application/octet-stream"),
	}
	if opts.TTL > 0 {
		exp := s.clock.Now().Add(opts.TTL).UnixNano()
		input.Metadata = map[string]string{expiresAtKey: strconv.FormatInt(exp, 10)}
	}

	_, err := s.client.PutObject(ctx, input)
	return wrapError(err)
}

// Delete removes a value.
func (s *Store) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    s.objectKey(key),
	})
	return wrapError(err)
}

// Exists checks if a key holds a live value.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    s.objectKey(key),
	})
	if isNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, wrapError(err)
	}
	return !s.expired(out.Metadata), nil
}

// Clear removes every object under the store prefix.
func (s *Store) Clear(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	var token *string
	for {
		page, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			Prefix:            aws.String(s.keyPrefix),
			ContinuationToken: token,
		})
		if err != nil {
			return wrapError(err)
		}

		ids := make([]types.ObjectIdentifier, 0, len(page.Contents))
		for _, obj := range page.Contents {
			ids = append(ids, types.ObjectIdentifier{Key: obj.Key})
		}
		for i := 0; i < len(ids); i += deleteBatchSize {
			end := min(i+deleteBatchSize, len(ids))
			_, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
				Bucket: aws.String(s.bucket),
				Delete: &types.Delete{Objects: ids[i:end], Quiet: aws.Bool(true)},
			})
			if err != nil {
				return wrapError(err)
			}
		}

		if !aws.ToBool(page.IsTruncated) {
			return nil
		}
		token = page.NextContinuationToken
	}
}

// Close is a no-op; the SDK client holds no connections to release.
func (s *Store) Close() error {
	return nil
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	return errors.As(err, &noSuchKey) || errors.As(err, &notFound)
}

// wrapError wraps S3 errors with store errors.
func wrapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return errors.Join(cache.ErrOperationTimeout, err)
	}
	return err
}

var _ cache.Store = (*Store)(nil)
