package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/felixgeelhaar/mediacatalog/domain/cache"
	"github.com/felixgeelhaar/mediacatalog/domain/catalog"
	"github.com/felixgeelhaar/mediacatalog/domain/clock"
	domainconfig "github.com/felixgeelhaar/mediacatalog/domain/config"
	"github.com/felixgeelhaar/mediacatalog/infrastructure/fetch"
	"github.com/felixgeelhaar/mediacatalog/infrastructure/logging"
	"github.com/felixgeelhaar/mediacatalog/infrastructure/observability"
	"github.com/felixgeelhaar/mediacatalog/infrastructure/ratelimit"
	"github.com/felixgeelhaar/mediacatalog/infrastructure/resilience"
	"github.com/felixgeelhaar/mediacatalog/infrastructure/secrets"
	"github.com/felixgeelhaar/mediacatalog/infrastructure/storage/badger"
	"github.com/felixgeelhaar/mediacatalog/infrastructure/storage/dynamodb"
	"github.com/felixgeelhaar/mediacatalog/infrastructure/storage/memory"
	"github.com/felixgeelhaar/mediacatalog/infrastructure/storage/mongodb"
	"github.com/felixgeelhaar/mediacatalog/infrastructure/storage/postgres"
	"github.com/felixgeelhaar/mediacatalog/infrastructure/storage/redis"
	"github.com/felixgeelhaar/mediacatalog/infrastructure/storage/s3"
	"github.com/felixgeelhaar/mediacatalog/infrastructure/storage/sqlite"
)

// ErrMissingAPIKey is returned when direct mode has no API key.
var ErrMissingAPIKey = errors.New("api key not configured")

// Builder turns a CatalogConfig into component settings.
type Builder struct {
	config      *domainconfig.CatalogConfig
	lookup      LookupFunc
	keyOptional bool
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithLookupEnv sets how the API key variable is resolved.
func WithLookupEnv(lookup LookupFunc) BuilderOption {
	return func(b *Builder) {
		b.lookup = lookup
	}
}

// WithAPIKeyOptional builds without failing on a missing API key.
func WithAPIKeyOptional() BuilderOption {
	return func(b *Builder) {
		b.keyOptional = true
	}
}

// NewBuilder creates a new configuration builder.
func NewBuilder(config *domainconfig.CatalogConfig, opts ...BuilderOption) *Builder {
	b := &Builder{config: config, lookup: os.LookupEnv}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// BuildResult contains the built component settings.
type BuildResult struct {
	// APIKey is the resolved key. Empty in proxy mode.
	APIKey string
	// Endpoints builds request URLs.
	Endpoints catalog.EndpointBuilder
	// Images builds image URLs.
	Images catalog.ImageURLBuilder
	// Fetch configures the fetcher.
	Fetch fetch.Config
	// RateLimit configures the limiter.
	RateLimit ratelimit.Config
	// RateLimitMode decides what a denial means.
	RateLimitMode ratelimit.Mode
	// RateLimitBackend selects the limiter implementation.
	RateLimitBackend ratelimit.Backend
	// CacheMaxEntries caps the response cache; 0 means unbounded.
	CacheMaxEntries int
	// TTLs maps each operation to its cache lifetime.
	TTLs map[catalog.OperationKind]time.Duration
	// Resilience configures the bulkhead and breaker.
	Resilience resilience.Config
	// Comments describes the comment store.
	Comments CommentStoreOptions
	// Logging configures the logger.
	Logging logging.Config
	// Observability holds the telemetry provider options.
	Observability []observability.Option
}

// CommentBackend names a comment store implementation.
type CommentBackend string

// Comment store backends.
const (
	CommentBackendMemory   CommentBackend = "memory"
	CommentBackendRedis    CommentBackend = "redis"
	CommentBackendBadger   CommentBackend = "badger"
	CommentBackendSQLite   CommentBackend = "sqlite"
	CommentBackendPostgres CommentBackend = "postgres"
	CommentBackendDynamoDB CommentBackend = "dynamodb"
	CommentBackendMongoDB  CommentBackend = "mongodb"
	CommentBackendS3       CommentBackend = "s3"
)

// CommentRetry configures retries of comment store operations.
type CommentRetry struct {
	MaxAttempts  int
	InitialDelay time.Duration
	Multiplier   float64
}

// CommentStoreOptions describes which store to open for comments.
type CommentStoreOptions struct {
	Backend  CommentBackend
	Redis    redis.Config
	Badger   badger.Config
	SQLite   sqlite.Config
	Postgres postgres.Config
	DynamoDB dynamodb.Config
	MongoDB  mongodb.Config
	S3       s3.Config
	Retry    CommentRetry
}

// Open opens the described store. The returned close function releases
// it and is never nil.
func (s CommentStoreOptions) Open(clk clock.Clock) (cache.Store, func() error, error) {
	noop := func() error { return nil }
	switch s.Backend {
	case "", CommentBackendMemory:
		return memory.NewStore(clk), noop, nil
	case CommentBackendRedis:
		store, err := redis.NewStore(s.Redis)
		if err != nil {
			return nil, noop, fmt.Errorf("opening redis comment store: %w", err)
		}
		return store, store.Close, nil
	case CommentBackendBadger:
		store, err := badger.NewStore(s.Badger)
		if err != nil {
			return nil, noop, fmt.Errorf("opening badger comment store: %w", err)
		}
		return store, store.Close, nil
	case CommentBackendSQLite:
		cfg := s.SQLite
		if clk != nil {
			cfg.Clock = clk
		}
		store, err := sqlite.NewStore(cfg)
		if err != nil {
			return nil, noop, fmt.Errorf("opening sqlite comment store: %w", err)
		}
		return store, store.Close, nil
	case CommentBackendPostgres:
		cfg := s.Postgres
		if clk != nil {
			cfg.Clock = clk
		}
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
		defer cancel()
		store, err := postgres.NewStore(ctx, cfg)
		if err != nil {
			return nil, noop, fmt.Errorf("opening postgres comment store: %w", err)
		}
		return store, store.Close, nil
	case CommentBackendDynamoDB:
		cfg := s.DynamoDB
		if clk != nil {
			cfg.Clock = clk
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		store, err := dynamodb.NewStore(ctx, cfg)
		if err != nil {
			return nil, noop, fmt.Errorf("opening dynamodb comment store: %w", err)
		}
		return store, store.Close, nil
	case CommentBackendMongoDB:
		cfg := s.MongoDB
		if clk != nil {
			cfg.Clock = clk
		}
		store, err := mongodb.NewStore(context.Background(), cfg)
		if err != nil {
			return nil, noop, fmt.Errorf("opening mongodb comment store: %w", err)
		}
		return store, store.Close, nil
	case CommentBackendS3:
		cfg := s.S3
		if clk != nil {
			cfg.Clock = clk
		}
		store, err := s3.NewStore(context.Background(), cfg)
		if err != nil {
			return nil, noop, fmt.Errorf("opening s3 comment store: %w", err)
		}
		return store, store.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown comment backend: %s", s.Backend)
	}
}

// Build builds the component settings from configuration.
func (b *Builder) Build() (*BuildResult, error) {
	result := &BuildResult{
		TTLs: make(map[catalog.OperationKind]time.Duration),
	}

	if err := b.buildAPI(result); err != nil {
		return nil, fmt.Errorf("%w: building api: %w", domainconfig.ErrBuildFailed, err)
	}

	b.buildFetch(result)

	if err := b.buildRateLimit(result); err != nil {
		return nil, fmt.Errorf("%w: building rate limit: %w", domainconfig.ErrBuildFailed, err)
	}

	b.buildCache(result)
	b.buildResilience(result)

	if err := b.buildComments(result); err != nil {
		return nil, fmt.Errorf("%w: building comments: %w", domainconfig.ErrBuildFailed, err)
	}

	b.buildLogging(result)

	if err := b.buildObservability(result); err != nil {
		return nil, fmt.Errorf("%w: building telemetry: %w", domainconfig.ErrBuildFailed, err)
	}

	return result, nil
}

func (b *Builder) buildAPI(result *BuildResult) error {
	api := b.config.API

	key, err := b.resolveAPIKey()
	if err != nil {
		return err
	}
	result.APIKey = key

	result.Endpoints = catalog.EndpointBuilder{
		BaseURL:    orDefault(api.BaseURL, catalog.DefaultBaseURL),
		APIKey:     key,
		OmitAPIKey: api.Proxy,
	}
	result.Images = catalog.ImageURLBuilder{
		BaseURL:        orDefault(api.ImageBaseURL, catalog.DefaultImageBaseURL),
		OriginalURL:    orDefault(api.OriginalImageURL, catalog.DefaultOriginalImageURL),
		PlaceholderURL: orDefault(api.PlaceholderURL, catalog.DefaultPlaceholderURL),
	}
	return nil
}

// resolveAPIKey prefers a literal key, then the configured variable, then
// the key file. Proxy mode needs no key.
func (b *Builder) resolveAPIKey() (string, error) {
	api := b.config.API
	if api.Proxy {
		return "", nil
	}
	if api.APIKey != "" {
		logging.Warn().
			Add(logging.Component("config")).
			Msg("api key set as a literal; prefer api_key_env")
		return api.APIKey, nil
	}

	name := orDefault(api.APIKeyEnv, domainconfig.DefaultAPIKeyEnv)
	source := secrets.Chain{
		secrets.Env{Lookup: b.lookup},
		secrets.File{Path: api.APIKeyFile},
	}
	key, err := source.Get(context.Background(), name)
	if err == nil {
		return key, nil
	}
	if !errors.Is(err, secrets.ErrSecretNotFound) {
		return "", fmt.Errorf("resolving api key: %w", err)
	}
	if b.keyOptional {
		return "", nil
	}
	return "", fmt.Errorf("%w: set %s, api.api_key_file or enable api.proxy", ErrMissingAPIKey, name)
}

func (b *Builder) buildFetch(result *BuildResult) {
	fc := b.config.Fetch
	policy := fetch.DefaultPolicy()
	setDuration(&policy.Timeout, fc.Timeout)
	setDuration(&policy.TimeoutBackoff, fc.TimeoutBackoff)
	setDuration(&policy.ServerBackoff, fc.ServerBackoff)
	setDuration(&policy.TransportBackoff, fc.TransportBackoff)
	setDuration(&policy.RetryAfterFallback, fc.RetryAfterFallback)
	setDuration(&policy.RetryAfterCap, fc.RetryAfterCap)
	if fc.MaxAttempts > 0 {
		policy.MaxAttempts = fc.MaxAttempts
	}

	cfg := fetch.DefaultConfig()
	cfg.Policy = policy
	cfg.Proxy = b.config.API.Proxy
	cfg.ProxyBase = orDefault(b.config.API.ProxyBase, catalog.DefaultProxyBase)
	cfg.UserAgent = orDefault(b.config.API.UserAgent, cfg.UserAgent)
	result.Fetch = cfg
}

func (b *Builder) buildRateLimit(result *BuildResult) error {
	rl := b.config.RateLimit

	mode, err := ratelimit.ParseMode(rl.Mode)
	if err != nil {
		return err
	}
	result.RateLimitMode = mode

	switch backend := ratelimit.Backend(rl.Backend); backend {
	case "", ratelimit.BackendBucket:
		result.RateLimitBackend = ratelimit.BackendBucket
	case ratelimit.BackendFortify:
		result.RateLimitBackend = backend
	default:
		return fmt.Errorf("unknown rate limit backend: %s", rl.Backend)
	}

	cfg := ratelimit.DefaultConfig()
	if rl.Capacity > 0 {
		cfg.Capacity = rl.Capacity
	}
	if rl.RefillPerSecond > 0 {
		cfg.RefillPerSecond = rl.RefillPerSecond
	}
	setDuration(&cfg.RetryWait, rl.RetryWait)
	result.RateLimit = cfg
	return nil
}

func (b *Builder) buildCache(result *BuildResult) {
	cc := b.config.Cache
	defaults := domainconfig.DefaultConfig().Cache.TTL

	result.CacheMaxEntries = cc.MaxEntries
	result.TTLs[catalog.KindMedia] = ttlOrDefault(cc.TTL.Media, defaults.Media)
	result.TTLs[catalog.KindDetails] = ttlOrDefault(cc.TTL.Details, defaults.Details)
	result.TTLs[catalog.KindSearch] = ttlOrDefault(cc.TTL.Search, defaults.Search)
	result.TTLs[catalog.KindVideos] = ttlOrDefault(cc.TTL.Videos, defaults.Videos)
	result.TTLs[catalog.KindSeason] = ttlOrDefault(cc.TTL.Season, defaults.Season)
}

func (b *Builder) buildResilience(result *BuildResult) {
	rc := b.config.Resilience
	cfg := resilience.DefaultConfig()
	if rc.Bulkhead.MaxConcurrent > 0 {
		cfg.MaxConcurrent = rc.Bulkhead.MaxConcurrent
	}
	if rc.Bulkhead.MaxQueue > 0 {
		cfg.MaxQueue = rc.Bulkhead.MaxQueue
	}
	cfg.CircuitBreaker = rc.CircuitBreaker.Enabled
	if rc.CircuitBreaker.Threshold > 0 {
		cfg.CircuitBreakerThreshold = rc.CircuitBreaker.Threshold
	}
	setDuration(&cfg.CircuitBreakerTimeout, rc.CircuitBreaker.Timeout)
	result.Resilience = cfg
}

func (b *Builder) buildComments(result *BuildResult) error {
	cc := b.config.Comments

	store := CommentStoreOptions{
		Backend:  CommentBackend(cc.Backend),
		Redis:    redis.DefaultConfig(),
		Badger:   badger.DefaultConfig(),
		SQLite:   sqlite.DefaultConfig(),
		Postgres: postgres.DefaultConfig(),
		DynamoDB: dynamodb.DefaultConfig(),
		MongoDB:  mongodb.DefaultConfig(),
		S3:       s3.DefaultConfig(),
		Retry: CommentRetry{
			MaxAttempts:  cc.Retry.MaxAttempts,
			InitialDelay: cc.Retry.InitialDelay.Duration(),
			Multiplier:   cc.Retry.Multiplier,
		},
	}
	if store.Backend == "" {
		store.Backend = CommentBackendMemory
	}

	switch store.Backend {
	case CommentBackendMemory:
	case CommentBackendRedis:
		opts := []redis.ConfigOption{redis.WithDB(cc.Redis.DB)}
		if cc.Redis.Address != "" {
			opts = append(opts, redis.WithAddress(cc.Redis.Address))
		}
		if cc.Redis.Password != "" {
			opts = append(opts, redis.WithPassword(cc.Redis.Password))
		}
		if cc.Redis.KeyPrefix != "" {
			opts = append(opts, redis.WithKeyPrefix(cc.Redis.KeyPrefix))
		}
		for _, opt := range opts {
			opt(&store.Redis)
		}
	case CommentBackendBadger:
		if cc.Badger.Dir != "" {
			badger.WithDir(cc.Badger.Dir)(&store.Badger)
		}
		if cc.Badger.InMemory {
			badger.WithInMemory()(&store.Badger)
		}
	case CommentBackendSQLite:
		if cc.SQLite.DSN != "" {
			sqlite.WithDSN(cc.SQLite.DSN)(&store.SQLite)
		}
	case CommentBackendPostgres:
		pc := cc.Postgres
		opts := []postgres.ConfigOption{
			postgres.WithCredentials(orDefault(pc.User, store.Postgres.User), pc.Password),
		}
		if pc.Host != "" {
			opts = append(opts, postgres.WithHost(pc.Host))
		}
		if pc.Port > 0 {
			opts = append(opts, postgres.WithPort(pc.Port))
		}
		if pc.Database != "" {
			opts = append(opts, postgres.WithDatabase(pc.Database))
		}
		if pc.SSLMode != "" {
			opts = append(opts, postgres.WithSSLMode(pc.SSLMode))
		}
		if pc.Schema != "" {
			opts = append(opts, postgres.WithSchema(pc.Schema))
		}
		for _, opt := range opts {
			opt(&store.Postgres)
		}
	case CommentBackendDynamoDB:
		dc := cc.DynamoDB
		var opts []dynamodb.ConfigOption
		if dc.Region != "" {
			opts = append(opts, dynamodb.WithRegion(dc.Region))
		}
		if dc.Endpoint != "" {
			opts = append(opts, dynamodb.WithEndpoint(dc.Endpoint))
		}
		if dc.Table != "" {
			opts = append(opts, dynamodb.WithTableName(dc.Table))
		}
		if dc.CreateTable {
			opts = append(opts, dynamodb.WithCreateTable())
		}
		for _, opt := range opts {
			opt(&store.DynamoDB)
		}
	case CommentBackendMongoDB:
		mc := cc.MongoDB
		var opts []mongodb.ConfigOption
		if mc.URI != "" {
			opts = append(opts, mongodb.WithURI(mc.URI))
		}
		if mc.Database != "" {
			opts = append(opts, mongodb.WithDatabase(mc.Database))
		}
		if mc.Collection != "" {
			opts = append(opts, mongodb.WithCollection(mc.Collection))
		}
		for _, opt := range opts {
			opt(&store.MongoDB)
		}
	case CommentBackendS3:
		sc := cc.S3
		opts := []s3.ConfigOption{
			s3.WithStaticCredentials(sc.AccessKeyID, sc.SecretAccessKey),
		}
		if sc.Region != "" {
			opts = append(opts, s3.WithRegion(sc.Region))
		}
		if sc.Bucket != "" {
			opts = append(opts, s3.WithBucket(sc.Bucket))
		}
		if sc.Endpoint != "" {
			opts = append(opts, s3.WithEndpoint(sc.Endpoint))
		}
		if sc.KeyPrefix != "" {
			opts = append(opts, s3.WithKeyPrefix(sc.KeyPrefix))
		}
		for _, opt := range opts {
			opt(&store.S3)
		}
	default:
		return fmt.Errorf("unknown comment backend: %s", cc.Backend)
	}

	result.Comments = store
	return nil
}

func (b *Builder) buildLogging(result *BuildResult) {
	cfg := logging.DefaultConfig()
	if lc := b.config.Logging; lc.Level != "" {
		cfg.Level = lc.Level
	}
	if lc := b.config.Logging; lc.Format != "" {
		cfg.Format = lc.Format
	}
	result.Logging = cfg
}

func (b *Builder) buildObservability(result *BuildResult) error {
	tc := b.config.Telemetry
	opts := []observability.Option{
		observability.WithServiceName(orDefault(tc.ServiceName, "mediacatalog")),
	}
	if b.config.Version != "" {
		opts = append(opts, observability.WithServiceVersion(b.config.Version))
	}

	if tc.Tracing.Enabled {
		exporter, ok := observability.ParseExporterType(tc.Tracing.Exporter)
		if !ok {
			return fmt.Errorf("unknown trace exporter: %s", tc.Tracing.Exporter)
		}
		opts = append(opts, observability.WithTracing(exporter, tc.Tracing.Endpoint))
		if tc.Tracing.Insecure {
			opts = append(opts, observability.WithTracingInsecure())
		}
		if tc.Tracing.SampleRate > 0 {
			opts = append(opts, observability.WithSampleRate(tc.Tracing.SampleRate))
		}
	}

	result.Observability = opts
	return nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func setDuration(dst *time.Duration, v domainconfig.Duration) {
	if v > 0 {
		*dst = v.Duration()
	}
}

func ttlOrDefault(v, def domainconfig.Duration) time.Duration {
	if v > 0 {
		return v.Duration()
	}
	return def.Duration()
}
