// Package application composes the cache, limiter and fetcher into the
// catalog query operations.
package application

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/felixgeelhaar/mediacatalog/domain/cache"
	"github.com/felixgeelhaar/mediacatalog/domain/catalog"
	"github.com/felixgeelhaar/mediacatalog/infrastructure/logging"
	"github.com/felixgeelhaar/mediacatalog/infrastructure/observability"
	"github.com/felixgeelhaar/mediacatalog/infrastructure/ratelimit"
	"github.com/felixgeelhaar/mediacatalog/infrastructure/resilience"
	"github.com/felixgeelhaar/mediacatalog/infrastructure/storage/memory"
	"github.com/felixgeelhaar/mediacatalog/infrastructure/telemetry"
)

// Fetcher performs one resilient network fetch.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (catalog.Payload, error)
}

// Catalog runs the named query operations. Every operation checks the
// cache first; a miss takes a rate limit token, fetches under the guard
// and stores the payload with the operation's TTL. Concurrent misses for
// one key share a single fetch.
type Catalog struct {
	endpoints catalog.EndpointBuilder
	fetcher   Fetcher
	cache     cache.ResponseCache
	admission *ratelimit.Admission
	guard     *resilience.Guard
	ttls      map[catalog.OperationKind]time.Duration
	metrics   telemetry.Metrics
	tracer    *observability.Tracer
	group     singleflight.Group

	mu         sync.Mutex
	flights    map[string]*flight
	nextFlight uint64
}

// flight is the detached context of one shared load and the number of
// callers still waiting on it. The load is canceled when none remain.
type flight struct {
	id      uint64
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// CatalogConfig contains the collaborators of a Catalog.
type CatalogConfig struct {
	Endpoints catalog.EndpointBuilder
	Fetcher   Fetcher
	Cache     cache.ResponseCache
	Admission *ratelimit.Admission
	Guard     *resilience.Guard
	TTLs      map[catalog.OperationKind]time.Duration
	Metrics   telemetry.Metrics
	Tracer    *observability.Tracer
}

// Default cache lifetimes per operation.
var defaultTTLs = map[catalog.OperationKind]time.Duration{
	catalog.KindMedia:   60 * time.Second,
	catalog.KindDetails: 5 * time.Minute,
	catalog.KindSearch:  30 * time.Second,
	catalog.KindVideos:  60 * time.Second,
	catalog.KindSeason:  5 * time.Minute,
}

// NewCatalog creates a catalog. A fetcher is required; a nil cache gets
// an unbounded in-memory cache, and nil admission or guard are skipped.
func NewCatalog(config CatalogConfig) (*Catalog, error) {
	if config.Fetcher == nil {
		return nil, errors.New("fetcher is required")
	}

	c := &Catalog{
		endpoints: config.Endpoints,
		fetcher:   config.Fetcher,
		cache:     config.Cache,
		admission: config.Admission,
		guard:     config.Guard,
		ttls:      make(map[catalog.OperationKind]time.Duration, len(defaultTTLs)),
		metrics:   config.Metrics,
		tracer:    config.Tracer,
		flights:   make(map[string]*flight),
	}

	if c.cache == nil {
		c.cache = memory.NewCache()
	}
	if c.metrics == nil {
		c.metrics = telemetry.NoopMetricsProvider{}
	}
	for kind, ttl := range defaultTTLs {
		c.ttls[kind] = ttl
	}
	for kind, ttl := range config.TTLs {
		if ttl > 0 {
			c.ttls[kind] = ttl
		}
	}

	return c, nil
}

// TTL returns the cache lifetime of kind.
func (c *Catalog) TTL(kind catalog.OperationKind) time.Duration {
	return c.ttls[kind]
}

// FetchMedia returns one page of a media list endpoint such as
// /movie/popular. Pages below 1 are treated as 1.
func (c *Catalog) FetchMedia(ctx context.Context, path string, page int) (catalog.Results, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return catalog.Results{}, fmt.Errorf("%w: path is required", catalog.ErrInvalidArgument)
	}
	q := c.newQuery(catalog.KindMedia, path, map[string]string{"page": pageParam(page)})
	return c.results(ctx, q)
}

// FetchDetails returns the details of a movie or show with its credits.
func (c *Catalog) FetchDetails(ctx context.Context, mediaType, id string) (catalog.Results, error) {
	q, err := c.detailsQuery(mediaType, id)
	if err != nil {
		return catalog.Results{}, err
	}
	return c.results(ctx, q)
}

// Details returns the typed details of a movie or show.
func (c *Catalog) Details(ctx context.Context, mediaType, id string) (catalog.Details, error) {
	var d catalog.Details
	q, err := c.detailsQuery(mediaType, id)
	if err != nil {
		return d, err
	}
	err = c.decode(ctx, q, &d)
	return d, err
}

// SearchMulti searches movies, shows and people. The query is trimmed; a
// blank query returns an empty result without any I/O.
func (c *Catalog) SearchMulti(ctx context.Context, query string, page int) (catalog.Results, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return catalog.EmptyResults(), nil
	}
	q := c.newQuery(catalog.KindSearch, "/search/multi", map[string]string{
		"query": query,
		"page":  pageParam(page),
	})
	return c.results(ctx, q)
}

// FetchVideos returns the videos attached to a movie or show.
func (c *Catalog) FetchVideos(ctx context.Context, mediaType, id string) (catalog.Results, error) {
	q, err := c.videosQuery(mediaType, id)
	if err != nil {
		return catalog.Results{}, err
	}
	return c.results(ctx, q)
}

// Videos returns the typed video list of a movie or show.
func (c *Catalog) Videos(ctx context.Context, mediaType, id string) (catalog.VideoList, error) {
	var v catalog.VideoList
	q, err := c.videosQuery(mediaType, id)
	if err != nil {
		return v, err
	}
	err = c.decode(ctx, q, &v)
	return v, err
}

// FetchSeasonDetails returns one season of a show. Season 0 holds specials.
func (c *Catalog) FetchSeasonDetails(ctx context.Context, tvID string, season int) (catalog.Results, error) {
	q, err := c.seasonQuery(tvID, season)
	if err != nil {
		return catalog.Results{}, err
	}
	return c.results(ctx, q)
}

// Season returns the typed details of one season.
func (c *Catalog) Season(ctx context.Context, tvID string, season int) (catalog.Season, error) {
	var s catalog.Season
	q, err := c.seasonQuery(tvID, season)
	if err != nil {
		return s, err
	}
	err = c.decode(ctx, q, &s)
	return s, err
}

func (c *Catalog) newQuery(kind catalog.OperationKind, path string, params map[string]string) catalog.QueryDescriptor {
	return catalog.NewQuery(kind, path, params, c.ttls[kind])
}

func (c *Catalog) detailsQuery(mediaType, id string) (catalog.QueryDescriptor, error) {
	mt, id, err := mediaRef(mediaType, id)
	if err != nil {
		return catalog.QueryDescriptor{}, err
	}
	path := "/" + string(mt) + "/" + url.PathEscape(id)
	return c.newQuery(catalog.KindDetails, path, map[string]string{"append_to_response": "credits"}), nil
}

func (c *Catalog) videosQuery(mediaType, id string) (catalog.QueryDescriptor, error) {
	mt, id, err := mediaRef(mediaType, id)
	if err != nil {
		return catalog.QueryDescriptor{}, err
	}
	path := "/" + string(mt) + "/" + url.PathEscape(id) + "/videos"
	return c.newQuery(catalog.KindVideos, path, nil), nil
}

func (c *Catalog) seasonQuery(tvID string, season int) (catalog.QueryDescriptor, error) {
	tvID = strings.TrimSpace(tvID)
	if tvID == "" {
		return catalog.QueryDescriptor{}, fmt.Errorf("%w: tv id is required", catalog.ErrInvalidArgument)
	}
	if season < 0 {
		return catalog.QueryDescriptor{}, fmt.Errorf("%w: season %d", catalog.ErrInvalidArgument, season)
	}
	path := "/tv/" + url.PathEscape(tvID) + "/season/" + strconv.Itoa(season)
	return c.newQuery(catalog.KindSeason, path, nil), nil
}

func mediaRef(mediaType, id string) (catalog.MediaType, string, error) {
	if strings.TrimSpace(mediaType) == "" {
		return "", "", fmt.Errorf("%w: media type is required", catalog.ErrInvalidArgument)
	}
	mt, err := catalog.ParseMediaType(mediaType)
	if err != nil {
		return "", "", err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return "", "", fmt.Errorf("%w: id is required", catalog.ErrInvalidArgument)
	}
	return mt, id, nil
}

func pageParam(page int) string {
	if page < 1 {
		page = 1
	}
	return strconv.Itoa(page)
}

func (c *Catalog) results(ctx context.Context, q catalog.QueryDescriptor) (catalog.Results, error) {
	payload, err := c.Query(ctx, q)
	if err != nil {
		return catalog.Results{}, err
	}
	return catalog.Normalize(payload), nil
}

func (c *Catalog) decode(ctx context.Context, q catalog.QueryDescriptor, v any) error {
	payload, err := c.Query(ctx, q)
	if err != nil {
		return err
	}
	return payload.Decode(v)
}

// Query runs q: a fresh cache entry is returned without touching the
// limiter or the network; otherwise one shared fetch fills the cache.
func (c *Catalog) Query(ctx context.Context, q catalog.QueryDescriptor) (payload catalog.Payload, err error) {
	start := time.Now()
	op := q.Kind.String()

	ctx, span := c.tracer.StartQuery(ctx, op, q.CacheKey)
	cached := false
	defer func() {
		c.metrics.RecordQuery(ctx, op, cached, err == nil, time.Since(start))
		observability.End(span, err)
	}()

	if err := ctx.Err(); err != nil {
		return catalog.Payload{}, canceled(err)
	}

	if p, ok := c.cache.Get(q.CacheKey); ok {
		cached = true
		c.metrics.RecordCacheHit(ctx, op)
		logging.Debug().
			Add(logging.Operation(op)).
			Add(logging.CacheKey(q.CacheKey)).
			Add(logging.Cached(true)).
			Msg("query served from cache")
		return p, nil
	}
	c.metrics.RecordCacheMiss(ctx, op)

	// The shared fetch outlives any single waiter but not all of them;
	// each waiter still returns as soon as its own context ends.
	fl := c.join(ctx, q.CacheKey)
	defer c.leave(q.CacheKey, fl)
	ch := c.group.DoChan(q.CacheKey+"\x00"+strconv.FormatUint(fl.id, 10), func() (any, error) {
		return c.load(fl.ctx, q)
	})

	select {
	case <-ctx.Done():
		return catalog.Payload{}, canceled(ctx.Err())
	case res := <-ch:
		if res.Shared {
			c.metrics.RecordCoalesced(ctx, op)
		}
		if res.Err != nil {
			logging.Warn().
				Add(logging.Operation(op)).
				Add(logging.CacheKey(q.CacheKey)).
				Add(logging.ErrorField(res.Err)).
				Msg("query failed")
			return catalog.Payload{}, res.Err
		}
		return res.Val.(catalog.Payload), nil
	}
}

func (c *Catalog) join(ctx context.Context, key string) *flight {
	c.mu.Lock()
	defer c.mu.Unlock()
	fl, ok := c.flights[key]
	if !ok {
		c.nextFlight++
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		fl = &flight{id: c.nextFlight, ctx: fctx, cancel: cancel}
		c.flights[key] = fl
	}
	fl.waiters++
	return fl
}

func (c *Catalog) leave(key string, fl *flight) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fl.waiters--
	if fl.waiters > 0 {
		return
	}
	fl.cancel()
	if c.flights[key] == fl {
		delete(c.flights, key)
	}
}

func (c *Catalog) load(ctx context.Context, q catalog.QueryDescriptor) (catalog.Payload, error) {
	// A flight that finished between the lookup and DoChan has filled it.
	if p, ok := c.cache.Get(q.CacheKey); ok {
		return p, nil
	}

	rawURL, err := c.endpoints.Build(q.Path, q.Params)
	if err != nil {
		return catalog.Payload{}, err
	}

	if err := c.admission.Admit(ctx, q.Kind.String()); err != nil {
		return catalog.Payload{}, err
	}

	fetch := func(ctx context.Context) (catalog.Payload, error) {
		return c.fetcher.Fetch(ctx, rawURL)
	}
	var payload catalog.Payload
	if c.guard != nil {
		payload, err = c.guard.Execute(ctx, fetch)
	} else {
		payload, err = fetch(ctx)
	}
	if err != nil {
		return catalog.Payload{}, err
	}

	c.cache.Set(q.CacheKey, payload, q.TTL)
	return payload, nil
}

func canceled(err error) error {
	return fmt.Errorf("%w: %w", catalog.ErrCanceled, err)
}
