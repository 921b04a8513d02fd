package memory

import (
	"container/list"
	"sync"
	"time"

	"github.com/felixgeelhaar/mediacatalog/domain/cache"
	"github.com/felixgeelhaar/mediacatalog/domain/catalog"
	"github.com/felixgeelhaar/mediacatalog/domain/clock"
)

// DefaultMaxEntries bounds the response cache when no cap is configured.
const DefaultMaxEntries = 1000

type element struct {
	key   string
	entry cache.Entry
}

// Cache is an in-memory response cache. Entries expire lazily: a read of
// an entry older than its TTL evicts it. When MaxEntries is reached the
// least recently used entry is evicted on insert.
type Cache struct {
	mu      sync.Mutex
	clock   clock.Clock
	max     int
	order   *list.List
	entries map[string]*list.Element

	hits      int64
	misses    int64
	evictions int64
	expired   int64
}

// CacheOption configures the cache.
type CacheOption func(*Cache)

// WithMaxEntries caps the number of entries. Zero or less means unbounded.
func WithMaxEntries(n int) CacheOption {
	return func(c *Cache) {
		c.max = n
	}
}

// WithClock sets the time source.
func WithClock(clk clock.Clock) CacheOption {
	return func(c *Cache) {
		if clk != nil {
			c.clock = clk
		}
	}
}

// NewCache creates a response cache.
func NewCache(opts ...CacheOption) *Cache {
	c := &Cache{
		clock:   clock.System{},
		max:     DefaultMaxEntries,
		order:   list.New(),
		entries: make(map[string]*list.Element),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the payload under key if it is still fresh.
func (c *Cache) Get(key string) (catalog.Payload, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		c.misses++
		return catalog.Payload{}, false
	}

	e := el.Value.(*element)
	if e.entry.Expired(c.clock.Now()) {
		c.remove(el)
		c.expired++
		c.misses++
		return catalog.Payload{}, false
	}

	c.order.MoveToFront(el)
	c.hits++
	return e.entry.Payload, true
}

// Set stores payload under key, replacing any existing entry.
func (c *Cache) Set(key string, payload catalog.Payload, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := cache.Entry{StoredAt: c.clock.Now(), TTL: ttl, Payload: payload}

	if el, ok := c.entries[key]; ok {
		el.Value.(*element).entry = entry
		c.order.MoveToFront(el)
		return
	}

	if c.max > 0 {
		for c.order.Len() >= c.max {
			c.remove(c.order.Back())
			c.evictions++
		}
	}

	c.entries[key] = c.order.PushFront(&element{key: key, entry: entry})
}

// Delete removes key.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		c.remove(el)
	}
}

// Purge drops every expired entry and returns how many were removed.
func (c *Cache) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	var removed int
	for el := c.order.Back(); el != nil; {
		prev := el.Prev()
		if el.Value.(*element).entry.Expired(now) {
			c.remove(el)
			removed++
		}
		el = prev
	}
	c.expired += int64(removed)
	return removed
}

// Len returns the number of stored entries, fresh or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Stats returns cache statistics.
func (c *Cache) Stats() cache.Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return cache.Stats{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Expired:   c.expired,
		Size:      int64(c.order.Len()),
		MaxSize:   int64(c.max),
	}
}

// remove must be called with the lock held.
func (c *Cache) remove(el *list.Element) {
	c.order.Remove(el)
	delete(c.entries, el.Value.(*element).key)
}

var (
	_ cache.ResponseCache = (*Cache)(nil)
	_ cache.StatsProvider = (*Cache)(nil)
)
