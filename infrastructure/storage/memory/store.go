package memory

import (
	"context"
	"sync"
	"time"

	"github.com/felixgeelhaar/mediacatalog/domain/cache"
	"github.com/felixgeelhaar/mediacatalog/domain/clock"
)

type storeEntry struct {
	value     []byte
	expiresAt time.Time
}

func (e *storeEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// Store is an in-memory byte key-value store.
type Store struct {
	mu      sync.RWMutex
	clock   clock.Clock
	entries map[string]*storeEntry
}

// NewStore creates an empty store.
func NewStore(clk clock.Clock) *Store {
	if clk == nil {
		clk = clock.System{}
	}
	return &Store{clock: clk, entries: make(map[string]*storeEntry)}
}

// Get retrieves a value.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	if entry.expired(s.clock.Now()) {
		delete(s.entries, key)
		return nil, false, nil
	}

	// Return a copy to prevent mutation
	value := make([]byte, len(entry.value))
	copy(value, entry.value)
	return value, true, nil
}

// Set stores a value.
func (s *Store) Set(ctx context.Context, key string, value []byte, opts cache.SetOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if key == "" {
		return cache.ErrInvalidKey
	}

	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)

	entry := &storeEntry{value: valueCopy}
	if opts.TTL > 0 {
		entry.expiresAt = s.clock.Now().Add(opts.TTL)
	}

	s.mu.Lock()
	s.entries[key] = entry
	s.mu.Unlock()
	return nil
}

// Delete removes a value.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

// Exists checks if a key holds a live value.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[key]
	if !ok {
		return false, nil
	}
	return !entry.expired(s.clock.Now()), nil
}

// Clear removes every value.
func (s *Store) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.entries = make(map[string]*storeEntry)
	s.mu.Unlock()
	return nil
}

var _ cache.Store = (*Store)(nil)
