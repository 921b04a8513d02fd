package lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/mediacatalog/domain/clock"
)

// MemoryStore holds lock entries shared by every MemoryLock built on it.
type MemoryStore struct {
	mu    sync.Mutex
	locks map[string]lockEntry
}

// NewMemoryStore creates a new shared lock store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{locks: make(map[string]lockEntry)}
}

type lockEntry struct {
	holderID  string
	expiresAt time.Time
}

// MemoryLock implements Lock in process memory. Holders sharing a
// MemoryStore exclude each other; a holder may reacquire its own lock.
type MemoryLock struct {
	store    *MemoryStore
	holderID string
	clock    clock.Clock
}

// MemoryOption configures the memory lock.
type MemoryOption func(*MemoryLock)

// WithHolderID sets the holder ID for this lock.
func WithHolderID(id string) MemoryOption {
	return func(l *MemoryLock) {
		l.holderID = id
	}
}

// WithStore sets a shared lock store.
func WithStore(store *MemoryStore) MemoryOption {
	return func(l *MemoryLock) {
		l.store = store
	}
}

// WithLockClock sets the clock that decides expiry.
func WithLockClock(clk clock.Clock) MemoryOption {
	return func(l *MemoryLock) {
		l.clock = clk
	}
}

// NewMemoryLock creates a new in-memory lock with its own store.
func NewMemoryLock(opts ...MemoryOption) *MemoryLock {
	l := &MemoryLock{
		store:    NewMemoryStore(),
		holderID: uuid.NewString(),
		clock:    clock.System{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// ID returns the holder ID.
func (l *MemoryLock) ID() string {
	return l.holderID
}

// Acquire implements Lock.
func (l *MemoryLock) Acquire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		return false, ErrInvalidTTL
	}

	l.store.mu.Lock()
	defer l.store.mu.Unlock()

	now := l.clock.Now()
	if entry, ok := l.store.locks[key]; ok {
		if entry.expiresAt.After(now) && entry.holderID != l.holderID {
			return false, nil
		}
	}

	l.store.locks[key] = lockEntry{holderID: l.holderID, expiresAt: now.Add(ttl)}
	return true, nil
}

// Release implements Lock.
func (l *MemoryLock) Release(_ context.Context, key string) error {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()

	entry, ok := l.store.locks[key]
	if !ok || entry.holderID != l.holderID {
		return ErrLockNotHeld
	}
	delete(l.store.locks, key)
	return nil
}

// IsHeld reports whether key is held by anyone and not expired.
func (l *MemoryLock) IsHeld(key string) bool {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()

	entry, ok := l.store.locks[key]
	return ok && entry.expiresAt.After(l.clock.Now())
}

var _ Lock = (*MemoryLock)(nil)
