package handoff

import (
	"context"
	"sync"
	"time"
)

// MemStoreOption configures a [MemStore].
type MemStoreOption func(*MemStore)

// WithClock sets the time source used for expiry.
func WithClock(now func() time.Time) MemStoreOption {
	return func(s *MemStore) {
		s.now = now
	}
}

type memItem struct {
	data    []byte
	expires time.Time
}

// MemStore is an in-process [Store]. Hand-offs do not survive a restart,
// which is fine for a single-instance deployment.
type MemStore struct {
	mu    sync.Mutex
	items map[string]memItem
	ttl   time.Duration
	now   func() time.Time
}

var _ Store = (*MemStore)(nil)

// NewMemStore returns a MemStore whose entries expire after ttl. A ttl of
// zero disables expiry.
func NewMemStore(ttl time.Duration, opts ...MemStoreOption) *MemStore {
	s := &MemStore{
		items: make(map[string]memItem),
		ttl:   ttl,
		now:   time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Save implements [Store].
func (s *MemStore) Save(_ context.Context, key string, data []byte) error {
	it := memItem{data: append([]byte(nil), data...)}
	if s.ttl > 0 {
		it.expires = s.now().Add(s.ttl)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep()
	s.items[key] = it
	return nil
}

// Take implements [Store].
func (s *MemStore) Take(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[key]
	delete(s.items, key)
	if !ok || s.expired(it) {
		return nil, ErrEmpty
	}
	return it.data, nil
}

// Len returns the number of stored, unexpired entries.
func (s *MemStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep()
	return len(s.items)
}

// Close implements [Store].
func (s *MemStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.items)
	return nil
}

func (s *MemStore) expired(it memItem) bool {
	return !it.expires.IsZero() && !s.now().Before(it.expires)
}

// sweep drops expired entries. Caller holds mu.
func (s *MemStore) sweep() {
	for k, it := range s.items {
		if s.expired(it) {
			delete(s.items, k)
		}
	}
}
