// Package uniqueness tracks recently delivered content hashes so repeated
// generations for the same inputs can be detected and regenerated.
package uniqueness

import (
	"sync"
	"time"
)

const (
	defaultMaxEntries = 200
	defaultTTL        = 6 * time.Hour
)

// Store is a bounded in-memory set of content hashes with per-entry TTL.
// Entries are evicted lazily on read and oldest-first when the cap is hit.
type Store struct {
	mu         sync.Mutex
	entries    map[string]time.Time
	order      []string
	maxEntries int
	ttl        time.Duration
	now        func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithMaxEntries overrides the entry cap.
func WithMaxEntries(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxEntries = n
		}
	}
}

// WithTTL overrides the per-entry lifetime.
func WithTTL(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.ttl = d
		}
	}
}

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New returns an empty Store with the default cap and TTL.
func New(opts ...Option) *Store {
	s := &Store{
		entries:    make(map[string]time.Time),
		maxEntries: defaultMaxEntries,
		ttl:        defaultTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Has reports whether hash is present and not expired. An expired entry is
// removed before returning.
func (s *Store) Has(hash string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	at, ok := s.entries[hash]
	if !ok {
		return false
	}
	if s.now().Sub(at) > s.ttl {
		s.removeLocked(hash)
		return false
	}
	return true
}

// Add records hash with the current time. Re-adding refreshes the timestamp
// without changing insertion order. When the cap is exceeded the oldest
// entries are dropped first.
func (s *Store) Add(hash string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[hash]; ok {
		s.entries[hash] = s.now()
		return
	}
	s.entries[hash] = s.now()
	s.order = append(s.order, hash)
	for len(s.order) > s.maxEntries {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.entries, oldest)
	}
}

// Len returns the number of live entries, counting expired ones that have
// not been touched since expiry.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Store) removeLocked(hash string) {
	delete(s.entries, hash)
	for i, h := range s.order {
		if h == hash {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}
