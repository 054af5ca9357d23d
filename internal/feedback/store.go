// Package feedback keeps a bounded in-memory log of user ratings for
// generated assignments.
package feedback

import (
	"sync"
	"time"
)

const (
	defaultMaxEntries = 500
	recentMaxLimit    = 200
	recentDefault     = 50
)

// Entry is one piece of user feedback tied to a job.
type Entry struct {
	JobID     string    `json:"jobId"`
	Rating    int       `json:"rating"`
	Notes     string    `json:"notes,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store is a fixed-capacity feedback log. When full the oldest entries are
// dropped.
type Store struct {
	mu         sync.Mutex
	entries    []Entry
	maxEntries int
	now        func() time.Time
}

// NewStore returns an empty Store with the default capacity.
func NewStore() *Store {
	return &Store{maxEntries: defaultMaxEntries, now: time.Now}
}

// Add appends an entry, stamping it with the current time.
func (s *Store) Add(e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.CreatedAt = s.now()
	s.entries = append(s.entries, e)
	if len(s.entries) > s.maxEntries {
		s.entries = s.entries[len(s.entries)-s.maxEntries:]
	}
}

// Recent returns up to limit entries, newest first. Limit is clamped to
// [1, 200] and defaults to 50.
func (s *Store) Recent(limit int) []Entry {
	if limit <= 0 {
		limit = recentDefault
	}
	if limit > recentMaxLimit {
		limit = recentMaxLimit
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n := limit
	if n > len(s.entries) {
		n = len(s.entries)
	}
	out := make([]Entry, 0, n)
	for i := len(s.entries) - 1; i >= len(s.entries)-n; i-- {
		out = append(out, s.entries[i])
	}
	return out
}
