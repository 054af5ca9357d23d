// Package jobs holds the in-memory job store and the job runner that drives
// a generation request from queued to a terminal state.
package jobs

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"writeflow/internal/domain"
)

const (
	defaultTTL       = 24 * time.Hour
	defaultMaxEvents = 300
	subscriberBuffer = 32
)

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithTTL overrides how long an untouched job survives.
func WithTTL(d time.Duration) StoreOption {
	return func(s *Store) {
		if d > 0 {
			s.ttl = d
		}
	}
}

// WithMaxEvents overrides the per-job event ring size.
func WithMaxEvents(n int) StoreOption {
	return func(s *Store) {
		if n > 0 {
			s.maxEvents = n
		}
	}
}

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

type jobRecord struct {
	job         domain.Job
	events      []domain.JobEvent
	subscribers map[chan domain.JobEvent]struct{}
	cancelled   chan struct{}
}

// Store keeps jobs, their bounded event logs, and live event subscribers in
// process memory. Expired jobs are evicted lazily on access.
type Store struct {
	mu        sync.Mutex
	records   map[string]*jobRecord
	ttl       time.Duration
	maxEvents int
	now       func() time.Time
}

// NewStore returns an empty Store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		records:   make(map[string]*jobRecord),
		ttl:       defaultTTL,
		maxEvents: defaultMaxEvents,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create registers a new queued job for the payload and returns a copy.
func (s *Store) Create(p domain.Payload, seed int64) domain.Job {
	now := s.now()
	job := domain.Job{
		ID:          uuid.NewString(),
		Status:      domain.JobStatusQueued,
		Stage:       domain.StageQueued,
		Message:     "Queued",
		Percent:     0,
		Attempt:     1,
		MaxAttempts: 3,
		Payload:     p,
		Seed:        seed,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[job.ID] = &jobRecord{
		job:         job,
		subscribers: make(map[chan domain.JobEvent]struct{}),
		cancelled:   make(chan struct{}),
	}
	return job
}

// Get returns a copy of the job, evicting it first when expired.
func (s *Store) Get(id string) (domain.Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.liveLocked(id)
	if rec == nil {
		return domain.Job{}, false
	}
	return rec.job, true
}

// Update applies fn to the job under the store lock and refreshes its
// UpdatedAt. It returns the updated copy.
func (s *Store) Update(id string, fn func(*domain.Job)) (domain.Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.liveLocked(id)
	if rec == nil {
		return domain.Job{}, false
	}
	fn(&rec.job)
	rec.job.UpdatedAt = s.now()
	return rec.job, true
}

// Emit appends a progress event to the job's log, assigning the next
// sequence number, and fans it out to subscribers. Slow subscribers drop
// events rather than blocking the emitter; the poll path and SSE replay
// recover any gap.
func (s *Store) Emit(id string, evt domain.JobEvent) (domain.JobEvent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.liveLocked(id)
	if rec == nil {
		return domain.JobEvent{}, false
	}
	return s.emitLocked(rec, evt), true
}

func (s *Store) emitLocked(rec *jobRecord, evt domain.JobEvent) domain.JobEvent {
	rec.job.Seq++
	rec.job.UpdatedAt = s.now()
	evt.JobID = rec.job.ID
	evt.Seq = rec.job.Seq
	evt.ID = fmt.Sprintf("%s:%d", rec.job.ID, rec.job.Seq)
	evt.At = s.now()

	rec.events = append(rec.events, evt)
	if len(rec.events) > s.maxEvents {
		rec.events = rec.events[len(rec.events)-s.maxEvents:]
	}
	for ch := range rec.subscribers {
		select {
		case ch <- evt:
		default:
		}
	}
	return evt
}

// EventsSince returns the retained events with Seq greater than sinceSeq, in
// order.
func (s *Store) EventsSince(id string, sinceSeq int64) ([]domain.JobEvent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.liveLocked(id)
	if rec == nil {
		return nil, false
	}
	var out []domain.JobEvent
	for _, evt := range rec.events {
		if evt.Seq > sinceSeq {
			out = append(out, evt)
		}
	}
	return out, true
}

// Subscribe registers a live event channel and returns the retained events
// after sinceSeq for replay. The replay slice and the channel together cover
// every event without duplication: events emitted after Subscribe returns
// arrive only on the channel.
func (s *Store) Subscribe(id string, sinceSeq int64) ([]domain.JobEvent, <-chan domain.JobEvent, func(), bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.liveLocked(id)
	if rec == nil {
		return nil, nil, nil, false
	}

	var replay []domain.JobEvent
	for _, evt := range rec.events {
		if evt.Seq > sinceSeq {
			replay = append(replay, evt)
		}
	}

	ch := make(chan domain.JobEvent, subscriberBuffer)
	rec.subscribers[ch] = struct{}{}
	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if r, ok := s.records[id]; ok {
			delete(r.subscribers, ch)
		}
	}
	return replay, ch, cancel, true
}

// Cancel moves a non-terminal job straight to the cancelled state, emits the
// cancellation event, and closes the job's cancel signal so an in-flight
// runner stops at its next checkpoint. Cancelling a terminal job is a no-op.
func (s *Store) Cancel(id string) (domain.Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.liveLocked(id)
	if rec == nil {
		return domain.Job{}, false
	}
	if !rec.job.Status.IsTerminal() && !rec.job.Cancelled {
		rec.job.Cancelled = true
		rec.job.Status = domain.JobStatusCancelled
		rec.job.Stage = domain.StageCancelled
		rec.job.Message = "Cancelled"
		rec.job.Percent = 0
		rec.job.UpdatedAt = s.now()
		close(rec.cancelled)
		s.emitLocked(rec, domain.JobEvent{Stage: domain.StageCancelled, Message: "Cancelled", Percent: 0})
	}
	return rec.job, true
}

// CancelSignal returns a channel closed when the job is cancelled. The runner
// ties its context to it so the image batch stops between attempts.
func (s *Store) CancelSignal(id string) (<-chan struct{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.liveLocked(id)
	if rec == nil {
		return nil, false
	}
	return rec.cancelled, true
}

// Delete removes a job and closes its subscriber channels.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropLocked(id)
}

// Sweep evicts every expired job. Intended to run periodically.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().Add(-s.ttl)
	var dropped int
	for id, rec := range s.records {
		if rec.job.UpdatedAt.Before(cutoff) {
			s.dropLocked(id)
			dropped++
		}
	}
	return dropped
}

// Len returns the number of live jobs.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func (s *Store) liveLocked(id string) *jobRecord {
	rec, ok := s.records[id]
	if !ok {
		return nil
	}
	if s.now().Sub(rec.job.UpdatedAt) > s.ttl {
		s.dropLocked(id)
		return nil
	}
	return rec
}

func (s *Store) dropLocked(id string) {
	rec, ok := s.records[id]
	if !ok {
		return
	}
	for ch := range rec.subscribers {
		close(ch)
	}
	delete(s.records, id)
}
