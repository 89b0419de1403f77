package worker

import (
	"context"
	"sync"
	"time"
)

// Store keeps task results in memory for client polling. Known task IDs are
// tracked from the moment of enqueue so /get_result can distinguish a queued
// task from an unknown one. Finished results are evicted after a TTL by a
// background janitor.
type Store struct {
	mu      sync.RWMutex
	results map[string]*Result

	ttl           time.Duration
	sweepInterval time.Duration
	stop          chan struct{}
	stopped       sync.Once
}

const (
	defaultResultTTL     = 30 * time.Minute
	defaultSweepInterval = time.Minute
)

// NewStore creates a result store. Zero ttl or sweepInterval use defaults.
func NewStore(ttl, sweepInterval time.Duration) *Store {
	if ttl <= 0 {
		ttl = defaultResultTTL
	}
	if sweepInterval <= 0 {
		sweepInterval = defaultSweepInterval
	}
	return &Store{
		results:       make(map[string]*Result),
		ttl:           ttl,
		sweepInterval: sweepInterval,
		stop:          make(chan struct{}),
	}
}

// Track registers a task ID with queued status.
func (s *Store) Track(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[id] = &Result{Status: StatusQueued}
}

// Complete records a successful transcript for the task.
func (s *Store) Complete(id, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[id] = &Result{
		Status:     StatusCompleted,
		Text:       text,
		FinishedAt: time.Now(),
	}
}

// Fail records a permanent failure for the task.
func (s *Store) Fail(id, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[id] = &Result{
		Status:     StatusError,
		Message:    message,
		FinishedAt: time.Now(),
	}
}

// Forget removes a task ID, used when an enqueue is rejected.
func (s *Store) Forget(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.results, id)
}

// Get returns the result for a task ID. Reads are idempotent; completed
// results stay available until the janitor evicts them.
func (s *Store) Get(id string) (*Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.results[id]
	return r, ok
}

// Len returns the number of tracked tasks.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.results)
}

// QueuedCount returns the number of tasks still in Queued state. This is
// the queue depth reported by /health: a task being transcribed right now
// is still queued from the caller's point of view.
func (s *Store) QueuedCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, r := range s.results {
		if r.Status == StatusQueued {
			n++
		}
	}
	return n
}

// StartJanitor launches the eviction loop. It stops when ctx is cancelled
// or Close is called.
func (s *Store) StartJanitor(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			case <-ticker.C:
				s.sweep(time.Now())
			}
		}
	}()
}

// Close stops the janitor.
func (s *Store) Close() {
	s.stopped.Do(func() { close(s.stop) })
}

// sweep evicts finished results older than the TTL. Queued entries are
// never evicted; their lifetime is bounded by the queue itself.
func (s *Store) sweep(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, r := range s.results {
		if r.Status == StatusQueued {
			continue
		}
		if now.Sub(r.FinishedAt) > s.ttl {
			delete(s.results, id)
		}
	}
}
