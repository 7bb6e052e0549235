// SPDX-License-Identifier: MIT

package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is a volatile Store for single-instance deployments without a
// Redis backend. Jobs are lost on process restart.
type MemoryStore struct {
	mu      sync.Mutex
	jobs    map[string]*Job
	pending []string // FIFO of pending job ids
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]*Job)}
}

// Add creates a pending job and appends it to the FIFO pool.
func (s *MemoryStore) Add(_ context.Context, recordingID, audioURL, callbackURL string) (*Job, error) {
	job := &Job{
		ID:          uuid.NewString(),
		RecordingID: recordingID,
		AudioURL:    audioURL,
		CallbackURL: callbackURL,
		Status:      StatusPending,
		CreatedAt:   time.Now().UTC(),
	}

	s.mu.Lock()
	s.jobs[job.ID] = job
	s.pending = append(s.pending, job.ID)
	s.mu.Unlock()

	snapshot := *job
	return &snapshot, nil
}

// Get returns a copy of the job so callers never observe later mutations.
func (s *MemoryStore) Get(_ context.Context, id string) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	snapshot := *job
	return &snapshot, nil
}

// NextPending pops the oldest pending job id, if any.
func (s *MemoryStore) NextPending(_ context.Context) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for len(s.pending) > 0 {
		id := s.pending[0]
		s.pending = s.pending[1:]
		// A job may have been mutated since enqueueing; only hand out
		// jobs that are still pending.
		if job, ok := s.jobs[id]; ok && job.Status == StatusPending {
			snapshot := *job
			return &snapshot, nil
		}
	}
	return nil, nil
}

// Update applies u to the stored job. Unknown ids are a no-op.
func (s *MemoryStore) Update(_ context.Context, id string, u Update) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil
	}
	return u.apply(job, time.Now().UTC())
}
