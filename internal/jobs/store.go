// SPDX-License-Identifier: MIT

package jobs

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no job exists under the given id.
var ErrNotFound = errors.New("job not found")

// ErrInvalidTransition is returned by Update when the requested status change
// violates the job lifecycle.
var ErrInvalidTransition = errors.New("invalid status transition")

// Store persists jobs and hands out pending work.
//
// Add, Get and Update are linearizable per job id. NextPending is an atomic
// pop from the pending pool: a given job id is returned at most once across
// the whole store, even with multiple concurrent consumers.
type Store interface {
	// Add creates a pending job with a fresh unique id and persists it.
	Add(ctx context.Context, recordingID, audioURL, callbackURL string) (*Job, error)

	// Get returns a snapshot of the job, or ErrNotFound.
	Get(ctx context.Context, id string) (*Job, error)

	// NextPending pops one pending job, or returns (nil, nil) when idle.
	NextPending(ctx context.Context) (*Job, error)

	// Update applies the given partial update. Unknown ids are a no-op so
	// updates racing external retention never fail the pipeline. Status
	// changes outside the job lifecycle return ErrInvalidTransition.
	Update(ctx context.Context, id string, u Update) error
}
