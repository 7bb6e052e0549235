// SPDX-License-Identifier: MIT

// Package jobs holds the job model and its durable/in-memory stores.
package jobs

import (
	"fmt"
	"time"
)

// Job is the unit of work: one audio recording moving through the pipeline.
// Identity is immutable; status, result and timestamps are mutated only via
// Store.Update.
type Job struct {
	ID          string     `json:"id"`
	RecordingID string     `json:"recording_id"`
	AudioURL    string     `json:"audio_url"`
	CallbackURL string     `json:"callback_url"`
	Status      Status     `json:"status"`
	Result      *Result    `json:"result,omitempty"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// ResultSegment is one speaker-attributed span in a finished transcript.
type ResultSegment struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker"`
	Text    string  `json:"text"`
}

// Result is the payload attached to a completed job.
type Result struct {
	RecordingID    string               `json:"recording_id"`
	Segments       []ResultSegment      `json:"segments"`
	SpeakerCount   int                  `json:"speaker_count"`
	Embeddings     map[string][]float64 `json:"embeddings,omitempty"`
	FullTranscript string               `json:"full_transcript"`
}

// Update describes a partial mutation of a job. Nil fields are left as is.
type Update struct {
	Status *Status
	Result *Result
	Error  *string
}

// StatusUpdate is a convenience constructor for a status-only update.
func StatusUpdate(s Status) Update {
	return Update{Status: &s}
}

// apply mutates j in place, stamping lifecycle timestamps alongside status
// changes so the two are never observed apart. Status changes must follow the
// pending → processing → completed/failed lifecycle; anything else leaves the
// job untouched and returns ErrInvalidTransition.
func (u Update) apply(j *Job, now time.Time) error {
	if u.Status != nil && *u.Status != j.Status {
		if !j.Status.CanTransitionTo(*u.Status) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.Status, *u.Status)
		}
		j.Status = *u.Status
		switch *u.Status {
		case StatusProcessing:
			if j.StartedAt == nil {
				t := now
				j.StartedAt = &t
			}
		case StatusCompleted, StatusFailed:
			if j.CompletedAt == nil {
				t := now
				j.CompletedAt = &t
			}
		}
	}
	if u.Result != nil {
		j.Result = u.Result
	}
	if u.Error != nil {
		j.Error = *u.Error
	}
	return nil
}
