// SPDX-License-Identifier: MIT

package jobs

import (
	"encoding/json"
	"fmt"
)

// Status represents the lifecycle state of a job.
//
// Status provides type safety for job state management, preventing
// string-based typos and enabling exhaustive switch statements.
type Status string

// Job status constants define all possible lifecycle states.
const (
	// StatusPending indicates the job is queued but not yet started.
	StatusPending Status = "pending"

	// StatusProcessing indicates the job is currently executing.
	StatusProcessing Status = "processing"

	// StatusCompleted indicates the job finished successfully.
	StatusCompleted Status = "completed"

	// StatusFailed indicates the job encountered an error and terminated.
	StatusFailed Status = "failed"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// IsValid checks whether the status is one of the defined constants.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	default:
		return false
	}
}

// IsTerminal checks whether the status represents a final state.
// A job in a terminal state will not transition again.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransitionTo checks whether this status can transition to the target.
//
// Valid transitions:
//   - Pending → Processing, Failed
//   - Processing → Completed, Failed
//   - Terminal states cannot transition
//
// Pending → Failed covers jobs that die before the processing mark lands,
// e.g. when the store is briefly unreachable at dequeue time.
func (s Status) CanTransitionTo(target Status) bool {
	switch s {
	case StatusPending:
		return target == StatusProcessing || target == StatusFailed
	case StatusProcessing:
		return target == StatusCompleted || target == StatusFailed
	default:
		return false
	}
}

// MarshalJSON implements json.Marshaler for Status.
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(s))
}

// UnmarshalJSON implements json.Unmarshaler for Status.
func (s *Status) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	status := Status(str)
	if !status.IsValid() {
		return fmt.Errorf("invalid job status: %q", str)
	}
	*s = status
	return nil
}
