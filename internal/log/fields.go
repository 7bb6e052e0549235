// SPDX-License-Identifier: MIT

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID   = "request_id"
	FieldJobID       = "job_id"
	FieldRecordingID = "recording_id"

	// Process / pipeline fields
	FieldComponent = "component"
	FieldStage     = "stage"

	// Alignment / audio fields
	FieldSegmentCount = "segment_count"
	FieldSpeakerCount = "speaker_count"

	// Network fields
	FieldURL        = "url"
	FieldStatusCode = "status_code"
)
