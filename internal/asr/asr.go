// SPDX-License-Identifier: MIT

// Package asr defines the transcription engine boundary and its HTTP client.
package asr

import "context"

// Word is a word-level sub-segment with its own timing and confidence.
type Word struct {
	Start       float64 `json:"start"`
	End         float64 `json:"end"`
	Word        string  `json:"word"`
	Probability float64 `json:"probability"`
}

// Segment is one transcribed span of audio. Produced by the transcription
// engine and treated as read-only input to alignment.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
	Words []Word  `json:"words,omitempty"`
}

// Engine transcribes local audio files. Implementations are expensive,
// stateful singletons; Warm must complete before the first Transcribe call.
type Engine interface {
	Warm(ctx context.Context) error
	Transcribe(ctx context.Context, audioPath string) ([]Segment, error)
}
