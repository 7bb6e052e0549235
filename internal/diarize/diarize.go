// SPDX-License-Identifier: MIT

// Package diarize defines the speaker diarization boundary and its HTTP client.
package diarize

import "context"

// Turn is one speaker turn on the audio timeline. The speaker label is opaque
// and unique within a job, not globally.
type Turn struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker"`
}

// Engine performs speaker diarization and voice embedding extraction.
// Implementations are expensive, stateful singletons; Warm must complete
// before the first Diarize call.
type Engine interface {
	Warm(ctx context.Context) error
	Diarize(ctx context.Context, audioPath string, minSpeakers, maxSpeakers int) ([]Turn, error)
	ExtractEmbeddings(ctx context.Context, audioPath string, turns []Turn) (map[string][]float64, error)
}

// Speakers returns the distinct speaker labels of turns, in first-seen order.
func Speakers(turns []Turn) []string {
	seen := make(map[string]struct{}, len(turns))
	var out []string
	for _, t := range turns {
		if _, ok := seen[t.Speaker]; ok {
			continue
		}
		seen[t.Speaker] = struct{}{}
		out = append(out, t.Speaker)
	}
	return out
}
