// SPDX-License-Identifier: MIT

// Package align fuses transcript segments with speaker turns into a single
// speaker-attributed transcript. It is pure: no I/O, no shared state.
package align

import (
	"github.com/voxalign/voxalign/internal/asr"
	"github.com/voxalign/voxalign/internal/diarize"
)

// UnknownSpeaker is assigned when no speaker turn intersects a transcript
// segment at all.
const UnknownSpeaker = "UNKNOWN"

// DefaultMergeGap is the largest silence, in seconds, bridged when merging
// consecutive segments of the same speaker.
const DefaultMergeGap = 1.0

// Segment is a speaker-attributed transcript span.
type Segment struct {
	Start   float64    `json:"start"`
	End     float64    `json:"end"`
	Speaker string     `json:"speaker"`
	Text    string     `json:"text"`
	Words   []asr.Word `json:"words,omitempty"`
}

// Aligner holds the tunable parameters of the alignment algorithm.
type Aligner struct {
	// MergeGap overrides DefaultMergeGap when > 0.
	MergeGap float64
}

// Align assigns a speaker to every transcript segment and then merges
// consecutive segments of the same speaker. Empty input on either side
// yields an empty output.
func (a Aligner) Align(transcript []asr.Segment, turns []diarize.Turn) []Segment {
	if len(transcript) == 0 || len(turns) == 0 {
		return nil
	}
	gap := a.MergeGap
	if gap <= 0 {
		gap = DefaultMergeGap
	}
	return MergeConsecutive(AssignSpeakers(transcript, turns), gap)
}

// AssignSpeakers labels each transcript segment with the speaker of the turn
// it overlaps the most. A tie keeps the turn encountered first in diarization
// order. Segments with no overlapping turn fall back to a midpoint test, and
// finally to UnknownSpeaker. The output preserves transcript order and
// cardinality.
func AssignSpeakers(transcript []asr.Segment, turns []diarize.Turn) []Segment {
	out := make([]Segment, 0, len(transcript))

	for _, seg := range transcript {
		speaker := ""
		bestOverlap := 0.0

		for _, turn := range turns {
			o := overlap(seg.Start, seg.End, turn.Start, turn.End)
			if o > bestOverlap {
				bestOverlap = o
				speaker = turn.Speaker
			}
		}

		if speaker == "" {
			mid := (seg.Start + seg.End) / 2
			for _, turn := range turns {
				if turn.Start <= mid && mid <= turn.End {
					speaker = turn.Speaker
					break
				}
			}
		}

		if speaker == "" {
			speaker = UnknownSpeaker
		}

		out = append(out, Segment{
			Start:   seg.Start,
			End:     seg.End,
			Speaker: speaker,
			Text:    seg.Text,
			Words:   seg.Words,
		})
	}

	return out
}

// MergeConsecutive coalesces adjacent segments of the same speaker whose gap
// does not exceed maxGap seconds. Text is joined with a single space and word
// lists are concatenated in order.
func MergeConsecutive(segments []Segment, maxGap float64) []Segment {
	if len(segments) == 0 {
		return nil
	}

	merged := make([]Segment, 0, len(segments))
	current := segments[0]

	for _, seg := range segments[1:] {
		if seg.Speaker == current.Speaker && seg.Start-current.End <= maxGap {
			current.End = seg.End
			current.Text = current.Text + " " + seg.Text
			if len(seg.Words) > 0 {
				// Fresh slice so the caller's word lists are never mutated.
				words := make([]asr.Word, 0, len(current.Words)+len(seg.Words))
				words = append(words, current.Words...)
				current.Words = append(words, seg.Words...)
			}
			continue
		}
		merged = append(merged, current)
		current = seg
	}

	return append(merged, current)
}

func overlap(aStart, aEnd, bStart, bEnd float64) float64 {
	start := aStart
	if bStart > start {
		start = bStart
	}
	end := aEnd
	if bEnd < end {
		end = bEnd
	}
	if end <= start {
		return 0
	}
	return end - start
}
