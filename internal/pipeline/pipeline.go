// SPDX-License-Identifier: MIT

// Package pipeline drives a single job end-to-end through fetch, diarization,
// transcription, alignment and embedding extraction.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/voxalign/voxalign/internal/align"
	"github.com/voxalign/voxalign/internal/asr"
	"github.com/voxalign/voxalign/internal/diarize"
	"github.com/voxalign/voxalign/internal/fetch"
	"github.com/voxalign/voxalign/internal/jobs"
	"github.com/voxalign/voxalign/internal/log"
	"github.com/voxalign/voxalign/internal/metrics"
)

// Notifier delivers completion/failure webhooks. Satisfied by
// *webhook.Dispatcher.
type Notifier interface {
	Notify(ctx context.Context, callbackURL, jobID string, success bool, data any)
}

// Runner executes the processing pipeline for one job at a time. All
// collaborators are injected at startup and shared across jobs.
type Runner struct {
	Store       jobs.Store
	Fetcher     fetch.Downloader
	Diarizer    diarize.Engine
	Transcriber asr.Engine
	Aligner     align.Aligner
	Notifier    Notifier
	Logger      zerolog.Logger

	// Speaker bounds forwarded to diarization; zero means unconstrained.
	MinSpeakers int
	MaxSpeakers int
}

// Run executes every stage strictly in order. On failure the job is marked
// failed, the failure webhook is attempted and the error is returned for the
// worker to log. The fetched audio is removed on every exit path.
func (r *Runner) Run(ctx context.Context, job *jobs.Job) error {
	ctx = log.ContextWithJobID(ctx, job.ID)
	logger := r.Logger.With().
		Str(log.FieldJobID, job.ID).
		Str(log.FieldRecordingID, job.RecordingID).
		Logger()

	start := time.Now()
	result, err := r.process(ctx, job, logger)
	metrics.JobDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.JobsCompleted.WithLabelValues("failed").Inc()
		logger.Error().Err(err).Msg("job failed")

		msg := err.Error()
		if uerr := r.Store.Update(ctx, job.ID, jobs.Update{
			Status: statusPtr(jobs.StatusFailed),
			Error:  &msg,
		}); uerr != nil {
			logger.Error().Err(uerr).Msg("failed to persist job failure")
		}

		r.Notifier.Notify(ctx, job.CallbackURL, job.ID, false, map[string]string{
			"error":        msg,
			"recording_id": job.RecordingID,
		})
		return err
	}

	metrics.JobsCompleted.WithLabelValues("completed").Inc()
	logger.Info().
		Int(log.FieldSegmentCount, len(result.Segments)).
		Int(log.FieldSpeakerCount, result.SpeakerCount).
		Msg("job completed")

	r.Notifier.Notify(ctx, job.CallbackURL, job.ID, true, result)
	return nil
}

// process runs stages 1-9. The terminal "completed" update happens here so
// the result is durably persisted before any webhook is attempted.
func (r *Runner) process(ctx context.Context, job *jobs.Job, logger zerolog.Logger) (*jobs.Result, error) {
	if err := r.Store.Update(ctx, job.ID, jobs.StatusUpdate(jobs.StatusProcessing)); err != nil {
		return nil, fmt.Errorf("mark job processing: %w", err)
	}

	logger.Info().Str(log.FieldStage, "fetch").Str(log.FieldURL, job.AudioURL).Msg("fetching audio")
	audioPath, cleanup, err := r.timedFetch(ctx, job.AudioURL)
	if err != nil {
		return nil, fmt.Errorf("audio retrieval: %w", err)
	}
	defer cleanup()

	logger.Info().Str(log.FieldStage, "diarize").Msg("running diarization")
	turns, err := timedStage("diarize", func() ([]diarize.Turn, error) {
		return r.Diarizer.Diarize(ctx, audioPath, r.MinSpeakers, r.MaxSpeakers)
	})
	if err != nil {
		return nil, fmt.Errorf("diarization: %w", err)
	}
	speakers := diarize.Speakers(turns)
	logger.Info().
		Int(log.FieldSegmentCount, len(turns)).
		Int(log.FieldSpeakerCount, len(speakers)).
		Msg("diarization finished")

	logger.Info().Str(log.FieldStage, "transcribe").Msg("running transcription")
	transcript, err := timedStage("transcribe", func() ([]asr.Segment, error) {
		return r.Transcriber.Transcribe(ctx, audioPath)
	})
	if err != nil {
		return nil, fmt.Errorf("transcription: %w", err)
	}
	logger.Info().Int(log.FieldSegmentCount, len(transcript)).Msg("transcription finished")

	aligned := r.Aligner.Align(transcript, turns)

	logger.Info().Str(log.FieldStage, "embeddings").Msg("extracting speaker embeddings")
	embeddings, err := timedStage("embeddings", func() (map[string][]float64, error) {
		return r.Diarizer.ExtractEmbeddings(ctx, audioPath, turns)
	})
	if err != nil {
		return nil, fmt.Errorf("embedding extraction: %w", err)
	}

	result := assemble(job.RecordingID, aligned, len(speakers), embeddings)

	if err := r.Store.Update(ctx, job.ID, jobs.Update{
		Status: statusPtr(jobs.StatusCompleted),
		Result: result,
	}); err != nil {
		return nil, fmt.Errorf("persist job result: %w", err)
	}
	return result, nil
}

// assemble builds the result record from the aligned segments.
func assemble(recordingID string, aligned []align.Segment, speakerCount int, embeddings map[string][]float64) *jobs.Result {
	segments := make([]jobs.ResultSegment, 0, len(aligned))
	texts := make([]string, 0, len(aligned))
	for _, s := range aligned {
		segments = append(segments, jobs.ResultSegment{
			Start:   s.Start,
			End:     s.End,
			Speaker: s.Speaker,
			Text:    s.Text,
		})
		texts = append(texts, s.Text)
	}
	return &jobs.Result{
		RecordingID:    recordingID,
		Segments:       segments,
		SpeakerCount:   speakerCount,
		Embeddings:     embeddings,
		FullTranscript: strings.Join(texts, " "),
	}
}

func (r *Runner) timedFetch(ctx context.Context, url string) (string, func(), error) {
	start := time.Now()
	defer func() {
		metrics.StageDuration.WithLabelValues("fetch").Observe(time.Since(start).Seconds())
	}()
	return r.Fetcher.Fetch(ctx, url)
}

func timedStage[T any](stage string, f func() (T, error)) (T, error) {
	start := time.Now()
	defer func() {
		metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	}()
	return f()
}

func statusPtr(s jobs.Status) *jobs.Status { return &s }
