// SPDX-License-Identifier: MIT

// Package worker runs the single background consumer of the job queue.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/voxalign/voxalign/internal/asr"
	"github.com/voxalign/voxalign/internal/diarize"
	"github.com/voxalign/voxalign/internal/jobs"
	"github.com/voxalign/voxalign/internal/log"
	"github.com/voxalign/voxalign/internal/metrics"
)

// Runner processes one job to completion. Satisfied by *pipeline.Runner.
type Runner interface {
	Run(ctx context.Context, job *jobs.Job) error
}

// Worker drains the pending pool sequentially. One Worker instance is started
// at process startup and stopped cooperatively at shutdown: cancellation is
// observed between iterations, never mid-job.
type Worker struct {
	store        jobs.Store
	runner       Runner
	diarizer     diarize.Engine
	transcriber  asr.Engine
	pollInterval time.Duration
	logger       zerolog.Logger
	ready        chan struct{}
}

// New creates a worker. pollInterval defaults to one second.
func New(store jobs.Store, runner Runner, d diarize.Engine, tr asr.Engine, pollInterval time.Duration) *Worker {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	return &Worker{
		store:        store,
		runner:       runner,
		diarizer:     d,
		transcriber:  tr,
		pollInterval: pollInterval,
		logger:       log.WithComponent("worker"),
		ready:        make(chan struct{}),
	}
}

// Ready is closed once engine warmup finished and the worker is draining.
// Used by the readiness probe.
func (w *Worker) Ready() <-chan struct{} {
	return w.ready
}

// Start warms the engines and then drains the queue until ctx is cancelled.
// A warmup failure aborts the worker entirely: a broken engine must fail the
// process at startup instead of failing every job individually.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info().Msg("warming engines")
	if err := w.diarizer.Warm(ctx); err != nil {
		return fmt.Errorf("diarization engine warmup: %w", err)
	}
	if err := w.transcriber.Warm(ctx); err != nil {
		return fmt.Errorf("transcription engine warmup: %w", err)
	}
	close(w.ready)
	w.logger.Info().Dur("poll_interval", w.pollInterval).Msg("worker ready")

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("worker stopping")
			return nil
		default:
		}

		job, err := w.store.NextPending(ctx)
		switch {
		case err != nil:
			metrics.WorkerPolls.WithLabelValues("error").Inc()
			w.logger.Error().Err(err).Msg("dequeue failed")
			w.sleep(ctx)
		case job == nil:
			metrics.WorkerPolls.WithLabelValues("idle").Inc()
			w.sleep(ctx)
		default:
			metrics.WorkerPolls.WithLabelValues("job").Inc()
			w.logger.Info().Str(log.FieldJobID, job.ID).Msg("processing job")
			// Shutdown is observed between iterations only: the job runs
			// on a detached context so cancelling the loop never aborts
			// an in-flight job or fires a spurious failure webhook.
			// Run failures are already persisted and notified by the
			// runner; one bad job must never halt the loop.
			if err := w.runner.Run(context.WithoutCancel(ctx), job); err != nil {
				w.logger.Error().Err(err).Str(log.FieldJobID, job.ID).Msg("job processing failed")
			}
		}
	}
}

// sleep waits one poll interval or until cancellation, whichever comes first.
func (w *Worker) sleep(ctx context.Context) {
	timer := time.NewTimer(w.pollInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
