// SPDX-License-Identifier: MIT

// Package metrics provides Prometheus metrics for the job pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// JobsSubmitted counts jobs accepted by the submission endpoint.
	JobsSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voxalign_jobs_submitted_total",
		Help: "Total number of jobs accepted for processing.",
	})

	// JobsCompleted counts jobs by terminal outcome.
	JobsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voxalign_jobs_finished_total",
		Help: "Total number of finished jobs, by outcome (completed/failed).",
	}, []string{"outcome"})

	// JobDuration observes end-to-end pipeline duration per job.
	JobDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "voxalign_job_duration_seconds",
		Help:    "End-to-end processing duration of a job in seconds.",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
	})

	// StageDuration observes per-stage pipeline latency.
	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "voxalign_stage_duration_seconds",
		Help:    "Duration of individual pipeline stages in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})

	// WorkerPolls counts dequeue attempts, by result (job/idle/error).
	WorkerPolls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voxalign_worker_polls_total",
		Help: "Total number of pending-queue polls, by result.",
	}, []string{"result"})

	// WebhookDeliveries counts webhook POST attempts by outcome.
	WebhookDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voxalign_webhook_deliveries_total",
		Help: "Total number of webhook delivery attempts, by outcome (ok/error).",
	}, []string{"outcome"})
)
