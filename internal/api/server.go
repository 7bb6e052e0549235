// SPDX-License-Identifier: MIT

// Package api provides the HTTP surface of the service.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/voxalign/voxalign/internal/health"
	"github.com/voxalign/voxalign/internal/identify"
	"github.com/voxalign/voxalign/internal/jobs"
	"github.com/voxalign/voxalign/internal/log"
)

// Server carries the handler dependencies. Construct once at startup.
type Server struct {
	store  jobs.Store
	health *health.Manager

	// identify proxies voiceprint jobs to the remote identification API.
	// Nil when no API key is configured; the endpoints then answer 503.
	identify *identify.Client

	// defaultCallback is used when a submission omits callback_url.
	defaultCallback string

	// submitRPM bounds job submissions per client IP per minute; <= 0
	// disables the limiter.
	submitRPM int

	// tracing enables the otelhttp middleware.
	tracing bool
}

// Config holds the server construction parameters.
type Config struct {
	Store           jobs.Store
	Health          *health.Manager
	Identify        *identify.Client
	DefaultCallback string
	SubmitRPM       int
	Tracing         bool
}

// New creates the API server.
func New(cfg Config) *Server {
	return &Server{
		store:           cfg.Store,
		health:          cfg.Health,
		identify:        cfg.Identify,
		defaultCallback: cfg.DefaultCallback,
		submitRPM:       cfg.SubmitRPM,
		tracing:         cfg.Tracing,
	}
}

// Router builds the chi router with the canonical middleware stack.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(recoverer)
	r.Use(requestID)
	if s.tracing {
		r.Use(otelhttp.NewMiddleware("voxalign"))
	}
	r.Use(log.Middleware())

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		if s.submitRPM > 0 {
			r.Use(httprate.LimitByIP(s.submitRPM, time.Minute))
		}
		r.Post("/diarize", s.handleSubmit)
		r.Post("/identify", s.handleIdentify)
		r.Post("/voiceprint", s.handleVoiceprint)
	})
	r.Get("/jobs/{id}", s.handleJobStatus)

	return r
}
