// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/voxalign/voxalign/internal/align"
	"github.com/voxalign/voxalign/internal/api"
	"github.com/voxalign/voxalign/internal/asr"
	"github.com/voxalign/voxalign/internal/config"
	"github.com/voxalign/voxalign/internal/diarize"
	"github.com/voxalign/voxalign/internal/fetch"
	"github.com/voxalign/voxalign/internal/health"
	"github.com/voxalign/voxalign/internal/identify"
	"github.com/voxalign/voxalign/internal/jobs"
	"github.com/voxalign/voxalign/internal/pipeline"
	"github.com/voxalign/voxalign/internal/telemetry"
	"github.com/voxalign/voxalign/internal/version"
	"github.com/voxalign/voxalign/internal/webhook"
	"github.com/voxalign/voxalign/internal/worker"

	xlog "github.com/voxalign/voxalign/internal/log"
)

// shutdownGrace bounds how long shutdown waits for the in-flight job and the
// draining HTTP server before giving up.
const shutdownGrace = 30 * time.Second

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
		os.Exit(0)
	}

	xlog.Configure(xlog.Config{Service: "voxalign", Version: version.Version})
	logger := xlog.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Str("config_path", *configPath).Msg("failed to load configuration")
	}
	if cfg.ASRURL == "" || cfg.DiarizeURL == "" {
		logger.Fatal().Msg("VOXALIGN_ASR_URL and VOXALIGN_DIARIZE_URL must be configured")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	tracing, err := telemetry.NewProvider(ctx, telemetry.Config{
		ServiceName:    "voxalign",
		ServiceVersion: version.Version,
		Endpoint:       cfg.OTLPEndpoint,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialise tracing")
	}
	defer func() {
		if err := tracing.Shutdown(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("tracing shutdown failed")
		}
	}()

	store, err := buildStore(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialise job store")
	}

	transcriber := asr.New(cfg.ASRURL)
	diarizer := diarize.New(cfg.DiarizeURL)

	runner := &pipeline.Runner{
		Store:       store,
		Fetcher:     fetch.NewHTTPDownloader(cfg.FetchTimeout),
		Diarizer:    diarizer,
		Transcriber: transcriber,
		Aligner:     align.Aligner{MergeGap: cfg.MergeGap},
		Notifier:    webhook.NewDispatcher(cfg.WebhookSecret, xlog.WithComponent("webhook")),
		Logger:      xlog.WithComponent("pipeline"),
		MinSpeakers: cfg.MinSpeakers,
		MaxSpeakers: cfg.MaxSpeakers,
	}
	w := worker.New(store, runner, diarizer, transcriber, cfg.PollInterval)

	hm := health.NewManager(version.Version)
	hm.Register(health.CheckerFunc{CheckerName: "worker", Fn: func(context.Context) health.CheckResult {
		select {
		case <-w.Ready():
			return health.CheckResult{Status: health.StatusHealthy}
		default:
			return health.CheckResult{Status: health.StatusUnhealthy, Error: "engine warmup pending"}
		}
	}})
	if rs, ok := store.(*jobs.RedisStore); ok {
		hm.Register(health.CheckerFunc{CheckerName: "store", Fn: func(cctx context.Context) health.CheckResult {
			if err := rs.HealthCheck(cctx); err != nil {
				return health.CheckResult{Status: health.StatusUnhealthy, Error: err.Error()}
			}
			return health.CheckResult{Status: health.StatusHealthy}
		}})
	}

	var identifier *identify.Client
	if cfg.PyannoteAPIKey != "" {
		identifier = identify.New(cfg.PyannoteAPIURL, cfg.PyannoteAPIKey, cfg.PyannoteModel)
	} else {
		logger.Info().Msg("no pyannote api key configured, speaker identification disabled")
	}

	srv := &http.Server{
		Addr: cfg.Listen,
		Handler: api.New(api.Config{
			Store:           store,
			Health:          hm,
			Identify:        identifier,
			DefaultCallback: cfg.WebhookURL,
			SubmitRPM:       cfg.SubmitRPM,
			Tracing:         cfg.OTLPEndpoint != "",
		}).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().Str("listen", cfg.Listen).Msg("http server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return w.Start(gctx)
	})

	// Stop accepting requests once the root context is cancelled; the worker
	// observes the same cancellation between iterations.
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("service terminated with error")
		os.Exit(1)
	}
	logger.Info().Msg("shutdown complete")
}

// buildStore selects the Redis-backed store when an address is configured and
// falls back to the volatile in-memory store otherwise.
func buildStore(cfg config.Settings, logger zerolog.Logger) (jobs.Store, error) {
	if cfg.RedisAddr == "" {
		logger.Warn().Msg("no redis configured, using in-memory job store (jobs do not survive restarts)")
		return jobs.NewMemoryStore(), nil
	}
	return jobs.NewRedisStore(jobs.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, xlog.WithComponent("store"))
}
