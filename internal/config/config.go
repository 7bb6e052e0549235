// SPDX-License-Identifier: MIT

// Package config loads service configuration with precedence ENV > file > defaults.
package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Settings holds the full runtime configuration of the service.
type Settings struct {
	// Server
	Listen   string `yaml:"listen"`
	LogLevel string `yaml:"log_level"`

	// Job store. An empty RedisAddr selects the in-memory store.
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`

	// External engines
	ASRURL     string `yaml:"asr_url"`
	DiarizeURL string `yaml:"diarize_url"`

	// Webhook delivery
	WebhookURL    string `yaml:"webhook_url"`
	WebhookSecret string `yaml:"webhook_secret"`

	// Diarization bounds; zero means unconstrained.
	MinSpeakers int `yaml:"min_speakers"`
	MaxSpeakers int `yaml:"max_speakers"`

	// Alignment
	MergeGap float64 `yaml:"merge_gap"`

	// Worker
	PollInterval time.Duration `yaml:"poll_interval"`
	FetchTimeout time.Duration `yaml:"fetch_timeout"`

	// Speaker identification via the pyannoteAI cloud API. An empty key
	// disables the /identify and /voiceprint endpoints.
	PyannoteAPIKey string `yaml:"pyannote_api_key"`
	PyannoteAPIURL string `yaml:"pyannote_api_url"`
	PyannoteModel  string `yaml:"pyannote_model"`

	// Tracing; empty endpoint disables the exporter.
	OTLPEndpoint string `yaml:"otlp_endpoint"`

	// Rate limiting of job submission.
	SubmitRPM int `yaml:"submit_rpm"`
}

// Defaults returns the built-in configuration defaults.
func Defaults() Settings {
	return Settings{
		Listen:         ":8080",
		LogLevel:       "info",
		WebhookURL:     "http://localhost:3000/api/webhooks/diarization",
		MergeGap:       1.0,
		PollInterval:   time.Second,
		FetchTimeout:   2 * time.Minute,
		SubmitRPM:      60,
		PyannoteAPIURL: "https://api.pyannote.ai/v1",
		PyannoteModel:  "precision-2",
	}
}

// Load builds Settings from defaults, an optional YAML file and the process
// environment, in increasing order of precedence.
func Load(path string) (Settings, error) {
	s := Defaults()

	if path != "" {
		data, err := os.ReadFile(path) // #nosec G304 -- operator-supplied path
		if err != nil {
			return Settings{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &s); err != nil {
			return Settings{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	s.applyEnv()

	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func (s *Settings) applyEnv() {
	s.Listen = ParseString("VOXALIGN_LISTEN", s.Listen)
	s.LogLevel = ParseString("LOG_LEVEL", s.LogLevel)
	s.RedisAddr = ParseString("VOXALIGN_REDIS_ADDR", s.RedisAddr)
	s.RedisPassword = ParseString("VOXALIGN_REDIS_PASSWORD", s.RedisPassword)
	s.RedisDB = ParseInt("VOXALIGN_REDIS_DB", s.RedisDB)
	s.ASRURL = ParseString("VOXALIGN_ASR_URL", s.ASRURL)
	s.DiarizeURL = ParseString("VOXALIGN_DIARIZE_URL", s.DiarizeURL)
	s.WebhookURL = ParseString("VOXALIGN_WEBHOOK_URL", s.WebhookURL)
	s.WebhookSecret = ParseString("VOXALIGN_WEBHOOK_SECRET", s.WebhookSecret)
	s.MinSpeakers = ParseInt("VOXALIGN_MIN_SPEAKERS", s.MinSpeakers)
	s.MaxSpeakers = ParseInt("VOXALIGN_MAX_SPEAKERS", s.MaxSpeakers)
	s.MergeGap = ParseFloat("VOXALIGN_MERGE_GAP", s.MergeGap)
	s.PollInterval = ParseDuration("VOXALIGN_POLL_INTERVAL", s.PollInterval)
	s.FetchTimeout = ParseDuration("VOXALIGN_FETCH_TIMEOUT", s.FetchTimeout)
	s.PyannoteAPIKey = ParseString("VOXALIGN_PYANNOTE_API_KEY", s.PyannoteAPIKey)
	s.PyannoteAPIURL = ParseString("VOXALIGN_PYANNOTE_API_URL", s.PyannoteAPIURL)
	s.PyannoteModel = ParseString("VOXALIGN_PYANNOTE_MODEL", s.PyannoteModel)
	s.OTLPEndpoint = ParseString("VOXALIGN_OTLP_ENDPOINT", s.OTLPEndpoint)
	s.SubmitRPM = ParseInt("VOXALIGN_SUBMIT_RPM", s.SubmitRPM)
}

// Validate checks the internal consistency of the settings.
func (s *Settings) Validate() error {
	if s.MergeGap < 0 {
		return fmt.Errorf("merge_gap must be >= 0, got %v", s.MergeGap)
	}
	if s.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %v", s.PollInterval)
	}
	if s.FetchTimeout <= 0 {
		return fmt.Errorf("fetch_timeout must be positive, got %v", s.FetchTimeout)
	}
	if s.MinSpeakers < 0 || s.MaxSpeakers < 0 {
		return fmt.Errorf("speaker bounds must be >= 0")
	}
	if s.MinSpeakers > 0 && s.MaxSpeakers > 0 && s.MinSpeakers > s.MaxSpeakers {
		return fmt.Errorf("min_speakers (%d) exceeds max_speakers (%d)", s.MinSpeakers, s.MaxSpeakers)
	}
	for _, u := range []struct{ name, val string }{
		{"asr_url", s.ASRURL},
		{"diarize_url", s.DiarizeURL},
		{"webhook_url", s.WebhookURL},
		{"pyannote_api_url", s.PyannoteAPIURL},
	} {
		if u.val == "" {
			continue
		}
		if _, err := url.ParseRequestURI(u.val); err != nil {
			return fmt.Errorf("invalid %s: %w", u.name, err)
		}
	}
	return nil
}
