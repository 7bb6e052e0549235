// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/voxalign/voxalign/internal/identify"
	"github.com/voxalign/voxalign/internal/jobs"
	"github.com/voxalign/voxalign/internal/log"
	"github.com/voxalign/voxalign/internal/metrics"
)

// SubmitRequest is the body of POST /diarize.
type SubmitRequest struct {
	RecordingID string `json:"recording_id"`
	AudioURL    string `json:"audio_url"`
	CallbackURL string `json:"callback_url,omitempty"`
}

// SubmitResponse acknowledges an accepted job.
type SubmitResponse struct {
	JobID       string `json:"job_id"`
	RecordingID string `json:"recording_id"`
	Status      string `json:"status"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, err)
		return
	}

	callback := req.CallbackURL
	if callback == "" {
		callback = s.defaultCallback
	}

	job, err := s.store.Add(r.Context(), req.RecordingID, req.AudioURL, callback)
	if err != nil {
		logRequest(r).Error().Err(err).Msg("job submission failed")
		writeServiceUnavailable(w, errors.New("job store unavailable"))
		return
	}

	metrics.JobsSubmitted.Inc()
	logRequest(r).Info().
		Str(log.FieldJobID, job.ID).
		Str(log.FieldRecordingID, job.RecordingID).
		Msg("job accepted")

	writeJSON(w, http.StatusAccepted, SubmitResponse{
		JobID:       job.ID,
		RecordingID: job.RecordingID,
		Status:      job.Status.String(),
	})
}

func (req *SubmitRequest) validate() error {
	if req.RecordingID == "" {
		return errors.New("recording_id is required")
	}
	if req.AudioURL == "" {
		return errors.New("audio_url is required")
	}
	if _, err := url.ParseRequestURI(req.AudioURL); err != nil {
		return fmt.Errorf("invalid audio_url: %w", err)
	}
	if req.CallbackURL != "" {
		if _, err := url.ParseRequestURI(req.CallbackURL); err != nil {
			return fmt.Errorf("invalid callback_url: %w", err)
		}
	}
	return nil
}

// IdentifyRequest is the body of POST /identify: diarization with speaker
// identification against known voiceprints, run on the remote service.
type IdentifyRequest struct {
	RecordingID string                `json:"recording_id"`
	AudioURL    string                `json:"audio_url"`
	Voiceprints []identify.Voiceprint `json:"voiceprints"`
	CallbackURL string                `json:"callback_url,omitempty"`
	NumSpeakers int                   `json:"num_speakers,omitempty"`
	MinSpeakers int                   `json:"min_speakers,omitempty"`
	MaxSpeakers int                   `json:"max_speakers,omitempty"`
}

// VoiceprintRequest is the body of POST /voiceprint. The audio sample should
// contain a single speaker and be at most 30 seconds long.
type VoiceprintRequest struct {
	AudioURL    string `json:"audio_url"`
	CallbackURL string `json:"callback_url,omitempty"`
}

// VoiceprintResponse acknowledges a submitted voiceprint job.
type VoiceprintResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

func (s *Server) handleIdentify(w http.ResponseWriter, r *http.Request) {
	if s.identify == nil {
		writeServiceUnavailable(w, errors.New("speaker identification not configured"))
		return
	}

	var req IdentifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, err)
		return
	}

	callback := req.CallbackURL
	if callback == "" {
		callback = s.defaultCallback
	}

	ref, err := s.identify.SubmitIdentification(r.Context(), identify.IdentificationRequest{
		AudioURL:    req.AudioURL,
		Voiceprints: req.Voiceprints,
		WebhookURL:  callbackWithRecording(callback, req.RecordingID),
		NumSpeakers: req.NumSpeakers,
		MinSpeakers: req.MinSpeakers,
		MaxSpeakers: req.MaxSpeakers,
	})
	if err != nil {
		writeUpstreamError(w, r, err)
		return
	}

	logRequest(r).Info().
		Str(log.FieldRecordingID, req.RecordingID).
		Str(log.FieldJobID, ref.JobID).
		Msg("identification job submitted")

	writeJSON(w, http.StatusAccepted, SubmitResponse{
		JobID:       ref.JobID,
		RecordingID: req.RecordingID,
		Status:      ref.Status,
	})
}

func (req *IdentifyRequest) validate() error {
	if req.RecordingID == "" {
		return errors.New("recording_id is required")
	}
	if req.AudioURL == "" {
		return errors.New("audio_url is required")
	}
	if _, err := url.ParseRequestURI(req.AudioURL); err != nil {
		return fmt.Errorf("invalid audio_url: %w", err)
	}
	if len(req.Voiceprints) == 0 {
		return errors.New("at least one voiceprint is required")
	}
	for i, vp := range req.Voiceprints {
		if vp.Label == "" || vp.Voiceprint == "" {
			return fmt.Errorf("voiceprint %d: label and voiceprint are required", i)
		}
	}
	return nil
}

func (s *Server) handleVoiceprint(w http.ResponseWriter, r *http.Request) {
	if s.identify == nil {
		writeServiceUnavailable(w, errors.New("speaker identification not configured"))
		return
	}

	var req VoiceprintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if req.AudioURL == "" {
		writeError(w, errors.New("audio_url is required"))
		return
	}
	if _, err := url.ParseRequestURI(req.AudioURL); err != nil {
		writeError(w, fmt.Errorf("invalid audio_url: %w", err))
		return
	}

	callback := req.CallbackURL
	if callback == "" {
		callback = s.defaultCallback
	}

	ref, err := s.identify.CreateVoiceprint(r.Context(), req.AudioURL, callback)
	if err != nil {
		writeUpstreamError(w, r, err)
		return
	}

	logRequest(r).Info().Str(log.FieldJobID, ref.JobID).Msg("voiceprint job submitted")
	writeJSON(w, http.StatusAccepted, VoiceprintResponse{JobID: ref.JobID, Status: ref.Status})
}

// callbackWithRecording appends the recording id to the callback URL so the
// receiver can correlate the remote result with its recording.
func callbackWithRecording(callback, recordingID string) string {
	if callback == "" {
		return ""
	}
	sep := "?"
	if strings.Contains(callback, "?") {
		sep = "&"
	}
	return callback + sep + "recording_id=" + url.QueryEscape(recordingID)
}

// writeUpstreamError maps remote API responses onto ours: upstream statuses
// (payment required, rate limited, ...) pass through, anything else is a
// gateway failure.
func writeUpstreamError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *identify.APIError
	if errors.As(err, &apiErr) {
		logRequest(r).Warn().Int(log.FieldStatusCode, apiErr.StatusCode).Msg("identification api rejected request")
		writeJSON(w, apiErr.StatusCode, map[string]string{"error": apiErr.Body})
		return
	}
	logRequest(r).Error().Err(err).Msg("identification api unreachable")
	writeJSON(w, http.StatusBadGateway, map[string]string{"error": "identification service unavailable"})
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	job, err := s.store.Get(r.Context(), id)
	if errors.Is(err, jobs.ErrNotFound) {
		writeNotFound(w)
		return
	}
	if err != nil {
		logRequest(r).Error().Err(err).Str(log.FieldJobID, id).Msg("job lookup failed")
		writeServiceUnavailable(w, errors.New("job store unavailable"))
		return
	}

	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.health.Health(r.Context()))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	resp := s.health.Ready(r.Context())
	code := http.StatusOK
	if !resp.Ready {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}

func logRequest(r *http.Request) *zerolog.Logger {
	l := log.WithContext(r.Context(), log.WithComponent("api"))
	return &l
}
