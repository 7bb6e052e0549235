// SPDX-License-Identifier: MIT

// Package identify talks to the pyannoteAI cloud API for voiceprint-based
// speaker identification. Unlike the local diarization pipeline, these jobs
// run entirely on the remote service: we submit them and the remote side
// delivers results to the webhook.
package identify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Voiceprint is a labelled reference sample of a known speaker.
type Voiceprint struct {
	Label      string `json:"label"`
	Voiceprint string `json:"voiceprint"` // base64 payload from a prior /voiceprint job
}

// JobRef identifies a job submitted to the remote service.
type JobRef struct {
	JobID  string `json:"jobId"`
	Status string `json:"status"`
}

// APIError carries a non-2xx response from the remote API so callers can map
// upstream statuses (payment required, rate limit) onto their own responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("pyannote api: status %d: %s", e.StatusCode, e.Body)
}

// IdentificationRequest describes one identification submission. Zero speaker
// bounds are omitted from the payload.
type IdentificationRequest struct {
	AudioURL    string
	Voiceprints []Voiceprint
	WebhookURL  string
	NumSpeakers int
	MinSpeakers int
	MaxSpeakers int

	// MatchingThreshold is the minimum confidence (0-100) for matching a
	// detected speaker to a voiceprint.
	MatchingThreshold float64
}

// Client is a thin client for the pyannoteAI REST API.
type Client struct {
	base   string
	apiKey string
	model  string
	http   *http.Client
}

// New creates a client for the given API base URL (no trailing slash).
func New(base, apiKey, model string) *Client {
	return &Client{
		base:   strings.TrimRight(base, "/"),
		apiKey: apiKey,
		model:  model,
		http:   &http.Client{Timeout: 30 * time.Second},
	}
}

// SubmitIdentification submits a diarization-with-identification job. The
// result arrives at the webhook; the returned JobRef is the remote handle.
func (c *Client) SubmitIdentification(ctx context.Context, req IdentificationRequest) (*JobRef, error) {
	payload := map[string]any{
		"url":         req.AudioURL,
		"model":       c.model,
		"voiceprints": req.Voiceprints,
		"confidence":  true,
		"matching": map[string]any{
			"threshold": req.MatchingThreshold,
			// Several detected speakers may match the same voiceprint.
			"exclusive": false,
		},
	}
	if req.WebhookURL != "" {
		payload["webhook"] = req.WebhookURL
	}
	if req.NumSpeakers > 0 {
		payload["numSpeakers"] = req.NumSpeakers
	}
	if req.MinSpeakers > 0 {
		payload["minSpeakers"] = req.MinSpeakers
	}
	if req.MaxSpeakers > 0 {
		payload["maxSpeakers"] = req.MaxSpeakers
	}
	return c.post(ctx, "/identify", payload)
}

// CreateVoiceprint submits a voiceprint-creation job for an audio sample of a
// single speaker (at most 30 seconds). The base64 voiceprint arrives at the
// webhook.
func (c *Client) CreateVoiceprint(ctx context.Context, audioURL, webhookURL string) (*JobRef, error) {
	payload := map[string]any{
		"url":   audioURL,
		"model": c.model,
	}
	if webhookURL != "" {
		payload["webhook"] = webhookURL
	}
	return c.post(ctx, "/voiceprint", payload)
}

func (c *Client) post(ctx context.Context, path string, payload map[string]any) (*JobRef, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", path, err)
	}
	defer res.Body.Close()

	if res.StatusCode/100 != 2 {
		snippet, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return nil, &APIError{StatusCode: res.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	var ref JobRef
	if err := json.NewDecoder(res.Body).Decode(&ref); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", path, err)
	}
	return &ref, nil
}
