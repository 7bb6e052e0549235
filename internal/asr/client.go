// SPDX-License-Identifier: MIT

package asr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Client talks to a whisper-style transcription server.
type Client struct {
	base string
	http *http.Client
}

// New creates a client for the transcription server at base.
func New(base string) *Client {
	return &Client{
		base: strings.TrimRight(base, "/"),
		// Inference on long recordings is slow; the per-call budget is generous
		// but bounded so a stuck engine cannot wedge the worker.
		http: &http.Client{Timeout: 15 * time.Minute},
	}
}

// Warm asks the server to load its model. It blocks until the model is
// resident or the context expires.
func (c *Client) Warm(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/warmup", nil)
	if err != nil {
		return err
	}
	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("asr warmup: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode/100 != 2 {
		return fmt.Errorf("asr warmup: unexpected status %d", res.StatusCode)
	}
	return nil
}

// Transcribe uploads the audio file and decodes the returned segments,
// including word-level timestamps.
func (c *Client) Transcribe(ctx context.Context, audioPath string) ([]Segment, error) {
	body, contentType, err := audioForm(audioPath, nil)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/transcribe", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("asr transcribe: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode/100 != 2 {
		return nil, fmt.Errorf("asr transcribe: unexpected status %d", res.StatusCode)
	}

	var p struct {
		Segments []Segment `json:"segments"`
	}
	if err := json.NewDecoder(res.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("asr transcribe: decode response: %w", err)
	}
	return p.Segments, nil
}

// audioForm builds a multipart body with the audio file under field "audio"
// plus any extra string fields.
func audioForm(audioPath string, fields map[string]string) (io.Reader, string, error) {
	f, err := os.Open(audioPath) // #nosec G304 -- path is a worker-created temp file
	if err != nil {
		return nil, "", fmt.Errorf("open audio: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("audio", filepath.Base(audioPath))
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("read audio: %w", err)
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
