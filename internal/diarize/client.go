// SPDX-License-Identifier: MIT

package diarize

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
	"strconv"
	"strings"
	"time"
)

// Client talks to a pyannote-style diarization server.
type Client struct {
	base string
	http *http.Client
}

// New creates a client for the diarization server at base.
func New(base string) *Client {
	return &Client{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: 15 * time.Minute},
	}
}

// Warm asks the server to load its pipeline and embedding models.
func (c *Client) Warm(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/warmup", nil)
	if err != nil {
		return err
	}
	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("diarize warmup: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode/100 != 2 {
		return fmt.Errorf("diarize warmup: unexpected status %d", res.StatusCode)
	}
	return nil
}

// Diarize uploads the audio and returns the ordered speaker turns.
// Zero-valued speaker bounds are omitted from the request.
func (c *Client) Diarize(ctx context.Context, audioPath string, minSpeakers, maxSpeakers int) ([]Turn, error) {
	fields := map[string]string{}
	if minSpeakers > 0 {
		fields["min_speakers"] = strconv.Itoa(minSpeakers)
	}
	if maxSpeakers > 0 {
		fields["max_speakers"] = strconv.Itoa(maxSpeakers)
	}

	body, contentType, err := audioForm(audioPath, fields)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/diarize", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("diarize: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode/100 != 2 {
		return nil, fmt.Errorf("diarize: unexpected status %d", res.StatusCode)
	}

	var p struct {
		Segments []Turn `json:"segments"`
	}
	if err := json.NewDecoder(res.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("diarize: decode response: %w", err)
	}
	return p.Segments, nil
}

// ExtractEmbeddings uploads the audio together with the diarized turns and
// returns one averaged voice embedding per speaker label.
func (c *Client) ExtractEmbeddings(ctx context.Context, audioPath string, turns []Turn) (map[string][]float64, error) {
	segments, err := json.Marshal(turns)
	if err != nil {
		return nil, err
	}
	body, contentType, err := audioForm(audioPath, map[string]string{"segments": string(segments)})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/embeddings", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("extract embeddings: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode/100 != 2 {
		return nil, fmt.Errorf("extract embeddings: unexpected status %d", res.StatusCode)
	}

	var p struct {
		Embeddings map[string][]float64 `json:"embeddings"`
	}
	if err := json.NewDecoder(res.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("extract embeddings: decode response: %w", err)
	}
	return p.Embeddings, nil
}

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
