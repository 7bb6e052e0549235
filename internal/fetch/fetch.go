// SPDX-License-Identifier: MIT

// Package fetch downloads remote audio into scoped temporary files.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// Downloader retrieves a remote audio file into local storage.
type Downloader interface {
	// Fetch downloads url into a temp file and returns its path together
	// with a cleanup func. Cleanup must be called on every exit path.
	Fetch(ctx context.Context, url string) (path string, cleanup func(), err error)
}

// HTTPDownloader is the default Downloader over plain HTTP GET.
type HTTPDownloader struct {
	client *http.Client
}

// NewHTTPDownloader creates a downloader with the given total-request timeout.
func NewHTTPDownloader(timeout time.Duration) *HTTPDownloader {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &HTTPDownloader{client: &http.Client{Timeout: timeout}}
}

// Fetch downloads url into a temp file whose extension is sniffed from the
// Content-Type header or the URL. Non-2xx responses are retrieval errors.
func (d *HTTPDownloader) Fetch(ctx context.Context, url string) (string, func(), error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", nil, fmt.Errorf("fetch audio: %w", err)
	}

	res, err := d.client.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("fetch audio: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode/100 != 2 {
		return "", nil, fmt.Errorf("fetch audio: unexpected status %d for %s", res.StatusCode, url)
	}

	f, err := os.CreateTemp("", "voxalign-*"+extension(res.Header.Get("Content-Type"), url))
	if err != nil {
		return "", nil, fmt.Errorf("create temp audio file: %w", err)
	}

	cleanup := func() { _ = os.Remove(f.Name()) }

	if _, err := io.Copy(f, res.Body); err != nil {
		_ = f.Close()
		cleanup()
		return "", nil, fmt.Errorf("write temp audio file: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("close temp audio file: %w", err)
	}

	return f.Name(), cleanup, nil
}

// extension picks a temp file suffix from the content type or URL, defaulting
// to .webm like the recordings we most often receive.
func extension(contentType, url string) string {
	switch {
	case strings.Contains(contentType, "webm") || strings.HasSuffix(url, ".webm"):
		return ".webm"
	case strings.Contains(contentType, "mp4") || strings.Contains(contentType, "m4a") || strings.HasSuffix(url, ".m4a"):
		return ".m4a"
	case strings.Contains(contentType, "wav") || strings.HasSuffix(url, ".wav"):
		return ".wav"
	case strings.Contains(contentType, "ogg") || strings.HasSuffix(url, ".ogg"):
		return ".ogg"
	default:
		return ".webm"
	}
}
