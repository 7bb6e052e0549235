// SPDX-License-Identifier: MIT

package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchWritesTempFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/wav")
		_, _ = w.Write([]byte("RIFFdata"))
	}))
	defer srv.Close()

	d := NewHTTPDownloader(5 * time.Second)
	path, cleanup, err := d.Fetch(context.Background(), srv.URL+"/rec")
	require.NoError(t, err)
	defer cleanup()

	assert.True(t, strings.HasSuffix(path, ".wav"), "got %s", path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "RIFFdata", string(data))

	cleanup()
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "cleanup must remove the file")
}

func TestFetchNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	d := NewHTTPDownloader(5 * time.Second)
	_, _, err := d.Fetch(context.Background(), srv.URL+"/missing.wav")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestFetchTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	d := NewHTTPDownloader(50 * time.Millisecond)
	_, _, err := d.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
}

func TestExtensionSniffing(t *testing.T) {
	cases := []struct {
		contentType, url, want string
	}{
		{"audio/webm", "http://x/a", ".webm"},
		{"", "http://x/a.m4a", ".m4a"},
		{"audio/mp4", "http://x/a", ".m4a"},
		{"audio/wav", "http://x/a", ".wav"},
		{"application/ogg", "http://x/a", ".ogg"},
		{"application/octet-stream", "http://x/a.bin", ".webm"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, extension(c.contentType, c.url), "%s %s", c.contentType, c.url)
	}
}
