// SPDX-License-Identifier: MIT

package identify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitIdentificationPayload(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/identify", r.URL.Path)
		assert.Equal(t, "Bearer key-123", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"jobId":"remote-1","status":"created"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "key-123", "precision-2")
	ref, err := c.SubmitIdentification(context.Background(), IdentificationRequest{
		AudioURL:    "http://audio/a.wav",
		Voiceprints: []Voiceprint{{Label: "Ada", Voiceprint: "dGVzdA=="}},
		WebhookURL:  "http://cb?recording_id=rec-1",
		MaxSpeakers: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, "remote-1", ref.JobID)
	assert.Equal(t, "created", ref.Status)

	assert.Equal(t, "http://audio/a.wav", got["url"])
	assert.Equal(t, "precision-2", got["model"])
	assert.Equal(t, "http://cb?recording_id=rec-1", got["webhook"])
	assert.Equal(t, true, got["confidence"])
	assert.Equal(t, float64(3), got["maxSpeakers"])
	_, hasMin := got["minSpeakers"]
	assert.False(t, hasMin, "zero bounds must be omitted")

	matching, ok := got["matching"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, false, matching["exclusive"])

	prints, ok := got["voiceprints"].([]any)
	require.True(t, ok)
	require.Len(t, prints, 1)
	assert.Equal(t, "Ada", prints[0].(map[string]any)["label"])
}

func TestCreateVoiceprintPayload(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/voiceprint", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"jobId":"vp-1","status":"created"}`))
	}))
	defer srv.Close()

	c := New(srv.URL+"/", "key-123", "precision-2")
	ref, err := c.CreateVoiceprint(context.Background(), "http://audio/sample.wav", "")
	require.NoError(t, err)
	assert.Equal(t, "vp-1", ref.JobID)

	assert.Equal(t, "http://audio/sample.wav", got["url"])
	_, hasWebhook := got["webhook"]
	assert.False(t, hasWebhook, "empty webhook must be omitted")
}

func TestAPIErrorCarriesStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "payment required", http.StatusPaymentRequired)
	}))
	defer srv.Close()

	c := New(srv.URL, "key-123", "precision-2")
	_, err := c.CreateVoiceprint(context.Background(), "http://audio/a.wav", "")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusPaymentRequired, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "payment required")
}
