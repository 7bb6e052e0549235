// SPDX-License-Identifier: MIT

package log

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestContextRoundTrip(t *testing.T) {
	ctx := context.Background()
	ctx = ContextWithRequestID(ctx, "req-1")
	ctx = ContextWithJobID(ctx, "job-1")

	if got := RequestIDFromContext(ctx); got != "req-1" {
		t.Errorf("request id: got %q, want %q", got, "req-1")
	}
	if got := JobIDFromContext(ctx); got != "job-1" {
		t.Errorf("job id: got %q, want %q", got, "job-1")
	}
}

func TestContextEmpty(t *testing.T) {
	if got := RequestIDFromContext(context.Background()); got != "" {
		t.Errorf("expected empty request id, got %q", got)
	}
	if got := JobIDFromContext(nil); got != "" { //nolint:staticcheck // nil ctx tolerated
		t.Errorf("expected empty job id, got %q", got)
	}
}

func TestWithContextAddsFields(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	ctx := ContextWithJobID(context.Background(), "job-42")
	logger := WithContext(ctx, base)
	logger.Info().Msg("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid log output: %v", err)
	}
	if entry["job_id"] != "job-42" {
		t.Errorf("expected job_id field, got %v", entry)
	}
}
