// SPDX-License-Identifier: MIT

// Package webhook delivers best-effort completion notifications.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/voxalign/voxalign/internal/metrics"
)

// SecretHeader carries the shared secret on outbound deliveries when one is
// configured.
const SecretHeader = "X-Webhook-Secret"

// Envelope is the JSON body of every delivery.
type Envelope struct {
	JobID   string `json:"job_id"`
	Success bool   `json:"success"`
	Data    any    `json:"data"`
}

// Dispatcher posts completion/failure envelopes to caller-supplied URLs.
// Delivery is single-attempt and best-effort: failures are logged and
// swallowed, callers fall back to polling the job status endpoint.
type Dispatcher struct {
	client *http.Client
	secret string
	logger zerolog.Logger
}

// NewDispatcher creates a dispatcher. secret may be empty.
func NewDispatcher(secret string, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		client: &http.Client{Timeout: 30 * time.Second},
		secret: secret,
		logger: logger,
	}
}

// Notify POSTs the envelope to callbackURL. It never returns an error; the
// job result is already persisted by the time delivery is attempted.
func (d *Dispatcher) Notify(ctx context.Context, callbackURL, jobID string, success bool, data any) {
	logger := d.logger.With().Str("job_id", jobID).Str("url", callbackURL).Logger()

	if callbackURL == "" {
		logger.Debug().Msg("no callback url, skipping webhook")
		return
	}

	body, err := json.Marshal(Envelope{JobID: jobID, Success: success, Data: data})
	if err != nil {
		metrics.WebhookDeliveries.WithLabelValues("error").Inc()
		logger.Error().Err(err).Msg("webhook payload encoding failed")
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, callbackURL, bytes.NewReader(body))
	if err != nil {
		metrics.WebhookDeliveries.WithLabelValues("error").Inc()
		logger.Error().Err(err).Msg("webhook request creation failed")
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if d.secret != "" {
		req.Header.Set(SecretHeader, d.secret)
	}

	res, err := d.client.Do(req)
	if err != nil {
		metrics.WebhookDeliveries.WithLabelValues("error").Inc()
		logger.Warn().Err(err).Msg("webhook delivery failed")
		return
	}
	defer res.Body.Close()

	if res.StatusCode/100 != 2 {
		metrics.WebhookDeliveries.WithLabelValues("error").Inc()
		logger.Warn().Int("status_code", res.StatusCode).Msg("webhook rejected by receiver")
		return
	}

	metrics.WebhookDeliveries.WithLabelValues("ok").Inc()
	logger.Debug().Bool("success", success).Msg("webhook delivered")
}
