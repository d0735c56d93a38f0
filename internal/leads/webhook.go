package leads

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pantechsoftware2/Scholarship-Finder/internal/utils"
)

// RemoteStatus classifies a single webhook write.
type RemoteStatus string

const (
	// RemoteConfirmed means HTTP 200 with a JSON body carrying success=true.
	RemoteConfirmed RemoteStatus = "confirmed"
	// RemoteAmbiguous means HTTP 200 with a body that is not JSON.
	RemoteAmbiguous RemoteStatus = "ambiguous"
	// RemoteRejected means HTTP 200 with a JSON body without success=true.
	RemoteRejected RemoteStatus = "rejected"
	// RemoteFailed covers transport errors, non-200 statuses and a missing URL.
	RemoteFailed RemoteStatus = "failed"
)

const (
	contentType    = "application/json"
	userAgent      = "scholarship-finder"
	webhookTimeout = 30 * time.Second
	maxBodyLog     = 500
	maxBodyRead    = 1 << 20
)

type ack struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// Webhook posts lead payloads to a Google Apps Script web app.
type Webhook struct {
	url        string
	logger     *zap.Logger
	HTTPClient *http.Client
	UserAgent  string
}

// NewWebhook creates a webhook client. Redirects are followed since Apps Script
// answers a POST with a redirect to the result page.
func NewWebhook(url string, logger *zap.Logger) *Webhook {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Webhook{
		url:    strings.TrimSpace(url),
		logger: logger,
		HTTPClient: &http.Client{
			Timeout: webhookTimeout,
		},
		UserAgent: userAgent,
	}
}

// Send posts payload exactly once and classifies the answer.
func (w *Webhook) Send(ctx context.Context, payload Payload) RemoteStatus {
	if w.url == "" {
		w.logger.Error("lead webhook url is not configured", zap.String("email", payload.Email))
		return RemoteFailed
	}

	status, err := w.send(context.WithoutCancel(ctx), payload)
	if err != nil {
		w.logger.Error("lead webhook request failed", zap.String("email", payload.Email), zap.Error(err))
	}

	return status
}

func (w *Webhook) send(ctx context.Context, payload Payload) (RemoteStatus, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return RemoteFailed, fmt.Errorf("encoding payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return RemoteFailed, fmt.Errorf("building request: %w", err)
	}

	req = w.setHeaders(req)

	w.logger.Debug("make request", zap.String("url", req.URL.Redacted()))
	resp, err := w.HTTPClient.Do(req)
	if err != nil {
		return RemoteFailed, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyRead))
	if err != nil {
		return RemoteFailed, fmt.Errorf("reading response: %w", err)
	}

	w.logger.Debug("got response from lead webhook",
		zap.Int("status", resp.StatusCode),
		zap.String("body", utils.TruncateForLog(string(data), maxBodyLog)),
	)

	if resp.StatusCode != http.StatusOK {
		return RemoteFailed, fmt.Errorf("bad status: %s", resp.Status)
	}

	return w.classify(data, payload.Email), nil
}

func (w *Webhook) classify(body []byte, email string) RemoteStatus {
	if !json.Valid(body) {
		w.logger.Warn("lead webhook returned non-json response", zap.String("email", email))
		return RemoteAmbiguous
	}

	var result ack
	if err := json.Unmarshal(body, &result); err != nil || !result.Success {
		reason := result.Error
		if reason == "" {
			reason = "unknown error"
		}
		w.logger.Error("lead webhook rejected lead", zap.String("email", email), zap.String("error", reason))
		return RemoteRejected
	}

	return RemoteConfirmed
}

func (w *Webhook) setHeaders(req *http.Request) *http.Request {
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", contentType)
	req.Header.Set("User-Agent", w.UserAgent)

	return req
}
