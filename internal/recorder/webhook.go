package recorder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/annotation-study/registration/internal/registration"
)

// WebhookSink POSTs each record as a JSON object
type WebhookSink struct {
	url     string
	headers map[string]string
	client  *http.Client
}

type webhookPayload struct {
	*registration.Record
	ProjectsAssigned int `json:"projects_assigned"`
}

// NewWebhookSink creates a webhook sink. A zero timeout defaults to 10 seconds.
func NewWebhookSink(url string, headers map[string]string, timeout time.Duration) *WebhookSink {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &WebhookSink{
		url:     url,
		headers: headers,
		client:  &http.Client{Timeout: timeout},
	}
}

// Name implements Sink
func (s *WebhookSink) Name() string { return "webhook" }

// Append implements Sink
func (s *WebhookSink) Append(ctx context.Context, rec *registration.Record) error {
	data, err := json.Marshal(webhookPayload{Record: rec, ProjectsAssigned: rec.ProjectsAssigned()})
	if err != nil {
		return fmt.Errorf("failed to marshal registration record: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
