package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"payrelay/internal/constants"
)

type webhookPayload struct {
	Title string       `json:"title"`
	Text  string       `json:"text"`
	Input payloadInput `json:"input"`
}

type payloadInput struct {
	Data string `json:"data"`
}

// WebhookDispatcher delivers one rendered notification to one endpoint.
// No retry, no queueing: a failure is reported to the caller and that is the
// end of it.
type WebhookDispatcher struct {
	client *http.Client
	now    func() time.Time
}

func NewWebhookDispatcher(timeout time.Duration) *WebhookDispatcher {
	if timeout <= 0 {
		timeout = constants.DispatchHTTPTimeout
	}
	return &WebhookDispatcher{
		client: &http.Client{
			Timeout: timeout,
		},
		now: time.Now,
	}
}

// Deliver POSTs the notification body to url. A nil error means the endpoint
// acknowledged with a 2xx status.
func (d *WebhookDispatcher) Deliver(ctx context.Context, url, title, text string) error {
	payload := webhookPayload{
		Title: title,
		Text:  text,
		Input: payloadInput{
			Data: d.now().Format(renderTimeLayout),
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < constants.HTTPStatusOKMin || resp.StatusCode >= constants.HTTPStatusOKMax {
		return fmt.Errorf("webhook endpoint returned status %d", resp.StatusCode)
	}

	return nil
}
