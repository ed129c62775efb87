// Package alert delivers best-effort ops notifications. Delivery failures are
// logged and swallowed, never retried and never escalated to callers.
package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/labstack/gommon/log"
)

type Webhook struct {
	url    string
	client *http.Client
}

func NewWebhook(url string) *Webhook {
	return &Webhook{
		url:    url,
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

// Notify fires a JSON POST at the configured sink. A missing URL disables
// alerting entirely.
func (w *Webhook) Notify(ctx context.Context, payload interface{}) {
	if w.url == "" {
		return
	}

	body, err := json.Marshal(payload)
	if err != nil {
		log.Errorf("alert: marshalling payload: %v", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		log.Errorf("alert: creating request: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		log.Errorf("alert: delivering webhook: %v", err)
		return
	}
	resp.Body.Close()

	if resp.StatusCode >= 300 {
		log.Errorf("alert: webhook sink returned status %d", resp.StatusCode)
	}
}
