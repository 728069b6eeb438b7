package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/hamed0406/uptimeguard/internal/domain"
)

// Webhook posts the alert job as JSON to an arbitrary endpoint.
type Webhook struct {
	URL    string
	Client *http.Client
}

func NewWebhook(url string) *Webhook {
	if url == "" {
		return nil
	}
	return &Webhook{URL: url, Client: &http.Client{Timeout: 10 * time.Second}}
}

type webhookPayload struct {
	domain.AlertJob
	Title string `json:"title"`
	Text  string `json:"text"`
}

func (w *Webhook) Notify(ctx context.Context, job domain.AlertJob) error {
	if w == nil || w.URL == "" {
		return errors.New("webhook disabled")
	}
	title, text := Format(job)
	body, err := json.Marshal(webhookPayload{AlertJob: job, Title: title, Text: text})
	if err != nil {
		return err
	}
	return postJSON(ctx, w.Client, w.URL, body)
}
