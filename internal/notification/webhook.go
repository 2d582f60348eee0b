package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// maxChatText is the longest body Discord accepts in "content".
const maxChatText = 2000

// webhookPayload carries the typed alert plus "text" and "content", which
// Slack and Discord incoming webhooks render directly.
type webhookPayload struct {
	Level   AlertLevel `json:"level"`
	Kind    AlertKind  `json:"kind"`
	Title   string     `json:"title"`
	Message string     `json:"message"`
	Text    string     `json:"text"`
	Content string     `json:"content"`
	TS      string     `json:"ts"`
}

// WebhookNotifier POSTs alerts as JSON to an HTTP endpoint.
type WebhookNotifier struct {
	url    string
	client *http.Client
	now    func() time.Time
}

// NewWebhookNotifier returns a notifier for url. An empty url disables it.
func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		now:    time.Now,
	}
}

func (w *WebhookNotifier) Send(ctx context.Context, alert Alert) error {
	if w.url == "" {
		return nil
	}
	text := alert.Message
	if alert.Title != "" {
		text = "[" + string(alert.Level) + "] " + alert.Title + ": " + alert.Message
	}
	text = Truncate(text, maxChatText)

	body, err := json.Marshal(webhookPayload{
		Level:   alert.Level,
		Kind:    alert.Kind,
		Title:   alert.Title,
		Message: alert.Message,
		Text:    text,
		Content: text,
		TS:      w.now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("webhook: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("webhook: status %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}
	log.Printf("[webhook] delivered %s alert (%s)", alert.Kind, alert.Level)
	return nil
}
