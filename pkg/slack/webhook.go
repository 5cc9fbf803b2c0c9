// Package slack sends notifications through an incoming webhook.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

// Message is the webhook payload.
type Message struct {
	Text        string       `json:"text"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Attachment is a legacy-style message attachment.
type Attachment struct {
	Fallback string   `json:"fallback,omitempty"`
	Text     string   `json:"text,omitempty"`
	Color    string   `json:"color,omitempty"`
	Fields   []Field  `json:"fields,omitempty"`
	Actions  []Action `json:"actions,omitempty"`
}

// Field is a short key/value block inside an attachment.
type Field struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

// Action is an attachment button.
type Action struct {
	Type string `json:"type"`
	Text string `json:"text"`
	URL  string `json:"url"`
}

// Notifier posts messages to a Slack incoming webhook.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

type webhookNotifier struct {
	url  string
	http *http.Client
}

// NewNotifier creates a webhook notifier. An empty URL yields a notifier
// whose Send is a no-op, so callers need no nil checks when Slack is
// unconfigured.
func NewNotifier(webhookURL string) Notifier {
	return &webhookNotifier{
		url:  webhookURL,
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

func (n *webhookNotifier) Send(ctx context.Context, msg Message) error {
	if n.url == "" {
		return nil
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return eris.Wrap(err, "slack: marshal message")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "slack: create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "slack: send request")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return eris.Errorf("slack: webhook returned status %d", resp.StatusCode)
	}

	return nil
}
