package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

type Notification struct {
	To      string
	Subject string
	Body    string
}

type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

type notificationPayload struct {
	ID      string    `json:"id"`
	From    string    `json:"from"`
	To      string    `json:"to"`
	Subject string    `json:"subject"`
	Body    string    `json:"body"`
	SentAt  time.Time `json:"sent_at"`
}

// HTTPNotifier posts notifications as JSON to an outbound mail webhook.
// With no URL configured it drops every message.
type HTTPNotifier struct {
	webhookURL string
	from       string
	client     *http.Client
}

func NewHTTPNotifier(webhookURL string, from string) *HTTPNotifier {
	return &HTTPNotifier{
		webhookURL: webhookURL,
		from:       from,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (n *HTTPNotifier) Notify(ctx context.Context, notification Notification) error {
	if n.webhookURL == "" {
		return nil
	}

	b, err := json.Marshal(notificationPayload{
		ID:      uuid.NewString(),
		From:    n.from,
		To:      notification.To,
		Subject: notification.Subject,
		Body:    notification.Body,
		SentAt:  time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notification webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// notifyAll sends each notification and only logs failures; a lost email
// never undoes a committed transition.
func notifyAll(ctx context.Context, notifier Notifier, notifications ...Notification) {
	if notifier == nil {
		return
	}
	for _, notification := range notifications {
		if notification.To == "" {
			continue
		}
		if err := notifier.Notify(ctx, notification); err != nil {
			slog.Warn("notification failed", "to", notification.To, "subject", notification.Subject, "error", err)
		}
	}
}
