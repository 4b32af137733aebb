package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

// Notifier delivers a match/no-match notice to a user's reply target.
// Delivery is best-effort: a failure is reported to the caller but must
// never unwind the match that triggered it.
type Notifier interface {
	Notify(ctx context.Context, userID, text string) error
}

// LogNotifier just logs notices. Used when no delivery channel is
// configured and as the stand-in during local development.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, userID, text string) error {
	log.Printf("📨 Notice for %s: %s", userID, text)
	return nil
}

// WebhookNotifier POSTs notices to the conversational front-end, which
// owns the actual delivery to the user.
type WebhookNotifier struct {
	URL    string
	Client *http.Client
}

func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		URL:    url,
		Client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (n *WebhookNotifier) Notify(ctx context.Context, userID, text string) error {
	payload, err := json.Marshal(map[string]string{
		"userId": userID,
		"text":   text,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal notice for %s: %w", userID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.URL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build notice request for %s: %w", userID, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.Client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to deliver notice to %s: %w", userID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("notice delivery to %s returned status %d", userID, resp.StatusCode)
	}
	return nil
}
