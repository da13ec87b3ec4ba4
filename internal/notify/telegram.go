// Package notify delivers operator notifications. Delivery failures are
// reported to the caller but must never abort a backup cycle.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Notifier sends one message to a set of recipients.
type Notifier interface {
	Send(ctx context.Context, recipients []string, message string) error
}

// Telegram sends messages through the Telegram bot API.
type Telegram struct {
	token  string
	client *http.Client
}

func NewTelegram(token string) *Telegram {
	return &Telegram{
		token:  token,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (t *Telegram) Send(ctx context.Context, recipients []string, message string) error {
	if t.token == "" {
		return fmt.Errorf("telegram token not configured")
	}
	url := "https://api.telegram.org/bot" + t.token + "/sendMessage"

	var firstErr error
	for _, chatID := range recipients {
		if chatID == "" {
			continue
		}
		body, err := json.Marshal(map[string]string{
			"chat_id": chatID,
			"text":    message,
		})
		if err != nil {
			return err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := t.client.Do(req)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if resp.StatusCode >= 400 && firstErr == nil {
			firstErr = fmt.Errorf("telegram: status %d for chat %s", resp.StatusCode, chatID)
		}
		_ = resp.Body.Close()
	}
	return firstErr
}

// Noop discards all messages. Used in mock mode and tests.
type Noop struct{}

func (Noop) Send(ctx context.Context, recipients []string, message string) error {
	return nil
}

// SplitRecipients parses a comma-separated recipient list.
func SplitRecipients(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
