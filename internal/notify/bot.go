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

// BotSender posts plain text to a GroupMe-style bot endpoint.
type BotSender struct {
	baseURL string
	botID   string
	http    *http.Client
}

// NewBotSender creates a sender posting with the given bot id.
func NewBotSender(baseURL, botID string) *BotSender {
	return &BotSender{
		baseURL: strings.TrimRight(baseURL, "/"),
		botID:   botID,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// SendText posts the message to the group.
func (s *BotSender) SendText(ctx context.Context, text string) error {
	body, err := json.Marshal(map[string]string{
		"bot_id": s.botID,
		"text":   text,
	})
	if err != nil {
		return fmt.Errorf("marshal bot payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/bots/post", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build bot request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("post bot message: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("bot status %d", resp.StatusCode)
	}
	return nil
}
