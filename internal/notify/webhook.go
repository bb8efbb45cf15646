package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Author is embedded in every webhook alert.
type Author struct {
	Name    string
	URL     string
	IconURL string
}

// WebhookSender posts alerts to a Discord-compatible webhook URL.
type WebhookSender struct {
	url    string
	author Author
	http   *http.Client
}

// NewWebhookSender creates a sender for the given webhook URL.
func NewWebhookSender(url string, author Author) *WebhookSender {
	return &WebhookSender{
		url:    url,
		author: author,
		http:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Wire types for the webhook embed payload.
type webhookPayload struct {
	Content string         `json:"content,omitempty"`
	Embeds  []webhookEmbed `json:"embeds"`
}

type webhookEmbed struct {
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Color       int             `json:"color,omitempty"`
	Timestamp   string          `json:"timestamp"`
	Author      *webhookAuthor  `json:"author,omitempty"`
	Fields      []webhookField  `json:"fields,omitempty"`
	Thumbnail   *webhookMedia   `json:"thumbnail,omitempty"`
}

type webhookAuthor struct {
	Name    string `json:"name"`
	URL     string `json:"url,omitempty"`
	IconURL string `json:"icon_url,omitempty"`
}

type webhookField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type webhookMedia struct {
	URL string `json:"url"`
}

// SendAlert posts the alert as a single-embed webhook message.
func (s *WebhookSender) SendAlert(ctx context.Context, a Alert) error {
	embed := webhookEmbed{
		Title:       a.Title,
		Description: a.Description,
		Color:       a.Color,
		Timestamp:   a.Timestamp.UTC().Format(time.RFC3339),
	}
	if s.author.Name != "" {
		embed.Author = &webhookAuthor{Name: s.author.Name, URL: s.author.URL, IconURL: s.author.IconURL}
	}
	for _, f := range a.Fields {
		embed.Fields = append(embed.Fields, webhookField{Name: f.Name, Value: f.Value, Inline: f.Inline})
	}
	if a.ThumbnailURL != "" {
		embed.Thumbnail = &webhookMedia{URL: a.ThumbnailURL}
	}

	body, err := json.Marshal(webhookPayload{Content: a.Content, Embeds: []webhookEmbed{embed}})
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook status %d", resp.StatusCode)
	}
	return nil
}
