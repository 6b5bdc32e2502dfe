// Package telegram is the outbound delivery surface integration:
// sendPhoto with a base64-decoded image, a MarkdownV2 caption, and a
// {ok: true} success envelope.
package telegram

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/newsline-bot/editor-engine/internal/domain"
	"github.com/newsline-bot/editor-engine/internal/infra/httpclient"
)

const defaultBaseURL = "https://api.telegram.org"

// Client is the outbound Telegram Bot API integration.
type Client struct {
	token   string
	chatID  string
	baseURL string
	http    *httpclient.Client
}

// Config configures Client. BaseURL overrides the Telegram API host and
// exists so tests can point the client at an httptest.Server; production
// callers should leave it empty.
type Config struct {
	Token   string
	ChatID  string
	BaseURL string
}

// New builds a Client: 1 req/s to stay well under Telegram's per-chat rate
// limits, breaker trips after 5 consecutive failures.
func New(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		token:   cfg.Token,
		chatID:  cfg.ChatID,
		baseURL: baseURL,
		http: httpclient.New(httpclient.Config{
			Name:          "telegram",
			Timeout:       20 * time.Second,
			RatePerSecond: 1,
			Burst:         3,
			MaxFailures:   5,
		}),
	}
}

type envelope struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// SendPhoto delivers a base64-encoded photo with a MarkdownV2 caption to the
// configured chat.
func (c *Client) SendPhoto(ctx context.Context, photoBase64, caption string) error {
	if c.token == "" || c.chatID == "" {
		return domain.ErrMissingCredential
	}

	photo, err := base64.StdEncoding.DecodeString(photoBase64)
	if err != nil {
		return fmt.Errorf("telegram: decode photo: %w", err)
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("chat_id", c.chatID); err != nil {
		return err
	}
	if err := w.WriteField("caption", caption); err != nil {
		return err
	}
	if err := w.WriteField("parse_mode", "MarkdownV2"); err != nil {
		return err
	}
	part, err := w.CreateFormFile("photo", "post.jpg")
	if err != nil {
		return err
	}
	if _, err := part.Write(photo); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	url := fmt.Sprintf("%s/bot%s/sendPhoto", c.baseURL, c.token)
	_, err = c.http.Do(ctx, func(ctx context.Context) (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", w.FormDataContentType())

		resp, err := c.http.HTTP.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}

		var env envelope
		if jsonErr := json.Unmarshal(raw, &env); jsonErr != nil || !env.OK {
			return nil, fmt.Errorf("%w: %s", domain.ErrDeliveryRejected, env.Description)
		}
		return nil, nil
	})
	return err
}
