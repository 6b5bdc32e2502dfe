// Package painterclient is the outbound integration for the external
// image-generation webhook: POST {text: string} → raw image bytes.
package painterclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/newsline-bot/editor-engine/internal/domain"
	"github.com/newsline-bot/editor-engine/internal/infra/httpclient"
)

// Client is the outbound image-generator integration.
type Client struct {
	baseURL string
	apiKey  string
	http    *httpclient.Client
	// maxRetries bounds retry-on-5xx/429 attempts.
	maxRetries int
	retryDelay time.Duration
}

// Config configures Client.
type Config struct {
	BaseURL string
	APIKey  string
}

// New builds a Client: 1 req/s sustained (image generation is expensive),
// breaker trips after 4 consecutive failures, 3 retries with a 2s linear
// backoff on 5xx/429 — grounded on original_source/services/painter.py's
// max_retries=3, retry_delay=2 constants.
func New(cfg Config) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		maxRetries: 3,
		retryDelay: 2 * time.Second,
		http: httpclient.New(httpclient.Config{
			Name:          "painter",
			Timeout:       30 * time.Second,
			RatePerSecond: 1,
			Burst:         2,
			MaxFailures:   4,
		}),
	}
}

type request struct {
	Text string `json:"text"`
}

// Generate renders text into an image, retrying on 5xx/429 with linear
// backoff, and returns the raw image bytes on success.
func (c *Client) Generate(ctx context.Context, text string) ([]byte, error) {
	if c.baseURL == "" {
		return nil, domain.ErrMissingCredential
	}

	body, err := json.Marshal(request{Text: text})
	if err != nil {
		return nil, fmt.Errorf("painterclient: encode request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * c.retryDelay):
			}
		}

		result, err := c.http.Do(ctx, func(ctx context.Context) (any, error) {
			return c.doOnce(ctx, body)
		})
		if err == nil {
			img, _ := result.([]byte)
			if len(img) == 0 {
				return nil, domain.ErrImageEmpty
			}
			return img, nil
		}
		lastErr = err
		if !isRetryable(err) {
			break
		}
	}
	return nil, fmt.Errorf("painterclient: exhausted retries: %w", lastErr)
}

type retryableError struct{ status int }

func (e *retryableError) Error() string { return fmt.Sprintf("painter returned status %d", e.status) }

func isRetryable(err error) bool {
	re, ok := err.(*retryableError)
	return ok && (re.status == http.StatusTooManyRequests || re.status >= 500)
}

func (c *Client) doOnce(ctx context.Context, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, &retryableError{status: resp.StatusCode}
		}
		return nil, fmt.Errorf("%w: status %d", domain.ErrImageRejected, resp.StatusCode)
	}
	if len(raw) == 0 {
		return nil, domain.ErrImageEmpty
	}
	return raw, nil
}
