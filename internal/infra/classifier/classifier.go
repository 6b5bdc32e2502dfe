// Package classifier talks to the external text-classification service: an
// LLM endpoint that accepts a prompt and a JSON schema and returns a decoded
// object. The service's own modeling internals are out of scope here; this
// package only implements the two schema families it must satisfy —
// category arrays and diversification scalars.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/newsline-bot/editor-engine/internal/domain"
	"github.com/newsline-bot/editor-engine/internal/infra/cache"
	"github.com/newsline-bot/editor-engine/internal/infra/httpclient"
)

// CategoryWeight mirrors domain.CategoryWeight for wire decoding.
type CategoryWeight = domain.CategoryWeight

// Client is the outbound classifier integration.
type Client struct {
	baseURL string
	apiKey  string
	http    *httpclient.Client
	cache   *cache.Cache
}

// Config configures Client. Cache may be nil, in which case every call
// bypasses memoization.
type Config struct {
	BaseURL string
	APIKey  string
	Cache   *cache.Cache
}

// New builds a Client with the shared resilience wrapper: 3 req/s sustained,
// burst of 5, breaker trips after 5 consecutive failures.
func New(cfg Config) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		cache:   cfg.Cache,
		http: httpclient.New(httpclient.Config{
			Name:          "classifier",
			Timeout:       15 * time.Second,
			RatePerSecond: 3,
			Burst:         5,
			MaxFailures:   5,
		}),
	}
}

type chatRequest struct {
	Prompt      string  `json:"prompt"`
	Payload     string  `json:"payload"`
	Schema      any     `json:"schema"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

var categorySchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"categories": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"label":  map[string]any{"type": "string"},
					"weight": map[string]any{"type": "number"},
				},
			},
		},
	},
}

var diversificationSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"diversification_score": map[string]any{"type": "integer", "minimum": 1, "maximum": 10},
	},
}

// Categorize calls the classifier to produce a weighted category
// distribution over payload, using prompt as instructions. Used by
// LongTermUpdater and MediumTermBalancer.
func (c *Client) Categorize(ctx context.Context, prompt, payload string) ([]domain.CategoryWeight, error) {
	var decoded struct {
		Categories []domain.CategoryWeight `json:"categories"`
	}
	if err := c.call(ctx, prompt, payload, categorySchema, 0.2, 512, &decoded); err != nil {
		return nil, err
	}
	return decoded.Categories, nil
}

// Diversify calls the classifier to produce a 1..10 novelty/diversification
// score for payload against prompt's described distribution. dimension
// identifies the scoring axis (e.g. "lt_topic", "mt_author") for cache
// keying: MediumTermBalancer and LongTermMonitor frequently re-score the
// same (dimension, payload) pair across a round, so a hit avoids a second
// LLM call entirely. On any transient or malformed-response failure it
// returns the documented default of 5 along with the error, so callers can
// log-and-continue.
func (c *Client) Diversify(ctx context.Context, dimension, prompt, payload string) (int, error) {
	key := cache.Key(dimension, prompt+"\x00"+payload)
	if c.cache != nil {
		if cached, ok := c.cache.Get(ctx, key); ok {
			if n, err := parseCachedScore(cached); err == nil {
				return n, nil
			}
		}
	}

	var decoded struct {
		Score int `json:"diversification_score"`
	}
	if err := c.call(ctx, prompt, payload, diversificationSchema, 0.0, 64, &decoded); err != nil {
		return 5, err
	}
	if decoded.Score < 1 || decoded.Score > 10 {
		return 5, domain.ErrClassifierMalformed
	}
	if c.cache != nil {
		c.cache.Set(ctx, key, fmt.Sprintf("%d", decoded.Score))
	}
	return decoded.Score, nil
}

func parseCachedScore(s string) (int, error) {
	var n int
	_, err := fmt.Sscanf(s, "%d", &n)
	if err != nil || n < 1 || n > 10 {
		return 0, domain.ErrClassifierMalformed
	}
	return n, nil
}

func (c *Client) call(ctx context.Context, prompt, payload string, schema any, temperature float64, maxTokens int, out any) error {
	if c.baseURL == "" {
		return domain.ErrMissingCredential
	}

	body, err := json.Marshal(chatRequest{
		Prompt: prompt, Payload: payload, Schema: schema,
		Temperature: temperature, MaxTokens: maxTokens,
	})
	if err != nil {
		return fmt.Errorf("classifier: encode request: %w", err)
	}

	result, err := c.http.Do(ctx, func(ctx context.Context) (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/classify", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.http.HTTP.Do(req)
		if err != nil {
			return nil, domain.ErrClassifierTimeout
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("classifier: status %d: %s", resp.StatusCode, raw)
		}
		return raw, nil
	})
	if err != nil {
		return err
	}

	raw, _ := result.([]byte)
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrClassifierMalformed, err)
	}
	return nil
}
