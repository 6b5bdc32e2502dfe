// Package httpclient provides the shared resilience wrapper used by every
// outbound integration (classifier, image generator, delivery surface):
// a bounded-timeout http.Client behind a rate limiter and a circuit breaker,
// so one misbehaving collaborator degrades gracefully instead of stalling
// every periodic component that shares the process.
package httpclient

import (
	"context"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/newsline-bot/editor-engine/internal/infra/observability"
)

// Client wraps *http.Client with a gobreaker.CircuitBreaker and an
// x/time/rate.Limiter. Name identifies this client in metrics and breaker logs.
type Client struct {
	Name    string
	HTTP    *http.Client
	Limiter *rate.Limiter
	Breaker *gobreaker.CircuitBreaker
}

// Config configures a Client.
type Config struct {
	Name string
	// Timeout bounds a single request; every outbound HTTP call gets an
	// explicit timeout rather than relying on http.DefaultClient's none.
	Timeout time.Duration
	// RatePerSecond bounds outbound request rate; Burst allows short spikes.
	RatePerSecond float64
	Burst         int
	// MaxFailures trips the breaker open after this many consecutive failures.
	MaxFailures uint32
}

// New builds a Client from cfg, wiring the gobreaker ReadyToTrip and
// state-change hooks to the shared circuit-breaker gauge.
func New(cfg Config) *Client {
	st := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			observability.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
		},
	}

	return &Client{
		Name:    cfg.Name,
		HTTP:    &http.Client{Timeout: cfg.Timeout},
		Limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst),
		Breaker: gobreaker.NewCircuitBreaker(st),
	}
}

// Do runs fn (a single outbound call) through the rate limiter and circuit
// breaker, recording outcome/latency metrics under c.Name.
func (c *Client) Do(ctx context.Context, fn func(ctx context.Context) (any, error)) (any, error) {
	if err := c.Limiter.Wait(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := c.Breaker.Execute(func() (any, error) {
		return fn(ctx)
	})
	observability.ExternalCallLatency.WithLabelValues(c.Name).Observe(time.Since(start).Seconds())

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	observability.ExternalCalls.WithLabelValues(c.Name, outcome).Inc()
	return result, err
}
