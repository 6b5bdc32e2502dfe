// Package publisher delivers finished to_publish rows to the channel: one
// sendPhoto per delivery-ready row, paced by PublishInterval so the channel
// never receives a burst.
package publisher

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/newsline-bot/editor-engine/internal/domain"
	"github.com/newsline-bot/editor-engine/internal/infra/observability"
)

// Sender is the subset of telegram.Client Publisher depends on.
type Sender interface {
	SendPhoto(ctx context.Context, photoBase64, caption string) error
}

// Store is the subset of store.Store Publisher depends on.
type Store interface {
	ListToPublishDeliverable(nowUnix int64) ([]*domain.ToPublishRow, error)
	DeliverToPublish(row *domain.ToPublishRow, publishedAtUnix int64, next bool) error
}

// Config controls batching and the pacing between deliveries.
type Config struct {
	BatchSize       int           // rows fetched per Tick, default 10
	PublishInterval time.Duration // pause between deliveries in a batch, default 30m
	Now             func() time.Time
}

// Publisher sends deliverable rows to the channel one at a time.
type Publisher struct {
	sender Sender
	store  Store
	cfg    Config
	logger zerolog.Logger
}

// New builds a Publisher.
func New(sender Sender, store Store, cfg Config, logger zerolog.Logger) *Publisher {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.PublishInterval <= 0 {
		cfg.PublishInterval = 30 * time.Minute
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Publisher{sender: sender, store: store, cfg: cfg, logger: logger.With().Str("component", "publisher").Logger()}
}

// Name identifies this task to supervisor.Supervisor.
func (p *Publisher) Name() string { return "publisher" }

// Tick fetches one batch of deliverable rows and sends each in turn,
// pausing PublishInterval between deliveries and stopping at the first
// failure so a broken send is retried next Tick rather than skipped.
func (p *Publisher) Tick(ctx context.Context) error {
	now := p.cfg.Now().Unix()
	rows, err := p.store.ListToPublishDeliverable(now)
	if err != nil {
		return err
	}

	for i, row := range rows {
		if !row.ReadyToDeliver(now) {
			continue
		}
		isLast := i == len(rows)-1
		if err := p.deliverRow(ctx, row, !isLast); err != nil {
			p.logger.Error().Err(err).Int64("id", row.ID).Msg("failed to publish row")
			return err
		}
		if !isLast {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.cfg.PublishInterval):
			}
		}
	}
	return nil
}

func (p *Publisher) deliverRow(ctx context.Context, row *domain.ToPublishRow, next bool) error {
	if err := p.sender.SendPhoto(ctx, row.PicBase64, row.TextPrepared); err != nil {
		observability.RecordsHandled.WithLabelValues("publisher", "error").Inc()
		return err
	}
	if err := p.store.DeliverToPublish(row, p.cfg.Now().Unix(), next); err != nil {
		return err
	}
	observability.RecordsHandled.WithLabelValues("publisher", "delivered").Inc()
	p.logger.Info().Int64("id", row.ID).Bool("next", next).Msg("delivered post")
	return nil
}
