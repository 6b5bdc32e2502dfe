// Package painter drives image generation for queued posts: it polls
// to_publish rows with pic=false, renders each through the image-generation
// webhook, and writes the base64 payload back.
package painter

import (
	"context"
	"encoding/base64"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/newsline-bot/editor-engine/internal/domain"
	"github.com/newsline-bot/editor-engine/internal/infra/observability"
)

// Generator is the subset of painterclient.Client Painter depends on.
type Generator interface {
	Generate(ctx context.Context, text string) ([]byte, error)
}

// Store is the subset of store.Store Painter depends on.
type Store interface {
	ListToPublishPicPending(limit int) ([]*domain.ToPublishRow, error)
	UpdatePic(id int64, base64Data string) error
}

// Config controls batching and pacing.
type Config struct {
	BatchSize         int // rows fetched per Tick, default 5
	InterRequestPause time.Duration
}

// Painter renders and stores an image for each queued candidate.
type Painter struct {
	gen    Generator
	store  Store
	cfg    Config
	logger zerolog.Logger
}

// New builds a Painter.
func New(gen Generator, store Store, cfg Config, logger zerolog.Logger) *Painter {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 5
	}
	return &Painter{gen: gen, store: store, cfg: cfg, logger: logger.With().Str("component", "painter").Logger()}
}

// Name identifies this task to supervisor.Supervisor.
func (p *Painter) Name() string { return "painter" }

// Tick fetches one batch of pic-pending rows and renders each.
func (p *Painter) Tick(ctx context.Context) error {
	rows, err := p.store.ListToPublishPicPending(p.cfg.BatchSize)
	if err != nil {
		return err
	}
	for i, row := range rows {
		if i > 0 && p.cfg.InterRequestPause > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.cfg.InterRequestPause):
			}
		}
		if err := p.renderRow(ctx, row); err != nil {
			p.logger.Error().Err(err).Int64("id", row.ID).Msg("failed to render image")
		}
	}
	return nil
}

func (p *Painter) renderRow(ctx context.Context, row *domain.ToPublishRow) error {
	text := strings.TrimSpace(row.Text)
	if text == "" {
		observability.RecordsHandled.WithLabelValues("painter", "empty").Inc()
		return p.store.UpdatePic(row.ID, "")
	}

	img, err := p.gen.Generate(ctx, text)
	if err != nil {
		observability.RecordsHandled.WithLabelValues("painter", "error").Inc()
		return err
	}

	encoded := base64.StdEncoding.EncodeToString(img)
	if err := p.store.UpdatePic(row.ID, encoded); err != nil {
		return err
	}
	observability.RecordsHandled.WithLabelValues("painter", "rendered").Inc()
	return nil
}
