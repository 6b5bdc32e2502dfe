// Package cleaner sweeps expired editor candidates and delivered to_publish
// rows on an hourly cadence, logging what it removes before removing it.
package cleaner

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/newsline-bot/editor-engine/internal/domain"
	"github.com/newsline-bot/editor-engine/internal/infra/observability"
)

// Store is the subset of store.Store Cleaner depends on.
type Store interface {
	ListExpiredEditor(asOf time.Time) ([]*domain.EditorRow, error)
	DeleteExpiredEditor(asOf time.Time) (int64, error)
	DeletePublishedToPublish() (int64, error)
}

// Config controls the clock Cleaner measures expiry against.
type Config struct {
	Now func() time.Time
}

// Cleaner removes rows the rest of the pipeline no longer needs.
type Cleaner struct {
	store  Store
	cfg    Config
	logger zerolog.Logger
}

// New builds a Cleaner.
func New(store Store, cfg Config, logger zerolog.Logger) *Cleaner {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Cleaner{store: store, cfg: cfg, logger: logger.With().Str("component", "cleaner").Logger()}
}

// Name identifies this task to supervisor.Supervisor.
func (c *Cleaner) Name() string { return "cleaner" }

// Tick sweeps expired editor rows and delivered to_publish rows once.
func (c *Cleaner) Tick(ctx context.Context) error {
	asOf := c.cfg.Now()

	editorDeleted, err := c.sweepExpiredEditor(asOf)
	if err != nil {
		return err
	}

	toPublishDeleted, err := c.store.DeletePublishedToPublish()
	if err != nil {
		return err
	}

	if editorDeleted > 0 || toPublishDeleted > 0 {
		c.logger.Info().Int64("editor_deleted", editorDeleted).Int64("to_publish_deleted", toPublishDeleted).Msg("cleanup swept rows")
	}
	observability.RecordsHandled.WithLabelValues("cleaner", "editor_deleted").Add(float64(editorDeleted))
	observability.RecordsHandled.WithLabelValues("cleaner", "to_publish_deleted").Add(float64(toPublishDeleted))
	return nil
}

func (c *Cleaner) sweepExpiredEditor(asOf time.Time) (int64, error) {
	expired, err := c.store.ListExpiredEditor(asOf)
	if err != nil {
		return 0, err
	}
	for _, row := range expired {
		expiry := row.PostTime.AddDate(0, 0, row.ExpireDays)
		daysOverdue := int(asOf.Sub(expiry).Hours() / 24)
		c.logger.Info().
			Int64("id", row.ID).
			Time("post_time", row.PostTime).
			Int("expire_days", row.ExpireDays).
			Time("expiry_date", expiry).
			Int("days_overdue", daysOverdue).
			Msg("deleting expired editor row")
	}
	return c.store.DeleteExpiredEditor(asOf)
}
