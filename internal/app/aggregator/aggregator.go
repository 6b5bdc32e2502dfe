// Package aggregator computes each editor row's final_score from its seven
// dimensional scores, redistributing the weight of any invalid dimension
// across the valid ones rather than simply renormalizing over what's left.
package aggregator

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/newsline-bot/editor-engine/internal/domain"
	"github.com/newsline-bot/editor-engine/internal/infra/observability"
)

// Store is the subset of store.Store the Aggregator depends on.
type Store interface {
	ListEditorReadyForAggregation() ([]*domain.EditorRow, error)
	UpdateFinalScore(id int64, score float64) error
}

// Config controls Aggregator behavior.
type Config struct {
	Weights map[domain.Dimension]float64
	Now     func() time.Time
}

// Aggregator periodically scans editor rows with lt ∧ mt ∧ time ∧ ¬analyzed
// and writes final_score.
type Aggregator struct {
	store  Store
	cfg    Config
	logger zerolog.Logger
}

// New builds an Aggregator.
func New(store Store, cfg Config, logger zerolog.Logger) *Aggregator {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Aggregator{store: store, cfg: cfg, logger: logger.With().Str("component", "aggregator").Logger()}
}

// Name identifies this task to supervisor.Supervisor.
func (a *Aggregator) Name() string { return "aggregator" }

// Tick scores every ready row once.
func (a *Aggregator) Tick(ctx context.Context) error {
	rows, err := a.store.ListEditorReadyForAggregation()
	if err != nil {
		return err
	}

	for _, row := range rows {
		score := Score(row, a.cfg.Weights)
		if err := a.store.UpdateFinalScore(row.ID, score); err != nil {
			a.logger.Warn().Err(err).Int64("id", row.ID).Msg("failed to write final_score")
			observability.RecordsHandled.WithLabelValues("aggregator", string(observability.OutcomeFailed)).Inc()
			continue
		}
		observability.RecordsHandled.WithLabelValues("aggregator", string(observability.OutcomeProcessed)).Inc()
	}
	return nil
}

// Score computes final_score for row under weights: a
// dimension is valid iff its score is present, numeric, and > 0. Invalid
// dimensions' weight mass is redistributed equally across the valid ones.
// If no dimension is valid, the result is the documented default of 5.0.
func Score(row *domain.EditorRow, weights map[domain.Dimension]float64) float64 {
	type entry struct {
		value  float64
		weight float64
	}

	var valid []entry
	var invalidWeight float64

	for _, dim := range domain.AllDimensions {
		w := weights[dim]
		ptr := row.Score(dim)
		if ptr != nil && *ptr > 0 {
			valid = append(valid, entry{value: float64(*ptr), weight: w})
		} else {
			invalidWeight += w
		}
	}

	if len(valid) == 0 {
		return 5.0
	}

	bonus := invalidWeight / float64(len(valid))

	var num, den float64
	for _, e := range valid {
		adjusted := e.weight + bonus
		num += e.value * adjusted
		den += adjusted
	}

	result := num / den
	if result < 1 {
		result = 1
	}
	if result > 10 {
		result = 10
	}
	return math.Round(result*100) / 100
}
