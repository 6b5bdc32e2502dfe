// Package ltmonitor continuously scores newly submitted editor rows for
// diversification against the current long-term topic/mood distribution.
package ltmonitor

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/newsline-bot/editor-engine/internal/domain"
	"github.com/newsline-bot/editor-engine/internal/infra/observability"
)

// Classifier is the subset of classifier.Client LongTermMonitor depends on.
type Classifier interface {
	Diversify(ctx context.Context, dimension, prompt, payload string) (int, error)
}

// Store is the subset of store.Store LongTermMonitor depends on.
type Store interface {
	GetState() (*domain.State, error)
	ListEditorLTCandidates(limit int) ([]*domain.EditorRow, error)
	UpdateLTScores(id int64, topicScore, moodScore int) error
}

// Config controls batch size and pacing.
type Config struct {
	BatchSize         int           // rows scored per tick; defaults to 5
	InterRequestPause time.Duration // pause between rows; defaults to 1s
}

// Monitor scores lt=false rows in small batches on every tick.
type Monitor struct {
	classifier Classifier
	store      Store
	cfg        Config
	logger     zerolog.Logger
}

// New builds a Monitor.
func New(classifier Classifier, store Store, cfg Config, logger zerolog.Logger) *Monitor {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 5
	}
	if cfg.InterRequestPause <= 0 {
		cfg.InterRequestPause = time.Second
	}
	return &Monitor{classifier: classifier, store: store, cfg: cfg, logger: logger.With().Str("component", "ltmonitor").Logger()}
}

// Name identifies this task to supervisor.Supervisor.
func (m *Monitor) Name() string { return "ltmonitor" }

// Tick scores up to BatchSize lt=false rows that have both topic and mood
// populated, against the current long-term distribution. If no distribution
// has been computed yet it skips the batch entirely rather than scoring
// against an empty set (LongTermUpdater seeds state on its own schedule).
func (m *Monitor) Tick(ctx context.Context) error {
	state, err := m.store.GetState()
	if err == domain.ErrStateNotSeeded {
		return nil
	}
	if err != nil {
		return err
	}

	rows, err := m.store.ListEditorLTCandidates(m.cfg.BatchSize)
	if err != nil {
		return err
	}

	for _, row := range rows {
		m.scoreRow(ctx, row, state)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.cfg.InterRequestPause):
		}
	}
	return nil
}

func (m *Monitor) scoreRow(ctx context.Context, row *domain.EditorRow, state *domain.State) {
	topicScore := 5
	if len(state.LTTopic) > 0 {
		topicScore, _ = m.classifier.Diversify(ctx, string(domain.DimLTTopic), renderDistribution(state.LTTopic), row.Topic)
	}

	moodScore := 5
	if len(state.LTMood) > 0 {
		moodScore, _ = m.classifier.Diversify(ctx, string(domain.DimLTMood), renderDistribution(state.LTMood), row.Mood)
	}

	if err := m.store.UpdateLTScores(row.ID, topicScore, moodScore); err != nil {
		m.logger.Warn().Err(err).Int64("id", row.ID).Msg("failed to write lt scores")
		observability.RecordsHandled.WithLabelValues("ltmonitor", string(observability.OutcomeFailed)).Inc()
		return
	}
	observability.RecordsHandled.WithLabelValues("ltmonitor", string(observability.OutcomeProcessed)).Inc()
}

func renderDistribution(dist []domain.CategoryWeight) string {
	s := ""
	for _, c := range dist {
		s += "- " + c.Label + "\n"
	}
	return s
}
