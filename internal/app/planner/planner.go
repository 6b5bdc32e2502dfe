// Package planner orchestrates one round of the publication pipeline: it
// decides when the next post should go out, drives MediumTermBalancer and
// TimeScorer to score the field, waits for Aggregator to settle, and moves
// the winning candidate into to_publish.
package planner

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/newsline-bot/editor-engine/internal/domain"
	"github.com/newsline-bot/editor-engine/internal/infra/observability"
)

// Store is the subset of store.Store Planner depends on.
type Store interface {
	RoundIsDue() (bool, error)
	GetMaxPublished() (*domain.PublishedRow, error)
	ResetForRound() error
	SelectRoundWinner() (*domain.EditorRow, error)
	MoveWinnerToPublish(winner *domain.EditorRow, scheduledUnix int64) error
	CloseChain() error
}

// Balancer is the subset of mtbalancer.Balancer Planner drives synchronously.
type Balancer interface {
	Run(ctx context.Context) error
}

// Scorer is the subset of timescorer.TimeScorer Planner drives synchronously.
type Scorer interface {
	ScoreAll(ctx context.Context, targetHour int) error
}

// Notifier receives round lifecycle transitions, for a dashboard feed.
// traceID correlates the three events of one round and matches the trace ID
// attached to that round's log lines. Optional: a nil Notifier is a no-op.
type Notifier interface {
	RoundStarted(traceID string)
	RoundCompleted(traceID string, winnerID int64, targetHour int)
	RoundAborted(traceID string, err error)
}

type noopNotifier struct{}

func (noopNotifier) RoundStarted(traceID string)                          {}
func (noopNotifier) RoundCompleted(traceID string, winnerID int64, h int) {}
func (noopNotifier) RoundAborted(traceID string, err error)               {}

// Config controls the round timing calculation.
type Config struct {
	PerHour int // characters of post length the channel can sustain per hour
	MinHour int // UTC publication window, inclusive
	MaxHour int

	// AggregationWait is how long Planner waits after kicking off MTB/TS for
	// Aggregator to settle final_score on every row before selecting a
	// winner; defaults to 30s.
	AggregationWait time.Duration

	Now func() time.Time
}

// Planner runs one round at a time, triggered by its own ticker via
// supervisor.Supervisor.
type Planner struct {
	store    Store
	balancer Balancer
	scorer   Scorer
	cfg      Config
	logger   zerolog.Logger
	notifier Notifier
	tracer   *observability.Tracer
}

// New builds a Planner. Use SetNotifier to attach a dashboard feed.
func New(store Store, balancer Balancer, scorer Scorer, cfg Config, logger zerolog.Logger) *Planner {
	if cfg.AggregationWait <= 0 {
		cfg.AggregationWait = 30 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Planner{
		store: store, balancer: balancer, scorer: scorer, cfg: cfg,
		logger:   logger.With().Str("component", "planner").Logger(),
		notifier: noopNotifier{},
		tracer:   observability.NewTracer(observability.DefaultTracerConfig()),
	}
}

// Name identifies this task to supervisor.Supervisor.
func (p *Planner) Name() string { return "planner" }

// SetNotifier attaches a round-event sink; nil restores the no-op default.
func (p *Planner) SetNotifier(n Notifier) {
	if n == nil {
		n = noopNotifier{}
	}
	p.notifier = n
}

// Tick runs one round if the store's RoundIsDue precondition holds.
func (p *Planner) Tick(ctx context.Context) error {
	due, err := p.store.RoundIsDue()
	if err != nil {
		return err
	}
	if !due {
		return nil
	}
	return p.runRound(ctx)
}

func (p *Planner) runRound(ctx context.Context) error {
	start := p.cfg.Now()

	span := p.tracer.StartSpan(ctx, "round", nil)
	ctx = observability.WithTraceID(ctx, span.TraceID)
	ctx = observability.WithSpanID(ctx, span.SpanID)
	logger := p.logger.With().Str("trace_id", span.TraceID).Logger()

	var roundErr error
	defer func() { p.tracer.EndSpan(span, roundErr) }()

	abort := func(err error) error {
		roundErr = err
		observability.RoundsAborted.Inc()
		p.notifier.RoundAborted(span.TraceID, err)
		return err
	}

	observability.RoundsStarted.Inc()
	p.notifier.RoundStarted(span.TraceID)
	logger.Info().Msg("starting planning round")

	nextUnix, targetHour, err := p.nextPublishTime()
	if err != nil {
		return abort(err)
	}
	logger.Info().Int64("next_unix", nextUnix).Int("target_hour", targetHour).Msg("computed next publish time")

	if err := p.store.ResetForRound(); err != nil {
		return abort(err)
	}

	if err := p.balancer.Run(ctx); err != nil {
		logger.Warn().Err(err).Msg("mtbalancer run failed, continuing with defaults already written")
	}

	if err := p.scorer.ScoreAll(ctx, targetHour); err != nil {
		logger.Warn().Err(err).Msg("timescorer run failed, continuing with defaults already written")
	}

	select {
	case <-ctx.Done():
		return abort(ctx.Err())
	case <-time.After(p.cfg.AggregationWait):
	}

	winner, err := p.store.SelectRoundWinner()
	if err != nil {
		return abort(err)
	}
	if winner == nil {
		logger.Warn().Msg("no winner found for this round")
		return abort(domain.ErrNoWinner)
	}

	if err := p.store.MoveWinnerToPublish(winner, nextUnix); err != nil {
		return abort(err)
	}

	if err := p.store.CloseChain(); err != nil {
		return abort(err)
	}

	observability.RoundsCompleted.Inc()
	observability.RoundDuration.Observe(p.cfg.Now().Sub(start).Seconds())
	p.notifier.RoundCompleted(span.TraceID, winner.ID, targetHour)
	logger.Info().Int64("winner_id", winner.ID).Msg("planning round complete")
	return nil
}

// nextPublishTime computes the UNIX time of the next publication and the
// UTC target hour TimeScorer should optimize toward. With no prior
// publication it anchors to now, snapped into the window. Otherwise it
// advances from the last publication by length/PER_HOUR hours, then snaps
// into the window.
func (p *Planner) nextPublishTime() (int64, int, error) {
	last, err := p.store.GetMaxPublished()
	if err != nil {
		return 0, 0, err
	}

	now := p.cfg.Now().UTC()
	if last == nil {
		return p.snapToWindow(now)
	}

	length := last.Length
	if length <= 0 {
		length = 300
	}
	hoursUntilNext := float64(length) / float64(p.cfg.PerHour)
	next := time.Unix(last.Published, 0).UTC().Add(time.Duration(hoursUntilNext * float64(time.Hour)))
	return p.snapToWindow(next)
}

// snapToWindow returns t unchanged if its UTC hour falls within
// [MinHour, MaxHour]; otherwise it moves to MinHour:00 UTC, same day if t's
// hour is before the window, next day if after.
func (p *Planner) snapToWindow(t time.Time) (int64, int, error) {
	if p.cfg.MinHour > p.cfg.MaxHour {
		return 0, 0, domain.ErrInvalidWindow
	}

	hour := t.Hour()
	if hour >= p.cfg.MinHour && hour <= p.cfg.MaxHour {
		return t.Unix(), hour, nil
	}

	days := 0
	if hour > p.cfg.MaxHour {
		days = 1
	}
	snapped := time.Date(t.Year(), t.Month(), t.Day(), p.cfg.MinHour, 0, 0, 0, time.UTC).AddDate(0, 0, days)
	return snapped.Unix(), p.cfg.MinHour, nil
}
