// Package ltupdater periodically recomputes the long-term topic/mood
// distribution from recently published posts. Unlike the other app
// components, its own cadence is self-tuning: how often it fires is derived
// from the publication throughput configuration, not a fixed interval.
package ltupdater

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/newsline-bot/editor-engine/internal/domain"
)

// Classifier is the subset of classifier.Client LongTermUpdater depends on.
type Classifier interface {
	Categorize(ctx context.Context, prompt, payload string) ([]domain.CategoryWeight, error)
}

// Store is the subset of store.Store LongTermUpdater depends on.
type Store interface {
	GetState() (*domain.State, error)
	ListRecentPublished(limit int) ([]*domain.PublishedRow, error)
	UpsertLTDistribution(topic, mood []domain.CategoryWeight, updatedAtUnix int64) error
	ResetLTFlags() error
}

// Config controls update cadence.
type Config struct {
	Posts   int // LT_POSTS
	PerHour int // throughput constant shared with Planner
	MinHour int // UTC publication window, shared with Planner
	MaxHour int

	Now func() time.Time
}

// Updater recomputes state.lt_topic/lt_mood on a self-tuned schedule.
type Updater struct {
	classifier Classifier
	store      Store
	cfg        Config
	logger     zerolog.Logger
}

// New builds an Updater.
func New(classifier Classifier, store Store, cfg Config, logger zerolog.Logger) *Updater {
	if cfg.Posts <= 0 {
		cfg.Posts = 50
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Updater{classifier: classifier, store: store, cfg: cfg, logger: logger.With().Str("component", "ltupdater").Logger()}
}

// Name identifies this task to supervisor.Supervisor.
func (u *Updater) Name() string { return "ltupdater" }

// Interval computes how often LongTermUpdater should actually perform an
// update: temp = PER_HOUR*(MAX_HOUR-MIN_HOUR)/700, then
// round(LT_POSTS/temp*24) hours. The Supervisor still ticks this task on a
// fixed check cadence (hourly, matching the original's check_interval); Tick
// itself re-derives whether that much time has actually elapsed since the
// last update before doing any work.
func (u *Updater) Interval() time.Duration {
	hoursRange := float64(u.cfg.MaxHour - u.cfg.MinHour)
	temp := float64(u.cfg.PerHour) * hoursRange / 700
	if temp <= 0 {
		return 24 * time.Hour
	}
	hours := math.Round(float64(u.cfg.Posts) / temp * 24)
	if hours < 1 {
		hours = 1
	}
	return time.Duration(hours) * time.Hour
}

// Tick checks whether Interval has elapsed since state.lt_updated_at and, if
// so, recomputes the long-term distribution.
func (u *Updater) Tick(ctx context.Context) error {
	due, err := u.isDue()
	if err != nil {
		return err
	}
	if !due {
		return nil
	}
	return u.Run(ctx)
}

func (u *Updater) isDue() (bool, error) {
	st, err := u.store.GetState()
	if err == domain.ErrStateNotSeeded {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return u.cfg.Now().Sub(st.LTUpdatedAt) >= u.Interval(), nil
}

// Run unconditionally recomputes state.lt_topic/lt_mood from the most
// recent LT_POSTS published rows and resets lt=false on every editor row
// previously scored true, so LongTermMonitor rescoring picks up the new
// distribution.
func (u *Updater) Run(ctx context.Context) error {
	posts, err := u.store.ListRecentPublished(u.cfg.Posts)
	if err != nil {
		return err
	}

	topics, moods := dedupedFields(posts)

	var topicDist, moodDist []domain.CategoryWeight
	if len(topics) > 0 {
		topicDist, _ = u.classifier.Categorize(ctx, topicAnalysisPrompt, strings.Join(topics, "\n"))
	}
	if len(moods) > 0 {
		moodDist, _ = u.classifier.Categorize(ctx, moodAnalysisPrompt, strings.Join(moods, "\n"))
	}

	if err := u.store.UpsertLTDistribution(topicDist, moodDist, u.cfg.Now().Unix()); err != nil {
		return err
	}
	return u.store.ResetLTFlags()
}

func dedupedFields(posts []*domain.PublishedRow) (topics, moods []string) {
	topicSeen := map[string]bool{}
	moodSeen := map[string]bool{}
	for _, p := range posts {
		for _, t := range strings.Split(p.Topic, ",") {
			if t = strings.TrimSpace(t); t != "" && !topicSeen[t] {
				topicSeen[t] = true
				topics = append(topics, t)
			}
		}
		for _, m := range strings.Split(p.Mood, ",") {
			if m = strings.TrimSpace(m); m != "" && !moodSeen[m] {
				moodSeen[m] = true
				moods = append(moods, m)
			}
		}
	}
	return
}

const (
	topicAnalysisPrompt = "Group the following post topics into weighted long-term categories."
	moodAnalysisPrompt  = "Group the following post moods into weighted long-term categories."
)
