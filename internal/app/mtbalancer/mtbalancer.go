// Package mtbalancer maintains the medium-term topic/mood/author
// distributions derived from recently published posts, and scores editor
// candidates against that distribution for diversity.
package mtbalancer

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/newsline-bot/editor-engine/internal/domain"
	"github.com/newsline-bot/editor-engine/internal/infra/observability"
)

// Classifier is the subset of classifier.Client MediumTermBalancer depends on.
type Classifier interface {
	Categorize(ctx context.Context, prompt, payload string) ([]domain.CategoryWeight, error)
	Diversify(ctx context.Context, dimension, prompt, payload string) (int, error)
}

// Store is the subset of store.Store MediumTermBalancer depends on.
type Store interface {
	ListRecentPublished(limit int) ([]*domain.PublishedRow, error)
	ListEditorMTPending() ([]*domain.EditorRow, error)
	UpsertMTDistribution(topic, mood, author []domain.CategoryWeight) error
	UpdateMTScores(id int64, topicScore, moodScore, authorScore int) error
}

// Config controls a balancing pass.
type Config struct {
	Posts int // how many recent published rows to sample; defaults to 20

	// InterRequestPause spaces out per-row classifier calls so a burst of
	// pending editor rows doesn't exceed the classifier's rate limit on its
	// own; defaults to 1500ms.
	InterRequestPause time.Duration
}

// Balancer recomputes the medium-term distribution and scores pending rows.
type Balancer struct {
	classifier Classifier
	store      Store
	cfg        Config
	logger     zerolog.Logger
}

// New builds a Balancer.
func New(classifier Classifier, store Store, cfg Config, logger zerolog.Logger) *Balancer {
	if cfg.Posts <= 0 {
		cfg.Posts = 20
	}
	if cfg.InterRequestPause <= 0 {
		cfg.InterRequestPause = 1500 * time.Millisecond
	}
	return &Balancer{classifier: classifier, store: store, cfg: cfg, logger: logger.With().Str("component", "mtbalancer").Logger()}
}

// Name identifies this task. MediumTermBalancer is invoked synchronously by
// Planner at the start of a round, not on its own ticker.
func (b *Balancer) Name() string { return "mtbalancer" }

// Tick is a no-op placeholder; Run is called directly by Planner.
func (b *Balancer) Tick(ctx context.Context) error { return nil }

// Run recomputes the mt_topic/mt_mood/mt_author distribution from the most
// recent published posts and scores every editor row with mt=false against
// it, setting mt=true on each. With no published posts the stored
// distribution is left untouched and every pending row gets the default
// scores (5, or the author sentinel for a blank author). A classifier
// failure does not stop the run: the default of 5 that Diversify returns is
// written for that dimension. Only a failed store write leaves a row with
// mt=false for a later pass.
func (b *Balancer) Run(ctx context.Context) error {
	posts, err := b.store.ListRecentPublished(b.cfg.Posts)
	if err != nil {
		return err
	}
	if len(posts) == 0 {
		b.logger.Warn().Msg("no published posts available for mt analysis, scoring pending rows with defaults")
	}

	topics, moods, authors := extractFields(posts)

	var topicDist, moodDist, authorDist []domain.CategoryWeight
	if len(topics) > 0 {
		topicDist, _ = b.classifier.Categorize(ctx, topicAnalysisPrompt, strings.Join(topics, "\n"))
	}
	if len(moods) > 0 {
		moodDist, _ = b.classifier.Categorize(ctx, moodAnalysisPrompt, strings.Join(moods, "\n"))
	}
	if len(authors) > 0 {
		authorDist, _ = b.classifier.Categorize(ctx, authorAnalysisPrompt, strings.Join(authors, "\n"))
	}

	if len(posts) > 0 {
		if err := b.store.UpsertMTDistribution(topicDist, moodDist, authorDist); err != nil {
			return err
		}
	}

	pending, err := b.store.ListEditorMTPending()
	if err != nil {
		return err
	}

	for _, row := range pending {
		b.scoreRow(ctx, row, topicDist, moodDist, authorDist)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(b.cfg.InterRequestPause):
		}
	}
	return nil
}

func (b *Balancer) scoreRow(ctx context.Context, row *domain.EditorRow, topicDist, moodDist, authorDist []domain.CategoryWeight) {
	var authorScore int
	if strings.TrimSpace(row.Author) == "" {
		authorScore = domain.MTAuthorAbsent
	} else if len(authorDist) > 0 {
		authorScore, _ = b.classifier.Diversify(ctx, string(domain.DimMTAuthor), renderDistribution(authorDist), row.Author)
	} else {
		authorScore = 5
	}

	topicScore := 5
	if len(topicDist) > 0 && row.Topic != "" {
		topicScore, _ = b.classifier.Diversify(ctx, string(domain.DimMTTopic), renderDistribution(topicDist), row.Topic)
	}

	moodScore := 5
	if len(moodDist) > 0 && row.Mood != "" {
		moodScore, _ = b.classifier.Diversify(ctx, string(domain.DimMTMood), renderDistribution(moodDist), row.Mood)
	}

	if err := b.store.UpdateMTScores(row.ID, topicScore, moodScore, authorScore); err != nil {
		b.logger.Warn().Err(err).Int64("id", row.ID).Msg("failed to write mt scores")
		observability.RecordsHandled.WithLabelValues("mtbalancer", string(observability.OutcomeFailed)).Inc()
		return
	}
	observability.RecordsHandled.WithLabelValues("mtbalancer", string(observability.OutcomeProcessed)).Inc()
}

// extractFields splits each post's comma-separated topic/mood/author fields
// into flat token lists, matching the delimiter convention editor rows use
// for multi-value fields.
func extractFields(posts []*domain.PublishedRow) (topics, moods, authors []string) {
	for _, p := range posts {
		topics = append(topics, splitTrimmed(p.Topic)...)
		moods = append(moods, splitTrimmed(p.Mood)...)
		authors = append(authors, splitTrimmed(p.Author)...)
	}
	return
}

func splitTrimmed(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func renderDistribution(dist []domain.CategoryWeight) string {
	var b strings.Builder
	for _, c := range dist {
		b.WriteString("- ")
		b.WriteString(c.Label)
		b.WriteString("\n")
	}
	return b.String()
}

const (
	topicAnalysisPrompt  = "Group the following post topics into weighted categories."
	moodAnalysisPrompt   = "Group the following post moods into weighted categories."
	authorAnalysisPrompt = "Group the following post authors into weighted categories."
)
