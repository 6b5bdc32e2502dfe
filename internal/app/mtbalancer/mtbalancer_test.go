package mtbalancer

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newsline-bot/editor-engine/internal/domain"
)

func testLogger() zerolog.Logger { return zerolog.New(io.Discard) }

type fakeClassifier struct {
	categorizeCalls int
	diversifyCalls  int
	failDiversify   bool
}

func (f *fakeClassifier) Categorize(ctx context.Context, prompt, payload string) ([]domain.CategoryWeight, error) {
	f.categorizeCalls++
	return []domain.CategoryWeight{{Label: "tech", Weight: 0.6}, {Label: "life", Weight: 0.4}}, nil
}

func (f *fakeClassifier) Diversify(ctx context.Context, dimension, prompt, payload string) (int, error) {
	f.diversifyCalls++
	if f.failDiversify {
		return 5, assert.AnError
	}
	return 7, nil
}

type fakeStore struct {
	recent         []*domain.PublishedRow
	pending        []*domain.EditorRow
	upsertCalled   bool
	lastTopicDist  []domain.CategoryWeight
	lastAuthorDist []domain.CategoryWeight
	scored         map[int64][3]int
}

func (f *fakeStore) ListRecentPublished(limit int) ([]*domain.PublishedRow, error) { return f.recent, nil }
func (f *fakeStore) ListEditorMTPending() ([]*domain.EditorRow, error)             { return f.pending, nil }
func (f *fakeStore) UpsertMTDistribution(topic, mood, author []domain.CategoryWeight) error {
	f.upsertCalled = true
	f.lastTopicDist = topic
	f.lastAuthorDist = author
	return nil
}
func (f *fakeStore) UpdateMTScores(id int64, topicScore, moodScore, authorScore int) error {
	if f.scored == nil {
		f.scored = map[int64][3]int{}
	}
	f.scored[id] = [3]int{topicScore, moodScore, authorScore}
	return nil
}

func newTestConfig() Config {
	return Config{Posts: 20, InterRequestPause: time.Millisecond}
}

func TestRunSkipsWhenNoRecentPosts(t *testing.T) {
	classifier := &fakeClassifier{}
	store := &fakeStore{}
	b := New(classifier, store, newTestConfig(), testLogger())

	err := b.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, store.upsertCalled)
	assert.Equal(t, 0, classifier.categorizeCalls)
}

func TestRunUpsertsDistributionAndScoresRows(t *testing.T) {
	classifier := &fakeClassifier{}
	store := &fakeStore{
		recent: []*domain.PublishedRow{
			{ID: 1, Topic: "tech, life", Mood: "happy", Author: "alice"},
			{ID: 2, Topic: "tech", Mood: "sad", Author: "bob"},
		},
		pending: []*domain.EditorRow{
			{ID: 10, Topic: "tech", Mood: "happy", Author: "carol"},
		},
	}
	b := New(classifier, store, newTestConfig(), testLogger())

	err := b.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, store.upsertCalled)
	assert.Equal(t, 3, classifier.categorizeCalls) // topic, mood, author

	scores, ok := store.scored[10]
	require.True(t, ok)
	assert.Equal(t, 7, scores[0]) // topic diversify result
	assert.Equal(t, 7, scores[1]) // mood diversify result
	assert.Equal(t, 7, scores[2]) // author diversify result
}

func TestRunSetsAuthorSentinelWhenAuthorEmpty(t *testing.T) {
	classifier := &fakeClassifier{}
	store := &fakeStore{
		recent: []*domain.PublishedRow{
			{ID: 1, Topic: "tech", Mood: "happy", Author: "alice"},
		},
		pending: []*domain.EditorRow{
			{ID: 11, Topic: "tech", Mood: "happy", Author: ""},
		},
	}
	b := New(classifier, store, newTestConfig(), testLogger())

	err := b.Run(context.Background())
	require.NoError(t, err)

	scores, ok := store.scored[11]
	require.True(t, ok)
	assert.Equal(t, domain.MTAuthorAbsent, scores[2])
}

func TestSplitTrimmed(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitTrimmed(" a ,b,  "))
	assert.Nil(t, splitTrimmed(""))
}

func TestExtractFields(t *testing.T) {
	posts := []*domain.PublishedRow{
		{Topic: "a, b", Mood: "happy", Author: "x"},
		{Topic: "c", Mood: "sad, calm", Author: ""},
	}
	topics, moods, authors := extractFields(posts)
	assert.Equal(t, []string{"a", "b", "c"}, topics)
	assert.Equal(t, []string{"happy", "sad", "calm"}, moods)
	assert.Equal(t, []string{"x"}, authors)
}
