package ltupdater

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

type fakeClassifier struct{ calls int }

func (f *fakeClassifier) Categorize(ctx context.Context, prompt, payload string) ([]domain.CategoryWeight, error) {
	f.calls++
	return []domain.CategoryWeight{{Label: "x", Weight: 1}}, nil
}

type fakeStore struct {
	state         *domain.State
	stateErr      error
	recent        []*domain.PublishedRow
	upsertCalled  bool
	resetCalled   bool
	lastUpdatedAt int64
}

func (f *fakeStore) GetState() (*domain.State, error)                        { return f.state, f.stateErr }
func (f *fakeStore) ListRecentPublished(limit int) ([]*domain.PublishedRow, error) {
	return f.recent, nil
}
func (f *fakeStore) UpsertLTDistribution(topic, mood []domain.CategoryWeight, updatedAtUnix int64) error {
	f.upsertCalled = true
	f.lastUpdatedAt = updatedAtUnix
	return nil
}
func (f *fakeStore) ResetLTFlags() error {
	f.resetCalled = true
	return nil
}

func TestIntervalMatchesFormula(t *testing.T) {
	u := New(&fakeClassifier{}, &fakeStore{}, Config{Posts: 50, PerHour: 300, MinHour: 9, MaxHour: 21}, testLogger())
	// temp = 300*12/700 = 5.142857; hours = round(50/5.142857*24) = round(233.3) = 233
	assert.Equal(t, 233*time.Hour, u.Interval())
}

func TestTickRunsWhenStateUnseeded(t *testing.T) {
	store := &fakeStore{stateErr: domain.ErrStateNotSeeded, recent: []*domain.PublishedRow{{Topic: "a", Mood: "happy"}}}
	classifier := &fakeClassifier{}
	u := New(classifier, store, Config{Posts: 50, PerHour: 300, MinHour: 9, MaxHour: 21}, testLogger())

	err := u.Tick(context.Background())
	require.NoError(t, err)
	assert.True(t, store.upsertCalled)
	assert.True(t, store.resetCalled)
}

func TestTickSkipsWhenNotDue(t *testing.T) {
	now := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	store := &fakeStore{state: &domain.State{LTUpdatedAt: now.Add(-1 * time.Hour)}}
	u := New(&fakeClassifier{}, store, Config{Posts: 50, PerHour: 300, MinHour: 9, MaxHour: 21, Now: func() time.Time { return now }}, testLogger())

	err := u.Tick(context.Background())
	require.NoError(t, err)
	assert.False(t, store.upsertCalled)
}

func TestTickRunsWhenIntervalElapsed(t *testing.T) {
	now := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	store := &fakeStore{state: &domain.State{LTUpdatedAt: now.Add(-300 * time.Hour)}, recent: []*domain.PublishedRow{{Topic: "a", Mood: "happy"}}}
	u := New(&fakeClassifier{}, store, Config{Posts: 50, PerHour: 300, MinHour: 9, MaxHour: 21, Now: func() time.Time { return now }}, testLogger())

	err := u.Tick(context.Background())
	require.NoError(t, err)
	assert.True(t, store.upsertCalled)
	assert.Equal(t, now.Unix(), store.lastUpdatedAt)
}

func TestDedupedFieldsRemovesDuplicates(t *testing.T) {
	posts := []*domain.PublishedRow{
		{Topic: "a, b", Mood: "happy"},
		{Topic: "b, c", Mood: "happy, sad"},
	}
	topics, moods := dedupedFields(posts)
	assert.Equal(t, []string{"a", "b", "c"}, topics)
	assert.Equal(t, []string{"happy", "sad"}, moods)
}
