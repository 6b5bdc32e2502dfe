package ltmonitor

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

func (f *fakeClassifier) Diversify(ctx context.Context, dimension, prompt, payload string) (int, error) {
	f.calls++
	return 8, nil
}

type fakeStore struct {
	state      *domain.State
	stateErr   error
	candidates []*domain.EditorRow
	scored     map[int64][2]int
}

func (f *fakeStore) GetState() (*domain.State, error) { return f.state, f.stateErr }
func (f *fakeStore) ListEditorLTCandidates(limit int) ([]*domain.EditorRow, error) {
	return f.candidates, nil
}
func (f *fakeStore) UpdateLTScores(id int64, topicScore, moodScore int) error {
	if f.scored == nil {
		f.scored = map[int64][2]int{}
	}
	f.scored[id] = [2]int{topicScore, moodScore}
	return nil
}

func newTestConfig() Config { return Config{BatchSize: 5, InterRequestPause: time.Millisecond} }

func TestTickSkipsWhenStateNotSeeded(t *testing.T) {
	store := &fakeStore{stateErr: domain.ErrStateNotSeeded}
	classifier := &fakeClassifier{}
	m := New(classifier, store, newTestConfig(), testLogger())

	err := m.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, classifier.calls)
}

func TestTickScoresCandidatesAgainstDistribution(t *testing.T) {
	store := &fakeStore{
		state: &domain.State{
			LTTopic: []domain.CategoryWeight{{Label: "tech", Weight: 1}},
			LTMood:  []domain.CategoryWeight{{Label: "happy", Weight: 1}},
		},
		candidates: []*domain.EditorRow{{ID: 42, Topic: "tech", Mood: "happy"}},
	}
	classifier := &fakeClassifier{}
	m := New(classifier, store, newTestConfig(), testLogger())

	err := m.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, classifier.calls)

	scores, ok := store.scored[42]
	require.True(t, ok)
	assert.Equal(t, 8, scores[0])
	assert.Equal(t, 8, scores[1])
}

func TestTickDefaultsToFiveWithoutDistribution(t *testing.T) {
	store := &fakeStore{
		state:      &domain.State{},
		candidates: []*domain.EditorRow{{ID: 7, Topic: "tech", Mood: "happy"}},
	}
	classifier := &fakeClassifier{}
	m := New(classifier, store, newTestConfig(), testLogger())

	err := m.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, classifier.calls)

	scores, ok := store.scored[7]
	require.True(t, ok)
	assert.Equal(t, 5, scores[0])
	assert.Equal(t, 5, scores[1])
}
