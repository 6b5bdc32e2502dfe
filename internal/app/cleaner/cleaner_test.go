package cleaner

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

type fakeStore struct {
	expired            []*domain.EditorRow
	deleteExpiredCalls int
	deleteExpiredCount int64
	deletePublishedN   int64
}

func (f *fakeStore) ListExpiredEditor(asOf time.Time) ([]*domain.EditorRow, error) {
	return f.expired, nil
}

func (f *fakeStore) DeleteExpiredEditor(asOf time.Time) (int64, error) {
	f.deleteExpiredCalls++
	return f.deleteExpiredCount, nil
}

func (f *fakeStore) DeletePublishedToPublish() (int64, error) {
	return f.deletePublishedN, nil
}

func TestTickSweepsBothTables(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	store := &fakeStore{
		expired:            []*domain.EditorRow{{ID: 1, PostTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), ExpireDays: 5}},
		deleteExpiredCount: 1,
		deletePublishedN:   3,
	}
	c := New(store, Config{Now: func() time.Time { return now }}, testLogger())

	err := c.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, store.deleteExpiredCalls)
}

func TestTickNoOpWhenNothingExpired(t *testing.T) {
	store := &fakeStore{}
	c := New(store, Config{}, testLogger())

	err := c.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, store.deleteExpiredCalls)
}
