package publisher

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newsline-bot/editor-engine/internal/domain"
)

func testLogger() zerolog.Logger { return zerolog.New(io.Discard) }

func readyRow(id int64, now int64) *domain.ToPublishRow {
	return &domain.ToPublishRow{
		ID: id, Text: "post", Topic: "t", Mood: "m", Author: "a",
		Time:         now - 1,
		PicBase64:    string(make([]byte, 200)),
		TextPrepared: "a prepared caption long enough",
		Pic:          true, Prepare: true,
	}
}

type fakeSender struct {
	calls int
	err   error
}

func (f *fakeSender) SendPhoto(ctx context.Context, photoBase64, caption string) error {
	f.calls++
	return f.err
}

type fakeStore struct {
	deliverable []*domain.ToPublishRow
	delivered   []struct {
		id   int64
		next bool
	}
}

func (f *fakeStore) ListToPublishDeliverable(nowUnix int64) ([]*domain.ToPublishRow, error) {
	return f.deliverable, nil
}

func (f *fakeStore) DeliverToPublish(row *domain.ToPublishRow, publishedAtUnix int64, next bool) error {
	f.delivered = append(f.delivered, struct {
		id   int64
		next bool
	}{row.ID, next})
	return nil
}

func newTestConfig(now time.Time) Config {
	return Config{PublishInterval: time.Millisecond, Now: func() time.Time { return now }}
}

func TestTickDeliversSingleRowWithNextFalse(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store := &fakeStore{deliverable: []*domain.ToPublishRow{readyRow(1, now.Unix())}}
	sender := &fakeSender{}
	p := New(sender, store, newTestConfig(now), testLogger())

	err := p.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sender.calls)
	require.Len(t, store.delivered, 1)
	assert.False(t, store.delivered[0].next)
}

func TestTickMarksAllButLastRowAsNextTrue(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store := &fakeStore{deliverable: []*domain.ToPublishRow{
		readyRow(1, now.Unix()),
		readyRow(2, now.Unix()),
	}}
	sender := &fakeSender{}
	p := New(sender, store, newTestConfig(now), testLogger())

	err := p.Tick(context.Background())
	require.NoError(t, err)
	require.Len(t, store.delivered, 2)
	assert.True(t, store.delivered[0].next)
	assert.False(t, store.delivered[1].next)
}

func TestTickStopsOnFirstSendFailure(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store := &fakeStore{deliverable: []*domain.ToPublishRow{
		readyRow(1, now.Unix()),
		readyRow(2, now.Unix()),
	}}
	sender := &fakeSender{err: errors.New("telegram down")}
	p := New(sender, store, newTestConfig(now), testLogger())

	err := p.Tick(context.Background())
	assert.Error(t, err)
	assert.Empty(t, store.delivered)
}

func TestTickSkipsRowsNotReadyToDeliver(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	notReady := readyRow(1, now.Unix())
	notReady.Pic = false
	store := &fakeStore{deliverable: []*domain.ToPublishRow{notReady}}
	sender := &fakeSender{}
	p := New(sender, store, newTestConfig(now), testLogger())

	err := p.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, sender.calls)
}
