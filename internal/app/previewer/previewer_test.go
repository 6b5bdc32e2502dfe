package previewer

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

func previewableRow(id int64, scheduledUnix int64) *domain.ToPublishRow {
	return &domain.ToPublishRow{
		ID: id, Text: "post", Topic: "t", Mood: "m", Author: "a",
		Time:         scheduledUnix,
		PicBase64:    string(make([]byte, 200)),
		TextPrepared: "a prepared caption long enough",
		Pic:          true, Prepare: true,
	}
}

type fakeSender struct {
	calls    int
	failOn   map[int]bool
	captions []string
}

func (f *fakeSender) SendPhoto(ctx context.Context, photoBase64, caption string) error {
	idx := f.calls
	f.calls++
	f.captions = append(f.captions, caption)
	if f.failOn[idx] {
		return errors.New("telegram down")
	}
	return nil
}

type fakeStore struct {
	pending   []*domain.ToPublishRow
	previewed []int64
}

func (f *fakeStore) ListToPublishPreviewPending(limit int) ([]*domain.ToPublishRow, error) {
	return f.pending, nil
}

func (f *fakeStore) UpdatePreview(id int64) error {
	f.previewed = append(f.previewed, id)
	return nil
}

func newTestConfig() Config {
	return Config{InterRequestPause: time.Millisecond}
}

func TestTickPreviewsAndMarksRow(t *testing.T) {
	store := &fakeStore{pending: []*domain.ToPublishRow{previewableRow(1, 0)}}
	sender := &fakeSender{}
	p := New(sender, store, newTestConfig(), testLogger())

	err := p.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sender.calls)
	assert.Equal(t, []int64{1}, store.previewed)
}

func TestTickContinuesPastFailedRow(t *testing.T) {
	store := &fakeStore{pending: []*domain.ToPublishRow{
		previewableRow(1, 0),
		previewableRow(2, 0),
	}}
	sender := &fakeSender{failOn: map[int]bool{0: true}}
	p := New(sender, store, newTestConfig(), testLogger())

	err := p.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sender.calls)
	assert.Equal(t, []int64{2}, store.previewed)
}

func TestTickSkipsRowsNotReadyToPreview(t *testing.T) {
	notReady := previewableRow(1, 0)
	notReady.Prepare = false
	store := &fakeStore{pending: []*domain.ToPublishRow{notReady}}
	sender := &fakeSender{}
	p := New(sender, store, newTestConfig(), testLogger())

	err := p.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, sender.calls)
	assert.Empty(t, store.previewed)
}

func TestAnnotateCaptionWithoutTime(t *testing.T) {
	got := annotateCaption("hello", 42, 0)
	assert.Equal(t, "hello\n\n\\[ID\\] 42", got)
}

func TestAnnotateCaptionWithTime(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Moscow")
	require.NoError(t, err)
	ts := time.Date(2026, 2, 1, 13, 23, 0, 0, loc).Unix()

	got := annotateCaption("hello", 7, ts)
	assert.Contains(t, got, "hello\n\n\\[ID\\] 7")
	assert.Contains(t, got, "\\=\\=\\=")
	assert.Contains(t, got, "01\\.02\\.2026\\, 13\\:23")
}

func TestEscapeMarkdownEscapesCommaAndColon(t *testing.T) {
	got := escapeMarkdown("01.02.2026, 13:23")
	assert.Equal(t, "01\\.02\\.2026\\, 13\\:23", got)
}

func TestDefaultsApplied(t *testing.T) {
	store := &fakeStore{}
	sender := &fakeSender{}
	p := New(sender, store, Config{}, testLogger())

	assert.Equal(t, 5, p.cfg.BatchSize)
	assert.Equal(t, 10*time.Second, p.cfg.InterRequestPause)
}
