package timescorer

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/newsline-bot/editor-engine/internal/domain"
)

func testLogger() zerolog.Logger { return zerolog.New(io.Discard) }

type fakeTimeStore struct {
	pending, all []*domain.EditorRow
	updateCalled bool
	lastBest     int
	lastExpire   int
}

func (f *fakeTimeStore) ListEditorTimePending() ([]*domain.EditorRow, error) { return f.pending, nil }
func (f *fakeTimeStore) ListEditorAllWithBestTimes() ([]*domain.EditorRow, error) {
	return f.all, nil
}
func (f *fakeTimeStore) UpdateTimeScores(id int64, best, expire int) error {
	f.updateCalled = true
	f.lastBest = best
	f.lastExpire = expire
	return nil
}

func TestCircularDistance(t *testing.T) {
	assert.Equal(t, 0, circularDistance(5, 5))
	assert.Equal(t, 1, circularDistance(23, 0))
	assert.Equal(t, 12, circularDistance(0, 12))
	assert.Equal(t, 11, circularDistance(1, 12))
}

func TestRarityMapUniformDistribution(t *testing.T) {
	rows := []*domain.EditorRow{
		{ID: 1, BestTimes: []int{0}},
		{ID: 2, BestTimes: []int{1}},
		{ID: 3, BestTimes: []int{2}},
	}
	rarity := RarityMap(rows)
	// Each of hours 0,1,2 appears once out of 3 rows -> rarity 2/3.
	assert.InDelta(t, 2.0/3, rarity[0], 0.001)
	assert.InDelta(t, 2.0/3, rarity[1], 0.001)
	// Hour never mentioned -> rarity 1 (maximally rare/novel).
	assert.InDelta(t, 1.0, rarity[12], 0.001)
}

func TestRarityMapNoRowsIsAllOnes(t *testing.T) {
	rarity := RarityMap(nil)
	for h := 0; h < 24; h++ {
		assert.Equal(t, 1.0, rarity[h])
	}
}

func TestBestHourScoreExactMatchIsHigh(t *testing.T) {
	var rarity [24]float64 // all zero bonus
	got := BestHourScore([]int{14}, 14, rarity)
	assert.Equal(t, 10, got)
}

func TestBestHourScoreFarMatchIsLow(t *testing.T) {
	var rarity [24]float64
	got := BestHourScore([]int{2}, 14, rarity) // distance 12
	assert.Equal(t, 1, got)
}

func TestBestHourScoreEmptyBestTimesDefaultsToFive(t *testing.T) {
	var rarity [24]float64
	got := BestHourScore(nil, 14, rarity)
	assert.Equal(t, 5, got)
}

func TestBestHourScoreRarityBonusNeverExceedsTen(t *testing.T) {
	var rarity [24]float64
	rarity[14] = 1.0
	got := BestHourScore([]int{14}, 14, rarity)
	assert.Equal(t, 10, got)
}

func TestEntropyRanksPrefersRowsThatFillGaps(t *testing.T) {
	// Two rows already densely cover hour 0; a third row covering the
	// opposite hour (12) contributes more new entropy and should rank first.
	rows := []*domain.EditorRow{
		{ID: 1, BestTimes: []int{0}},
		{ID: 2, BestTimes: []int{0}},
		{ID: 3, BestTimes: []int{12}},
	}
	ranks := EntropyRanks(rows, 0)
	assert.Equal(t, 0, ranks[3], "row filling an uncovered hour should rank first")
}

func TestEntropyRanksTiesBrokenByID(t *testing.T) {
	rows := []*domain.EditorRow{
		{ID: 5, BestTimes: []int{3}},
		{ID: 2, BestTimes: []int{9}},
	}
	ranks := EntropyRanks(rows, 0)
	// Symmetric contributions -> equal delta entropy -> lower id ranks first.
	assert.Less(t, ranks[2], ranks[5])
}

func TestEntropyRanksEmptyBestTimesRankLast(t *testing.T) {
	rows := []*domain.EditorRow{
		{ID: 1, BestTimes: []int{6}},
		{ID: 2, BestTimes: nil},
	}
	ranks := EntropyRanks(rows, 0)
	assert.Greater(t, ranks[2], ranks[1])
}

func TestPenaltyForTableLookup(t *testing.T) {
	ranks := map[int64]int{1: 0, 2: 2, 3: 4, 4: 99}
	assert.Equal(t, 0, penaltyFor(ranks, 1))
	assert.Equal(t, 1, penaltyFor(ranks, 2))
	assert.Equal(t, 2, penaltyFor(ranks, 3))
	assert.Equal(t, defaultEntropyPenalty, penaltyFor(ranks, 4))
	assert.Equal(t, defaultEntropyPenalty, penaltyFor(ranks, 999))
}

func TestExpireScoreBeforeExpiry(t *testing.T) {
	post := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now := post // day zero
	assert.Equal(t, 1, ExpireScore(post, 100, now))
}

func TestExpireScoreMidway(t *testing.T) {
	post := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now := post.AddDate(0, 0, 50) // 50% elapsed of a 100-day window
	assert.Equal(t, 6, ExpireScore(post, 100, now))
}

func TestExpireScoreAfterExpiryIsTen(t *testing.T) {
	post := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now := post.AddDate(0, 0, 200)
	assert.Equal(t, 10, ExpireScore(post, 100, now))
}

func TestExpireScoreMonotonicWithElapsedTime(t *testing.T) {
	post := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	prev := 0
	for _, days := range []int{0, 10, 20, 40, 60, 80, 99} {
		got := ExpireScore(post, 100, post.AddDate(0, 0, days))
		assert.GreaterOrEqual(t, got, prev)
		prev = got
	}
}

func TestScoreAllSkipsWhenNothingPending(t *testing.T) {
	store := &fakeTimeStore{}
	ts := New(store, Config{Now: func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }}, testLogger())
	err := ts.ScoreAll(context.Background(), 12)
	assert.NoError(t, err)
	assert.False(t, store.updateCalled)
}

func TestScoreAllWritesBestAndExpire(t *testing.T) {
	row := &domain.EditorRow{
		ID:         7,
		BestTimes:  []int{12},
		PostTime:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		ExpireDays: 100,
	}
	store := &fakeTimeStore{pending: []*domain.EditorRow{row}, all: []*domain.EditorRow{row}}
	ts := New(store, Config{Now: func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }}, testLogger())

	err := ts.ScoreAll(context.Background(), 12)
	assert.NoError(t, err)
	assert.True(t, store.updateCalled)
	assert.GreaterOrEqual(t, store.lastBest, 1)
	assert.Equal(t, 1, store.lastExpire)
}
