// Package timescorer scores editor rows for fitness to publish at a given
// UTC hour (time-best) and for expiration urgency (time-expire).
package timescorer

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/newsline-bot/editor-engine/internal/domain"
	"github.com/newsline-bot/editor-engine/internal/infra/observability"
)

// Store is the subset of store.Store TimeScorer depends on.
type Store interface {
	ListEditorTimePending() ([]*domain.EditorRow, error)
	ListEditorAllWithBestTimes() ([]*domain.EditorRow, error)
	UpdateTimeScores(id int64, best, expire int) error
}

// Config controls a scoring round.
type Config struct {
	Now func() time.Time
}

// TimeScorer is invoked by the Planner with a target hour once per round.
type TimeScorer struct {
	store  Store
	cfg    Config
	logger zerolog.Logger
}

// New builds a TimeScorer.
func New(store Store, cfg Config, logger zerolog.Logger) *TimeScorer {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &TimeScorer{store: store, cfg: cfg, logger: logger.With().Str("component", "timescorer").Logger()}
}

// ScoreAll scans editor rows with time=false, assigns time-best and
// time-expire, and sets time=true. Called synchronously by Planner within a
// round, once Planner has determined the round's target hour.
func (ts *TimeScorer) ScoreAll(ctx context.Context, targetHour int) error {
	pending, err := ts.store.ListEditorTimePending()
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}

	all, err := ts.store.ListEditorAllWithBestTimes()
	if err != nil {
		return err
	}

	rarity := RarityMap(all)
	ranks := EntropyRanks(all, targetHour)
	today := ts.cfg.Now().UTC()

	for _, row := range pending {
		best := BestHourScore(row.BestTimes, targetHour, rarity) - penaltyFor(ranks, row.ID)
		if best < 1 {
			best = 1
		}
		expire := ExpireScore(row.PostTime, row.ExpireDays, today)

		if err := ts.store.UpdateTimeScores(row.ID, best, expire); err != nil {
			ts.logger.Warn().Err(err).Int64("id", row.ID).Msg("failed to write time scores")
			observability.RecordsHandled.WithLabelValues("timescorer", string(observability.OutcomeFailed)).Inc()
			continue
		}
		observability.RecordsHandled.WithLabelValues("timescorer", string(observability.OutcomeProcessed)).Inc()
	}
	return nil
}

// Name identifies this task. TimeScorer is driven directly by Planner, not
// registered with supervisor.Supervisor — Name/Tick exist only so a
// standalone deployment could run it on its own cadence if ever needed.
func (ts *TimeScorer) Name() string { return "timescorer" }

// Tick is a no-op placeholder: TimeScorer has no meaningful target hour
// without the Planner's round context, so it is never independently ticked.
func (ts *TimeScorer) Tick(ctx context.Context) error { return nil }

// circularDistance is the shortest distance between two hours on a 24-hour
// clock.
func circularDistance(a, b int) int {
	d := a - b
	if d < 0 {
		d = -d
	}
	if d > 24-d {
		return 24 - d
	}
	return d
}

// RarityMap computes rarity(h) = 1 − c(h)/N for every hour 0..23, where c(h)
// is the number of rows whose best_times contains h, and N is the count of
// rows with a non-empty best_times set.
func RarityMap(rows []*domain.EditorRow) [24]float64 {
	var rarity [24]float64
	var counts [24]int
	n := 0

	for _, r := range rows {
		if len(r.BestTimes) == 0 {
			continue
		}
		n++
		seen := map[int]bool{}
		for _, h := range r.BestTimes {
			if h < 0 || h > 23 || seen[h] {
				continue
			}
			seen[h] = true
			counts[h]++
		}
	}

	for h := 0; h < 24; h++ {
		if n == 0 {
			rarity[h] = 1
			continue
		}
		rarity[h] = 1 - float64(counts[h])/float64(n)
	}
	return rarity
}

// BestHourScore computes the best-hour fitness of one row: the circular
// distance from targetHour to the row's nearest best_times entry, a base
// score of max(1, 10-dmin), plus a rarity bonus of rarity(bmin)*3, clamped
// to [1,10] and rounded. Empty best_times yields the documented base of 5.
func BestHourScore(bestTimes []int, targetHour int, rarity [24]float64) int {
	if len(bestTimes) == 0 {
		return 5
	}

	dmin := 25
	bmin := bestTimes[0]
	for _, b := range bestTimes {
		d := circularDistance(targetHour, b)
		if d < dmin {
			dmin = d
			bmin = b
		}
	}

	base := float64(10 - dmin)
	if base < 1 {
		base = 1
	}
	score := base + rarity[bmin]*3
	if score > 10 {
		score = 10
	}
	if score < 1 {
		score = 1
	}
	return int(math.Round(score))
}

// coverageContribution returns row's contribution to the 24-hour coverage
// vector: contribution[h] = max(0, 10 - circularDistance-to-nearest-best_time).
func coverageContribution(bestTimes []int) [24]float64 {
	var c [24]float64
	if len(bestTimes) == 0 {
		return c
	}
	for h := 0; h < 24; h++ {
		dmin := 25
		for _, b := range bestTimes {
			d := circularDistance(h, b)
			if d < dmin {
				dmin = d
			}
		}
		v := float64(10 - dmin)
		if v < 0 {
			v = 0
		}
		c[h] = v
	}
	return c
}

func shannonEntropy(cov [24]float64) float64 {
	var sum float64
	for _, v := range cov {
		sum += v
	}
	if sum <= 0 {
		return 0
	}
	var h float64
	for _, v := range cov {
		if v <= 0 {
			continue
		}
		p := v / sum
		h -= p * math.Log2(p)
	}
	return h
}

// rankedRow is an intermediate used by EntropyRanks to order rows by
// marginal entropy gain.
type rankedRow struct {
	id         int64
	deltaH     float64
	hasBestTimes bool
}

// EntropyRanks ranks rows by how much each would improve 24-hour coverage
// if scheduled: for the rows being scored
// this round, compute each row's marginal contribution to Shannon entropy of
// the aggregate coverage vector, rank them descending by that delta (ties
// broken by ascending id), and
// return a map from row id to its 0-based rank. Rows with empty best_times
// are sorted last, receiving the worst rank.
func EntropyRanks(rows []*domain.EditorRow, targetHour int) map[int64]int {
	_ = targetHour // entropy is computed over the aggregate coverage, independent of targetHour

	var cov [24]float64
	contributions := make(map[int64][24]float64, len(rows))
	for _, r := range rows {
		c := coverageContribution(r.BestTimes)
		contributions[r.ID] = c
		for h := 0; h < 24; h++ {
			cov[h] += c[h]
		}
	}
	baseH := shannonEntropy(cov)

	ranked := make([]rankedRow, 0, len(rows))
	for _, r := range rows {
		c := contributions[r.ID]
		var covPrime [24]float64
		for h := 0; h < 24; h++ {
			covPrime[h] = cov[h] + c[h]
		}
		ranked = append(ranked, rankedRow{
			id:           r.ID,
			deltaH:       shannonEntropy(covPrime) - baseH,
			hasBestTimes: len(r.BestTimes) > 0,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.hasBestTimes != b.hasBestTimes {
			return a.hasBestTimes // rows with best_times sort before empty ones
		}
		if math.Abs(a.deltaH-b.deltaH) > 1e-12 { // closer deltas are a tie (float rounding)
			return a.deltaH > b.deltaH
		}
		return a.id < b.id
	})

	out := make(map[int64]int, len(ranked))
	for i, r := range ranked {
		out[r.id] = i
	}
	return out
}

// entropyPenaltyTable maps a row's coverage-gain rank to a penalty
// subtracted from its best-hour score: the rows contributing the most new
// coverage are never penalized, and the penalty grows with how redundant a
// row's best-hour coverage is.
var entropyPenaltyTable = map[int]int{0: 0, 1: 0, 2: 1, 3: 1, 4: 2, 5: 2}

const defaultEntropyPenalty = 3

func penaltyFor(ranks map[int64]int, id int64) int {
	rank, ok := ranks[id]
	if !ok {
		return defaultEntropyPenalty
	}
	if p, ok := entropyPenaltyTable[rank]; ok {
		return p
	}
	return defaultEntropyPenalty
}

// ExpireScore computes time-expire for a row with the given postTime and
// expire (days), as of asOf: 10 once expired (asOf >= postTime+expire days),
// else a decile bucket of the elapsed-fraction percentage.
func ExpireScore(postTime time.Time, expireDays int, asOf time.Time) int {
	expiry := postTime.AddDate(0, 0, expireDays)
	if !asOf.Before(expiry) {
		return 10
	}

	var ratio float64
	if expireDays > 0 {
		elapsedDays := asOf.Sub(postTime).Hours() / 24
		ratio = elapsedDays / float64(expireDays) * 100
	} else {
		ratio = 100
	}
	if ratio < 0 {
		ratio = 0
	}

	bucket := int(ratio/10) + 1
	if bucket > 10 {
		bucket = 10
	}
	if bucket < 1 {
		bucket = 1
	}
	return bucket
}
