// Package domain contains pure business types with ZERO infrastructure imports.
// This is the innermost ring of clean architecture — it depends on nothing.
package domain

import "time"

// ─── Scoring Dimensions ─────────────────────────────────────────────────────

// Dimension identifies one of the seven scoring axes fed into the Aggregator.
type Dimension string

const (
	DimLTTopic     Dimension = "lt_topic"
	DimLTMood      Dimension = "lt_mood"
	DimMTTopic     Dimension = "mt_topic"
	DimMTMood      Dimension = "mt_mood"
	DimMTAuthor    Dimension = "mt_author"
	DimTimeBest    Dimension = "time_best"
	DimTimeExpire  Dimension = "time_expire"
)

// AllDimensions lists the seven dimensions in a stable order.
var AllDimensions = []Dimension{
	DimLTTopic, DimLTMood, DimMTTopic, DimMTMood, DimMTAuthor, DimTimeBest, DimTimeExpire,
}

// MTAuthorAbsent is the sentinel written to mt-author when a candidate has no
// author field — Aggregator treats it as an absent (invalid) dimension.
const MTAuthorAbsent = -1

// ─── editor ─────────────────────────────────────────────────────────────────

// EditorRow is a candidate post awaiting scheduling.
type EditorRow struct {
	ID   int64
	Text string

	Topic  string
	Mood   string
	Author string
	Names  string
	Length int

	PostTime  time.Time // calendar date, UTC midnight
	ExpireDays int
	BestTimes []int // hours 0..23, may be empty

	LTTopic    *int
	LTMood     *int
	MTTopic    *int
	MTMood     *int
	MTAuthor   *int // may hold MTAuthorAbsent
	TimeBest   *int
	TimeExpire *int

	FinalScore *float64

	LT       bool
	MT       bool
	Time     bool
	Analyzed bool
}

// Score returns the stored value of a dimension, or nil if unset.
func (r *EditorRow) Score(d Dimension) *int {
	switch d {
	case DimLTTopic:
		return r.LTTopic
	case DimLTMood:
		return r.LTMood
	case DimMTTopic:
		return r.MTTopic
	case DimMTMood:
		return r.MTMood
	case DimMTAuthor:
		return r.MTAuthor
	case DimTimeBest:
		return r.TimeBest
	case DimTimeExpire:
		return r.TimeExpire
	default:
		return nil
	}
}

// ReadyForAggregation reports whether all three prerequisite flags are set
// and the row has not yet been analyzed — the Aggregator's selection filter.
func (r *EditorRow) ReadyForAggregation() bool {
	return r.LT && r.MT && r.Time && !r.Analyzed
}

// ─── to_publish ─────────────────────────────────────────────────────────────

// ToPublishRow is a winning candidate queued for delivery.
type ToPublishRow struct {
	ID   int64
	Text string

	Topic  string
	Mood   string
	Author string
	Names  string
	Length int

	Time       int64 // UNIX seconds, scheduled publication moment
	FinalScore float64

	PicBase64    string
	TextPrepared string

	Pic       bool
	Prepare   bool
	Preview   bool
	Published bool
}

// ReadyToDeliver reports whether a queued record has everything the
// Publisher needs and its scheduled time has arrived.
func (r *ToPublishRow) ReadyToDeliver(now int64) bool {
	return !r.Published &&
		r.Pic && len(r.PicBase64) > 100 &&
		r.Prepare && len(r.TextPrepared) > 10 &&
		r.Time <= now
}

// ReadyToPreview reports whether a queued record has everything Previewer
// needs to post it to the preview channel. Unlike ReadyToDeliver this does
// not gate on the scheduled time — preview is an early look at upcoming
// content, not the real delivery.
func (r *ToPublishRow) ReadyToPreview() bool {
	return !r.Preview &&
		r.Pic && len(r.PicBase64) > 100 &&
		r.Prepare && len(r.TextPrepared) > 10
}

// ─── published ──────────────────────────────────────────────────────────────

// PublishedRow is a historical ledger entry of a successful delivery.
type PublishedRow struct {
	ID     int64
	Text   string
	Topic  string
	Mood   string
	Author string
	Names  string
	Length int

	Published int64 // UNIX seconds of actual delivery
	Next      bool  // chain-control flag
}

// ─── state ──────────────────────────────────────────────────────────────────

// CategoryWeight is one entry of a long/medium-term distribution.
type CategoryWeight struct {
	Label  string  `json:"label"`
	Weight float64 `json:"weight"`
}

// State is the singleton long-term distribution snapshot.
type State struct {
	LTTopic      []CategoryWeight
	LTMood       []CategoryWeight
	LTUpdatedAt  time.Time
}

// MTDistribution holds the medium-term category distributions computed by
// MediumTermBalancer and persisted in the state row alongside State.
type MTDistribution struct {
	MTTopic  []CategoryWeight
	MTMood   []CategoryWeight
	MTAuthor []CategoryWeight
}
