package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/newsline-bot/editor-engine/internal/domain"
)

// InsertEditor inserts a new candidate row, used by tests and by the
// external editorial flow's ingestion path.
func (s *Store) InsertEditor(r *domain.EditorRow) (int64, error) {
	bt, err := json.Marshal(r.BestTimes)
	if err != nil {
		return 0, fmt.Errorf("marshal best_times: %w", err)
	}
	res, err := s.db.Exec(`
		INSERT INTO editor (text, topic, mood, author, names, length, post_time, expire, best_times)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.Text, r.Topic, r.Mood, r.Author, r.Names, r.Length,
		r.PostTime.Format("2006-01-02"), r.ExpireDays, string(bt))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetEditor fetches a single row by id.
func (s *Store) GetEditor(id int64) (*domain.EditorRow, error) {
	row := s.db.QueryRow(`
		SELECT id, text, topic, mood, author, names, length, post_time, expire, best_times,
		       lt_topic, lt_mood, mt_topic, mt_mood, mt_author, time_best, time_expire,
		       final_score, lt, mt, time, analyzed
		FROM editor WHERE id = ?
	`, id)
	return scanEditor(row)
}

// ListEditorWithLT returns rows matching the given lt flag value, ordered by id.
func (s *Store) ListEditorWithLT(lt bool) ([]*domain.EditorRow, error) {
	return s.queryEditors(`
		SELECT id, text, topic, mood, author, names, length, post_time, expire, best_times,
		       lt_topic, lt_mood, mt_topic, mt_mood, mt_author, time_best, time_expire,
		       final_score, lt, mt, time, analyzed
		FROM editor WHERE lt = ? ORDER BY id`, boolToInt(lt))
}

// ListEditorLTCandidates returns a batch of rows ready for LongTermMonitor:
// lt=false, with non-empty topic and mood, up to limit rows ordered by id.
func (s *Store) ListEditorLTCandidates(limit int) ([]*domain.EditorRow, error) {
	return s.queryEditors(`
		SELECT id, text, topic, mood, author, names, length, post_time, expire, best_times,
		       lt_topic, lt_mood, mt_topic, mt_mood, mt_author, time_best, time_expire,
		       final_score, lt, mt, time, analyzed
		FROM editor
		WHERE lt = 0 AND topic <> '' AND mood <> ''
		ORDER BY id LIMIT ?`, limit)
}

// ListEditorMTPending returns every row with mt=false, for MediumTermBalancer.
func (s *Store) ListEditorMTPending() ([]*domain.EditorRow, error) {
	return s.queryEditors(`
		SELECT id, text, topic, mood, author, names, length, post_time, expire, best_times,
		       lt_topic, lt_mood, mt_topic, mt_mood, mt_author, time_best, time_expire,
		       final_score, lt, mt, time, analyzed
		FROM editor WHERE mt = 0 ORDER BY id`)
}

// ListEditorTimePending returns every row with time=false, for TimeScorer.
func (s *Store) ListEditorTimePending() ([]*domain.EditorRow, error) {
	return s.queryEditors(`
		SELECT id, text, topic, mood, author, names, length, post_time, expire, best_times,
		       lt_topic, lt_mood, mt_topic, mt_mood, mt_author, time_best, time_expire,
		       final_score, lt, mt, time, analyzed
		FROM editor WHERE time = 0 ORDER BY id`)
}

// ListEditorAllWithBestTimes returns every row, used by TimeScorer to build
// the rarity map and coverage vector over the whole pool (not just the
// time=false batch — rarity must reflect the entire candidate set).
func (s *Store) ListEditorAllWithBestTimes() ([]*domain.EditorRow, error) {
	return s.queryEditors(`
		SELECT id, text, topic, mood, author, names, length, post_time, expire, best_times,
		       lt_topic, lt_mood, mt_topic, mt_mood, mt_author, time_best, time_expire,
		       final_score, lt, mt, time, analyzed
		FROM editor ORDER BY id`)
}

// ListEditorReadyForAggregation returns rows with lt=mt=time=true, analyzed=false.
func (s *Store) ListEditorReadyForAggregation() ([]*domain.EditorRow, error) {
	return s.queryEditors(`
		SELECT id, text, topic, mood, author, names, length, post_time, expire, best_times,
		       lt_topic, lt_mood, mt_topic, mt_mood, mt_author, time_best, time_expire,
		       final_score, lt, mt, time, analyzed
		FROM editor WHERE lt = 1 AND mt = 1 AND time = 1 AND analyzed = 0 ORDER BY id`)
}

// SelectRoundWinner returns the top-ranked analyzed row, per the Planner's
// selection order, or nil if none is ready.
func (s *Store) SelectRoundWinner() (*domain.EditorRow, error) {
	row := s.db.QueryRow(`
		SELECT id, text, topic, mood, author, names, length, post_time, expire, best_times,
		       lt_topic, lt_mood, mt_topic, mt_mood, mt_author, time_best, time_expire,
		       final_score, lt, mt, time, analyzed
		FROM editor
		WHERE analyzed = 1 AND final_score IS NOT NULL
		ORDER BY final_score DESC, time_best DESC, time_expire DESC, id ASC
		LIMIT 1`)
	r, err := scanEditor(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return r, err
}

// ResetForRound sets mt=false, time=false, analyzed=false on every row,
// leaving lt untouched (LT scoring runs on its own independent cadence).
func (s *Store) ResetForRound() error {
	_, err := s.db.Exec(`UPDATE editor SET mt = 0, time = 0, analyzed = 0`)
	return err
}

// ResetLTFlags sets lt=false on every row currently lt=true, so LongTermMonitor
// re-scores them against a freshly updated distribution.
func (s *Store) ResetLTFlags() error {
	_, err := s.db.Exec(`UPDATE editor SET lt = 0 WHERE lt = 1`)
	return err
}

// UpdateLTScores writes lt-topic/lt-mood and sets lt=true, idempotent on id.
func (s *Store) UpdateLTScores(id int64, topicScore, moodScore int) error {
	_, err := s.db.Exec(`
		UPDATE editor SET lt_topic = ?, lt_mood = ?, lt = 1
		WHERE id = ? AND lt = 0`, topicScore, moodScore, id)
	return err
}

// UpdateMTScores writes mt-topic/mt-mood/mt-author and sets mt=true.
func (s *Store) UpdateMTScores(id int64, topicScore, moodScore, authorScore int) error {
	_, err := s.db.Exec(`
		UPDATE editor SET mt_topic = ?, mt_mood = ?, mt_author = ?, mt = 1
		WHERE id = ? AND mt = 0`, topicScore, moodScore, authorScore, id)
	return err
}

// UpdateTimeScores writes time-best/time-expire and sets time=true.
func (s *Store) UpdateTimeScores(id int64, best, expire int) error {
	_, err := s.db.Exec(`
		UPDATE editor SET time_best = ?, time_expire = ?, time = 1
		WHERE id = ? AND time = 0`, best, expire, id)
	return err
}

// UpdateFinalScore writes final_score and sets analyzed=true.
func (s *Store) UpdateFinalScore(id int64, score float64) error {
	_, err := s.db.Exec(`
		UPDATE editor SET final_score = ?, analyzed = 1
		WHERE id = ? AND analyzed = 0`, score, id)
	return err
}

// DeleteEditor removes a row, used by Planner on selection and by Cleaner on expiry.
func (s *Store) DeleteEditor(id int64) error {
	_, err := s.db.Exec(`DELETE FROM editor WHERE id = ?`, id)
	return err
}

// ListExpiredEditor returns rows where post_time + expire days < asOf, for
// Cleaner to log before deleting them.
func (s *Store) ListExpiredEditor(asOf time.Time) ([]*domain.EditorRow, error) {
	return s.queryEditors(`
		SELECT id, text, topic, mood, author, names, length, post_time, expire, best_times,
		       lt_topic, lt_mood, mt_topic, mt_mood, mt_author, time_best, time_expire,
		       final_score, lt, mt, time, analyzed
		FROM editor
		WHERE date(post_time, '+' || expire || ' days') < ?
		ORDER BY post_time`, asOf.Format("2006-01-02"))
}

// DeleteExpiredEditor deletes rows where post_time + expire days < asOf, returning
// the count removed.
func (s *Store) DeleteExpiredEditor(asOf time.Time) (int64, error) {
	res, err := s.db.Exec(`
		DELETE FROM editor
		WHERE date(post_time, '+' || expire || ' days') < ?`, asOf.Format("2006-01-02"))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) queryEditors(query string, args ...any) ([]*domain.EditorRow, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.EditorRow
	for rows.Next() {
		r, err := scanEditorRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEditor(row *sql.Row) (*domain.EditorRow, error) {
	return scanEditorRows(row)
}

func scanEditorRows(row rowScanner) (*domain.EditorRow, error) {
	var (
		r             domain.EditorRow
		postTimeStr   string
		bestTimesJSON string
		ltTopic, ltMood, mtTopic, mtMood, mtAuthor, timeBest, timeExpire sql.NullInt64
		finalScore    sql.NullFloat64
		ltInt, mtInt, timeInt, analyzedInt int
	)
	err := row.Scan(&r.ID, &r.Text, &r.Topic, &r.Mood, &r.Author, &r.Names, &r.Length,
		&postTimeStr, &r.ExpireDays, &bestTimesJSON,
		&ltTopic, &ltMood, &mtTopic, &mtMood, &mtAuthor, &timeBest, &timeExpire,
		&finalScore, &ltInt, &mtInt, &timeInt, &analyzedInt)
	if err != nil {
		return nil, err
	}

	r.PostTime, _ = time.Parse("2006-01-02", postTimeStr)
	_ = json.Unmarshal([]byte(bestTimesJSON), &r.BestTimes)

	r.LTTopic = nullIntPtr(ltTopic)
	r.LTMood = nullIntPtr(ltMood)
	r.MTTopic = nullIntPtr(mtTopic)
	r.MTMood = nullIntPtr(mtMood)
	r.MTAuthor = nullIntPtr(mtAuthor)
	r.TimeBest = nullIntPtr(timeBest)
	r.TimeExpire = nullIntPtr(timeExpire)
	if finalScore.Valid {
		r.FinalScore = &finalScore.Float64
	}

	r.LT = ltInt != 0
	r.MT = mtInt != 0
	r.Time = timeInt != 0
	r.Analyzed = analyzedInt != 0

	return &r, nil
}

func nullIntPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
