package store

import (
	"database/sql"
	"encoding/json"

	"github.com/newsline-bot/editor-engine/internal/domain"
)

// GetState returns the singleton long-term distribution snapshot. Returns
// domain.ErrStateNotSeeded if LongTermUpdater has never run.
func (s *Store) GetState() (*domain.State, error) {
	row := s.db.QueryRow(`SELECT lt_topic, lt_mood, lt_updated_at FROM state WHERE id = 1`)
	var ltTopicJSON, ltMoodJSON string
	var updatedAt int64
	if err := row.Scan(&ltTopicJSON, &ltMoodJSON, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrStateNotSeeded
		}
		return nil, err
	}
	var st domain.State
	if err := json.Unmarshal([]byte(ltTopicJSON), &st.LTTopic); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(ltMoodJSON), &st.LTMood); err != nil {
		return nil, err
	}
	st.LTUpdatedAt = unixToTime(updatedAt)
	return &st, nil
}

// GetMTDistribution returns the medium-term category distributions, empty
// arrays if MediumTermBalancer has never run.
func (s *Store) GetMTDistribution() (*domain.MTDistribution, error) {
	row := s.db.QueryRow(`SELECT mt_topic, mt_mood, mt_author FROM state WHERE id = 1`)
	var topicJSON, moodJSON, authorJSON string
	if err := row.Scan(&topicJSON, &moodJSON, &authorJSON); err != nil {
		if err == sql.ErrNoRows {
			return &domain.MTDistribution{}, nil
		}
		return nil, err
	}
	var d domain.MTDistribution
	_ = json.Unmarshal([]byte(topicJSON), &d.MTTopic)
	_ = json.Unmarshal([]byte(moodJSON), &d.MTMood)
	_ = json.Unmarshal([]byte(authorJSON), &d.MTAuthor)
	return &d, nil
}

// UpsertLTDistribution writes the long-term snapshot produced by
// LongTermUpdater, seeding the singleton row if absent.
func (s *Store) UpsertLTDistribution(topic, mood []domain.CategoryWeight, updatedAtUnix int64) error {
	topicJSON, err := json.Marshal(topic)
	if err != nil {
		return err
	}
	moodJSON, err := json.Marshal(mood)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`
		INSERT INTO state (id, lt_topic, lt_mood, lt_updated_at, mt_topic, mt_mood, mt_author)
		VALUES (1, ?, ?, ?, '[]', '[]', '[]')
		ON CONFLICT(id) DO UPDATE SET
			lt_topic = excluded.lt_topic,
			lt_mood = excluded.lt_mood,
			lt_updated_at = excluded.lt_updated_at
	`, string(topicJSON), string(moodJSON), updatedAtUnix)
	return err
}

// UpsertMTDistribution writes the medium-term distributions produced by
// MediumTermBalancer, seeding the singleton row if absent.
func (s *Store) UpsertMTDistribution(topic, mood, author []domain.CategoryWeight) error {
	topicJSON, err := json.Marshal(topic)
	if err != nil {
		return err
	}
	moodJSON, err := json.Marshal(mood)
	if err != nil {
		return err
	}
	authorJSON, err := json.Marshal(author)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`
		INSERT INTO state (id, lt_topic, lt_mood, lt_updated_at, mt_topic, mt_mood, mt_author)
		VALUES (1, '[]', '[]', 0, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			mt_topic = excluded.mt_topic,
			mt_mood = excluded.mt_mood,
			mt_author = excluded.mt_author
	`, string(topicJSON), string(moodJSON), string(authorJSON))
	return err
}
