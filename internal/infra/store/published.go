package store

import (
	"database/sql"

	"github.com/newsline-bot/editor-engine/internal/domain"
)

// GetMaxPublished returns the max-id published row, or nil if the table is empty.
func (s *Store) GetMaxPublished() (*domain.PublishedRow, error) {
	row := s.db.QueryRow(`
		SELECT id, text, topic, mood, author, names, length, published, next
		FROM published ORDER BY id DESC LIMIT 1`)
	var r domain.PublishedRow
	var next int
	err := row.Scan(&r.ID, &r.Text, &r.Topic, &r.Mood, &r.Author, &r.Names, &r.Length, &r.Published, &next)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	r.Next = next != 0
	return &r, nil
}

// ListRecentPublished returns up to limit most-recent published rows with
// non-empty topic, mood, and author, newest first, for MediumTermBalancer.
func (s *Store) ListRecentPublished(limit int) ([]*domain.PublishedRow, error) {
	rows, err := s.db.Query(`
		SELECT id, text, topic, mood, author, names, length, published, next
		FROM published
		WHERE topic != '' AND mood != '' AND author != ''
		ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.PublishedRow
	for rows.Next() {
		var r domain.PublishedRow
		var next int
		if err := rows.Scan(&r.ID, &r.Text, &r.Topic, &r.Mood, &r.Author, &r.Names, &r.Length, &r.Published, &next); err != nil {
			return nil, err
		}
		r.Next = next != 0
		out = append(out, &r)
	}
	return out, rows.Err()
}

// RoundIsDue reports whether the Planner's precondition holds: published is
// empty, or its max-id row has next=false.
func (s *Store) RoundIsDue() (bool, error) {
	row, err := s.GetMaxPublished()
	if err != nil {
		return false, err
	}
	if row == nil {
		return true, nil
	}
	return !row.Next, nil
}

// InsertPublished appends a delivered record to the ledger with the given
// next flag, inside the caller's transaction if one is supplied.
func (s *Store) InsertPublished(tx *sql.Tx, r *domain.ToPublishRow, publishedAtUnix int64, next bool) (int64, error) {
	exec := s.execer(tx)
	res, err := exec.Exec(`
		INSERT INTO published (text, topic, mood, author, names, length, published, next)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, r.Text, r.Topic, r.Mood, r.Author, r.Names, r.Length, publishedAtUnix, boolToInt(next))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// CloseChain sets next=true on the max-id published row, idempotently: it is
// a no-op unless an undelivered to_publish row exists, and a no-op if
// published is empty. This guards against the Planner re-closing the chain
// after a crash between moving the winner and closing the chain.
func (s *Store) CloseChain() error {
	var pending int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM to_publish WHERE published = 0`).Scan(&pending); err != nil {
		return err
	}
	if pending == 0 {
		return nil
	}
	_, err := s.db.Exec(`
		UPDATE published SET next = 1
		WHERE id = (SELECT id FROM published ORDER BY id DESC LIMIT 1) AND next = 0`)
	return err
}

// DeliverToPublish atomically records a delivered to_publish row in the
// published ledger and flips its own published flag, committing both or
// neither.
func (s *Store) DeliverToPublish(row *domain.ToPublishRow, publishedAtUnix int64, next bool) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	if _, err := s.InsertPublished(tx, row, publishedAtUnix, next); err != nil {
		tx.Rollback()
		return err
	}
	if _, err := tx.Exec(`UPDATE to_publish SET published = 1 WHERE id = ? AND published = 0`, row.ID); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// SetNext sets the next flag on a specific published row — used by Publisher
// to re-arm planning (next=false) on the last record of a delivery batch.
func (s *Store) SetNext(id int64, next bool) error {
	_, err := s.db.Exec(`UPDATE published SET next = ? WHERE id = ?`, boolToInt(next), id)
	return err
}

// BeginTx starts a transaction for callers composing their own multi-step
// writes against to_publish/published.
func (s *Store) BeginTx() (*sql.Tx, error) {
	return s.db.Begin()
}
