package store

import (
	"database/sql"

	"github.com/newsline-bot/editor-engine/internal/domain"
)

// InsertToPublish moves a winning candidate into the delivery queue with all
// pipeline flags false, inside the caller's transaction if one is supplied.
func (s *Store) InsertToPublish(tx *sql.Tx, r *domain.EditorRow, scheduledUnix int64) (int64, error) {
	exec := s.execer(tx)
	res, err := exec.Exec(`
		INSERT INTO to_publish (text, topic, mood, author, names, length, time, final_score)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, r.Text, r.Topic, r.Mood, r.Author, r.Names, r.Length, scheduledUnix, *r.FinalScore)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// MoveWinnerToPublish atomically inserts winner into to_publish at
// scheduledUnix and deletes it from editor, committing both or neither.
func (s *Store) MoveWinnerToPublish(winner *domain.EditorRow, scheduledUnix int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	if _, err := s.InsertToPublish(tx, winner, scheduledUnix); err != nil {
		tx.Rollback()
		return err
	}
	if _, err := tx.Exec(`DELETE FROM editor WHERE id = ?`, winner.ID); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// ListToPublishPicPending returns rows awaiting Painter, ordered by id.
func (s *Store) ListToPublishPicPending(limit int) ([]*domain.ToPublishRow, error) {
	return s.queryToPublish(`
		SELECT id, text, topic, mood, author, names, length, time, final_score,
		       pic_base64, text_prepared, pic, prepare, preview, published
		FROM to_publish WHERE pic = 0 ORDER BY id LIMIT ?`, limit)
}

// ListToPublishPreparePending returns rows awaiting Preparator, ordered by id.
func (s *Store) ListToPublishPreparePending(limit int) ([]*domain.ToPublishRow, error) {
	return s.queryToPublish(`
		SELECT id, text, topic, mood, author, names, length, time, final_score,
		       pic_base64, text_prepared, pic, prepare, preview, published
		FROM to_publish WHERE prepare = 0 ORDER BY id LIMIT ?`, limit)
}

// ListToPublishPreviewPending returns rows ready for Previewer: picture and
// caption ready, not yet sent to the preview channel, ordered by id.
func (s *Store) ListToPublishPreviewPending(limit int) ([]*domain.ToPublishRow, error) {
	return s.queryToPublish(`
		SELECT id, text, topic, mood, author, names, length, time, final_score,
		       pic_base64, text_prepared, pic, prepare, preview, published
		FROM to_publish
		WHERE preview = 0 AND pic = 1 AND prepare = 1
		ORDER BY id LIMIT ?`, limit)
}

// ListToPublishDeliverable returns rows ready for Publisher: unpublished,
// picture and caption ready, and scheduled time has arrived.
func (s *Store) ListToPublishDeliverable(nowUnix int64) ([]*domain.ToPublishRow, error) {
	return s.queryToPublish(`
		SELECT id, text, topic, mood, author, names, length, time, final_score,
		       pic_base64, text_prepared, pic, prepare, preview, published
		FROM to_publish
		WHERE published = 0 AND pic = 1 AND prepare = 1 AND time <= ?
		ORDER BY id`, nowUnix)
}

// UpdatePic writes the rendered image payload and sets pic=true.
func (s *Store) UpdatePic(id int64, base64Data string) error {
	_, err := s.db.Exec(`
		UPDATE to_publish SET pic_base64 = ?, pic = 1 WHERE id = ? AND pic = 0`, base64Data, id)
	return err
}

// UpdatePrepared writes the rendered caption and sets prepare=true.
func (s *Store) UpdatePrepared(id int64, text string) error {
	_, err := s.db.Exec(`
		UPDATE to_publish SET text_prepared = ?, prepare = 1 WHERE id = ? AND prepare = 0`, text, id)
	return err
}

// UpdatePreview sets preview=true on the to_publish row, idempotent.
func (s *Store) UpdatePreview(id int64) error {
	_, err := s.db.Exec(`UPDATE to_publish SET preview = 1 WHERE id = ? AND preview = 0`, id)
	return err
}

// MarkPublished sets published=true on the to_publish row, idempotent.
func (s *Store) MarkPublished(id int64) error {
	_, err := s.db.Exec(`UPDATE to_publish SET published = 1 WHERE id = ? AND published = 0`, id)
	return err
}

// DeletePublishedToPublish removes already-delivered rows, returning the
// count removed — Cleaner's second sweep.
func (s *Store) DeletePublishedToPublish() (int64, error) {
	res, err := s.db.Exec(`DELETE FROM to_publish WHERE published = 1`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) queryToPublish(query string, args ...any) ([]*domain.ToPublishRow, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.ToPublishRow
	for rows.Next() {
		var r domain.ToPublishRow
		var pic, prepare, preview, published int
		if err := rows.Scan(&r.ID, &r.Text, &r.Topic, &r.Mood, &r.Author, &r.Names, &r.Length,
			&r.Time, &r.FinalScore, &r.PicBase64, &r.TextPrepared,
			&pic, &prepare, &preview, &published); err != nil {
			return nil, err
		}
		r.Pic, r.Prepare, r.Preview, r.Published = pic != 0, prepare != 0, preview != 0, published != 0
		out = append(out, &r)
	}
	return out, rows.Err()
}

// execer abstracts over *sql.DB and *sql.Tx so write helpers can run either
// standalone or inside a caller-managed transaction.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func (s *Store) execer(tx *sql.Tx) execer {
	if tx != nil {
		return tx
	}
	return s.db
}
