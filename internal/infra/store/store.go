// Package store is the sole persistence layer. Every coordination signal
// between components — the status flags on editor and to_publish, the
// chain flag on published, the long/medium-term distributions in state —
// lives here. No component keeps in-memory state that survives a tick.
package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Store wraps a single SQLite connection pool. All methods are safe for
// concurrent use; SQLite serializes writers internally.
type Store struct {
	db *sql.DB
}

// Open opens (creating if absent) the SQLite database at path, runs
// migrations, and probes connectivity with a quick_check before returning —
// so a corrupt or unreachable database fails fast at boot rather than on the
// first component's tick.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1) // single writer; avoids SQLITE_BUSY storms

	s := &Store{db: db}
	if err := s.probe(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: connectivity probe failed: %w", err)
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	return s, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) probe() error {
	var ok int
	if err := s.db.QueryRow("SELECT 1").Scan(&ok); err != nil {
		return err
	}
	var result string
	if err := s.db.QueryRow("PRAGMA quick_check").Scan(&result); err != nil {
		return err
	}
	if result != "ok" {
		return fmt.Errorf("quick_check reported: %s", result)
	}
	return nil
}

// Migrations returns the schema migration statements, one SQL statement per
// entry, applied in order and safe to re-run (IF NOT EXISTS throughout).
func Migrations() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS editor (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			text        TEXT NOT NULL,
			topic       TEXT NOT NULL DEFAULT '',
			mood        TEXT NOT NULL DEFAULT '',
			author      TEXT NOT NULL DEFAULT '',
			names       TEXT NOT NULL DEFAULT '',
			length      INTEGER NOT NULL DEFAULT 0,
			post_time   TEXT NOT NULL,
			expire      INTEGER NOT NULL DEFAULT 0,
			best_times  TEXT NOT NULL DEFAULT '[]',
			lt_topic    INTEGER,
			lt_mood     INTEGER,
			mt_topic    INTEGER,
			mt_mood     INTEGER,
			mt_author   INTEGER,
			time_best   INTEGER,
			time_expire INTEGER,
			final_score REAL,
			lt          INTEGER NOT NULL DEFAULT 0,
			mt          INTEGER NOT NULL DEFAULT 0,
			time        INTEGER NOT NULL DEFAULT 0,
			analyzed    INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_editor_lt ON editor(lt)`,
		`CREATE INDEX IF NOT EXISTS idx_editor_mt ON editor(mt)`,
		`CREATE INDEX IF NOT EXISTS idx_editor_time ON editor(time)`,
		`CREATE INDEX IF NOT EXISTS idx_editor_ready ON editor(lt, mt, time, analyzed)`,
		`CREATE INDEX IF NOT EXISTS idx_editor_expiry ON editor(post_time, expire)`,

		`CREATE TABLE IF NOT EXISTS to_publish (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			text          TEXT NOT NULL,
			topic         TEXT NOT NULL DEFAULT '',
			mood          TEXT NOT NULL DEFAULT '',
			author        TEXT NOT NULL DEFAULT '',
			names         TEXT NOT NULL DEFAULT '',
			length        INTEGER NOT NULL DEFAULT 0,
			time          INTEGER NOT NULL,
			final_score   REAL NOT NULL,
			pic_base64    TEXT NOT NULL DEFAULT '',
			text_prepared TEXT NOT NULL DEFAULT '',
			pic           INTEGER NOT NULL DEFAULT 0,
			prepare       INTEGER NOT NULL DEFAULT 0,
			preview       INTEGER NOT NULL DEFAULT 0,
			published     INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_to_publish_pic ON to_publish(pic)`,
		`CREATE INDEX IF NOT EXISTS idx_to_publish_prepare ON to_publish(prepare)`,
		`CREATE INDEX IF NOT EXISTS idx_to_publish_ready ON to_publish(published, pic, prepare, time)`,

		`CREATE TABLE IF NOT EXISTS published (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			text      TEXT NOT NULL,
			topic     TEXT NOT NULL DEFAULT '',
			mood      TEXT NOT NULL DEFAULT '',
			author    TEXT NOT NULL DEFAULT '',
			names     TEXT NOT NULL DEFAULT '',
			length    INTEGER NOT NULL DEFAULT 0,
			published INTEGER NOT NULL,
			next      INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_published_next ON published(next)`,

		`CREATE TABLE IF NOT EXISTS state (
			id            INTEGER PRIMARY KEY CHECK (id = 1),
			lt_topic      TEXT NOT NULL DEFAULT '[]',
			lt_mood       TEXT NOT NULL DEFAULT '[]',
			lt_updated_at INTEGER NOT NULL DEFAULT 0,
			mt_topic      TEXT NOT NULL DEFAULT '[]',
			mt_mood       TEXT NOT NULL DEFAULT '[]',
			mt_author     TEXT NOT NULL DEFAULT '[]'
		)`,
	}
}

func (s *Store) migrate() error {
	for _, stmt := range Migrations() {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec migration: %w", err)
		}
	}
	return nil
}
