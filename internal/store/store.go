// Package store owns the sqlite database backing user profiles, warnings
// and the study-resource index.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	s := &Store{db: db}
	if err := s.configure(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) configure() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := s.db.Exec(p); err != nil {
			return fmt.Errorf("sqlite pragma %q: %w", p, err)
		}
	}
	return nil
}

func (s *Store) initSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS user_profiles (
			user_id INTEGER PRIMARY KEY,
			username TEXT NOT NULL DEFAULT '',
			current_class INTEGER,
			preferred_subject TEXT,
			created_at TEXT NOT NULL DEFAULT (datetime('now')),
			last_updated TEXT NOT NULL DEFAULT (datetime('now')),
			class_progression_year INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS warnings (
			user_id INTEGER NOT NULL,
			chat_id INTEGER NOT NULL,
			username TEXT NOT NULL DEFAULT '',
			warning_count INTEGER NOT NULL DEFAULT 0,
			last_reason TEXT NOT NULL DEFAULT '',
			last_warning_at TEXT NOT NULL DEFAULT (datetime('now')),
			banned INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (user_id, chat_id)
		)`,
		`CREATE TABLE IF NOT EXISTS resource_folders (
			path TEXT PRIMARY KEY,
			folder_id TEXT NOT NULL,
			url TEXT NOT NULL,
			class INTEGER NOT NULL,
			subject TEXT NOT NULL,
			resource_type TEXT NOT NULL,
			topic TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS resource_files (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			url TEXT NOT NULL,
			class INTEGER NOT NULL,
			subject TEXT NOT NULL,
			resource_type TEXT NOT NULL,
			topic TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_folders_lookup ON resource_folders(class, subject, resource_type, topic)`,
		`CREATE INDEX IF NOT EXISTS idx_files_lookup ON resource_files(class, subject, resource_type, topic)`,
		`CREATE TABLE IF NOT EXISTS interactions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			chat_id INTEGER NOT NULL,
			route TEXT NOT NULL DEFAULT '',
			user_message TEXT NOT NULL DEFAULT '',
			bot_response TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_interactions_user ON interactions(user_id, created_at)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// DB exposes the underlying handle for the table owners (profile,
// moderation, resources). The schema stays defined in one place.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// LogInteraction records a processed exchange. Best-effort: callers treat a
// failure here as log-only.
func (s *Store) LogInteraction(userID, chatID int64, route, userMessage, botResponse string) error {
	_, err := s.db.Exec(`
		INSERT INTO interactions (user_id, chat_id, route, user_message, bot_response)
		VALUES (?, ?, ?, ?, ?)
	`, userID, chatID, route, userMessage, botResponse)
	if err != nil {
		return fmt.Errorf("log interaction: %w", err)
	}
	return nil
}
