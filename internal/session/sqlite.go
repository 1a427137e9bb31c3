package session

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"geoagent/internal/agent"
)

// SQLiteStore persists conversations in a local SQLite database so
// sessions survive process restarts. Conversations are stored as the JSON
// serialization of their message log.
type SQLiteStore struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS conversations (
	id         TEXT PRIMARY KEY,
	messages   TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
);`

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open session database %s: %w", path, err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize session schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Get(id string) (*agent.Conversation, error) {
	var payload string
	err := s.db.QueryRow("SELECT messages FROM conversations WHERE id = ?", id).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation %s: %w", id, err)
	}

	conv := &agent.Conversation{}
	if err := json.Unmarshal([]byte(payload), conv); err != nil {
		return nil, fmt.Errorf("corrupt conversation %s: %w", id, err)
	}
	return conv, nil
}

func (s *SQLiteStore) Put(id string, conv *agent.Conversation) error {
	payload, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("failed to serialize conversation %s: %w", id, err)
	}

	_, err = s.db.Exec(
		"INSERT INTO conversations (id, messages, updated_at) VALUES (?, ?, ?) "+
			"ON CONFLICT(id) DO UPDATE SET messages = excluded.messages, updated_at = excluded.updated_at",
		id, string(payload), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to store conversation %s: %w", id, err)
	}
	return nil
}

func (s *SQLiteStore) Delete(id string) error {
	if _, err := s.db.Exec("DELETE FROM conversations WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete conversation %s: %w", id, err)
	}
	return nil
}

func (s *SQLiteStore) Len() (int, error) {
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM conversations").Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
