// Package session persists chat sessions in sqlite. Payloads are opaque to
// the store: the agent owns the message serialization, the store owns
// identity, naming, and timestamps.
package session

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned for unknown session IDs.
var ErrNotFound = errors.New("session not found")

// Meta is the listing row for one session.
type Meta struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Store wraps the sessions database.
type Store struct {
	mu sync.Mutex
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	payload    BLOB
);
`

// Open opens (and if needed creates) the store at path. Use ":memory:" in
// tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate session db: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// Create inserts an empty session and returns its metadata.
func (s *Store) Create(name string) (Meta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	m := Meta{ID: uuid.NewString(), Name: name, CreatedAt: now, UpdatedAt: now}
	_, err := s.db.Exec(
		"INSERT INTO sessions (id, name, created_at, updated_at, payload) VALUES (?, ?, ?, ?, ?)",
		m.ID, m.Name, m.CreatedAt, m.UpdatedAt, []byte("{}"),
	)
	if err != nil {
		return Meta{}, err
	}
	return m, nil
}

// List returns all sessions, most recently updated first.
func (s *Store) List() ([]Meta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.Query("SELECT id, name, created_at, updated_at FROM sessions ORDER BY updated_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Meta
	for rows.Next() {
		var m Meta
		if err := rows.Scan(&m.ID, &m.Name, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Get returns one session's metadata and payload.
func (s *Store) Get(id string) (Meta, []byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var m Meta
	var payload []byte
	err := s.db.QueryRow(
		"SELECT id, name, created_at, updated_at, payload FROM sessions WHERE id = ?", id,
	).Scan(&m.ID, &m.Name, &m.CreatedAt, &m.UpdatedAt, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return Meta{}, nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Meta{}, nil, err
	}
	return m, payload, nil
}

// Put replaces a session's payload and bumps its updated time.
func (s *Store) Put(id string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.Exec(
		"UPDATE sessions SET payload = ?, updated_at = ? WHERE id = ?",
		payload, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// Delete removes a session.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec("DELETE FROM sessions WHERE id = ?", id)
	return err
}
