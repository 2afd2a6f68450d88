package backend

import (
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/randalmurphal/loopstate/pkg/loopstate/state"
)

// SQLite persists the state mapping as key-value rows in a SQLite
// database, values encoded as compact JSON. It is suitable when the
// caller wants per-key durability instead of a whole-file record.
type SQLite struct {
	db     *sql.DB
	codec  state.Codec
	mu     sync.RWMutex
	closed bool
}

// Compile-time interface check.
var _ Backend = (*SQLite)(nil)

// NewSQLite opens a SQLite state backend.
// The path should be a file path (e.g., "./state.db") or ":memory:" for
// testing.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// WAL mode for better concurrent read performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS state (
			key TEXT NOT NULL PRIMARY KEY,
			value BLOB NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	return &SQLite{db: db, codec: state.JSONCodec{}}, nil
}

// Load implements Backend.
// Rows are read in insertion order so key order survives a round trip.
func (s *SQLite) Load() (*state.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}

	rows, err := s.db.Query(`SELECT key, value FROM state ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	defer rows.Close()

	st := state.New()
	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan state row: %w", err)
		}
		var v any
		if err := s.codec.Decode(value, &v); err != nil {
			return nil, fmt.Errorf("%w: key %q: %v", ErrCorrupt, key, err)
		}
		st.Set(key, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate state rows: %w", err)
	}
	return st, nil
}

// Save implements Backend.
// The whole mapping is replaced in one transaction.
func (s *SQLite) Save(st *state.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM state`); err != nil {
		return fmt.Errorf("clear state: %w", err)
	}

	for _, key := range st.Keys() {
		v, _ := st.Get(key)
		data, err := s.codec.Encode(v)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(
			`INSERT INTO state (key, value) VALUES (?, ?)`, key, data,
		); err != nil {
			return fmt.Errorf("insert state row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

// Erase implements Backend.
func (s *SQLite) Erase() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	if _, err := s.db.Exec(`DELETE FROM state`); err != nil {
		return fmt.Errorf("erase state: %w", err)
	}
	return nil
}

// Exists implements Backend.
func (s *SQLite) Exists() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false
	}

	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM state`).Scan(&n); err != nil {
		return false
	}
	return n > 0
}

// Close implements Backend.
func (s *SQLite) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
