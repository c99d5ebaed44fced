// Package history persists the rename log: ordered sessions of rename
// entries with per-entry undone flags.
package history

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound indicates no entry exists at the requested position.
var ErrNotFound = errors.New("history entry not found")

// Entry is one recorded rename. Entries are immutable once written
// except for the undone flag, which only the undo path flips.
type Entry struct {
	ID             int64     `json:"id"`
	SessionID      string    `json:"session_id"`
	OriginalPath   string    `json:"original_path"`
	NewPath        string    `json:"new_path"`
	MetadataSource string    `json:"metadata_source"`
	Timestamp      time.Time `json:"timestamp"`
	Undone         bool      `json:"undone"`
}

// Store is the SQLite-backed rename log. Writes are serialized: the
// store mutex plus a single connection enforce the single-writer
// discipline shared by execute and undo.
type Store struct {
	mu sync.Mutex
	db *sql.DB
}

const selectEntryFields = `id, session_id, original_path, new_path, metadata_source, timestamp, undone`

// Open opens or creates the history database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}

	// SQLite doesn't support concurrent writes
	db.SetMaxOpenConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating history schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS renames (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			original_path TEXT NOT NULL,
			new_path TEXT NOT NULL,
			metadata_source TEXT NOT NULL,
			timestamp TEXT NOT NULL,
			undone INTEGER NOT NULL DEFAULT 0
		);

		CREATE INDEX IF NOT EXISTS idx_renames_session ON renames(session_id);
	`
	_, err := db.Exec(schema)
	return err
}

// AppendSession records the entries of one executed batch under the
// given session id in a single transaction.
func (s *Store) AppendSession(sessionID string, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO renames (session_id, original_path, new_path, metadata_source, timestamp, undone)
		VALUES (?, ?, ?, ?, ?, 0)
	`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		ts := e.Timestamp
		if ts.IsZero() {
			ts = time.Now().UTC()
		}
		if _, err := stmt.Exec(sessionID, e.OriginalPath, e.NewPath, e.MetadataSource, ts.Format(time.RFC3339)); err != nil {
			return fmt.Errorf("inserting entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing session: %w", err)
	}
	return nil
}

// List returns all entries across sessions in insertion order.
func (s *Store) List() ([]Entry, error) {
	rows, err := s.db.Query(`SELECT ` + selectEntryFields + ` FROM renames ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// ByIndex returns the entry at the given zero-based position in the
// global insertion order. The log is append-only, so positions are
// stable.
func (s *Store) ByIndex(index int) (*Entry, error) {
	if index < 0 {
		return nil, ErrNotFound
	}
	row := s.db.QueryRow(
		`SELECT `+selectEntryFields+` FROM renames ORDER BY id LIMIT 1 OFFSET ?`, index)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying entry %d: %w", index, err)
	}
	return e, nil
}

// BySession returns the entries of one session in insertion order.
func (s *Store) BySession(sessionID string) ([]Entry, error) {
	rows, err := s.db.Query(
		`SELECT `+selectEntryFields+` FROM renames WHERE session_id = ? ORDER BY id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// MarkUndone flips the undone flag on the entry with the given id.
// An undone entry is terminal; this is never reversed.
func (s *Store) MarkUndone(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`UPDATE renames SET undone = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("marking entry undone: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*Entry, error) {
	var e Entry
	var ts string
	var undone int
	if err := row.Scan(&e.ID, &e.SessionID, &e.OriginalPath, &e.NewPath, &e.MetadataSource, &ts, &undone); err != nil {
		return nil, err
	}
	parsed, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return nil, fmt.Errorf("parsing timestamp %q: %w", ts, err)
	}
	e.Timestamp = parsed
	e.Undone = undone != 0
	return &e, nil
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}
	return entries, nil
}
