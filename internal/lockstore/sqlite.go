package lockstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const markersSchema = `CREATE TABLE IF NOT EXISTS markers (
    name TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TEXT NOT NULL
)`

// SQLiteStore keeps markers in an embedded SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// OpenSQLite opens (or creates) the marker database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("lock store: sqlite path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure marker db directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	if _, err := db.Exec(markersSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create markers table: %w", err)
	}
	return &SQLiteStore{db: db, path: path, now: time.Now}, nil
}

// Path returns the database file location.
func (s *SQLiteStore) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) Set(name, value string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	_, err := s.db.ExecContext(context.Background(),
		`INSERT INTO markers (name, value, updated_at) VALUES (?, ?, ?)
         ON CONFLICT(name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		name, value, s.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("set marker %s: %w", name, err)
	}
	return nil
}

func (s *SQLiteStore) Get(name string) (string, bool, error) {
	if err := ValidateName(name); err != nil {
		return "", false, err
	}
	var value string
	err := s.db.QueryRowContext(context.Background(), "SELECT value FROM markers WHERE name = ?", name).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read marker %s: %w", name, err)
	}
	return value, true, nil
}

func (s *SQLiteStore) Exists(name string) (bool, error) {
	_, ok, err := s.Get(name)
	return ok, err
}

func (s *SQLiteStore) Delete(name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(context.Background(), "DELETE FROM markers WHERE name = ?", name); err != nil {
		return fmt.Errorf("delete marker %s: %w", name, err)
	}
	return nil
}

func (s *SQLiteStore) List() ([]Entry, error) {
	rows, err := s.db.QueryContext(context.Background(), "SELECT name, value, updated_at FROM markers ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list markers: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		var updated string
		if err := rows.Scan(&entry.Name, &entry.Value, &updated); err != nil {
			return nil, fmt.Errorf("scan marker: %w", err)
		}
		if ts, parseErr := time.Parse(time.RFC3339Nano, updated); parseErr == nil {
			entry.UpdatedAt = ts
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list markers: %w", err)
	}
	return entries, nil
}
