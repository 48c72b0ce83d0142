package localstore

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

var (
	// ErrNotFound is returned when a key has no value.
	ErrNotFound = errors.New("localstore: key not found")
	// ErrStorage wraps local write/read failures. These break the
	// "local always succeeds" invariant and must surface to the caller.
	ErrStorage = errors.New("localstore: storage failure")
)

// Store is the device-side durable key/value store backing autosave
// snapshots, the pending-action queue and the cached unlocked-level list.
// It survives process restart; all reads and writes are synchronous.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the store at the given sqlite path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping local store: %w", err)
	}

	// WAL keeps the synchronous writes cheap
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return nil, fmt.Errorf("failed to configure local store: %w", err)
	}

	schema := `
		CREATE TABLE IF NOT EXISTS kv (
			bucket TEXT NOT NULL,
			key TEXT NOT NULL,
			value BLOB NOT NULL,
			updated_at DATETIME NOT NULL,
			PRIMARY KEY (bucket, key)
		);
	`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create local store schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put serialises v as JSON and writes it under (bucket, key) before
// returning. A failure is a StorageError, never swallowed.
func (s *Store) Put(bucket, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: marshal %s/%s: %v", ErrStorage, bucket, key, err)
	}

	query := `
		INSERT INTO kv (bucket, key, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (bucket, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	if _, err := s.db.Exec(query, bucket, key, data, time.Now().UTC()); err != nil {
		return fmt.Errorf("%w: write %s/%s: %v", ErrStorage, bucket, key, err)
	}
	return nil
}

// Get reads the value under (bucket, key) into out. Returns ErrNotFound when
// the key has never been written or was deleted.
func (s *Store) Get(bucket, key string, out interface{}) error {
	var data []byte
	err := s.db.QueryRow("SELECT value FROM kv WHERE bucket = ? AND key = ?", bucket, key).Scan(&data)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("%w: read %s/%s: %v", ErrStorage, bucket, key, err)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: decode %s/%s: %v", ErrStorage, bucket, key, err)
	}
	return nil
}

// Delete removes the value under (bucket, key). Deleting a missing key is
// not an error.
func (s *Store) Delete(bucket, key string) error {
	if _, err := s.db.Exec("DELETE FROM kv WHERE bucket = ? AND key = ?", bucket, key); err != nil {
		return fmt.Errorf("%w: delete %s/%s: %v", ErrStorage, bucket, key, err)
	}
	return nil
}
