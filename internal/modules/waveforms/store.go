package waveforms

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Store persists compiled waveforms in cache.db as msgpack blobs with an expiration
// timestamp, keyed by configuration hash.
type Store struct {
	db *sql.DB
}

// NewStore creates a compiled waveform store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Put saves result with expiration = now + ttl.
// Uses INSERT OR REPLACE to upsert data.
func (s *Store) Put(key string, result *Result, ttl time.Duration) error {
	data, err := msgpack.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal compiled waveforms: %w", err)
	}

	now := time.Now()
	_, err = s.db.Exec(
		"INSERT OR REPLACE INTO compiled_waveforms (key, compile_id, data, expires_at, created_at) VALUES (?, ?, ?, ?, ?)",
		key, result.CompileID, data, now.Add(ttl).Unix(), now.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to store compiled waveforms: %w", err)
	}
	return nil
}

// Get returns the stored result only if expires_at > now.
// Returns nil, nil if the key doesn't exist or the entry is expired.
func (s *Store) Get(key string) (*Result, error) {
	var data []byte
	err := s.db.QueryRow(
		"SELECT data FROM compiled_waveforms WHERE key = ? AND expires_at > ?",
		key, time.Now().Unix(),
	).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get compiled waveforms: %w", err)
	}

	var result Result
	if err := msgpack.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal compiled waveforms: %w", err)
	}
	return &result, nil
}

// DeleteExpired removes all rows where expires_at < now.
// Returns the number of rows deleted.
func (s *Store) DeleteExpired() (int64, error) {
	result, err := s.db.Exec("DELETE FROM compiled_waveforms WHERE expires_at < ?", time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired waveforms: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return deleted, nil
}

// Clear removes every entry. Used when the configuration changes.
func (s *Store) Clear() (int64, error) {
	result, err := s.db.Exec("DELETE FROM compiled_waveforms")
	if err != nil {
		return 0, fmt.Errorf("failed to clear compiled waveforms: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return deleted, nil
}

// Count returns the number of stored entries, expired ones included.
func (s *Store) Count() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM compiled_waveforms").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count compiled waveforms: %w", err)
	}
	return n, nil
}
