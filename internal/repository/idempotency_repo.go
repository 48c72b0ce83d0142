package repository

import (
	"database/sql"
	"time"

	"linguaquest/internal/database"
)

// IdempotencyRepository tracks processed action keys so that an at-least-once
// replay of a queued mutation returns the original ack instead of applying
// the delta a second time.
type IdempotencyRepository struct {
	db database.DBTX
}

// NewIdempotencyRepository creates a new idempotency repository
func NewIdempotencyRepository(db database.DBTX) *IdempotencyRepository {
	return &IdempotencyRepository{db: db}
}

// Get returns the stored response for a processed key, or (nil, false) when
// the key has not been seen
func (r *IdempotencyRepository) Get(key string) ([]byte, bool, error) {
	var response sql.NullString
	query := "SELECT response FROM processed_actions WHERE action_key = ?"
	err := r.db.QueryRow(query, key).Scan(&response)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if !response.Valid {
		return nil, true, nil
	}
	return []byte(response.String), true, nil
}

// Put records a processed key with the response to replay on duplicates.
// A concurrent duplicate insert is treated as already-recorded.
func (r *IdempotencyRepository) Put(key, userID string, response []byte) error {
	query := `
		INSERT INTO processed_actions (action_key, user_id, response, created_at)
		VALUES (?, ?, ?, ?)
	`
	_, err := r.db.Exec(query, key, userID, string(response), time.Now().UTC())
	if err != nil {
		if _, seen, getErr := r.Get(key); getErr == nil && seen {
			return nil
		}
	}
	return err
}

// DeleteOlderThan prunes processed keys past their useful retry horizon
func (r *IdempotencyRepository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	result, err := r.db.Exec("DELETE FROM processed_actions WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
