package repository

import (
	"context"
	"database/sql"

	"linguaquest/internal/database"
	"linguaquest/internal/models"
)

// UnlockRepository handles unlock-record and stage database operations.
// Its Upsert satisfies unlock.Persister.
type UnlockRepository struct {
	db database.DBTX
}

// NewUnlockRepository creates a new unlock repository
func NewUnlockRepository(db database.DBTX) *UnlockRepository {
	return &UnlockRepository{db: db}
}

// ListStages retrieves the full stage sequence in track order
func (r *UnlockRepository) ListStages() ([]models.Stage, error) {
	query := `
		SELECT id, position, title
		FROM stages
		ORDER BY position ASC
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stages []models.Stage
	for rows.Next() {
		var s models.Stage
		if err := rows.Scan(&s.ID, &s.Position, &s.Title); err != nil {
			return nil, err
		}
		stages = append(stages, s)
	}

	return stages, rows.Err()
}

// Get retrieves the unlock record for (user, stage); nil without error when
// absent
func (r *UnlockRepository) Get(userID, stageID string) (*models.UnlockRecord, error) {
	query := `
		SELECT user_id, stage_id, status, accuracy, attempts, best_score,
		       last_played, completed, updated_at
		FROM unlock_records
		WHERE user_id = ? AND stage_id = ?
	`

	rec := &models.UnlockRecord{}
	var lastPlayed sql.NullTime
	var status string

	err := r.db.QueryRow(query, userID, stageID).Scan(
		&rec.UserID,
		&rec.StageID,
		&status,
		&rec.Accuracy,
		&rec.Attempts,
		&rec.BestScore,
		&lastPlayed,
		&rec.Completed,
		&rec.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rec.Status = models.UnlockStatus(status)
	if lastPlayed.Valid {
		rec.LastPlayed = &lastPlayed.Time
	}
	return rec, nil
}

// ListByUser retrieves all unlock records for a user keyed by stage id
func (r *UnlockRepository) ListByUser(userID string) (map[string]models.UnlockRecord, error) {
	query := `
		SELECT user_id, stage_id, status, accuracy, attempts, best_score,
		       last_played, completed, updated_at
		FROM unlock_records
		WHERE user_id = ?
	`

	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make(map[string]models.UnlockRecord)
	for rows.Next() {
		var rec models.UnlockRecord
		var lastPlayed sql.NullTime
		var status string
		err := rows.Scan(
			&rec.UserID,
			&rec.StageID,
			&status,
			&rec.Accuracy,
			&rec.Attempts,
			&rec.BestScore,
			&lastPlayed,
			&rec.Completed,
			&rec.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		rec.Status = models.UnlockStatus(status)
		if lastPlayed.Valid {
			rec.LastPlayed = &lastPlayed.Time
		}
		records[rec.StageID] = rec
	}

	return records, rows.Err()
}

// Upsert writes an unlock record, overwriting any existing row for the same
// (user, stage). Calling it twice with the same record is a no-op overwrite,
// which is what makes UnlockLevel idempotent.
func (r *UnlockRepository) Upsert(ctx context.Context, rec models.UnlockRecord) error {
	_ = ctx

	var count int
	err := r.db.QueryRow(
		"SELECT COUNT(*) FROM unlock_records WHERE user_id = ? AND stage_id = ?",
		rec.UserID, rec.StageID,
	).Scan(&count)
	if err != nil {
		return err
	}

	if count == 0 {
		query := `
			INSERT INTO unlock_records (user_id, stage_id, status, accuracy, attempts,
				best_score, last_played, completed, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`
		_, err = r.db.Exec(query,
			rec.UserID, rec.StageID, string(rec.Status), rec.Accuracy, rec.Attempts,
			rec.BestScore, rec.LastPlayed, rec.Completed, rec.UpdatedAt)
		return err
	}

	query := `
		UPDATE unlock_records
		SET status = ?, accuracy = ?, attempts = ?, best_score = ?,
		    last_played = ?, completed = ?, updated_at = ?
		WHERE user_id = ? AND stage_id = ?
	`
	_, err = r.db.Exec(query,
		string(rec.Status), rec.Accuracy, rec.Attempts, rec.BestScore,
		rec.LastPlayed, rec.Completed, rec.UpdatedAt,
		rec.UserID, rec.StageID)
	return err
}
