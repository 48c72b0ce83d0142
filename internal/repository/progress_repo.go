package repository

import (
	"database/sql"
	"encoding/json"

	"linguaquest/internal/database"
	"linguaquest/internal/models"
)

// ProgressRepository handles lesson-session snapshot database operations
type ProgressRepository struct {
	db database.DBTX
}

// NewProgressRepository creates a new progress repository
func NewProgressRepository(db database.DBTX) *ProgressRepository {
	return &ProgressRepository{db: db}
}

// UpsertSession writes an autosave snapshot for (user, lesson)
func (r *ProgressRepository) UpsertSession(p *models.LessonProgress) error {
	answers, err := json.Marshal(p.Answers)
	if err != nil {
		return err
	}

	var count int
	err = r.db.QueryRow(
		"SELECT COUNT(*) FROM lesson_sessions WHERE user_id = ? AND lesson_id = ?",
		p.UserID, p.LessonID,
	).Scan(&count)
	if err != nil {
		return err
	}

	if count == 0 {
		query := `
			INSERT INTO lesson_sessions (user_id, lesson_id, answers, current_index,
				total_questions, hearts, score, xp_earned, diamonds_earned,
				streak, max_streak, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`
		_, err = r.db.Exec(query,
			p.UserID, p.LessonID, string(answers), p.CurrentIndex,
			p.TotalQuestions, p.Hearts, p.Score, p.XPEarned, p.DiamondsEarned,
			p.Streak, p.MaxStreak, p.UpdatedAt)
		return err
	}

	query := `
		UPDATE lesson_sessions
		SET answers = ?, current_index = ?, total_questions = ?, hearts = ?,
		    score = ?, xp_earned = ?, diamonds_earned = ?, streak = ?,
		    max_streak = ?, updated_at = ?
		WHERE user_id = ? AND lesson_id = ?
	`
	_, err = r.db.Exec(query,
		string(answers), p.CurrentIndex, p.TotalQuestions, p.Hearts,
		p.Score, p.XPEarned, p.DiamondsEarned, p.Streak,
		p.MaxStreak, p.UpdatedAt,
		p.UserID, p.LessonID)
	return err
}

// GetSession retrieves the snapshot for (user, lesson); nil without error
// when none exists
func (r *ProgressRepository) GetSession(userID, lessonID string) (*models.LessonProgress, error) {
	query := `
		SELECT user_id, lesson_id, answers, current_index, total_questions,
		       hearts, score, xp_earned, diamonds_earned, streak, max_streak, updated_at
		FROM lesson_sessions
		WHERE user_id = ? AND lesson_id = ?
	`

	p := &models.LessonProgress{}
	var answers string

	err := r.db.QueryRow(query, userID, lessonID).Scan(
		&p.UserID,
		&p.LessonID,
		&answers,
		&p.CurrentIndex,
		&p.TotalQuestions,
		&p.Hearts,
		&p.Score,
		&p.XPEarned,
		&p.DiamondsEarned,
		&p.Streak,
		&p.MaxStreak,
		&p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if answers != "" {
		if err := json.Unmarshal([]byte(answers), &p.Answers); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// DeleteSession removes the snapshot for (user, lesson)
func (r *ProgressRepository) DeleteSession(userID, lessonID string) error {
	query := "DELETE FROM lesson_sessions WHERE user_id = ? AND lesson_id = ?"
	_, err := r.db.Exec(query, userID, lessonID)
	return err
}

// ListSessions retrieves all snapshots for a user
func (r *ProgressRepository) ListSessions(userID string) ([]models.LessonProgress, error) {
	query := `
		SELECT user_id, lesson_id, answers, current_index, total_questions,
		       hearts, score, xp_earned, diamonds_earned, streak, max_streak, updated_at
		FROM lesson_sessions
		WHERE user_id = ?
		ORDER BY updated_at DESC
	`

	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []models.LessonProgress
	for rows.Next() {
		var p models.LessonProgress
		var answers string
		err := rows.Scan(
			&p.UserID,
			&p.LessonID,
			&answers,
			&p.CurrentIndex,
			&p.TotalQuestions,
			&p.Hearts,
			&p.Score,
			&p.XPEarned,
			&p.DiamondsEarned,
			&p.Streak,
			&p.MaxStreak,
			&p.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		if answers != "" {
			if err := json.Unmarshal([]byte(answers), &p.Answers); err != nil {
				return nil, err
			}
		}
		sessions = append(sessions, p)
	}

	return sessions, rows.Err()
}
