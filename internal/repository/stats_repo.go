package repository

import (
	"database/sql"
	"encoding/json"
	"time"

	"linguaquest/internal/database"
	"linguaquest/internal/models"
	"linguaquest/internal/stats"
)

// StatsRepository handles aggregate-stat database operations
type StatsRepository struct {
	db database.DBTX
}

// NewStatsRepository creates a new stats repository
func NewStatsRepository(db database.DBTX) *StatsRepository {
	return &StatsRepository{db: db}
}

// Get retrieves a user's aggregate stats; nil without error when the user
// has no row yet. Level is derived from XP on the way out, never read from
// storage.
func (r *StatsRepository) Get(userID string) (*models.AggregateStats, error) {
	query := `
		SELECT user_id, xp, hearts, diamonds, streak, longest_streak, accuracy,
		       total_questions, completed_questions, correct_answers, wrong_answers,
		       total_time_ms, last_game_results, last_seen, updated_at
		FROM user_stats
		WHERE user_id = ?
	`

	s := &models.AggregateStats{}
	var lastGameResults sql.NullString
	var lastSeen sql.NullTime

	err := r.db.QueryRow(query, userID).Scan(
		&s.UserID,
		&s.XP,
		&s.Hearts,
		&s.Diamonds,
		&s.Streak,
		&s.LongestStreak,
		&s.Accuracy,
		&s.TotalQuestions,
		&s.CompletedQuestions,
		&s.CorrectAnswers,
		&s.WrongAnswers,
		&s.TotalTimeSpentMs,
		&lastGameResults,
		&lastSeen,
		&s.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if lastGameResults.Valid && lastGameResults.String != "" {
		if err := json.Unmarshal([]byte(lastGameResults.String), &s.LastGameResults); err != nil {
			return nil, err
		}
	}
	if lastSeen.Valid {
		s.LastSeen = lastSeen.Time
	}
	s.Level = stats.LevelForXP(s.XP)

	return s, nil
}

// Upsert writes a full stats record. Level is derived, not stored.
func (r *StatsRepository) Upsert(s *models.AggregateStats) error {
	results, err := json.Marshal(s.LastGameResults)
	if err != nil {
		return err
	}

	var count int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM user_stats WHERE user_id = ?", s.UserID).Scan(&count); err != nil {
		return err
	}

	if count == 0 {
		query := `
			INSERT INTO user_stats (user_id, xp, hearts, diamonds, streak, longest_streak,
				accuracy, total_questions, completed_questions, correct_answers,
				wrong_answers, total_time_ms, last_game_results, last_seen, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`
		_, err = r.db.Exec(query,
			s.UserID, s.XP, s.Hearts, s.Diamonds, s.Streak, s.LongestStreak,
			s.Accuracy, s.TotalQuestions, s.CompletedQuestions, s.CorrectAnswers,
			s.WrongAnswers, s.TotalTimeSpentMs, string(results), s.LastSeen, s.UpdatedAt)
		return err
	}

	query := `
		UPDATE user_stats
		SET xp = ?, hearts = ?, diamonds = ?, streak = ?, longest_streak = ?,
		    accuracy = ?, total_questions = ?, completed_questions = ?,
		    correct_answers = ?, wrong_answers = ?, total_time_ms = ?,
		    last_game_results = ?, last_seen = ?, updated_at = ?
		WHERE user_id = ?
	`
	_, err = r.db.Exec(query,
		s.XP, s.Hearts, s.Diamonds, s.Streak, s.LongestStreak,
		s.Accuracy, s.TotalQuestions, s.CompletedQuestions, s.CorrectAnswers,
		s.WrongAnswers, s.TotalTimeSpentMs, string(results), s.LastSeen, s.UpdatedAt,
		s.UserID)
	return err
}

// AtRiskUser pairs a user with their current streak for reminder sweeps.
type AtRiskUser struct {
	User   models.User
	Streak int
}

// ListStreaksAtRisk finds users with an active streak whose last activity
// falls inside [since, until) — i.e. the streak lapses unless they play
// today.
func (r *StatsRepository) ListStreaksAtRisk(since, until time.Time) ([]AtRiskUser, error) {
	query := `
		SELECT u.id, u.email, u.name, u.created_at, s.streak
		FROM user_stats s
		JOIN users u ON u.id = s.user_id
		WHERE s.streak > 0 AND s.last_seen >= ? AND s.last_seen < ?
	`

	rows, err := r.db.Query(query, since, until)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AtRiskUser
	for rows.Next() {
		var a AtRiskUser
		if err := rows.Scan(&a.User.ID, &a.User.Email, &a.User.Name, &a.User.CreatedAt, &a.Streak); err != nil {
			return nil, err
		}
		out = append(out, a)
	}

	return out, rows.Err()
}
