package service

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"linguaquest/internal/database"
)

// ExportData represents the complete database export structure
type ExportData struct {
	Version    string          `json:"version"`
	ExportedAt time.Time       `json:"exported_at"`
	Users      []UserExport    `json:"users"`
	Stats      []StatsExport   `json:"stats"`
	Sessions   []SessionExport `json:"sessions"`
	Stages     []StageExport   `json:"stages"`
	Unlocks    []UnlockExport  `json:"unlocks"`
}

// UserExport represents a user record for export
type UserExport struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// StatsExport represents an aggregate-stats record for export
type StatsExport struct {
	UserID             string          `json:"user_id"`
	XP                 int             `json:"xp"`
	Hearts             int             `json:"hearts"`
	Diamonds           int             `json:"diamonds"`
	Streak             int             `json:"streak"`
	LongestStreak      int             `json:"longest_streak"`
	Accuracy           float64         `json:"accuracy"`
	TotalQuestions     int             `json:"total_questions"`
	CompletedQuestions int             `json:"completed_questions"`
	CorrectAnswers     int             `json:"correct_answers"`
	WrongAnswers       int             `json:"wrong_answers"`
	TotalTimeMs        int64           `json:"total_time_ms"`
	LastGameResults    json.RawMessage `json:"last_game_results,omitempty"`
	LastSeen           *time.Time      `json:"last_seen"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// SessionExport represents an in-flight lesson session for export
type SessionExport struct {
	UserID         string          `json:"user_id"`
	LessonID       string          `json:"lesson_id"`
	Answers        json.RawMessage `json:"answers"`
	CurrentIndex   int             `json:"current_index"`
	TotalQuestions int             `json:"total_questions"`
	Hearts         int             `json:"hearts"`
	Score          int             `json:"score"`
	XPEarned       int             `json:"xp_earned"`
	DiamondsEarned int             `json:"diamonds_earned"`
	Streak         int             `json:"streak"`
	MaxStreak      int             `json:"max_streak"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// StageExport represents a track stage for export
type StageExport struct {
	ID       string `json:"id"`
	Position int    `json:"position"`
	Title    string `json:"title"`
}

// UnlockExport represents a per-user unlock record for export
type UnlockExport struct {
	UserID     string     `json:"user_id"`
	StageID    string     `json:"stage_id"`
	Status     string     `json:"status"`
	Accuracy   float64    `json:"accuracy"`
	Attempts   int        `json:"attempts"`
	BestScore  int        `json:"best_score"`
	LastPlayed *time.Time `json:"last_played"`
	Completed  bool       `json:"completed"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// ExportService handles database export and import for migrations between
// deployments and database backends.
type ExportService struct {
	db *database.DB
}

// NewExportService creates a new export service
func NewExportService(db *database.DB) *ExportService {
	return &ExportService{db: db}
}

// Export creates a complete dump of the database to a file
func (s *ExportService) Export(outputPath string) error {
	log.Println("Starting database export...")

	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	if err := s.ExportToWriter(file); err != nil {
		return err
	}

	log.Printf("Database exported successfully to %s", outputPath)
	return nil
}

// ExportToWriter exports the database to an io.Writer (useful for HTTP responses)
func (s *ExportService) ExportToWriter(w io.Writer) error {
	dump := &ExportData{
		Version:    "1.0",
		ExportedAt: time.Now(),
	}

	if err := s.exportUsers(dump); err != nil {
		return fmt.Errorf("failed to export users: %w", err)
	}
	if err := s.exportStats(dump); err != nil {
		return fmt.Errorf("failed to export stats: %w", err)
	}
	if err := s.exportSessions(dump); err != nil {
		return fmt.Errorf("failed to export sessions: %w", err)
	}
	if err := s.exportStages(dump); err != nil {
		return fmt.Errorf("failed to export stages: %w", err)
	}
	if err := s.exportUnlocks(dump); err != nil {
		return fmt.Errorf("failed to export unlocks: %w", err)
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(dump); err != nil {
		return fmt.Errorf("failed to encode export: %w", err)
	}

	log.Printf("Exported: %d users, %d stats, %d sessions, %d stages, %d unlocks",
		len(dump.Users), len(dump.Stats), len(dump.Sessions),
		len(dump.Stages), len(dump.Unlocks))

	return nil
}

// Import restores a database from an export file
func (s *ExportService) Import(inputPath string) error {
	log.Printf("Starting database import from %s...", inputPath)

	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	return s.ImportFromReader(file)
}

// ImportFromReader restores a database from an export reader
func (s *ExportService) ImportFromReader(reader io.Reader) error {
	var dump ExportData
	decoder := json.NewDecoder(reader)
	if err := decoder.Decode(&dump); err != nil {
		return fmt.Errorf("failed to decode export: %w", err)
	}

	log.Printf("Export version: %s, exported at: %s", dump.Version, dump.ExportedAt)

	// A restore is all or nothing
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin import transaction: %w", err)
	}
	defer tx.Rollback()

	// Import in order of dependencies
	if err := s.importUsers(tx, dump.Users); err != nil {
		return fmt.Errorf("failed to import users: %w", err)
	}
	if err := s.importStats(tx, dump.Stats); err != nil {
		return fmt.Errorf("failed to import stats: %w", err)
	}
	if err := s.importSessions(tx, dump.Sessions); err != nil {
		return fmt.Errorf("failed to import sessions: %w", err)
	}
	if err := s.importStages(tx, dump.Stages); err != nil {
		return fmt.Errorf("failed to import stages: %w", err)
	}
	if err := s.importUnlocks(tx, dump.Unlocks); err != nil {
		return fmt.Errorf("failed to import unlocks: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit import: %w", err)
	}

	log.Println("Database import completed successfully")
	return nil
}

func (s *ExportService) exportUsers(dump *ExportData) error {
	query := "SELECT id, email, name, created_at FROM users ORDER BY id"
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var u UserExport
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.CreatedAt); err != nil {
			return err
		}
		dump.Users = append(dump.Users, u)
	}
	return rows.Err()
}

func (s *ExportService) exportStats(dump *ExportData) error {
	query := `SELECT user_id, xp, hearts, diamonds, streak, longest_streak, accuracy,
		total_questions, completed_questions, correct_answers, wrong_answers,
		total_time_ms, COALESCE(last_game_results, ''), last_seen, updated_at
		FROM user_stats ORDER BY user_id`
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var st StatsExport
		var results string
		var lastSeen sql.NullTime
		if err := rows.Scan(&st.UserID, &st.XP, &st.Hearts, &st.Diamonds, &st.Streak,
			&st.LongestStreak, &st.Accuracy, &st.TotalQuestions, &st.CompletedQuestions,
			&st.CorrectAnswers, &st.WrongAnswers, &st.TotalTimeMs, &results,
			&lastSeen, &st.UpdatedAt); err != nil {
			return err
		}
		if results != "" {
			st.LastGameResults = json.RawMessage(results)
		}
		if lastSeen.Valid {
			st.LastSeen = &lastSeen.Time
		}
		dump.Stats = append(dump.Stats, st)
	}
	return rows.Err()
}

func (s *ExportService) exportSessions(dump *ExportData) error {
	query := `SELECT user_id, lesson_id, answers, current_index, total_questions,
		hearts, score, xp_earned, diamonds_earned, streak, max_streak, updated_at
		FROM lesson_sessions ORDER BY user_id, lesson_id`
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var ls SessionExport
		var answers string
		if err := rows.Scan(&ls.UserID, &ls.LessonID, &answers, &ls.CurrentIndex,
			&ls.TotalQuestions, &ls.Hearts, &ls.Score, &ls.XPEarned,
			&ls.DiamondsEarned, &ls.Streak, &ls.MaxStreak, &ls.UpdatedAt); err != nil {
			return err
		}
		ls.Answers = json.RawMessage(answers)
		dump.Sessions = append(dump.Sessions, ls)
	}
	return rows.Err()
}

func (s *ExportService) exportStages(dump *ExportData) error {
	query := "SELECT id, position, title FROM stages ORDER BY position"
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var st StageExport
		if err := rows.Scan(&st.ID, &st.Position, &st.Title); err != nil {
			return err
		}
		dump.Stages = append(dump.Stages, st)
	}
	return rows.Err()
}

func (s *ExportService) exportUnlocks(dump *ExportData) error {
	query := `SELECT user_id, stage_id, status, accuracy, attempts, best_score,
		last_played, completed, updated_at
		FROM unlock_records ORDER BY user_id, stage_id`
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var u UnlockExport
		var lastPlayed sql.NullTime
		if err := rows.Scan(&u.UserID, &u.StageID, &u.Status, &u.Accuracy,
			&u.Attempts, &u.BestScore, &lastPlayed, &u.Completed, &u.UpdatedAt); err != nil {
			return err
		}
		if lastPlayed.Valid {
			u.LastPlayed = &lastPlayed.Time
		}
		dump.Unlocks = append(dump.Unlocks, u)
	}
	return rows.Err()
}

func (s *ExportService) importUsers(tx database.DBTX, users []UserExport) error {
	log.Printf("Importing %d users...", len(users))
	for _, u := range users {
		query := "INSERT INTO users (id, email, name, created_at) VALUES (?, ?, ?, ?)"
		if _, err := tx.Exec(query, u.ID, u.Email, u.Name, u.CreatedAt); err != nil {
			return fmt.Errorf("failed to import user %s: %w", u.ID, err)
		}
	}
	return nil
}

func (s *ExportService) importStats(tx database.DBTX, stats []StatsExport) error {
	log.Printf("Importing %d stats records...", len(stats))
	for _, st := range stats {
		var lastSeen interface{}
		if st.LastSeen != nil {
			lastSeen = *st.LastSeen
		}
		query := `INSERT INTO user_stats (user_id, xp, hearts, diamonds, streak,
			longest_streak, accuracy, total_questions, completed_questions,
			correct_answers, wrong_answers, total_time_ms, last_game_results,
			last_seen, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
		_, err := tx.Exec(query, st.UserID, st.XP, st.Hearts, st.Diamonds, st.Streak,
			st.LongestStreak, st.Accuracy, st.TotalQuestions, st.CompletedQuestions,
			st.CorrectAnswers, st.WrongAnswers, st.TotalTimeMs,
			nullIfEmpty(string(st.LastGameResults)), lastSeen, st.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to import stats for user %s: %w", st.UserID, err)
		}
	}
	return nil
}

func (s *ExportService) importSessions(tx database.DBTX, sessions []SessionExport) error {
	log.Printf("Importing %d sessions...", len(sessions))
	for _, ls := range sessions {
		query := `INSERT INTO lesson_sessions (user_id, lesson_id, answers,
			current_index, total_questions, hearts, score, xp_earned,
			diamonds_earned, streak, max_streak, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
		_, err := tx.Exec(query, ls.UserID, ls.LessonID, string(ls.Answers),
			ls.CurrentIndex, ls.TotalQuestions, ls.Hearts, ls.Score, ls.XPEarned,
			ls.DiamondsEarned, ls.Streak, ls.MaxStreak, ls.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to import session %s/%s: %w", ls.UserID, ls.LessonID, err)
		}
	}
	return nil
}

func (s *ExportService) importStages(tx database.DBTX, stages []StageExport) error {
	log.Printf("Importing %d stages...", len(stages))
	for _, st := range stages {
		// Stages are also seeded by migrations, so skip duplicates.
		var count int
		if err := tx.QueryRow("SELECT COUNT(*) FROM stages WHERE id = ?", st.ID).Scan(&count); err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		query := "INSERT INTO stages (id, position, title) VALUES (?, ?, ?)"
		if _, err := tx.Exec(query, st.ID, st.Position, st.Title); err != nil {
			return fmt.Errorf("failed to import stage %s: %w", st.ID, err)
		}
	}
	return nil
}

func (s *ExportService) importUnlocks(tx database.DBTX, unlocks []UnlockExport) error {
	log.Printf("Importing %d unlock records...", len(unlocks))
	for _, u := range unlocks {
		var lastPlayed interface{}
		if u.LastPlayed != nil {
			lastPlayed = *u.LastPlayed
		}
		query := `INSERT INTO unlock_records (user_id, stage_id, status, accuracy,
			attempts, best_score, last_played, completed, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
		_, err := tx.Exec(query, u.UserID, u.StageID, u.Status, u.Accuracy,
			u.Attempts, u.BestScore, lastPlayed, u.Completed, u.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to import unlock %s/%s: %w", u.UserID, u.StageID, err)
		}
	}
	return nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
