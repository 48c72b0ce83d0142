package models

import "time"

// AnswerRecord is a single answered question within a lesson attempt.
// Records are append-only; an answer is never revised once written.
type AnswerRecord struct {
	QuestionID    string    `json:"questionId"`
	Answer        string    `json:"answer"`
	IsCorrect     bool      `json:"isCorrect"`
	XPReward      int       `json:"xpReward,omitempty"`
	HeartsPenalty int       `json:"heartsPenalty,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// LessonProgress is the autosave snapshot of an in-flight lesson attempt,
// keyed by (user, lesson). It is created on the first autosave, deleted on
// completion, and replaced by a fresh instance on retry.
// Invariant: CurrentIndex <= TotalQuestions.
type LessonProgress struct {
	UserID         string               `json:"userId"`
	LessonID       string               `json:"lessonId"`
	Answers        map[int]AnswerRecord `json:"answers"`
	CurrentIndex   int                  `json:"currentIndex"`
	TotalQuestions int                  `json:"totalQuestions"`
	Hearts         int                  `json:"hearts"`
	Score          int                  `json:"score"`
	XPEarned       int                  `json:"xpEarned"`
	DiamondsEarned int                  `json:"diamondsEarned"`
	Streak         int                  `json:"streak"`
	MaxStreak      int                  `json:"maxStreak"`
	UpdatedAt      time.Time            `json:"updatedAt"`
}

// AnsweredCount returns the number of recorded answers.
func (p *LessonProgress) AnsweredCount() int {
	return len(p.Answers)
}

// CorrectCount returns the number of correct recorded answers.
func (p *LessonProgress) CorrectCount() int {
	n := 0
	for _, a := range p.Answers {
		if a.IsCorrect {
			n++
		}
	}
	return n
}

// CompletionSummary is the body of a lesson-finish report. The server applies
// the delta, clears the autosave snapshot and re-evaluates unlocks.
type CompletionSummary struct {
	UserID     string     `json:"userId"`
	LessonID   string     `json:"lessonId"`
	Score      int        `json:"score"`
	Accuracy   float64    `json:"accuracy"`
	Finished   bool       `json:"finished"`
	Delta      StatsDelta `json:"delta"`
	FinishedAt time.Time  `json:"finishedAt"`
}
