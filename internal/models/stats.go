package models

import "time"

// MaxHearts is the upper bound for a user's heart count.
const MaxHearts = 5

// AggregateStats is a user's cumulative stat record. The server row is the
// source of truth; devices hold a cached copy that may be stale or carry
// not-yet-sent updates. Level is derived from XP and never stored.
type AggregateStats struct {
	UserID             string       `json:"userId"`
	XP                 int          `json:"xp"`
	Level              int          `json:"level"`
	Hearts             int          `json:"hearts"`
	Diamonds           int          `json:"diamonds"`
	Streak             int          `json:"streak"`
	LongestStreak      int          `json:"longestStreak"`
	Accuracy           float64      `json:"accuracy"`
	TotalQuestions     int          `json:"totalQuestions"`
	CompletedQuestions int          `json:"completedQuestions"`
	CorrectAnswers     int          `json:"correctAnswers"`
	WrongAnswers       int          `json:"wrongAnswers"`
	TotalTimeSpentMs   int64        `json:"totalTimeSpent"`
	LastGameResults    []GameResult `json:"lastGameResults,omitempty"`
	LastSeen           time.Time    `json:"lastSeen"`
	UpdatedAt          time.Time    `json:"updatedAt"`
}

// GameResult summarises one finished lesson attempt for the recent-games list.
type GameResult struct {
	LessonID string    `json:"lessonId"`
	Score    int       `json:"score"`
	Accuracy float64   `json:"accuracy"`
	PlayedAt time.Time `json:"playedAt"`
}

// StatsDelta is a partial stats update produced at answer/lesson boundaries.
// XP, Diamonds, Hearts, answer counters and time are additive; Streak,
// Accuracy, TotalQuestions and TimePerQuestion replace the current value when
// present (pointer nil means absent); LastGameResults replaces wholesale.
type StatsDelta struct {
	XP                 int          `json:"xp,omitempty"`
	Diamonds           int          `json:"diamonds,omitempty"`
	Hearts             int          `json:"hearts,omitempty"`
	CorrectAnswers     int          `json:"correctAnswers,omitempty"`
	WrongAnswers       int          `json:"wrongAnswers,omitempty"`
	CompletedQuestions int          `json:"completedQuestions,omitempty"`
	TotalTimeSpentMs   int64        `json:"totalTimeSpent,omitempty"`
	Streak             *int         `json:"streak,omitempty"`
	Accuracy           *float64     `json:"accuracy,omitempty"`
	TotalQuestions     *int         `json:"totalQuestions,omitempty"`
	TimePerQuestionMs  *int64       `json:"timePerQuestion,omitempty"`
	LastGameResults    []GameResult `json:"lastGameResults,omitempty"`
	UpdatedAt          time.Time    `json:"updatedAt"`
}

// StatsPatch is the wire form of a stats write. Every field is optional so
// the last-write-wins merge can tell "absent" from "zero"; fields present on
// the winning side override, absent fields fall back to the stored value.
type StatsPatch struct {
	XP                 *int         `json:"xp,omitempty"`
	Hearts             *int         `json:"hearts,omitempty"`
	Diamonds           *int         `json:"diamonds,omitempty"`
	Streak             *int         `json:"streak,omitempty"`
	LongestStreak      *int         `json:"longestStreak,omitempty"`
	Accuracy           *float64     `json:"accuracy,omitempty"`
	TotalQuestions     *int         `json:"totalQuestions,omitempty"`
	CompletedQuestions *int         `json:"completedQuestions,omitempty"`
	CorrectAnswers     *int         `json:"correctAnswers,omitempty"`
	WrongAnswers       *int         `json:"wrongAnswers,omitempty"`
	TotalTimeSpentMs   *int64       `json:"totalTimeSpent,omitempty"`
	LastGameResults    []GameResult `json:"lastGameResults,omitempty"`
	LastSeen           *time.Time   `json:"lastSeen,omitempty"`
	UpdatedAt          time.Time    `json:"updatedAt"`
}

// PatchFromStats converts a full stats record into a patch with every field
// present. Devices send these; sparse patches only appear when a client has
// partial knowledge.
func PatchFromStats(s AggregateStats) StatsPatch {
	return StatsPatch{
		XP:                 &s.XP,
		Hearts:             &s.Hearts,
		Diamonds:           &s.Diamonds,
		Streak:             &s.Streak,
		LongestStreak:      &s.LongestStreak,
		Accuracy:           &s.Accuracy,
		TotalQuestions:     &s.TotalQuestions,
		CompletedQuestions: &s.CompletedQuestions,
		CorrectAnswers:     &s.CorrectAnswers,
		WrongAnswers:       &s.WrongAnswers,
		TotalTimeSpentMs:   &s.TotalTimeSpentMs,
		LastGameResults:    s.LastGameResults,
		LastSeen:           &s.LastSeen,
		UpdatedAt:          s.UpdatedAt,
	}
}
