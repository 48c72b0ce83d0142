package models

import "time"

// UnlockStatus is the per-stage gate state. Transitions only move forward
// (locked -> current -> done) within an attempt, but a regression in the
// preceding stage's recorded outcome re-locks dependents on the next
// evaluation.
type UnlockStatus string

const (
	StatusLocked  UnlockStatus = "locked"
	StatusCurrent UnlockStatus = "current"
	StatusDone    UnlockStatus = "done"
)

// Stage is a lesson unit with a fixed position in a track. Its position
// gates access to its successor.
type Stage struct {
	ID       string `json:"id"`
	Position int    `json:"position"`
	Title    string `json:"title"`
}

// UnlockRecord is the persisted unlock state for one (user, stage) pair.
// Invariant: Status == done implies Completed == true.
type UnlockRecord struct {
	UserID     string       `json:"userId"`
	StageID    string       `json:"stageId"`
	Status     UnlockStatus `json:"status"`
	Accuracy   float64      `json:"accuracy"` // 0-100
	Attempts   int          `json:"attempts"`
	BestScore  int          `json:"bestScore"`
	LastPlayed *time.Time   `json:"lastPlayed,omitempty"`
	Completed  bool         `json:"completed"`
	UpdatedAt  time.Time    `json:"updatedAt"`
}
