package models

import (
	"encoding/json"
	"time"
)

// ActionType identifies a queued mutation.
type ActionType string

const (
	ActionSaveProgress ActionType = "SAVE_PROGRESS"
	ActionUpdateStats  ActionType = "UPDATE_STATS"
	ActionFinishLesson ActionType = "FINISH_LESSON"
	ActionTickStreak   ActionType = "TICK_STREAK"
)

// PendingAction is a not-yet-acknowledged mutation buffered on the device.
// The queue is per-device, ordered by QueuedAt; an action is removed only
// after a confirmed server acknowledgment. ID doubles as the idempotency key
// sent with the replayed request.
type PendingAction struct {
	ID       string          `json:"id"`
	Type     ActionType      `json:"type"`
	UserID   string          `json:"userId"`
	Payload  json.RawMessage `json:"payload"`
	QueuedAt time.Time       `json:"queuedAt"`
	Attempts int             `json:"attempts"`
}
