package service

import (
	"context"
	"time"

	"linguaquest/internal/models"
	"linguaquest/internal/reconcile"
	"linguaquest/internal/unlock"
)

// UnlockStore is the persistence slice UnlockService needs.
// *repository.UnlockRepository satisfies it.
type UnlockStore interface {
	ListStages() ([]models.Stage, error)
	ListByUser(userID string) (map[string]models.UnlockRecord, error)
	Get(userID, stageID string) (*models.UnlockRecord, error)
	Upsert(ctx context.Context, rec models.UnlockRecord) error
}

// SessionStore is the snapshot slice UnlockService reads when deriving stage
// outcomes. *repository.ProgressRepository satisfies it.
type SessionStore interface {
	ListSessions(userID string) ([]models.LessonProgress, error)
}

// UnlockService evaluates a user's track and keeps unlock records current.
type UnlockService struct {
	unlocks  UnlockStore
	sessions SessionStore
	engine   *unlock.Engine
	now      func() time.Time
}

// NewUnlockService creates a new unlock service
func NewUnlockService(unlocks UnlockStore, sessions SessionStore) *UnlockService {
	return &UnlockService{
		unlocks:  unlocks,
		sessions: sessions,
		engine:   unlock.NewEngine(unlocks),
		now:      time.Now,
	}
}

// EvaluateUser computes every stage's unlock state for a user from live
// session data and persisted unlock records, persisting newly detected
// unlocks along the way.
func (s *UnlockService) EvaluateUser(ctx context.Context, userID string) ([]unlock.StageState, error) {
	stages, err := s.unlocks.ListStages()
	if err != nil {
		return nil, err
	}
	records, err := s.unlocks.ListByUser(userID)
	if err != nil {
		return nil, err
	}
	sessions, err := s.sessions.ListSessions(userID)
	if err != nil {
		return nil, err
	}

	byLesson := make(map[string]*models.LessonProgress, len(sessions))
	for i := range sessions {
		byLesson[sessions[i].LessonID] = &sessions[i]
	}

	data := make([]unlock.StageData, 0, len(stages))
	for _, stage := range stages {
		data = append(data, stageData(stage, byLesson[stage.ID], records))
	}

	return s.engine.Sync(ctx, userID, data, records)
}

// UnlockedIDs returns the ordered ids of every stage the user can play.
func (s *UnlockService) UnlockedIDs(ctx context.Context, userID string) ([]string, error) {
	states, err := s.EvaluateUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(states))
	for _, st := range states {
		if st.Unlocked() {
			ids = append(ids, st.ID)
		}
	}
	return ids, nil
}

// RecordCompletion updates the finished stage's unlock record from a
// completion summary: attempts increment, best score and latest accuracy are
// recorded, and a finished lesson marks the stage completed/done. Replaying
// the same summary overwrites rather than double-counts when the attempt is
// already recorded for the same timestamp.
func (s *UnlockService) RecordCompletion(ctx context.Context, summary models.CompletionSummary) error {
	existing, err := s.unlocks.Get(summary.UserID, summary.LessonID)
	if err != nil {
		return err
	}

	now := s.now()
	rec := models.UnlockRecord{
		UserID:    summary.UserID,
		StageID:   summary.LessonID,
		Status:    models.StatusCurrent,
		Accuracy:  unlock.NormalizeAccuracy(summary.Accuracy) * 100,
		Attempts:  1,
		BestScore: summary.Score,
		Completed: summary.Finished,
		UpdatedAt: now,
	}
	playedAt := summary.FinishedAt
	if playedAt.IsZero() {
		playedAt = now
	}
	rec.LastPlayed = &playedAt

	if existing != nil {
		if existing.LastPlayed != nil && existing.LastPlayed.Equal(playedAt) {
			rec.Attempts = existing.Attempts // duplicate delivery of the same attempt
		} else {
			rec.Attempts = existing.Attempts + 1
		}
		if existing.BestScore > rec.BestScore {
			rec.BestScore = existing.BestScore
		}
		rec.Completed = rec.Completed || existing.Completed
	}
	if rec.Completed {
		rec.Status = models.StatusDone
	}

	return s.unlocks.Upsert(ctx, rec)
}

// stageData derives a stage's raw outcome: the answer-derived baseline from
// any live session, raised (never lowered) by the persisted unlock record's
// session-level claim.
func stageData(stage models.Stage, session *models.LessonProgress, records map[string]models.UnlockRecord) unlock.StageData {
	total := 0
	if session != nil {
		total = session.TotalQuestions
	}
	out := reconcile.LessonOutcome(session, total)

	var summary *reconcile.SessionSummary
	if rec, ok := records[stage.ID]; ok {
		summary = &reconcile.SessionSummary{
			Accuracy: unlock.NormalizeAccuracy(rec.Accuracy),
			Finished: rec.Completed,
		}
		if rec.Completed {
			summary.Ratio = 1
		}
	}
	merged := reconcile.MergeSummary(out, summary)

	return unlock.StageData{
		ID:       stage.ID,
		Finished: merged.Finished,
		Accuracy: merged.Accuracy,
		Progress: merged.Ratio,
	}
}
