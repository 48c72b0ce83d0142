package service

import (
	"context"
	"fmt"
	"time"

	"linguaquest/internal/models"
)

// ProgressStore is the persistence slice ProgressService needs.
// *repository.ProgressRepository satisfies it.
type ProgressStore interface {
	UpsertSession(p *models.LessonProgress) error
	GetSession(userID, lessonID string) (*models.LessonProgress, error)
	DeleteSession(userID, lessonID string) error
}

// ProgressService owns the server-side lesson snapshots and the
// lesson-finish transaction: apply rewards, clear the snapshot, re-evaluate
// unlocks.
type ProgressService struct {
	store   ProgressStore
	stats   *StatsService
	unlocks *UnlockService
	now     func() time.Time
}

// NewProgressService creates a new progress service
func NewProgressService(store ProgressStore, stats *StatsService, unlocks *UnlockService) *ProgressService {
	return &ProgressService{
		store:   store,
		stats:   stats,
		unlocks: unlocks,
		now:     time.Now,
	}
}

// SaveSession upserts an autosave snapshot.
func (s *ProgressService) SaveSession(p *models.LessonProgress) error {
	if p.UserID == "" || p.LessonID == "" {
		return fmt.Errorf("session snapshot requires userId and lessonId")
	}
	if p.CurrentIndex > p.TotalQuestions {
		return fmt.Errorf("session snapshot index %d exceeds question count %d", p.CurrentIndex, p.TotalQuestions)
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = s.now()
	}
	return s.store.UpsertSession(p)
}

// GetSession returns the snapshot for (user, lesson); nil when none exists.
func (s *ProgressService) GetSession(userID, lessonID string) (*models.LessonProgress, error) {
	return s.store.GetSession(userID, lessonID)
}

// DeleteSession removes the snapshot for (user, lesson).
func (s *ProgressService) DeleteSession(userID, lessonID string) error {
	return s.store.DeleteSession(userID, lessonID)
}

// Finish processes a lesson completion: the stats delta is applied, the
// autosave snapshot is cleared, the stage's unlock record is updated and the
// whole track re-evaluated so a newly earned unlock is persisted.
func (s *ProgressService) Finish(ctx context.Context, summary models.CompletionSummary) (*models.AggregateStats, error) {
	if summary.UserID == "" || summary.LessonID == "" {
		return nil, fmt.Errorf("completion summary requires userId and lessonId")
	}

	merged, err := s.stats.ApplyDelta(summary.UserID, summary.Delta)
	if err != nil {
		return nil, err
	}

	if err := s.store.DeleteSession(summary.UserID, summary.LessonID); err != nil {
		return nil, fmt.Errorf("failed to clear finished session: %w", err)
	}

	if err := s.unlocks.RecordCompletion(ctx, summary); err != nil {
		return nil, fmt.Errorf("failed to record completion: %w", err)
	}
	if _, err := s.unlocks.EvaluateUser(ctx, summary.UserID); err != nil {
		return nil, fmt.Errorf("failed to evaluate unlocks: %w", err)
	}

	return merged, nil
}
