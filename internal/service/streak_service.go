package service

import (
	"fmt"
	"time"

	"linguaquest/internal/broadcast"
	"linguaquest/internal/models"
)

// StreakService advances the per-user daily streak. A tick within the same
// UTC day is a no-op, the day after the last activity increments, and any
// longer gap resets the streak to 1.
type StreakService struct {
	store StatsStore
	hub   Broadcaster
	now   func() time.Time
}

// NewStreakService creates a new streak service
func NewStreakService(store StatsStore, hub Broadcaster) *StreakService {
	return &StreakService{
		store: store,
		hub:   hub,
		now:   time.Now,
	}
}

// Tick records activity for today and returns the updated streak value.
// Ticking twice on the same day returns the same value, so queued replays
// of TICK_STREAK cannot double-count.
func (s *StreakService) Tick(userID string) (int, error) {
	current, err := s.store.Get(userID)
	if err != nil {
		return 0, fmt.Errorf("failed to load stats for %s: %w", userID, err)
	}

	now := s.now().UTC()
	today := truncateToDay(now)

	if current == nil {
		current = &models.AggregateStats{UserID: userID, Hearts: models.MaxHearts}
	}

	lastDay := truncateToDay(current.LastSeen.UTC())
	switch {
	case current.LastSeen.IsZero():
		current.Streak = 1
	case lastDay.Equal(today):
		// already ticked today
		return current.Streak, nil
	case today.Sub(lastDay) == 24*time.Hour:
		current.Streak++
	default:
		current.Streak = 1
	}

	if current.Streak > current.LongestStreak {
		current.LongestStreak = current.Streak
	}
	current.LastSeen = now
	current.UpdatedAt = now

	if err := s.store.Upsert(current); err != nil {
		return 0, fmt.Errorf("failed to persist streak for %s: %w", userID, err)
	}

	s.hub.Publish(userID, broadcast.EventUserDataUpdated, *current)
	return current.Streak, nil
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
