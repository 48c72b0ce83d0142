package service

import (
	"fmt"
	"time"

	"linguaquest/internal/broadcast"
	"linguaquest/internal/models"
	"linguaquest/internal/reconcile"
	"linguaquest/internal/stats"
)

// StatsStore is the persistence slice StatsService needs.
// *repository.StatsRepository satisfies it.
type StatsStore interface {
	Get(userID string) (*models.AggregateStats, error)
	Upsert(s *models.AggregateStats) error
}

// Broadcaster pushes events to a user's connected sessions.
// *broadcast.Hub satisfies it.
type Broadcaster interface {
	Publish(userID, event string, payload interface{})
}

// StatsService owns the server-side aggregate-stat record: reads, LWW merges
// of concurrent device writes, and delta application. Every successful write
// is broadcast to all of the user's sessions.
type StatsService struct {
	store      StatsStore
	hub        Broadcaster
	aggregator *stats.Aggregator
	now        func() time.Time
}

// NewStatsService creates a new stats service
func NewStatsService(store StatsStore, hub Broadcaster) *StatsService {
	return &StatsService{
		store:      store,
		hub:        hub,
		aggregator: stats.NewAggregator(),
		now:        time.Now,
	}
}

// Get returns the user's stats, or a fresh default record (full hearts,
// level 1) when the user has never written one.
func (s *StatsService) Get(userID string) (*models.AggregateStats, error) {
	current, err := s.store.Get(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load stats for %s: %w", userID, err)
	}
	if current == nil {
		return s.defaultStats(userID), nil
	}
	return current, nil
}

// Merge applies an incoming stats write under the last-write-wins rule and
// returns the merged record. Concurrent writers for the same user serialize
// through this merge; re-applying the same patch is idempotent because the
// winner replaces rather than increments.
func (s *StatsService) Merge(userID string, patch models.StatsPatch) (*models.AggregateStats, error) {
	current, err := s.Get(userID)
	if err != nil {
		return nil, err
	}

	merged := reconcile.ResolveStats(*current, patch, s.now())
	merged.UserID = userID
	merged.Level = stats.LevelForXP(merged.XP)

	if err := s.store.Upsert(&merged); err != nil {
		return nil, fmt.Errorf("failed to persist merged stats for %s: %w", userID, err)
	}

	s.hub.Publish(userID, broadcast.EventUserDataUpdated, merged)
	return &merged, nil
}

// ApplyDelta applies a bounded stat delta (lesson rewards, heart penalties)
// through the aggregator and persists the result.
func (s *StatsService) ApplyDelta(userID string, delta models.StatsDelta) (*models.AggregateStats, error) {
	current, err := s.Get(userID)
	if err != nil {
		return nil, err
	}

	next := s.aggregator.ApplyDelta(*current, delta)
	next.UserID = userID

	if err := s.store.Upsert(&next); err != nil {
		return nil, fmt.Errorf("failed to persist stats delta for %s: %w", userID, err)
	}

	s.hub.Publish(userID, broadcast.EventUserDataUpdated, next)
	return &next, nil
}

func (s *StatsService) defaultStats(userID string) *models.AggregateStats {
	return &models.AggregateStats{
		UserID: userID,
		Hearts: models.MaxHearts,
		Level:  stats.LevelForXP(0),
	}
}
