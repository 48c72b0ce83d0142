package stats

import (
	"time"

	"linguaquest/internal/models"
)

const (
	// XPPerLevel is the amount of XP between consecutive levels.
	XPPerLevel = 100
	// LevelUpDiamonds is granted once per level threshold crossed.
	LevelUpDiamonds = 5
)

// LevelForXP derives the level from cumulative XP. Levels start at 1.
func LevelForXP(xp int) int {
	if xp < 0 {
		return 1
	}
	return xp/XPPerLevel + 1
}

// Aggregator applies bounded stat deltas to a user's aggregate record.
// The clock is injected so merge timestamps are testable.
type Aggregator struct {
	Now func() time.Time
}

// NewAggregator creates an aggregator using the wall clock.
func NewAggregator() *Aggregator {
	return &Aggregator{Now: time.Now}
}

// ApplyDelta returns a new AggregateStats with the delta applied.
//
// Additive fields are summed onto current totals; hearts are clamped to
// [0, MaxHearts] after summation; XP and diamonds never go below zero.
// Streak, Accuracy, TotalQuestions and TimePerQuestion replace the stored
// value when present in the delta. Crossing one or more level thresholds
// grants LevelUpDiamonds per crossing.
func (a *Aggregator) ApplyDelta(current models.AggregateStats, delta models.StatsDelta) models.AggregateStats {
	next := current

	next.XP += delta.XP
	if next.XP < 0 {
		next.XP = 0
	}
	next.Diamonds += delta.Diamonds
	if next.Diamonds < 0 {
		next.Diamonds = 0
	}
	next.CorrectAnswers += delta.CorrectAnswers
	next.WrongAnswers += delta.WrongAnswers
	next.CompletedQuestions += delta.CompletedQuestions
	next.TotalTimeSpentMs += delta.TotalTimeSpentMs

	// Clamp after summation, not before
	next.Hearts = clampHearts(current.Hearts + delta.Hearts)

	if delta.Streak != nil {
		next.Streak = *delta.Streak
		if next.Streak > next.LongestStreak {
			next.LongestStreak = next.Streak
		}
	}
	if delta.Accuracy != nil {
		next.Accuracy = *delta.Accuracy
	}
	if delta.TotalQuestions != nil {
		next.TotalQuestions = *delta.TotalQuestions
	}
	if delta.LastGameResults != nil {
		next.LastGameResults = delta.LastGameResults
	}

	oldLevel := LevelForXP(current.XP)
	newLevel := LevelForXP(next.XP)
	if newLevel > oldLevel {
		next.Diamonds += (newLevel - oldLevel) * LevelUpDiamonds
	}
	next.Level = newLevel

	next.LastSeen = a.now()
	next.UpdatedAt = a.now()

	return next
}

// AddXP applies an XP-only delta through the same clamp/derive logic.
func (a *Aggregator) AddXP(current models.AggregateStats, xp int) models.AggregateStats {
	return a.ApplyDelta(current, models.StatsDelta{XP: xp})
}

// AddHearts applies a hearts-only delta through the same clamp/derive logic.
func (a *Aggregator) AddHearts(current models.AggregateStats, hearts int) models.AggregateStats {
	return a.ApplyDelta(current, models.StatsDelta{Hearts: hearts})
}

// AddDiamonds applies a diamonds-only delta through the same clamp/derive logic.
func (a *Aggregator) AddDiamonds(current models.AggregateStats, diamonds int) models.AggregateStats {
	return a.ApplyDelta(current, models.StatsDelta{Diamonds: diamonds})
}

func (a *Aggregator) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func clampHearts(h int) int {
	if h < 0 {
		return 0
	}
	if h > models.MaxHearts {
		return models.MaxHearts
	}
	return h
}
