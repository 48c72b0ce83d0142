package reconcile

import (
	"time"

	"linguaquest/internal/models"
)

// ResolveStats merges an incoming stats patch into the stored record using
// last-write-wins timestamp precedence.
//
// The incoming side wins when its UpdatedAt is greater than or equal to the
// stored UpdatedAt (ties resolve to incoming, deterministically). When it
// wins, fields present on the patch override the stored value and absent
// fields carry over unchanged; when it loses, the stored record is kept as
// is. Either way the result's UpdatedAt is reset to now, never copied from
// an input, which keeps re-applying the same patch idempotent.
func ResolveStats(local models.AggregateStats, incoming models.StatsPatch, now time.Time) models.AggregateStats {
	merged := local

	if !incoming.UpdatedAt.Before(local.UpdatedAt) {
		applyPatch(&merged, incoming)
	}

	merged.UpdatedAt = now
	return merged
}

func applyPatch(s *models.AggregateStats, p models.StatsPatch) {
	if p.XP != nil {
		s.XP = *p.XP
	}
	if p.Hearts != nil {
		s.Hearts = *p.Hearts
	}
	if p.Diamonds != nil {
		s.Diamonds = *p.Diamonds
	}
	if p.Streak != nil {
		s.Streak = *p.Streak
	}
	if p.LongestStreak != nil {
		s.LongestStreak = *p.LongestStreak
	}
	if p.Accuracy != nil {
		s.Accuracy = *p.Accuracy
	}
	if p.TotalQuestions != nil {
		s.TotalQuestions = *p.TotalQuestions
	}
	if p.CompletedQuestions != nil {
		s.CompletedQuestions = *p.CompletedQuestions
	}
	if p.CorrectAnswers != nil {
		s.CorrectAnswers = *p.CorrectAnswers
	}
	if p.WrongAnswers != nil {
		s.WrongAnswers = *p.WrongAnswers
	}
	if p.TotalTimeSpentMs != nil {
		s.TotalTimeSpentMs = *p.TotalTimeSpentMs
	}
	if p.LastGameResults != nil {
		s.LastGameResults = p.LastGameResults
	}
	if p.LastSeen != nil {
		s.LastSeen = *p.LastSeen
	}
}
