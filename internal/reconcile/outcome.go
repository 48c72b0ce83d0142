package reconcile

import "linguaquest/internal/models"

// Outcome is the per-lesson completion state derived from raw answer records.
type Outcome struct {
	Answered int
	Correct  int
	Total    int
	Ratio    float64
	Accuracy float64
	Finished bool
}

// LessonOutcome computes the completion ratio, accuracy and finished flag for
// a lesson snapshot against its question count.
//
// A lesson counts as finished when every question is answered or the cursor
// has reached the final question. A lesson with zero questions is never
// finished. Accuracy is correct/total, not correct/answered, so abandoning a
// lesson early cannot inflate it.
func LessonOutcome(p *models.LessonProgress, total int) Outcome {
	out := Outcome{Total: total}
	if p != nil {
		out.Answered = p.AnsweredCount()
		out.Correct = p.CorrectCount()
	}
	if total <= 0 {
		return out
	}

	out.Ratio = float64(out.Answered) / float64(total)
	if out.Ratio > 1 {
		out.Ratio = 1
	}
	out.Accuracy = float64(out.Correct) / float64(total)

	currentIndex := 0
	if p != nil {
		currentIndex = p.CurrentIndex
	}
	out.Finished = out.Answered >= total || currentIndex >= total-1

	return out
}

// SessionSummary is a session-level progress claim persisted alongside the
// raw answers (e.g. a completion record written at lesson end).
type SessionSummary struct {
	Ratio    float64
	Accuracy float64
	Finished bool
}

// MergeSummary folds a session-level record into an answer-derived outcome.
// The record can raise ratio, accuracy and the finished flag but never lower
// them; the answer-derived baseline is the floor.
func MergeSummary(base Outcome, s *SessionSummary) Outcome {
	if s == nil {
		return base
	}
	if s.Ratio > base.Ratio {
		base.Ratio = s.Ratio
	}
	if s.Accuracy > base.Accuracy {
		base.Accuracy = s.Accuracy
	}
	if s.Finished {
		base.Finished = true
	}
	return base
}
