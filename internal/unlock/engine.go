package unlock

import (
	"context"
	"time"

	"linguaquest/internal/models"
)

// PassThreshold is the accuracy a finished stage needs before its successor
// unlocks. Fixed for every stage in a track.
const PassThreshold = 0.70

// NormalizeAccuracy unifies the two accuracy representations in circulation:
// a 0-1 ratio is returned as is, a 0-100 percentage is divided by 100. This
// is the single place the unit check happens. Values that still exceed 1
// after normalization are a caller error and propagate as-is.
func NormalizeAccuracy(v float64) float64 {
	if v > 1 {
		return v / 100
	}
	return v
}

// StageData is a stage's raw outcome, derived from answer records (and any
// session-level record merged in) before gating is applied.
type StageData struct {
	ID       string
	Finished bool
	Accuracy float64 // 0-1 ratio or 0-100 percentage, see NormalizeAccuracy
	Progress float64
}

// StageState is a stage's computed unlock state after gating.
type StageState struct {
	ID       string              `json:"id"`
	Status   models.UnlockStatus `json:"status"`
	Progress float64             `json:"progress"`
	Accuracy float64             `json:"accuracy"`
}

// Unlocked reports whether the stage is playable.
func (s StageState) Unlocked() bool {
	return s.Status != models.StatusLocked
}

func passed(st StageData) bool {
	return st.Finished && NormalizeAccuracy(st.Accuracy) >= PassThreshold
}

// Evaluate computes every stage's unlock state from its predecessor's
// outcome and the persisted unlock records, in fixed sequence order.
//
// Stage 0 is never locked: done when finished, current otherwise. For later
// stages the gate is the predecessor's outcome: when the predecessor has not
// passed, the stage is locked with progress forced to zero regardless of any
// persisted record — a regression in the predecessor re-locks dependents by
// contract. When the gate passes, the persisted status is honored, except
// that locked/absent promotes to current and a record with Completed set
// forces done.
func Evaluate(stages []StageData, records map[string]models.UnlockRecord) []StageState {
	states := make([]StageState, 0, len(stages))

	for i, st := range stages {
		state := StageState{
			ID:       st.ID,
			Progress: st.Progress,
			Accuracy: st.Accuracy,
		}

		if i == 0 {
			state.Status = models.StatusCurrent
			if st.Finished || records[st.ID].Completed {
				state.Status = models.StatusDone
			}
			states = append(states, state)
			continue
		}

		// A locked predecessor closes the gate no matter what its raw
		// outcome claims, so a re-lock cascades down the track.
		if states[i-1].Status == models.StatusLocked || !passed(stages[i-1]) {
			state.Status = models.StatusLocked
			state.Progress = 0
			states = append(states, state)
			continue
		}

		state.Status = models.StatusCurrent
		if rec, ok := records[st.ID]; ok {
			if rec.Status != models.StatusLocked {
				state.Status = rec.Status
			}
			if rec.Completed {
				state.Status = models.StatusDone
			}
		}
		states = append(states, state)
	}

	return states
}

// Persister stores unlock records. Upsert must be idempotent: repeating the
// same record is an overwrite, never a duplicate.
type Persister interface {
	Upsert(ctx context.Context, rec models.UnlockRecord) error
}

// Metrics carries the measuring attempt's numbers into a new unlock record.
type Metrics struct {
	Accuracy  float64
	BestScore int
	Attempts  int
}

// Engine couples pure evaluation with unlock-record persistence.
type Engine struct {
	persister Persister
	Now       func() time.Time
}

// NewEngine creates an engine writing through the given persister.
func NewEngine(persister Persister) *Engine {
	return &Engine{persister: persister, Now: time.Now}
}

// UnlockLevel persists the transition of nextStageID to current, recorded
// the first time the gate on prevStageID is observed to pass. Safe to call
// repeatedly with the same arguments: the write is an overwrite with no
// further side effects.
func (e *Engine) UnlockLevel(ctx context.Context, userID, prevStageID, nextStageID string, m Metrics) error {
	_ = prevStageID // recorded by callers for tracing; the record itself is keyed by the unlocked stage

	now := e.Now()
	return e.persister.Upsert(ctx, models.UnlockRecord{
		UserID:     userID,
		StageID:    nextStageID,
		Status:     models.StatusCurrent,
		Accuracy:   m.Accuracy,
		Attempts:   m.Attempts,
		BestScore:  m.BestScore,
		LastPlayed: &now,
		UpdatedAt:  now,
	})
}

// Sync evaluates the stage list and persists any newly detected
// locked-to-current transitions, then returns the computed states.
func (e *Engine) Sync(ctx context.Context, userID string, stages []StageData, records map[string]models.UnlockRecord) ([]StageState, error) {
	states := Evaluate(stages, records)

	for i, state := range states {
		if i == 0 || state.Status != models.StatusCurrent {
			continue
		}
		rec, ok := records[state.ID]
		if ok && rec.Status != models.StatusLocked {
			continue // already persisted as unlocked
		}
		prev := stages[i-1]
		err := e.UnlockLevel(ctx, userID, prev.ID, state.ID, Metrics{
			Accuracy: NormalizeAccuracy(prev.Accuracy) * 100,
		})
		if err != nil {
			return nil, err
		}
	}

	return states, nil
}
