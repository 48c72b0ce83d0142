package queue

import (
	"context"
	"path/filepath"
	"testing"

	"linguaquest/internal/client"
	"linguaquest/internal/localstore"
	"linguaquest/internal/models"
)

type scriptedSender struct {
	// errs maps action position-in-call-order to the error to return.
	errs  map[int]error
	calls []models.PendingAction
}

func (s *scriptedSender) Send(ctx context.Context, action models.PendingAction) error {
	n := len(s.calls)
	s.calls = append(s.calls, action)
	return s.errs[n]
}

func openTestStore(t *testing.T, path string) *localstore.Store {
	t.Helper()
	store, err := localstore.Open(path)
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestEnqueueSurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device.db")

	store := openTestStore(t, path)
	q := New(store, &scriptedSender{}, "u1")

	if _, err := q.Enqueue(models.ActionSaveProgress, map[string]string{"lessonId": "l1"}); err != nil {
		t.Fatalf("Enqueue() error: %v", err)
	}
	if _, err := q.Enqueue(models.ActionTickStreak, nil); err != nil {
		t.Fatalf("Enqueue() error: %v", err)
	}
	store.Close()

	// Reopen the same file, as a process restart would.
	reopened := openTestStore(t, path)
	q2 := New(reopened, &scriptedSender{}, "u1")

	pending, err := q2.Pending()
	if err != nil {
		t.Fatalf("Pending() error: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("pending after restart = %d, want 2", len(pending))
	}
	if pending[0].Type != models.ActionSaveProgress || pending[1].Type != models.ActionTickStreak {
		t.Errorf("order after restart = %s, %s; want SAVE_PROGRESS, TICK_STREAK", pending[0].Type, pending[1].Type)
	}
	if pending[0].ID == "" || pending[0].ID == pending[1].ID {
		t.Error("queued actions must carry distinct non-empty ids")
	}
}

func TestDrainHappyPath(t *testing.T) {
	store := openTestStore(t, filepath.Join(t.TempDir(), "device.db"))
	sender := &scriptedSender{}
	q := New(store, sender, "u1")

	q.Enqueue(models.ActionSaveProgress, nil)
	q.Enqueue(models.ActionUpdateStats, nil)
	q.Enqueue(models.ActionFinishLesson, nil)

	if err := q.Drain(context.Background()); err != nil {
		t.Fatalf("Drain() error: %v", err)
	}

	if q.Len() != 0 {
		t.Errorf("queue length after drain = %d, want 0", q.Len())
	}
	if len(sender.calls) != 3 {
		t.Fatalf("sends = %d, want 3", len(sender.calls))
	}
	// FIFO order preserved
	wantOrder := []models.ActionType{models.ActionSaveProgress, models.ActionUpdateStats, models.ActionFinishLesson}
	for i, want := range wantOrder {
		if sender.calls[i].Type != want {
			t.Errorf("send %d = %s, want %s", i, sender.calls[i].Type, want)
		}
	}
}

func TestDrainTransientFailureRequeuesAtTail(t *testing.T) {
	store := openTestStore(t, filepath.Join(t.TempDir(), "device.db"))
	// First send fails transiently, the rest succeed.
	sender := &scriptedSender{errs: map[int]error{0: client.ErrTransient}}
	q := New(store, sender, "u1")

	q.Enqueue(models.ActionSaveProgress, nil)
	q.Enqueue(models.ActionUpdateStats, nil)

	if err := q.Drain(context.Background()); err != nil {
		t.Fatalf("Drain() error: %v", err)
	}

	// One pass attempts each original slot once; the failed action stays,
	// re-queued behind the one that succeeded.
	pending, _ := q.Pending()
	if len(pending) != 1 {
		t.Fatalf("pending after drain = %d, want 1", len(pending))
	}
	if pending[0].Type != models.ActionSaveProgress {
		t.Errorf("survivor = %s, want SAVE_PROGRESS", pending[0].Type)
	}
	if pending[0].Attempts != 1 {
		t.Errorf("survivor attempts = %d, want 1", pending[0].Attempts)
	}

	// The failure did not block the independent later action.
	if len(sender.calls) != 2 {
		t.Errorf("sends = %d, want 2", len(sender.calls))
	}

	// A second drain with a healthy sender clears it.
	sender.errs = nil
	if err := q.Drain(context.Background()); err != nil {
		t.Fatalf("second Drain() error: %v", err)
	}
	if q.Len() != 0 {
		t.Errorf("queue length after second drain = %d, want 0", q.Len())
	}
}

func TestDrainValidationFailureDeadLetters(t *testing.T) {
	store := openTestStore(t, filepath.Join(t.TempDir(), "device.db"))
	sender := &scriptedSender{errs: map[int]error{0: client.ErrValidation}}
	q := New(store, sender, "u1")

	q.Enqueue(models.ActionFinishLesson, map[string]string{"lessonId": ""})
	q.Enqueue(models.ActionTickStreak, nil)

	if err := q.Drain(context.Background()); err != nil {
		t.Fatalf("Drain() error: %v", err)
	}

	if q.Len() != 0 {
		t.Errorf("queue length = %d, want 0 (rejected action must not retry)", q.Len())
	}

	dead, err := store.GetDeadLetters("u1")
	if err != nil {
		t.Fatalf("GetDeadLetters() error: %v", err)
	}
	if len(dead) != 1 || dead[0].Type != models.ActionFinishLesson {
		t.Errorf("dead letters = %+v, want one FINISH_LESSON", dead)
	}
}

func TestDrainAllTransientKeepsEverything(t *testing.T) {
	store := openTestStore(t, filepath.Join(t.TempDir(), "device.db"))
	sender := &scriptedSender{errs: map[int]error{0: client.ErrTransient, 1: client.ErrTransient}}
	q := New(store, sender, "u1")

	q.Enqueue(models.ActionSaveProgress, nil)
	q.Enqueue(models.ActionUpdateStats, nil)

	if err := q.Drain(context.Background()); err != nil {
		t.Fatalf("Drain() error: %v", err)
	}

	// One attempt per action per pass, nothing lost.
	if len(sender.calls) != 2 {
		t.Errorf("sends = %d, want 2 (one attempt each)", len(sender.calls))
	}
	if q.Len() != 2 {
		t.Errorf("queue length = %d, want 2", q.Len())
	}
}
