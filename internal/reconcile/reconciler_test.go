package reconcile

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"linguaquest/internal/client"
	"linguaquest/internal/localstore"
	"linguaquest/internal/models"
)

type fakeTransport struct {
	saveErr   error
	saved     []*models.LessonProgress
	remote    *models.LessonProgress
	fetchErr  error
	deleteErr error
	deleted   []string
}

func (f *fakeTransport) SaveSession(ctx context.Context, p *models.LessonProgress, idemKey string) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, p)
	return nil
}

func (f *fakeTransport) FetchSession(ctx context.Context, lessonID string) (*models.LessonProgress, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.remote, nil
}

func (f *fakeTransport) DeleteSession(ctx context.Context, lessonID string) error {
	f.deleted = append(f.deleted, lessonID)
	return f.deleteErr
}

type fakeEnqueuer struct {
	actions []models.ActionType
}

func (f *fakeEnqueuer) Enqueue(actionType models.ActionType, payload interface{}) (*models.PendingAction, error) {
	f.actions = append(f.actions, actionType)
	return &models.PendingAction{ID: "a1", Type: actionType}, nil
}

func openTestStore(t *testing.T) *localstore.Store {
	t.Helper()
	store, err := localstore.Open(filepath.Join(t.TempDir(), "device.db"))
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestReconcilerSaveOnline(t *testing.T) {
	store := openTestStore(t)
	transport := &fakeTransport{}
	queue := &fakeEnqueuer{}
	r := NewReconciler(store, transport, queue, "u1")

	p := &models.LessonProgress{LessonID: "lesson-1", CurrentIndex: 3, TotalQuestions: 10, UpdatedAt: time.Now()}
	if err := r.Save(context.Background(), p); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	if len(transport.saved) != 1 {
		t.Errorf("server saves = %d, want 1", len(transport.saved))
	}
	if len(queue.actions) != 0 {
		t.Errorf("queued actions = %d, want 0", len(queue.actions))
	}

	local, err := store.GetProgress("u1", "lesson-1")
	if err != nil || local == nil {
		t.Fatalf("local snapshot missing after save: %v", err)
	}
	if local.CurrentIndex != 3 {
		t.Errorf("local CurrentIndex = %d, want 3", local.CurrentIndex)
	}
}

func TestReconcilerSaveOfflineEnqueues(t *testing.T) {
	store := openTestStore(t)
	transport := &fakeTransport{saveErr: client.ErrTransient}
	queue := &fakeEnqueuer{}
	r := NewReconciler(store, transport, queue, "u1")

	p := &models.LessonProgress{LessonID: "lesson-1", CurrentIndex: 5, TotalQuestions: 10, UpdatedAt: time.Now()}
	if err := r.Save(context.Background(), p); err != nil {
		t.Fatalf("Save() must absorb a server failure, got: %v", err)
	}

	if len(queue.actions) != 1 || queue.actions[0] != models.ActionSaveProgress {
		t.Errorf("queued actions = %v, want one SAVE_PROGRESS", queue.actions)
	}

	// The local copy is still the authoritative snapshot.
	local, err := store.GetProgress("u1", "lesson-1")
	if err != nil || local == nil {
		t.Fatalf("local snapshot missing after offline save: %v", err)
	}
}

func TestReconcilerRestore(t *testing.T) {
	older := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	newer := older.Add(time.Minute)

	tests := []struct {
		name      string
		local     *models.LessonProgress
		remote    *models.LessonProgress
		fetchErr  error
		wantIndex int
		wantNil   bool
	}{
		{
			name:    "no progress anywhere",
			wantNil: true,
		},
		{
			name:      "local only",
			local:     &models.LessonProgress{LessonID: "l", CurrentIndex: 2, TotalQuestions: 10, UpdatedAt: older},
			wantIndex: 2,
		},
		{
			name:      "remote only",
			remote:    &models.LessonProgress{UserID: "u1", LessonID: "l", CurrentIndex: 4, TotalQuestions: 10, UpdatedAt: older},
			wantIndex: 4,
		},
		{
			name:      "newer local wins over stale server",
			local:     &models.LessonProgress{LessonID: "l", CurrentIndex: 7, TotalQuestions: 10, UpdatedAt: newer},
			remote:    &models.LessonProgress{UserID: "u1", LessonID: "l", CurrentIndex: 3, TotalQuestions: 10, UpdatedAt: older},
			wantIndex: 7,
		},
		{
			name:      "newer server wins over stale local",
			local:     &models.LessonProgress{LessonID: "l", CurrentIndex: 3, TotalQuestions: 10, UpdatedAt: older},
			remote:    &models.LessonProgress{UserID: "u1", LessonID: "l", CurrentIndex: 8, TotalQuestions: 10, UpdatedAt: newer},
			wantIndex: 8,
		},
		{
			name:      "tie goes to the server",
			local:     &models.LessonProgress{LessonID: "l", CurrentIndex: 3, TotalQuestions: 10, UpdatedAt: older},
			remote:    &models.LessonProgress{UserID: "u1", LessonID: "l", CurrentIndex: 5, TotalQuestions: 10, UpdatedAt: older},
			wantIndex: 5,
		},
		{
			name:      "fetch failure falls back to local",
			local:     &models.LessonProgress{LessonID: "l", CurrentIndex: 6, TotalQuestions: 10, UpdatedAt: older},
			fetchErr:  client.ErrTransient,
			wantIndex: 6,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := openTestStore(t)
			transport := &fakeTransport{remote: tt.remote, fetchErr: tt.fetchErr}
			r := NewReconciler(store, transport, &fakeEnqueuer{}, "u1")

			if tt.local != nil {
				tt.local.UserID = "u1"
				if err := store.PutProgress(tt.local); err != nil {
					t.Fatalf("seed local snapshot: %v", err)
				}
			}

			got, err := r.Restore(context.Background(), "l")
			if err != nil {
				t.Fatalf("Restore() error: %v", err)
			}
			if tt.wantNil {
				if got != nil {
					t.Fatalf("Restore() = %+v, want nil", got)
				}
				return
			}
			if got == nil {
				t.Fatal("Restore() = nil, want a snapshot")
			}
			if got.CurrentIndex != tt.wantIndex {
				t.Errorf("CurrentIndex = %d, want %d", got.CurrentIndex, tt.wantIndex)
			}
		})
	}
}

func TestReconcilerClear(t *testing.T) {
	store := openTestStore(t)
	transport := &fakeTransport{deleteErr: client.ErrTransient}
	r := NewReconciler(store, transport, &fakeEnqueuer{}, "u1")

	p := &models.LessonProgress{UserID: "u1", LessonID: "lesson-1", UpdatedAt: time.Now()}
	if err := store.PutProgress(p); err != nil {
		t.Fatalf("seed snapshot: %v", err)
	}

	// A failed remote delete must not fail the clear, and is never queued.
	if err := r.Clear(context.Background(), "lesson-1"); err != nil {
		t.Fatalf("Clear() error: %v", err)
	}

	local, err := store.GetProgress("u1", "lesson-1")
	if err != nil {
		t.Fatalf("GetProgress() error: %v", err)
	}
	if local != nil {
		t.Error("local snapshot still present after Clear()")
	}
	if len(transport.deleted) != 1 {
		t.Errorf("remote deletes = %d, want 1", len(transport.deleted))
	}
}
