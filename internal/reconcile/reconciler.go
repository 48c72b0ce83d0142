package reconcile

import (
	"context"
	"log"

	"linguaquest/internal/localstore"
	"linguaquest/internal/models"
)

// Transport is the slice of the REST client the reconciler needs.
type Transport interface {
	SaveSession(ctx context.Context, p *models.LessonProgress, idemKey string) error
	FetchSession(ctx context.Context, lessonID string) (*models.LessonProgress, error)
	DeleteSession(ctx context.Context, lessonID string) error
}

// Enqueuer buffers a mutation for later replay. *queue.Queue satisfies this.
type Enqueuer interface {
	Enqueue(actionType models.ActionType, payload interface{}) (*models.PendingAction, error)
}

// Reconciler owns the save/restore/clear cycle for lesson snapshots on a
// device. It is the only component that chooses between the local and server
// copy of a record.
type Reconciler struct {
	store     *localstore.Store
	transport Transport
	queue     Enqueuer
	userID    string
}

// NewReconciler wires a reconciler for one user's device.
func NewReconciler(store *localstore.Store, transport Transport, queue Enqueuer, userID string) *Reconciler {
	return &Reconciler{
		store:     store,
		transport: transport,
		queue:     queue,
		userID:    userID,
	}
}

// Save writes the snapshot locally (synchronous, must succeed), then
// attempts the server write. A server failure is absorbed by queueing a
// SAVE_PROGRESS action; from the caller's perspective the save succeeded.
// Only a local storage failure is surfaced.
func (r *Reconciler) Save(ctx context.Context, p *models.LessonProgress) error {
	p.UserID = r.userID

	if err := r.store.PutProgress(p); err != nil {
		return err
	}

	if err := r.transport.SaveSession(ctx, p, ""); err != nil {
		log.Printf("Deferring progress save for lesson %s: %v", p.LessonID, err)
		if _, qErr := r.queue.Enqueue(models.ActionSaveProgress, p); qErr != nil {
			return qErr
		}
	}
	return nil
}

// Restore returns the freshest snapshot it can observe for a lesson:
// server-first with local fallback, and when both exist the newer UpdatedAt
// wins so a restore racing a not-yet-drained save still sees the latest
// write. (nil, nil) means no progress anywhere, which is not an error.
func (r *Reconciler) Restore(ctx context.Context, lessonID string) (*models.LessonProgress, error) {
	remote, err := r.transport.FetchSession(ctx, lessonID)
	if err != nil {
		log.Printf("Falling back to local snapshot for lesson %s: %v", lessonID, err)
		remote = nil
	}

	local, localErr := r.store.GetProgress(r.userID, lessonID)
	if localErr != nil {
		if remote != nil {
			return remote, nil
		}
		return nil, localErr
	}

	switch {
	case remote == nil:
		return local, nil
	case local == nil:
		return remote, nil
	case local.UpdatedAt.After(remote.UpdatedAt):
		return local, nil
	default:
		// Server is authoritative on ties
		return remote, nil
	}
}

// Clear deletes both copies of a lesson snapshot. The local delete must
// succeed; the server delete is best-effort and deliberately never queued,
// so a failed remote delete is logged and dropped.
func (r *Reconciler) Clear(ctx context.Context, lessonID string) error {
	if err := r.store.DeleteProgress(r.userID, lessonID); err != nil {
		return err
	}

	if err := r.transport.DeleteSession(ctx, lessonID); err != nil {
		log.Printf("Remote session delete failed for lesson %s (not retried): %v", lessonID, err)
	}
	return nil
}
