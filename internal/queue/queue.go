package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"linguaquest/internal/client"
	"linguaquest/internal/localstore"
	"linguaquest/internal/models"
)

// Sender delivers one queued action to the server. *client.Client satisfies
// this; tests substitute fakes.
type Sender interface {
	Send(ctx context.Context, action models.PendingAction) error
}

// Queue is the durable FIFO of not-yet-acknowledged mutations for one user
// on one device. Enqueue persists synchronously before returning; an action
// leaves the queue only after a confirmed server acknowledgment or a
// permanent (validation) failure, which parks it in the dead-letter list.
type Queue struct {
	mu     sync.Mutex
	store  *localstore.Store
	sender Sender
	userID string
	now    func() time.Time
}

// New creates a queue backed by the given local store.
func New(store *localstore.Store, sender Sender, userID string) *Queue {
	return &Queue{
		store:  store,
		sender: sender,
		userID: userID,
		now:    time.Now,
	}
}

// Enqueue appends an action with a fresh id and timestamp and persists the
// full queue before returning. It never silently drops: a storage failure is
// returned to the caller.
func (q *Queue) Enqueue(actionType models.ActionType, payload interface{}) (*models.PendingAction, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", actionType, err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	pending, err := q.store.GetQueue(q.userID)
	if err != nil {
		return nil, err
	}

	action := models.PendingAction{
		ID:       uuid.NewString(),
		Type:     actionType,
		UserID:   q.userID,
		Payload:  data,
		QueuedAt: q.now(),
	}
	pending = append(pending, action)

	if err := q.store.PutQueue(q.userID, pending); err != nil {
		return nil, err
	}
	return &action, nil
}

// Len returns the number of pending actions.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	pending, err := q.store.GetQueue(q.userID)
	if err != nil {
		return 0
	}
	return len(pending)
}

// Pending returns a copy of the queued actions in order.
func (q *Queue) Pending() ([]models.PendingAction, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.store.GetQueue(q.userID)
}

// Drain attempts every queued action in enqueue order. A successful send
// removes the action; a transient failure re-queues it at the tail so one
// failing action does not block independent later ones; a validation failure
// is parked in the dead-letter list. The queue is persisted after every
// attempt so a crash mid-drain loses nothing.
func (q *Queue) Drain(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	pending, err := q.store.GetQueue(q.userID)
	if err != nil {
		return err
	}

	attempts := len(pending)
	for i := 0; i < attempts; i++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		action := pending[0]
		pending = pending[1:]

		sendErr := q.sender.Send(ctx, action)
		switch {
		case sendErr == nil:
			// acknowledged, drop it

		case errors.Is(sendErr, client.ErrValidation):
			log.Printf("Dead-lettering %s action %s: %v", action.Type, action.ID, sendErr)
			if err := q.store.AppendDeadLetter(q.userID, action); err != nil {
				return err
			}

		default:
			action.Attempts++
			pending = append(pending, action)
		}

		if err := q.store.PutQueue(q.userID, pending); err != nil {
			return err
		}
	}

	return nil
}
