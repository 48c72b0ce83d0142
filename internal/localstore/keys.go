package localstore

import (
	"errors"

	"linguaquest/internal/models"
)

// Bucket layout: one key per (userId, lessonId) for autosave snapshots, one
// key per userId for the pending-action queue, the dead-letter list and the
// cached unlocked-level list.
const (
	bucketProgress   = "progress"
	bucketQueue      = "queue"
	bucketDeadLetter = "deadletter"
	bucketUnlocked   = "unlocked"
)

func progressKey(userID, lessonID string) string {
	return userID + "/" + lessonID
}

// PutProgress writes an autosave snapshot.
func (s *Store) PutProgress(p *models.LessonProgress) error {
	return s.Put(bucketProgress, progressKey(p.UserID, p.LessonID), p)
}

// GetProgress reads an autosave snapshot; nil without error when none exists.
func (s *Store) GetProgress(userID, lessonID string) (*models.LessonProgress, error) {
	var p models.LessonProgress
	err := s.Get(bucketProgress, progressKey(userID, lessonID), &p)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// DeleteProgress removes an autosave snapshot.
func (s *Store) DeleteProgress(userID, lessonID string) error {
	return s.Delete(bucketProgress, progressKey(userID, lessonID))
}

// GetQueue reads the pending-action queue for a user. A missing key is an
// empty queue.
func (s *Store) GetQueue(userID string) ([]models.PendingAction, error) {
	var q []models.PendingAction
	err := s.Get(bucketQueue, userID, &q)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return q, nil
}

// PutQueue persists the full pending-action queue for a user.
func (s *Store) PutQueue(userID string, q []models.PendingAction) error {
	return s.Put(bucketQueue, userID, q)
}

// GetDeadLetters reads actions parked after a permanent failure.
func (s *Store) GetDeadLetters(userID string) ([]models.PendingAction, error) {
	var q []models.PendingAction
	err := s.Get(bucketDeadLetter, userID, &q)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return q, nil
}

// AppendDeadLetter parks an action that will not be retried.
func (s *Store) AppendDeadLetter(userID string, action models.PendingAction) error {
	dead, err := s.GetDeadLetters(userID)
	if err != nil {
		return err
	}
	return s.Put(bucketDeadLetter, userID, append(dead, action))
}

// PutUnlocked caches the ordered unlocked-stage id list for a user.
func (s *Store) PutUnlocked(userID string, stageIDs []string) error {
	return s.Put(bucketUnlocked, userID, stageIDs)
}

// GetUnlocked reads the cached unlocked-stage id list.
func (s *Store) GetUnlocked(userID string) ([]string, error) {
	var ids []string
	err := s.Get(bucketUnlocked, userID, &ids)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return ids, nil
}
