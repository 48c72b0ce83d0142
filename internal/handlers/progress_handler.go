package handlers

import (
	"encoding/json"
	"net/http"

	"linguaquest/internal/models"
	"linguaquest/internal/service"
)

// ProgressHandler handles lesson-session HTTP requests
type ProgressHandler struct {
	progressService *service.ProgressService
}

// NewProgressHandler creates a new progress handler
func NewProgressHandler(progressService *service.ProgressService) *ProgressHandler {
	return &ProgressHandler{progressService: progressService}
}

// SaveSession upserts the caller's autosave snapshot for a lesson.
func (h *ProgressHandler) SaveSession(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())

	var snapshot models.LessonProgress
	if err := json.NewDecoder(r.Body).Decode(&snapshot); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body", "", nil)
		return
	}

	// The token, not the body, decides whose snapshot this is.
	snapshot.UserID = userID

	if err := h.progressService.SaveSession(&snapshot); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), "Rejected session snapshot", err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

// GetSession returns the caller's snapshot for ?lessonId=, 404 when none.
func (h *ProgressHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())

	lessonID := r.URL.Query().Get("lessonId")
	if lessonID == "" {
		respondWithError(w, http.StatusBadRequest, "lessonId is required", "", nil)
		return
	}

	snapshot, err := h.progressService.GetSession(userID, lessonID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to load session", "Error loading session", err)
		return
	}
	if snapshot == nil {
		respondWithError(w, http.StatusNotFound, "no session for lesson", "", nil)
		return
	}

	respondWithJSON(w, http.StatusOK, snapshot)
}

// DeleteSession removes the caller's snapshot for ?lessonId=. Deleting a
// snapshot that does not exist is not an error.
func (h *ProgressHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())

	lessonID := r.URL.Query().Get("lessonId")
	if lessonID == "" {
		respondWithError(w, http.StatusBadRequest, "lessonId is required", "", nil)
		return
	}

	if err := h.progressService.DeleteSession(userID, lessonID); err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to delete session", "Error deleting session", err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Finish applies a lesson completion: stats delta, snapshot cleanup and
// unlock re-evaluation in one request.
func (h *ProgressHandler) Finish(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())

	var summary models.CompletionSummary
	if err := json.NewDecoder(r.Body).Decode(&summary); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body", "", nil)
		return
	}
	summary.UserID = userID

	if summary.LessonID == "" {
		respondWithError(w, http.StatusBadRequest, "lessonId is required", "", nil)
		return
	}

	merged, err := h.progressService.Finish(r.Context(), summary)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to finish lesson", "Error finishing lesson", err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{"stats": merged})
}
