package handlers

import (
	"net/http"

	"linguaquest/internal/service"
)

// UnlockHandler handles level-unlock HTTP requests
type UnlockHandler struct {
	unlockService *service.UnlockService
}

// NewUnlockHandler creates a new unlock handler
func NewUnlockHandler(unlockService *service.UnlockService) *UnlockHandler {
	return &UnlockHandler{unlockService: unlockService}
}

// UnlockedLevels returns the ordered stage ids the user may play. Callers may
// only read their own unlock state.
func (h *UnlockHandler) UnlockedLevels(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")
	if userID == "" {
		respondWithError(w, http.StatusBadRequest, "userId is required", "", nil)
		return
	}
	if userID != GetUserID(r.Context()) {
		respondWithError(w, http.StatusForbidden, "forbidden", "", nil)
		return
	}

	ids, err := h.unlockService.UnlockedIDs(r.Context(), userID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to load unlocked levels", "Error evaluating unlocks", err)
		return
	}
	if ids == nil {
		ids = []string{}
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{"unlocked": ids})
}
