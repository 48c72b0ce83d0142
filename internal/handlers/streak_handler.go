package handlers

import (
	"net/http"

	"linguaquest/internal/service"
)

// StreakHandler handles streak HTTP requests
type StreakHandler struct {
	streakService *service.StreakService
}

// NewStreakHandler creates a new streak handler
func NewStreakHandler(streakService *service.StreakService) *StreakHandler {
	return &StreakHandler{streakService: streakService}
}

// Tick advances the caller's daily streak. A second tick on the same UTC day
// is a no-op; a missed day resets the streak to 1.
func (h *StreakHandler) Tick(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())

	streak, err := h.streakService.Tick(userID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to update streak", "Error ticking streak", err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]int{"streak": streak})
}
