package handlers

import (
	"encoding/json"
	"net/http"

	"linguaquest/internal/models"
	"linguaquest/internal/service"
)

// StatsHandler handles aggregate-stats HTTP requests
type StatsHandler struct {
	statsService *service.StatsService
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(statsService *service.StatsService) *StatsHandler {
	return &StatsHandler{statsService: statsService}
}

// GetStats returns the caller's aggregate stats, defaults for a new user.
func (h *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())

	stats, err := h.statsService.Get(userID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to load stats", "Error loading stats", err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{"stats": stats})
}

// UpdateStats merges a client stats snapshot into the server copy. The newer
// side wins field-by-field; the merged result is returned and broadcast.
func (h *StatsHandler) UpdateStats(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())

	var body struct {
		Stats models.StatsPatch `json:"stats"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body", "", nil)
		return
	}

	merged, err := h.statsService.Merge(userID, body.Stats)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to update stats", "Error merging stats", err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{"stats": merged})
}
