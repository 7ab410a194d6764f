package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"ecotrack.app/internal/auth"
)

type loginAttemptResponse struct {
	ID        int64     `json:"id"`
	ActorID   *int64    `json:"actorId"`
	Action    string    `json:"action"`
	CreatedAt time.Time `json:"createdAt"`
}

func (a *API) handleRecentLogins(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 500 {
			writeErrorMessage(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	events, err := a.svc.RecentLoginAttempts(r.Context(), limit)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	out := make([]loginAttemptResponse, 0, len(events))
	for _, e := range events {
		out = append(out, toLoginAttemptResponse(e))
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": out})
}

func toLoginAttemptResponse(e auth.AuditEvent) loginAttemptResponse {
	return loginAttemptResponse{
		ID:        e.ID,
		ActorID:   e.ActorID,
		Action:    e.Action,
		CreatedAt: e.CreatedAt,
	}
}
