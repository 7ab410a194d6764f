package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"ecotrack.app/internal/auth"
)

type updateProfileRequest struct {
	Username string `json:"username"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

func (a *API) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())

	var req updateProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.Username == "" {
		writeErrorMessage(w, http.StatusBadRequest, "username is required")
		return
	}

	user, err := a.svc.UpdateProfile(r.Context(), identity.ID, req.Username)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "profile updated",
		"data":    toUserResponse(user),
	})
}

func (a *API) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())

	var req changePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.OldPassword == "" || req.NewPassword == "" {
		writeErrorMessage(w, http.StatusBadRequest, "old and new passwords are required")
		return
	}

	if err := a.svc.ChangePassword(r.Context(), identity.ID, req.OldPassword, req.NewPassword); err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "password changed"})
}

func (a *API) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := a.svc.ListUsers(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": out})
}

func (a *API) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())

	userID, err := pathID(r)
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid user id")
		return
	}
	if err := a.svc.DeleteUser(r.Context(), identity.ID, userID); err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "user deleted"})
}

func (a *API) handleDeactivateUser(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())

	userID, err := pathID(r)
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid user id")
		return
	}
	if err := a.svc.DeactivateUser(r.Context(), identity.ID, userID); err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "user deactivated"})
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
