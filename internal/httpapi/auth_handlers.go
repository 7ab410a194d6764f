package httpapi

import (
	"errors"
	"io"
	"net/http"
	"time"

	"ecotrack.app/internal/auth"
)

type registerRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type logoutRequest struct {
	RefreshToken string `json:"refreshToken,omitempty"`
}

// userResponse is the full user shape, without the password hash.
type userResponse struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	Role      auth.Role `json:"role"`
	Active    bool      `json:"active"`
	Points    int       `json:"points"`
	CreatedAt time.Time `json:"createdAt"`
}

// sessionUserResponse is the reduced shape returned by login: identity
// only, no point balance.
type sessionUserResponse struct {
	ID       int64     `json:"id"`
	Email    string    `json:"email"`
	Username string    `json:"username"`
	Role     auth.Role `json:"role"`
}

func toUserResponse(u *auth.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Email:     u.Email,
		Username:  u.Username,
		Role:      u.Role,
		Active:    u.Active,
		Points:    u.Points,
		CreatedAt: u.CreatedAt,
	}
}

func toSessionUserResponse(u *auth.User) sessionUserResponse {
	return sessionUserResponse{
		ID:       u.ID,
		Email:    u.Email,
		Username: u.Username,
		Role:     u.Role,
	}
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.Email == "" || req.Username == "" || req.Password == "" {
		writeErrorMessage(w, http.StatusBadRequest, "email, username and password are required")
		return
	}
	role, err := auth.ParseRole(req.Role)
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "unknown role")
		return
	}

	user, pair, err := a.svc.Register(r.Context(), req.Email, req.Username, req.Password, role)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message":      "registration successful",
		"token":        pair.AccessToken,
		"refreshToken": pair.RefreshToken,
		"user":         toUserResponse(user),
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeErrorMessage(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, pair, err := a.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":      "login successful",
		"token":        pair.AccessToken,
		"refreshToken": pair.RefreshToken,
		"user":         toSessionUserResponse(user),
	})
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.RefreshToken == "" {
		writeErrorMessage(w, http.StatusBadRequest, "refresh token required")
		return
	}

	token, _, err := a.svc.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "token refreshed",
		"token":   token,
	})
}

func (a *API) handleProfile(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())
	user, err := a.svc.Profile(r.Context(), identity.ID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": toUserResponse(user)})
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())

	// The body is optional: logout without a refresh token revokes
	// nothing but is still acknowledged.
	var req logoutRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeErrorMessage(w, http.StatusBadRequest, "malformed request body")
		return
	}

	if err := a.svc.Logout(r.Context(), identity.ID, req.RefreshToken); err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "logged out successfully"})
}

func (a *API) handleLogoutAll(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())
	if err := a.svc.LogoutAll(r.Context(), identity.ID); err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "logged out from all devices"})
}
