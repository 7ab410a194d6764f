package auth

import "errors"

// Sentinel errors form the failure taxonomy of the auth core. The HTTP
// boundary maps them to status codes with errors.Is; error message text is
// never inspected for control flow.
var (
	ErrValidation         = errors.New("auth: invalid input")
	ErrWeakPassword       = errors.New("auth: password must contain at least 6 characters")
	ErrConflict           = errors.New("auth: already exists")
	ErrNotFound           = errors.New("auth: not found")
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrInactive           = errors.New("auth: account inactive")
	ErrInvalidToken       = errors.New("auth: invalid token")
	ErrRevoked            = errors.New("auth: token expired or revoked")
	ErrUnauthorized       = errors.New("auth: unauthorized")
)
