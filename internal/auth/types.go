package auth

import "time"

// User is the persisted identity record. PasswordHash never crosses the
// auth package boundary: handlers receive users through the response
// shapes in httpapi, which do not carry the hash.
type User struct {
	ID           int64
	Email        string
	Username     string
	PasswordHash string
	Role         Role
	Active       bool
	Points       int
	CreatedAt    time.Time
}

// AuditEvent is an append-only record of a sensitive action. ActorID and
// EntityID are pointers because failed logins have no resolved actor and
// token events reference no entity.
type AuditEvent struct {
	ID         int64
	ActorID    *int64
	Action     string
	EntityType string
	EntityID   *int64
	TraceID    string
	CreatedAt  time.Time
}

// Audit action codes written by the orchestrator.
const (
	ActionUserRegister   = "USER_REGISTER"
	ActionLoginSuccess   = "LOGIN_SUCCESS"
	ActionLoginFailed    = "LOGIN_FAILED"
	ActionTokenRefresh   = "TOKEN_REFRESH"
	ActionLogout         = "LOGOUT"
	ActionLogoutAll      = "LOGOUT_ALL"
	ActionPasswordChange = "PASSWORD_CHANGE"
	ActionProfileUpdate  = "PROFILE_UPDATE"
	ActionUserDeactivate = "USER_DEACTIVATE"
	ActionUserDelete     = "USER_DELETE"
)

// Audit entity types.
const (
	EntityUser    = "UTILISATEUR"
	EntityLogin   = "LOGIN"
	EntityToken   = "TOKEN"
	EntitySession = "SESSION"
)
