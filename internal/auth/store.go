package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
)

// Store describes the persistence operations required by the auth core.
type Store interface {
	Users(ctx context.Context) UserStore
	Sessions(ctx context.Context) SessionStore
	Audit(ctx context.Context) AuditStore
}

// UserStore manages user records.
type UserStore interface {
	// Create inserts the user and fills in ID and CreatedAt. A duplicate
	// email or username yields ErrConflict.
	Create(ctx context.Context, u *User) error
	Find(ctx context.Context, id int64) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error)
	List(ctx context.Context) ([]*User, error)
	UpdateUsername(ctx context.Context, id int64, username string) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	SetActive(ctx context.Context, id int64, active bool) error
	Delete(ctx context.Context, id int64) error
}

// SessionStore manages the persisted refresh sessions. Implementations
// persist only HashToken(raw), never the raw token, so a database leak
// cannot be replayed into a usable token.
type SessionStore interface {
	// Store persists the hash of the raw token with the current timestamp.
	Store(ctx context.Context, userID int64, rawToken string) error
	// IsValid reports whether a live row exists for (userID, hash(raw)).
	// Live means created within the liveness window, mirroring the refresh
	// token's own expiry as a redundant server-side cutoff.
	IsValid(ctx context.Context, userID int64, rawToken string) (bool, error)
	// Invalidate removes the matching session. Absent rows are not an
	// error (idempotent logout).
	Invalidate(ctx context.Context, userID int64, rawToken string) error
	// InvalidateAll removes every session for the user. Idempotent.
	InvalidateAll(ctx context.Context, userID int64) error
	// EnforceLimit deletes the single oldest session if the user already
	// holds max or more live sessions. Called immediately before Store.
	EnforceLimit(ctx context.Context, userID int64, max int) error
}

// AuditStore appends immutable audit entries. Failures are handled by the
// audit recorder, never by callers of the auth service.
type AuditStore interface {
	Append(ctx context.Context, e *AuditEvent) error
	// AppendLoginAttempt records a login attempt, resolving the actor from
	// the email if the account exists.
	AppendLoginAttempt(ctx context.Context, email string, success bool, traceID string) error
	RecentLoginAttempts(ctx context.Context, limit int) ([]AuditEvent, error)
}

// HashToken returns the hex SHA-256 digest of a raw token string. The
// session store persists this digest in place of the token.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
