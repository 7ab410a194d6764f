package auth

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const (
	// MinPasswordLength is the registration and password-change floor.
	MinPasswordLength = 6

	defaultMaxSessions = 3
)

// Auditor records sensitive actions. Implementations are best-effort: the
// methods return nothing, and the orchestrator never learns whether the
// write succeeded. Failures must be logged by the implementation, not
// propagated.
type Auditor interface {
	Action(ctx context.Context, actorID int64, action, entityType string, entityID *int64)
	LoginAttempt(ctx context.Context, email string, success bool)
}

type noopAuditor struct{}

func (noopAuditor) Action(context.Context, int64, string, string, *int64) {}
func (noopAuditor) LoginAttempt(context.Context, string, bool)            {}

// TokenPair carries freshly issued credentials.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// Service is the auth orchestrator. It composes the credential store, the
// session store, the password hasher and the token codec; it owns every
// mutation of refresh-session state.
type Service struct {
	store       Store
	codec       *Codec
	hasher      Hasher
	audit       Auditor
	maxSessions int
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithHasher overrides the password hasher.
func WithHasher(h Hasher) ServiceOption {
	return func(s *Service) { s.hasher = h }
}

// WithAuditor installs the best-effort audit sink.
func WithAuditor(a Auditor) ServiceOption {
	return func(s *Service) {
		if a != nil {
			s.audit = a
		}
	}
}

// WithMaxSessions overrides the concurrent-session cap.
func WithMaxSessions(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.maxSessions = n
		}
	}
}

// NewService constructs the orchestrator.
func NewService(store Store, codec *Codec, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("auth: store is required")
	}
	if codec == nil {
		return nil, fmt.Errorf("auth: codec is required")
	}
	s := &Service{
		store:       store,
		codec:       codec,
		hasher:      NewHasher(0),
		audit:       noopAuditor{},
		maxSessions: defaultMaxSessions,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Register creates a user and issues an initial session.
func (s *Service) Register(ctx context.Context, email, username, password string, role Role) (*User, TokenPair, error) {
	email = normalizeEmail(email)
	username = strings.TrimSpace(username)
	if email == "" || username == "" || password == "" {
		return nil, TokenPair{}, ErrValidation
	}
	if !role.Valid() {
		return nil, TokenPair{}, fmt.Errorf("%w: unknown role %q", ErrValidation, role)
	}
	if len(password) < MinPasswordLength {
		return nil, TokenPair{}, ErrWeakPassword
	}

	exists, err := s.store.Users(ctx).ExistsByEmailOrUsername(ctx, email, username)
	if err != nil {
		return nil, TokenPair{}, err
	}
	if exists {
		return nil, TokenPair{}, ErrConflict
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, TokenPair{}, err
	}
	user := &User{
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		Active:       true,
		Points:       0,
	}
	// The unique constraints catch the register/register race the exists
	// check cannot.
	if err := s.store.Users(ctx).Create(ctx, user); err != nil {
		return nil, TokenPair{}, err
	}

	pair, err := s.openSession(ctx, user)
	if err != nil {
		return nil, TokenPair{}, err
	}

	s.audit.Action(ctx, user.ID, ActionUserRegister, EntityUser, &user.ID)
	return user, pair, nil
}

// Login authenticates credentials and issues a session. Every failure path
// records a failed login attempt before the error propagates.
func (s *Service) Login(ctx context.Context, email, password string) (*User, TokenPair, error) {
	email = normalizeEmail(email)
	user, pair, err := s.login(ctx, email, password)
	if err != nil {
		s.audit.LoginAttempt(ctx, email, false)
		return nil, TokenPair{}, err
	}
	s.audit.LoginAttempt(ctx, email, true)
	return user, pair, nil
}

func (s *Service) login(ctx context.Context, email, password string) (*User, TokenPair, error) {
	if email == "" || password == "" {
		return nil, TokenPair{}, ErrValidation
	}
	user, err := s.store.Users(ctx).FindByEmail(ctx, email)
	if err != nil {
		return nil, TokenPair{}, err
	}
	if !user.Active {
		return nil, TokenPair{}, ErrInactive
	}
	ok, err := s.hasher.Verify(user.PasswordHash, password)
	if err != nil {
		return nil, TokenPair{}, err
	}
	if !ok {
		return nil, TokenPair{}, ErrInvalidCredentials
	}
	pair, err := s.openSession(ctx, user)
	if err != nil {
		return nil, TokenPair{}, err
	}
	return user, pair, nil
}

// openSession issues both tokens and persists the refresh session.
// Eviction happens before the insert so the cap is not transiently
// exceeded by this caller.
func (s *Service) openSession(ctx context.Context, user *User) (TokenPair, error) {
	access, accessExp, err := s.codec.IssueAccess(user.ID, user.Role)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, refreshExp, err := s.codec.IssueRefresh(user.ID)
	if err != nil {
		return TokenPair{}, err
	}
	sessions := s.store.Sessions(ctx)
	if err := sessions.EnforceLimit(ctx, user.ID, s.maxSessions); err != nil {
		return TokenPair{}, err
	}
	if err := sessions.Store(ctx, user.ID, refresh); err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// Refresh exchanges a live refresh token for a new access token. The
// refresh token itself is not rotated; it stays valid until revoked or
// expired.
func (s *Service) Refresh(ctx context.Context, rawToken string) (string, time.Time, error) {
	claims, err := s.codec.Verify(rawToken, TokenRefresh)
	if err != nil {
		return "", time.Time{}, ErrInvalidToken
	}
	live, err := s.store.Sessions(ctx).IsValid(ctx, claims.UserID, rawToken)
	if err != nil {
		return "", time.Time{}, err
	}
	if !live {
		return "", time.Time{}, ErrRevoked
	}
	// Role is re-read from the user record: a role change since issuance
	// takes effect on the next refresh.
	user, err := s.store.Users(ctx).Find(ctx, claims.UserID)
	if err != nil {
		return "", time.Time{}, err
	}
	access, exp, err := s.codec.IssueAccess(user.ID, user.Role)
	if err != nil {
		return "", time.Time{}, err
	}
	s.audit.Action(ctx, user.ID, ActionTokenRefresh, EntityToken, nil)
	return access, exp, nil
}

// Logout revokes one session. An empty token is not an error: nothing is
// revoked but the logout is still acknowledged.
func (s *Service) Logout(ctx context.Context, userID int64, rawToken string) error {
	if rawToken != "" {
		if err := s.store.Sessions(ctx).Invalidate(ctx, userID, rawToken); err != nil {
			return err
		}
	}
	s.audit.Action(ctx, userID, ActionLogout, EntitySession, nil)
	return nil
}

// LogoutAll revokes every session for the user.
func (s *Service) LogoutAll(ctx context.Context, userID int64) error {
	if err := s.store.Sessions(ctx).InvalidateAll(ctx, userID); err != nil {
		return err
	}
	s.audit.Action(ctx, userID, ActionLogoutAll, EntitySession, nil)
	return nil
}

// Profile returns the user record for the authenticated caller.
func (s *Service) Profile(ctx context.Context, userID int64) (*User, error) {
	return s.store.Users(ctx).Find(ctx, userID)
}

// ChangePassword verifies the old password, stores the new hash and
// revokes every session so stolen refresh tokens die with the old
// password.
func (s *Service) ChangePassword(ctx context.Context, userID int64, oldPassword, newPassword string) error {
	if oldPassword == "" || newPassword == "" {
		return ErrValidation
	}
	if len(newPassword) < MinPasswordLength {
		return ErrWeakPassword
	}
	user, err := s.store.Users(ctx).Find(ctx, userID)
	if err != nil {
		return err
	}
	ok, err := s.hasher.Verify(user.PasswordHash, oldPassword)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidCredentials
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.store.Users(ctx).UpdatePassword(ctx, userID, hash); err != nil {
		return err
	}
	if err := s.store.Sessions(ctx).InvalidateAll(ctx, userID); err != nil {
		return err
	}
	s.audit.Action(ctx, userID, ActionPasswordChange, EntityUser, &userID)
	return nil
}

// UpdateProfile changes the display name.
func (s *Service) UpdateProfile(ctx context.Context, userID int64, username string) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, ErrValidation
	}
	users := s.store.Users(ctx)
	if err := users.UpdateUsername(ctx, userID, username); err != nil {
		return nil, err
	}
	user, err := users.Find(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.audit.Action(ctx, userID, ActionProfileUpdate, EntityUser, &userID)
	return user, nil
}

// ListUsers returns all users, for callers holding the users:read
// permission.
func (s *Service) ListUsers(ctx context.Context) ([]*User, error) {
	return s.store.Users(ctx).List(ctx)
}

// DeactivateUser marks an account inactive and revokes its sessions.
func (s *Service) DeactivateUser(ctx context.Context, actorID, userID int64) error {
	if err := s.store.Users(ctx).SetActive(ctx, userID, false); err != nil {
		return err
	}
	if err := s.store.Sessions(ctx).InvalidateAll(ctx, userID); err != nil {
		return err
	}
	s.audit.Action(ctx, actorID, ActionUserDeactivate, EntityUser, &userID)
	return nil
}

// DeleteUser removes an account. Refresh sessions go with it through the
// foreign-key cascade.
func (s *Service) DeleteUser(ctx context.Context, actorID, userID int64) error {
	if err := s.store.Users(ctx).Delete(ctx, userID); err != nil {
		return err
	}
	s.audit.Action(ctx, actorID, ActionUserDelete, EntityUser, &userID)
	return nil
}

// RecentLoginAttempts exposes the audit trail of login attempts.
func (s *Service) RecentLoginAttempts(ctx context.Context, limit int) ([]AuditEvent, error) {
	return s.store.Audit(ctx).RecentLoginAttempts(ctx, limit)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
