package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const tokenIssuer = "ecotrack-users"

// TokenKind discriminates the two token kinds inside the signed payload so
// a token of one kind is never accepted where the other is required.
type TokenKind string

const (
	TokenAccess  TokenKind = "access"
	TokenRefresh TokenKind = "refresh"
)

// Claims is the signed claim set carried by both token kinds. Role is only
// populated on access tokens.
type Claims struct {
	UserID int64  `json:"id"`
	Role   Role   `json:"role,omitempty"`
	Kind   string `json:"type"`
	jwt.RegisteredClaims
}

// Codec signs and verifies tokens. Access and refresh tokens use distinct
// HS256 secrets: compromise of one secret does not forge the other kind.
type Codec struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// CodecOption configures Codec behavior.
type CodecOption func(*Codec)

// WithAccessTTL overrides the access token lifetime.
func WithAccessTTL(ttl time.Duration) CodecOption {
	return func(c *Codec) {
		if ttl > 0 {
			c.accessTTL = ttl
		}
	}
}

// WithRefreshTTL overrides the refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) CodecOption {
	return func(c *Codec) {
		if ttl > 0 {
			c.refreshTTL = ttl
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) CodecOption {
	return func(c *Codec) {
		if fn != nil {
			c.now = fn
		}
	}
}

// NewCodec constructs a Codec. Both secrets are required and must differ.
func NewCodec(accessSecret, refreshSecret string, opts ...CodecOption) (*Codec, error) {
	if accessSecret == "" || refreshSecret == "" {
		return nil, errors.New("auth: both signing secrets are required")
	}
	if accessSecret == refreshSecret {
		return nil, errors.New("auth: access and refresh secrets must differ")
	}
	c := &Codec{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     24 * time.Hour,
		refreshTTL:    7 * 24 * time.Hour,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// RefreshTTL returns the configured refresh token lifetime. The session
// store uses the same window as its liveness cutoff.
func (c *Codec) RefreshTTL() time.Duration {
	return c.refreshTTL
}

// IssueAccess signs a short-lived access token for the subject and role.
func (c *Codec) IssueAccess(userID int64, role Role) (string, time.Time, error) {
	return c.sign(userID, role, TokenAccess, c.accessTTL, c.accessSecret)
}

// IssueRefresh signs a refresh token for the subject. Refresh tokens carry
// no role: the role is re-read from the user record on refresh.
func (c *Codec) IssueRefresh(userID int64) (string, time.Time, error) {
	return c.sign(userID, "", TokenRefresh, c.refreshTTL, c.refreshSecret)
}

func (c *Codec) sign(userID int64, role Role, kind TokenKind, ttl time.Duration, secret []byte) (string, time.Time, error) {
	now := c.now().UTC()
	exp := now.Add(ttl)
	claims := Claims{
		UserID: userID,
		Role:   role,
		Kind:   string(kind),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   fmt.Sprintf("%d", userID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign %s token: %w", kind, err)
	}
	return signed, exp, nil
}

// Verify parses a token and checks signature, expiry, issuer and kind
// against the expected kind. Any failure yields ErrInvalidToken.
func (c *Codec) Verify(raw string, kind TokenKind) (*Claims, error) {
	if raw == "" {
		return nil, ErrInvalidToken
	}
	secret := c.accessSecret
	if kind == TokenRefresh {
		secret = c.refreshSecret
	}
	parsed, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return secret, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(func() time.Time { return c.now().UTC() }),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Kind != string(kind) {
		return nil, ErrInvalidToken
	}
	if claims.UserID <= 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
