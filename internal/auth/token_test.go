package auth

import (
	"errors"
	"testing"
	"time"
)

func newTestCodec(t *testing.T, opts ...CodecOption) *Codec {
	t.Helper()
	c, err := NewCodec("access-secret", "refresh-secret", opts...)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	return c
}

func TestNewCodecRejectsBadSecrets(t *testing.T) {
	if _, err := NewCodec("", "refresh"); err == nil {
		t.Fatalf("expected error for empty access secret")
	}
	if _, err := NewCodec("access", ""); err == nil {
		t.Fatalf("expected error for empty refresh secret")
	}
	if _, err := NewCodec("same", "same"); err == nil {
		t.Fatalf("expected error for identical secrets")
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	c := newTestCodec(t)

	raw, exp, err := c.IssueAccess(42, RoleAgent)
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if time.Until(exp) <= 0 {
		t.Fatalf("expected future expiry, got %v", exp)
	}

	claims, err := c.Verify(raw, TokenAccess)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.UserID != 42 {
		t.Fatalf("unexpected user id: %d", claims.UserID)
	}
	if claims.Role != RoleAgent {
		t.Fatalf("unexpected role: %s", claims.Role)
	}
	if claims.Subject != "42" {
		t.Fatalf("unexpected subject: %s", claims.Subject)
	}
	if claims.ID == "" {
		t.Fatalf("expected a jti")
	}
}

func TestTokenKindsAreNotInterchangeable(t *testing.T) {
	c := newTestCodec(t)

	access, _, err := c.IssueAccess(7, RoleCitizen)
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	refresh, _, err := c.IssueRefresh(7)
	if err != nil {
		t.Fatalf("IssueRefresh: %v", err)
	}

	if _, err := c.Verify(access, TokenRefresh); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("access token accepted as refresh: %v", err)
	}
	if _, err := c.Verify(refresh, TokenAccess); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("refresh token accepted as access: %v", err)
	}
}

func TestRefreshTokenCarriesNoRole(t *testing.T) {
	c := newTestCodec(t)
	raw, _, err := c.IssueRefresh(9)
	if err != nil {
		t.Fatalf("IssueRefresh: %v", err)
	}
	claims, err := c.Verify(raw, TokenRefresh)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Role != "" {
		t.Fatalf("refresh token should not carry a role, got %q", claims.Role)
	}
}

func TestVerifyRejectsTamperedAndExpired(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	c := newTestCodec(t, WithAccessTTL(time.Minute), WithClock(clock))

	raw, _, err := c.IssueAccess(5, RoleCitizen)
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}

	if _, err := c.Verify(raw+"x", TokenAccess); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("tampered token accepted: %v", err)
	}
	if _, err := c.Verify("", TokenAccess); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("empty token accepted: %v", err)
	}

	// Jump past expiry.
	now = now.Add(2 * time.Minute)
	if _, err := c.Verify(raw, TokenAccess); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expired token accepted: %v", err)
	}
}

func TestVerifyRejectsForeignSignature(t *testing.T) {
	a := newTestCodec(t)
	b, err := NewCodec("other-access", "other-refresh")
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	raw, _, err := b.IssueAccess(3, RoleAdmin)
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if _, err := a.Verify(raw, TokenAccess); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("token signed with a foreign secret accepted: %v", err)
	}
}

func TestHashTokenIsStableHex(t *testing.T) {
	h1 := HashToken("token-a")
	h2 := HashToken("token-a")
	if h1 != h2 {
		t.Fatalf("hash not deterministic: %s vs %s", h1, h2)
	}
	if len(h1) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(h1))
	}
	if h1 == HashToken("token-b") {
		t.Fatalf("distinct tokens collided")
	}
}
