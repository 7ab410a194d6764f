package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"ecotrack.app/internal/auth"
)

const bearerPrefix = "Bearer "

// Authenticate extracts and verifies the bearer access token. A missing
// credential is 401; a present but invalid one is 403. On success the
// caller's identity is attached to the request context.
func (a *API) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := extractBearerToken(r.Header.Get("Authorization"))
		if err != nil {
			writeErrorMessage(w, http.StatusUnauthorized, "access token required")
			return
		}
		claims, err := a.codec.Verify(token, auth.TokenAccess)
		if err != nil {
			writeErrorMessage(w, http.StatusForbidden, "invalid or expired token")
			return
		}
		ctx := auth.ContextWithIdentity(r.Context(), auth.Identity{
			ID:   claims.UserID,
			Role: claims.Role,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole allows only the listed roles. 401 without an authenticated
// identity (Authenticate was skipped), 403 on a role mismatch.
func RequireRole(roles ...auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := auth.IdentityFromContext(r.Context())
			if !ok {
				writeErrorMessage(w, http.StatusUnauthorized, "authentication required")
				return
			}
			for _, role := range roles {
				if identity.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeErrorMessage(w, http.StatusForbidden, "insufficient permissions")
		})
	}
}

// RequirePermission gates on a single permission from the static
// role-permission table. The ADMIN wildcard satisfies any check.
func RequirePermission(perm string) func(http.Handler) http.Handler {
	return RequireAnyPermission(perm)
}

// RequireAnyPermission succeeds when the caller's role holds at least one
// of the listed permissions (OR semantics).
func RequireAnyPermission(perms ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := auth.IdentityFromContext(r.Context())
			if !ok {
				writeErrorMessage(w, http.StatusUnauthorized, "authentication required")
				return
			}
			if !identity.Role.HasAnyPermission(perms...) {
				writeErrorMessage(w, http.StatusForbidden, "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}
