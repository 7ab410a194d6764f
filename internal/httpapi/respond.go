package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"ecotrack.app/internal/auth"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrorMessage(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// writeError maps the auth error taxonomy onto HTTP status codes. Unknown
// errors become a generic 500; internal detail leaks only when verbose
// mode is on, which production forbids.
func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code, msg := errorStatus(err)
	if code == http.StatusInternalServerError {
		a.log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		if a.opts.VerboseErrors {
			writeJSON(w, code, map[string]string{"error": msg, "debug": err.Error()})
			return
		}
	}
	writeErrorMessage(w, code, msg)
}

func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, auth.ErrWeakPassword):
		return http.StatusBadRequest, "password must contain at least 6 characters"
	case errors.Is(err, auth.ErrValidation):
		return http.StatusBadRequest, "invalid request"
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInactive):
		return http.StatusUnauthorized, "authentication failed"
	case errors.Is(err, auth.ErrInvalidToken):
		return http.StatusForbidden, "invalid or expired token"
	case errors.Is(err, auth.ErrRevoked):
		return http.StatusForbidden, "refresh token expired or revoked"
	case errors.Is(err, auth.ErrUnauthorized):
		return http.StatusForbidden, "insufficient permissions"
	case errors.Is(err, auth.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, auth.ErrConflict):
		return http.StatusConflict, "resource already exists"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// decodeJSON decodes a request body into dst with a size cap. An empty
// body is reported as io.EOF so handlers with optional bodies can treat it
// as absent.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return io.EOF
		}
		return fmt.Errorf("malformed JSON body: %w", err)
	}
	return nil
}
