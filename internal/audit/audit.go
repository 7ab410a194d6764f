// Package audit records sensitive actions with best-effort semantics: a
// failed audit write is logged and discarded, never surfaced to the caller.
// Auditing must not be able to fail an auth operation.
package audit

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"ecotrack.app/internal/auth"
)

type ctxKey struct{}

// WithTraceID attaches a request identifier to the context so audit rows
// can be correlated with request logs.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	traceID = strings.TrimSpace(traceID)
	if traceID == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, traceID)
}

func traceIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxKey{}).(string); ok {
		return v
	}
	return ""
}

// Recorder implements auth.Auditor on top of an auth.AuditStore.
type Recorder struct {
	store auth.AuditStore
	log   zerolog.Logger
}

var _ auth.Auditor = (*Recorder)(nil)

// NewRecorder builds a Recorder writing to store and logging failures.
func NewRecorder(store auth.AuditStore, log zerolog.Logger) *Recorder {
	return &Recorder{store: store, log: log}
}

// Action appends a sensitive-action entry. Store errors are logged at warn
// level and dropped.
func (r *Recorder) Action(ctx context.Context, actorID int64, action, entityType string, entityID *int64) {
	event := &auth.AuditEvent{
		ActorID:    &actorID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		TraceID:    traceIDFromContext(ctx),
	}
	if err := r.store.Append(ctx, event); err != nil {
		r.log.Warn().Err(err).Str("action", action).Msg("audit write dropped")
	}
}

// LoginAttempt appends a login-attempt entry. Store errors are logged at
// warn level and dropped.
func (r *Recorder) LoginAttempt(ctx context.Context, email string, success bool) {
	if err := r.store.AppendLoginAttempt(ctx, email, success, traceIDFromContext(ctx)); err != nil {
		r.log.Warn().Err(err).Bool("success", success).Msg("login audit write dropped")
	}
}
