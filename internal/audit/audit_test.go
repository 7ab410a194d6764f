package audit

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"ecotrack.app/internal/auth"
)

type stubAuditStore struct {
	events   []*auth.AuditEvent
	attempts int
	err      error
}

func (s *stubAuditStore) Append(_ context.Context, e *auth.AuditEvent) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, e)
	return nil
}

func (s *stubAuditStore) AppendLoginAttempt(context.Context, string, bool, string) error {
	if s.err != nil {
		return s.err
	}
	s.attempts++
	return nil
}

func (s *stubAuditStore) RecentLoginAttempts(context.Context, int) ([]auth.AuditEvent, error) {
	return nil, nil
}

func TestRecorderWritesEvent(t *testing.T) {
	store := &stubAuditStore{}
	rec := NewRecorder(store, zerolog.Nop())

	ctx := WithTraceID(context.Background(), "trace-7")
	entity := int64(12)
	rec.Action(ctx, 3, auth.ActionUserRegister, auth.EntityUser, &entity)

	if len(store.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(store.events))
	}
	e := store.events[0]
	if e.ActorID == nil || *e.ActorID != 3 {
		t.Fatalf("unexpected actor: %v", e.ActorID)
	}
	if e.TraceID != "trace-7" {
		t.Fatalf("trace id not propagated: %q", e.TraceID)
	}

	rec.LoginAttempt(ctx, "a@x.io", true)
	if store.attempts != 1 {
		t.Fatalf("login attempt not recorded")
	}
}

func TestRecorderDropsStoreFailures(t *testing.T) {
	var buf bytes.Buffer
	store := &stubAuditStore{err: errors.New("db down")}
	rec := NewRecorder(store, zerolog.New(&buf))

	// Neither call may panic or surface the error; both return nothing.
	rec.Action(context.Background(), 1, auth.ActionLogout, auth.EntitySession, nil)
	rec.LoginAttempt(context.Background(), "a@x.io", false)

	logged := buf.String()
	if !bytes.Contains(buf.Bytes(), []byte("audit write dropped")) {
		t.Fatalf("action failure not logged: %s", logged)
	}
	if !bytes.Contains(buf.Bytes(), []byte("login audit write dropped")) {
		t.Fatalf("login failure not logged: %s", logged)
	}
}

func TestWithTraceID(t *testing.T) {
	ctx := context.Background()
	if got := traceIDFromContext(ctx); got != "" {
		t.Fatalf("expected empty trace id, got %q", got)
	}
	if got := traceIDFromContext(WithTraceID(ctx, "  ")); got != "" {
		t.Fatalf("blank trace id should not attach, got %q", got)
	}
	if got := traceIDFromContext(WithTraceID(ctx, "abc")); got != "abc" {
		t.Fatalf("trace id lost: %q", got)
	}
}
