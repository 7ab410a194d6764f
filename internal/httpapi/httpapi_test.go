package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"ecotrack.app/internal/audit"
	"ecotrack.app/internal/auth"
)

// fakeStore is an in-memory auth.Store backing the handler tests.
type fakeStore struct {
	mu       sync.Mutex
	nextID   int64
	users    map[int64]*auth.User
	sessions map[string]fakeSession
	events   []auth.AuditEvent
}

type fakeSession struct {
	userID    int64
	createdAt time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		nextID:   1,
		users:    make(map[int64]*auth.User),
		sessions: make(map[string]fakeSession),
	}
}

func (f *fakeStore) Users(context.Context) auth.UserStore       { return (*fakeUsers)(f) }
func (f *fakeStore) Sessions(context.Context) auth.SessionStore { return (*fakeSessions)(f) }
func (f *fakeStore) Audit(context.Context) auth.AuditStore      { return (*fakeAudit)(f) }

type fakeUsers fakeStore

func (f *fakeUsers) Create(_ context.Context, u *auth.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if existing.Email == u.Email || existing.Username == u.Username {
			return auth.ErrConflict
		}
	}
	u.ID = f.nextID
	f.nextID++
	u.CreatedAt = time.Now()
	clone := *u
	f.users[u.ID] = &clone
	return nil
}

func (f *fakeUsers) Find(_ context.Context, id int64) (*auth.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	clone := *u
	return &clone, nil
}

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (f *fakeUsers) ExistsByEmailOrUsername(_ context.Context, email, username string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email || u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUsers) List(_ context.Context) ([]*auth.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*auth.User, 0, len(f.users))
	for _, u := range f.users {
		clone := *u
		out = append(out, &clone)
	}
	return out, nil
}

func (f *fakeUsers) UpdateUsername(_ context.Context, id int64, username string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return auth.ErrNotFound
	}
	u.Username = username
	return nil
}

func (f *fakeUsers) UpdatePassword(_ context.Context, id int64, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return auth.ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (f *fakeUsers) SetActive(_ context.Context, id int64, active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return auth.ErrNotFound
	}
	u.Active = active
	return nil
}

func (f *fakeUsers) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[id]; !ok {
		return auth.ErrNotFound
	}
	delete(f.users, id)
	return nil
}

type fakeSessions fakeStore

func (f *fakeSessions) Store(_ context.Context, userID int64, rawToken string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[auth.HashToken(rawToken)] = fakeSession{userID: userID, createdAt: time.Now()}
	return nil
}

func (f *fakeSessions) IsValid(_ context.Context, userID int64, rawToken string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[auth.HashToken(rawToken)]
	return ok && s.userID == userID, nil
}

func (f *fakeSessions) Invalidate(_ context.Context, userID int64, rawToken string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	hash := auth.HashToken(rawToken)
	if s, ok := f.sessions[hash]; ok && s.userID == userID {
		delete(f.sessions, hash)
	}
	return nil
}

func (f *fakeSessions) InvalidateAll(_ context.Context, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for hash, s := range f.sessions {
		if s.userID == userID {
			delete(f.sessions, hash)
		}
	}
	return nil
}

func (f *fakeSessions) EnforceLimit(_ context.Context, userID int64, max int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	oldestHash := ""
	var oldestAt time.Time
	for hash, s := range f.sessions {
		if s.userID != userID {
			continue
		}
		count++
		if oldestHash == "" || s.createdAt.Before(oldestAt) {
			oldestHash = hash
			oldestAt = s.createdAt
		}
	}
	if count >= max && oldestHash != "" {
		delete(f.sessions, oldestHash)
	}
	return nil
}

type fakeAudit fakeStore

func (f *fakeAudit) Append(_ context.Context, e *auth.AuditEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e.ID = int64(len(f.events) + 1)
	e.CreatedAt = time.Now()
	f.events = append(f.events, *e)
	return nil
}

func (f *fakeAudit) AppendLoginAttempt(_ context.Context, _ string, success bool, traceID string) error {
	action := auth.ActionLoginFailed
	if success {
		action = auth.ActionLoginSuccess
	}
	return f.Append(context.Background(), &auth.AuditEvent{
		Action:     action,
		EntityType: auth.EntityLogin,
		TraceID:    traceID,
	})
}

func (f *fakeAudit) RecentLoginAttempts(_ context.Context, limit int) ([]auth.AuditEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []auth.AuditEvent
	for i := len(f.events) - 1; i >= 0 && len(out) < limit; i-- {
		if f.events[i].EntityType == auth.EntityLogin {
			out = append(out, f.events[i])
		}
	}
	return out, nil
}

type testEnv struct {
	api   *API
	codec *auth.Codec
	store *fakeStore
}

func newTestEnv(t *testing.T, opts Options) *testEnv {
	t.Helper()
	codec, err := auth.NewCodec("test-access-secret", "test-refresh-secret")
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	store := newFakeStore()
	recorder := audit.NewRecorder(store.Audit(context.Background()), zerolog.Nop())
	svc, err := auth.NewService(store, codec,
		auth.WithHasher(auth.NewHasher(bcrypt.MinCost)),
		auth.WithAuditor(recorder))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	api := New(svc, codec, ReadyProbe{}, zerolog.Nop(), opts)
	return &testEnv{api: api, codec: codec, store: store}
}

// do serves a JSON request through the full router and decodes the
// response body.
func (e *testEnv) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	e.api.Handler().ServeHTTP(rr, req)

	var decoded map[string]any
	if rr.Body.Len() > 0 {
		if err := json.Unmarshal(rr.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("decode response %q: %v", rr.Body.String(), err)
		}
	}
	return rr.Code, decoded
}

// register creates a user through the API and returns the token pair.
func (e *testEnv) register(t *testing.T, email, username, password, role string) (string, string) {
	t.Helper()
	code, body := e.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"email":    email,
		"username": username,
		"password": password,
		"role":     role,
	})
	if code != http.StatusCreated {
		t.Fatalf("register %s: status %d, body %v", email, code, body)
	}
	token, _ := body["token"].(string)
	refresh, _ := body["refreshToken"].(string)
	if token == "" || refresh == "" {
		t.Fatalf("register %s: missing tokens in %v", email, body)
	}
	return token, refresh
}
