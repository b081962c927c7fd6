package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// memoryStore is a database.SessionStore backed by a map
type memoryStore struct {
	mu       sync.Mutex
	sessions map[string]database.StoredSession
}

func newMemoryStore() *memoryStore {
	return &memoryStore{sessions: make(map[string]database.StoredSession)}
}

func (m *memoryStore) SaveSession(_ context.Context, s *database.StoredSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = *s
	return nil
}

func (m *memoryStore) GetSession(_ context.Context, id string) (*database.StoredSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || time.Now().After(s.ExpiresAt) {
		return nil, database.ErrNotFound
	}
	return &s, nil
}

func (m *memoryStore) DeleteSession(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *memoryStore) DeleteExpiredSessions(context.Context) (int64, error) {
	return 0, nil
}

func newSession(t *testing.T, sm *SessionManager, username, role string) *Session {
	t.Helper()
	session, err := sm.CreateSession(context.Background(), username, role)
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	return session
}

func TestSessionManager_CreateAndGet(t *testing.T) {
	sm := NewSessionManager("test-secret", nil)
	session := newSession(t, sm, "alice", database.RoleManager)

	if session.ID == "" {
		t.Error("session ID is empty")
	}
	if session.ExpiresAt.Before(time.Now()) {
		t.Error("session expires in the past")
	}

	retrieved := sm.GetSession(context.Background(), session.ID)
	if retrieved == nil {
		t.Fatal("GetSession() returned nil for existing session")
	}
	if retrieved.Username != "alice" || retrieved.Role != database.RoleManager {
		t.Errorf("session = %+v", retrieved)
	}

	if sm.GetSession(context.Background(), "nonexistent-id") != nil {
		t.Error("GetSession() should return nil for non-existing session")
	}
}

func TestSessionManager_Expired(t *testing.T) {
	sm := NewSessionManager("test-secret", nil)
	session := newSession(t, sm, "alice", database.RoleUser)
	session.ExpiresAt = time.Now().Add(-time.Minute)

	if sm.GetSession(context.Background(), session.ID) != nil {
		t.Error("expired session should not be returned")
	}
}

func TestSessionManager_DeleteSession(t *testing.T) {
	sm := NewSessionManager("test-secret", nil)
	session := newSession(t, sm, "alice", database.RoleUser)

	sm.DeleteSession(context.Background(), session.ID)

	if sm.GetSession(context.Background(), session.ID) != nil {
		t.Error("GetSession() should return nil after deletion")
	}
}

func TestSessionManager_DeleteUserSessions(t *testing.T) {
	sm := NewSessionManager("test-secret", nil)
	a1 := newSession(t, sm, "alice", database.RoleUser)
	a2 := newSession(t, sm, "alice", database.RoleUser)
	b := newSession(t, sm, "bob", database.RoleUser)

	sm.DeleteUserSessions(context.Background(), "alice")

	if sm.GetSession(context.Background(), a1.ID) != nil || sm.GetSession(context.Background(), a2.ID) != nil {
		t.Error("alice's sessions should be gone")
	}
	if sm.GetSession(context.Background(), b.ID) == nil {
		t.Error("bob's session should survive")
	}
}

func TestSessionManager_SurvivesRestart(t *testing.T) {
	store := newMemoryStore()
	first := NewSessionManager("test-secret", store)
	defer first.Stop()
	session := newSession(t, first, "admin", database.RoleAdmin)

	second := NewSessionManager("test-secret", store)
	defer second.Stop()

	restored := second.GetSession(context.Background(), session.ID)
	if restored == nil {
		t.Fatal("session should be restored from the store")
	}
	if restored.Username != "admin" || restored.Role != database.RoleAdmin {
		t.Errorf("restored = %+v", restored)
	}

	second.DeleteSession(context.Background(), session.ID)
	if _, err := store.GetSession(context.Background(), session.ID); err == nil {
		t.Error("deleting a session should remove it from the store")
	}
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == sessionCookieName {
			return c
		}
	}
	t.Fatal("session cookie not found")
	return nil
}

func TestSessionManager_SetAndGetSessionCookie(t *testing.T) {
	sm := NewSessionManager("test-secret", nil)
	session := newSession(t, sm, "alice", database.RoleUser)

	w := httptest.NewRecorder()
	sm.SetSessionCookie(w, httptest.NewRequest("GET", "/", nil), session)
	cookie := sessionCookie(t, w)
	if cookie.Secure {
		t.Error("cookie on a plain HTTP request should not be Secure")
	}

	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(cookie)

	retrieved := sm.GetSessionFromRequest(req)
	if retrieved == nil {
		t.Fatal("GetSessionFromRequest() returned nil")
	}
	if retrieved.ID != session.ID {
		t.Errorf("Session ID = %s, want %s", retrieved.ID, session.ID)
	}
}

func TestSessionManager_InvalidCookie(t *testing.T) {
	sm := NewSessionManager("test-secret", nil)
	session := newSession(t, sm, "alice", database.RoleUser)

	tests := []string{
		"invalid-session.invalid-signature",
		session.ID + ".forged",
		session.ID,
	}
	for _, value := range tests {
		req := httptest.NewRequest("GET", "/", nil)
		req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: value})
		if sm.GetSessionFromRequest(req) != nil {
			t.Errorf("cookie %q should not authenticate", value)
		}
	}
}

func TestSessionManager_BearerAuth(t *testing.T) {
	sm := NewSessionManager("test-secret", nil)
	session := newSession(t, sm, "alice", database.RoleUser)

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+session.ID)

	retrieved := sm.GetSessionFromRequest(req)
	if retrieved == nil {
		t.Fatal("GetSessionFromRequest() returned nil for Bearer auth")
	}
	if retrieved.ID != session.ID {
		t.Errorf("Session ID = %s, want %s", retrieved.ID, session.ID)
	}
}

func TestRequireAuth(t *testing.T) {
	sm := NewSessionManager("test-secret", nil)
	session := newSession(t, sm, "alice", database.RoleUser)

	handlerCalled := false
	protected := RequireAuth(sm)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		if GetSessionFromContext(r.Context()) == nil {
			t.Error("Session not found in context")
		}
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("valid session", func(t *testing.T) {
		handlerCalled = false
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+session.ID)

		protected.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusOK)
		}
		if !handlerCalled {
			t.Error("Handler was not called")
		}
	})

	t.Run("no session", func(t *testing.T) {
		handlerCalled = false
		w := httptest.NewRecorder()
		protected.ServeHTTP(w, httptest.NewRequest("GET", "/protected", nil))

		if w.Code != http.StatusUnauthorized {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusUnauthorized)
		}
		if handlerCalled {
			t.Error("Handler should not be called for unauthorized request")
		}
		if !strings.Contains(w.Body.String(), `"error"`) {
			t.Errorf("body = %s, want JSON error", w.Body.String())
		}
	})
}

func TestRequireRole(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	adminOnly := RequireRole(database.RoleAdmin, database.RoleManager)(ok)

	tests := []struct {
		name    string
		session *Session
		want    int
	}{
		{"admin", &Session{Role: database.RoleAdmin}, http.StatusOK},
		{"manager", &Session{Role: database.RoleManager}, http.StatusOK},
		{"user", &Session{Role: database.RoleUser}, http.StatusForbidden},
		{"anonymous", nil, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			if tt.session != nil {
				req = req.WithContext(SetSessionInContext(req.Context(), tt.session))
			}
			w := httptest.NewRecorder()
			adminOnly.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("Status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestGetSessionFromContext(t *testing.T) {
	ctx := SetSessionInContext(context.Background(), &Session{ID: "test123"})

	retrieved := GetSessionFromContext(ctx)
	if retrieved == nil {
		t.Fatal("GetSessionFromContext() returned nil")
	}
	if retrieved.ID != "test123" {
		t.Errorf("Session ID = %s, want test123", retrieved.ID)
	}

	if GetSessionFromContext(context.Background()) != nil {
		t.Error("GetSessionFromContext() should return nil for empty context")
	}
}

func TestSessionManager_ClearSessionCookie(t *testing.T) {
	sm := NewSessionManager("test-secret", nil)

	w := httptest.NewRecorder()
	sm.ClearSessionCookie(w)

	if cookie := sessionCookie(t, w); cookie.MaxAge != -1 {
		t.Errorf("MaxAge = %d, want -1 (expired)", cookie.MaxAge)
	}
}

func TestSession_MarshalJSON(t *testing.T) {
	session := &Session{
		ID:        "test123",
		Username:  "alice",
		Role:      database.RoleAdmin,
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
	}

	data, err := session.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON() error = %v", err)
	}
	for _, want := range []string{`"session_id":"test123"`, `"username":"alice"`, `"role":"admin"`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("JSON %s does not contain %s", data, want)
		}
	}
}

func TestCORS(t *testing.T) {
	handler := CORS(ParseOrigins(" https://hr.example.com , ,"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		origin string
		want   string
	}{
		{"https://hr.example.com", "https://hr.example.com"},
		{"http://localhost:5173", "http://localhost:5173"},
		{"http://localhost", "http://localhost"},
		{"http://localhost.evil.com", ""},
		{"https://evil.com", ""},
	}
	for _, tt := range tests {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Origin", tt.origin)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.want {
			t.Errorf("origin %s: Allow-Origin = %q, want %q", tt.origin, got, tt.want)
		}
	}

	preflight := httptest.NewRequest(http.MethodOptions, "/", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, preflight)
	if w.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want %d", w.Code, http.StatusNoContent)
	}
}
