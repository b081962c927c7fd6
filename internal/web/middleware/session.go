package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/face-attendance/internal/database"
)

const (
	sessionCookieName = "face_attendance_session"
	sessionDuration   = 12 * time.Hour
	cleanupInterval   = 10 * time.Minute
)

// Session is a logged-in dashboard user
type Session struct {
	ID        string
	Username  string
	Role      string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// HasRole reports whether the session belongs to one of roles.
func (s *Session) HasRole(roles ...string) bool {
	for _, r := range roles {
		if s.Role == r {
			return true
		}
	}
	return false
}

// SessionManager handles session creation and validation. Sessions are kept in memory
// and, when a store is given, persisted so they survive a dashboard restart.
type SessionManager struct {
	secret   []byte
	store    database.SessionStore
	sessions map[string]*Session
	mu       sync.RWMutex
	stop     chan struct{}
	stopOnce sync.Once
}

// NewSessionManager creates a session manager. store may be nil.
func NewSessionManager(secret string, store database.SessionStore) *SessionManager {
	if secret == "" {
		secret = "face-attendance-dev-secret-change-in-production"
	}
	sm := &SessionManager{
		secret:   []byte(secret),
		store:    store,
		sessions: make(map[string]*Session),
		stop:     make(chan struct{}),
	}
	if store != nil {
		go sm.cleanupLoop()
	}
	return sm
}

// Stop ends the background cleanup of expired persisted sessions.
func (sm *SessionManager) Stop() {
	sm.stopOnce.Do(func() { close(sm.stop) })
}

func (sm *SessionManager) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-sm.stop:
			return
		case <-ticker.C:
			n, err := sm.store.DeleteExpiredSessions(context.Background())
			if err != nil {
				log.Printf("Session cleanup failed: %v", err)
			} else if n > 0 {
				log.Printf("Removed %d expired sessions", n)
			}
		}
	}
}

// CreateSession starts a session for a user
func (sm *SessionManager) CreateSession(ctx context.Context, username, role string) (*Session, error) {
	now := time.Now()
	session := &Session{
		ID:        uuid.NewString(),
		Username:  username,
		Role:      role,
		CreatedAt: now,
		ExpiresAt: now.Add(sessionDuration),
	}

	if sm.store != nil {
		if err := sm.store.SaveSession(ctx, &database.StoredSession{
			ID:        session.ID,
			Username:  session.Username,
			Role:      session.Role,
			CreatedAt: session.CreatedAt,
			ExpiresAt: session.ExpiresAt,
		}); err != nil {
			return nil, err
		}
	}

	sm.mu.Lock()
	sm.sessions[session.ID] = session
	sm.mu.Unlock()

	return session, nil
}

// GetSession retrieves a live session by ID, falling back to the store after a restart
func (sm *SessionManager) GetSession(ctx context.Context, sessionID string) *Session {
	sm.mu.RLock()
	session, ok := sm.sessions[sessionID]
	sm.mu.RUnlock()

	if ok {
		if time.Now().After(session.ExpiresAt) {
			sm.DeleteSession(ctx, sessionID)
			return nil
		}
		return session
	}

	if sm.store == nil {
		return nil
	}
	stored, err := sm.store.GetSession(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			log.Printf("Loading session failed: %v", err)
		}
		return nil
	}
	session = &Session{
		ID:        stored.ID,
		Username:  stored.Username,
		Role:      stored.Role,
		CreatedAt: stored.CreatedAt,
		ExpiresAt: stored.ExpiresAt,
	}
	sm.mu.Lock()
	sm.sessions[session.ID] = session
	sm.mu.Unlock()
	return session
}

// DeleteSession removes a session
func (sm *SessionManager) DeleteSession(ctx context.Context, sessionID string) {
	sm.mu.Lock()
	delete(sm.sessions, sessionID)
	sm.mu.Unlock()

	if sm.store != nil {
		if err := sm.store.DeleteSession(ctx, sessionID); err != nil {
			log.Printf("Deleting session failed: %v", err)
		}
	}
}

// DeleteUserSessions ends every in-memory session of username, e.g. after the account is removed.
func (sm *SessionManager) DeleteUserSessions(ctx context.Context, username string) {
	sm.mu.RLock()
	var ids []string
	for id, s := range sm.sessions {
		if s.Username == username {
			ids = append(ids, id)
		}
	}
	sm.mu.RUnlock()

	for _, id := range ids {
		sm.DeleteSession(ctx, id)
	}
}

// SetSessionCookie sets the signed session cookie, marked Secure on TLS requests
func (sm *SessionManager) SetSessionCookie(w http.ResponseWriter, r *http.Request, session *Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    session.ID + "." + sm.signData(session.ID),
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(sessionDuration.Seconds()),
	})
}

// ClearSessionCookie removes the session cookie
func (sm *SessionManager) ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

// GetSessionFromRequest extracts the session from the cookie or a Bearer header
func (sm *SessionManager) GetSessionFromRequest(r *http.Request) *Session {
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		if sessionID, signature, ok := strings.Cut(cookie.Value, "."); ok && sm.verifySignature(sessionID, signature) {
			if session := sm.GetSession(r.Context(), sessionID); session != nil {
				return session
			}
		}
	}

	if sessionID, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok && sessionID != "" {
		return sm.GetSession(r.Context(), sessionID)
	}
	return nil
}

func (sm *SessionManager) signData(data string) string {
	h := hmac.New(sha256.New, sm.secret)
	h.Write([]byte(data))
	return base64.URLEncoding.EncodeToString(h.Sum(nil))
}

func (sm *SessionManager) verifySignature(data, signature string) bool {
	expected := sm.signData(data)
	return hmac.Equal([]byte(signature), []byte(expected))
}

// SessionData is the public part of a session
type SessionData struct {
	SessionID string `json:"session_id"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	ExpiresAt string `json:"expires_at"`
}

// ToJSON returns the session data for JSON response
func (s *Session) ToJSON() SessionData {
	return SessionData{
		SessionID: s.ID,
		Username:  s.Username,
		Role:      s.Role,
		ExpiresAt: s.ExpiresAt.Format(time.RFC3339),
	}
}

// MarshalJSON implements json.Marshaler
func (s *Session) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.ToJSON())
}
