package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// SessionRepository provides SQLite-backed session storage
type SessionRepository struct {
	pool *Pool
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(pool *Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// SaveSession stores a session in the database
func (r *SessionRepository) SaveSession(ctx context.Context, s *database.StoredSession) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO sessions (id, username, role, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			username = excluded.username,
			role = excluded.role,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at
	`, s.ID, s.Username, s.Role, formatTimestamp(s.CreatedAt), formatTimestamp(s.ExpiresAt))
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// GetSession retrieves a live session by ID, ErrNotFound if missing or expired
func (r *SessionRepository) GetSession(ctx context.Context, id string) (*database.StoredSession, error) {
	var s database.StoredSession
	var created, expires string
	err := r.pool.QueryRow(ctx, `
		SELECT id, username, role, created_at, expires_at
		FROM sessions
		WHERE id = ? AND expires_at > ?
	`, id, formatTimestamp(time.Now())).Scan(&s.ID, &s.Username, &s.Role, &created, &expires)
	if err != nil {
		return nil, mapError("get session", err)
	}
	s.CreatedAt = parseTimestamp(created)
	s.ExpiresAt = parseTimestamp(expires)
	return &s, nil
}

// DeleteSession removes a session from the database
func (r *SessionRepository) DeleteSession(ctx context.Context, id string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes all expired sessions and returns the count deleted
func (r *SessionRepository) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	res, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, formatTimestamp(time.Now()))
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count deleted sessions: %w", err)
	}
	return n, nil
}
