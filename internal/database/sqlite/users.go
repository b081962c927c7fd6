package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// UserRepository provides SQLite-backed dashboard accounts
type UserRepository struct {
	pool *Pool
}

// NewUserRepository creates a new user repository
func NewUserRepository(pool *Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func scanUser(row rowScanner) (*database.User, error) {
	var u database.User
	var created string
	if err := row.Scan(&u.Username, &u.PasswordHash, &u.Role, &created); err != nil {
		return nil, err //nolint:wrapcheck // wrapped by callers
	}
	u.CreatedAt = parseTimestamp(created)
	return &u, nil
}

// GetUser retrieves a user by name
func (r *UserRepository) GetUser(ctx context.Context, username string) (*database.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT username, password_hash, role, created_at FROM users WHERE username = ?`, username)
	u, err := scanUser(row)
	if err != nil {
		return nil, mapError("get user", err)
	}
	return u, nil
}

// ListUsers returns all accounts ordered by name
func (r *UserRepository) ListUsers(ctx context.Context) ([]database.User, error) {
	rows, err := r.pool.Query(ctx, `SELECT username, password_hash, role, created_at FROM users ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []database.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return out, nil
}

// CreateUser inserts an account, failing with ErrDuplicate if the name is taken
func (r *UserRepository) CreateUser(ctx context.Context, u *database.User) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	_, err := r.pool.db.ExecContext(ctx, `INSERT INTO users (username, password_hash, role, created_at) VALUES (?, ?, ?, ?)`,
		u.Username, u.PasswordHash, u.Role, formatTimestamp(u.CreatedAt))
	return mapError("create user", err)
}

// UpdatePassword replaces the stored password hash
func (r *UserRepository) UpdatePassword(ctx context.Context, username, passwordHash string) error {
	res, err := r.pool.Exec(ctx, `UPDATE users SET password_hash = ? WHERE username = ?`, passwordHash, username)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return requireAffected(res, "update password")
}

// DeleteUser removes an account and its sessions
func (r *UserRepository) DeleteUser(ctx context.Context, username string) error {
	res, err := r.pool.Exec(ctx, `DELETE FROM users WHERE username = ?`, username)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return requireAffected(res, "delete user")
}

// EnsureAdmin creates the admin account with password when no account exists yet.
// Returns true if the account was created.
func (r *UserRepository) EnsureAdmin(ctx context.Context, password string) (bool, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return false, fmt.Errorf("count users: %w", err)
	}
	if n > 0 {
		return false, nil
	}

	hash, err := database.HashPassword(password)
	if err != nil {
		return false, err
	}
	if err := r.CreateUser(ctx, &database.User{Username: "admin", PasswordHash: hash, Role: database.RoleAdmin}); err != nil {
		return false, err
	}
	return true, nil
}
