package handlers

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/web/middleware"
)

// UsersHandler manages dashboard accounts (admin only)
type UsersHandler struct {
	users          database.UserStore
	sessionManager *middleware.SessionManager
	now            func() time.Time
}

// NewUsersHandler creates a new users handler
func NewUsersHandler(users database.UserStore, sm *middleware.SessionManager) *UsersHandler {
	return &UsersHandler{users: users, sessionManager: sm, now: time.Now}
}

func validRole(role string) bool {
	switch role {
	case database.RoleAdmin, database.RoleManager, database.RoleUser:
		return true
	}
	return false
}

// List returns every account
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListUsers(r.Context())
	if err != nil {
		respondStoreError(w, "users", err)
		return
	}
	respondJSON(w, http.StatusOK, users)
}

type createUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// Create adds an account, 409 when the username is taken
func (h *UsersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Role == "" {
		req.Role = database.RoleUser
	}
	switch {
	case req.Username == "":
		respondError(w, http.StatusBadRequest, "username is required")
		return
	case len(req.Password) < minPasswordLength:
		respondError(w, http.StatusBadRequest, "password is too short")
		return
	case !validRole(req.Role):
		respondError(w, http.StatusBadRequest, "role must be admin, manager or user")
		return
	}

	hash, err := database.HashPassword(req.Password)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}
	u := &database.User{Username: req.Username, PasswordHash: hash, Role: req.Role, CreatedAt: h.now()}
	if err := h.users.CreateUser(r.Context(), u); err != nil {
		respondStoreError(w, "user", err)
		return
	}
	log.Printf("User %s (%s) created by %s", sanitizeForLog(u.Username), u.Role, actor(r))
	respondJSON(w, http.StatusCreated, u)
}

// ResetPassword sets a new password for {username}
func (h *UsersHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if len(req.Password) < minPasswordLength {
		respondError(w, http.StatusBadRequest, "password is too short")
		return
	}

	username := chi.URLParam(r, "username")
	hash, err := database.HashPassword(req.Password)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}
	if err := h.users.UpdatePassword(r.Context(), username, hash); err != nil {
		respondStoreError(w, "user", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Delete removes {username} and ends their sessions. Admins cannot remove themselves.
func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	if s := middleware.GetSessionFromContext(r.Context()); s != nil && s.Username == username {
		respondError(w, http.StatusBadRequest, "cannot delete your own account")
		return
	}
	if err := h.users.DeleteUser(r.Context(), username); err != nil {
		respondStoreError(w, "user", err)
		return
	}
	h.sessionManager.DeleteUserSessions(r.Context(), username)
	respondJSON(w, http.StatusOK, map[string]string{"deleted": username})
}
