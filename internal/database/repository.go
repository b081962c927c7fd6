package database

import (
	"context"
)

// EmployeeReader provides read-only access to registered employees
type EmployeeReader interface {
	// GetEmployee retrieves an employee by ID, returns ErrNotFound if missing
	GetEmployee(ctx context.Context, empID string) (*Employee, error)
	// ListEmployees returns all employees ordered by name
	ListEmployees(ctx context.Context) ([]Employee, error)
	// CountEmployees returns the number of registered employees
	CountEmployees(ctx context.Context) (int, error)
}

// EmployeeWriter provides write access to employees
type EmployeeWriter interface {
	EmployeeReader

	// UpsertEmployee inserts the employee or replaces an existing row with the same ID.
	// Registration uses this path.
	UpsertEmployee(ctx context.Context, e *Employee) error
	// CreateEmployee inserts a new employee and returns ErrDuplicate if the ID exists
	CreateEmployee(ctx context.Context, e *Employee) error
	// UpdateEmployee overwrites name, role, team, email and phone of an existing employee
	UpdateEmployee(ctx context.Context, e *Employee) error
	// SetProfileImage replaces the stored profile image
	SetProfileImage(ctx context.Context, empID string, image []byte) error
	// DeleteEmployee removes the employee and, by cascade, their attendance rows
	DeleteEmployee(ctx context.Context, empID string) error
}

// Ledger is the per-employee, per-day attendance table
type Ledger interface {
	// RecordAttendance merges update into the (empID, date) row, creating it when absent.
	// Only supplied fields are written. A concurrent insert of the same key is folded
	// into an update instead of failing.
	RecordAttendance(ctx context.Context, empID, date string, update AttendanceUpdate) error
	// InsertAttendance inserts a full record and returns ErrDuplicate if (emp_id, date) exists
	InsertAttendance(ctx context.Context, rec *AttendanceRecord) error
	// GetAttendance returns the row for (empID, date) or ErrNotFound
	GetAttendance(ctx context.Context, empID, date string) (*AttendanceRecord, error)
	// ListAttendance returns rows with from <= date <= to joined with employee data
	ListAttendance(ctx context.Context, from, to string) ([]AttendanceRow, error)
	// DeleteAttendance removes the (empID, date) row
	DeleteAttendance(ctx context.Context, empID, date string) error
}

// AuditLog holds the append-only attendance and permission logs
type AuditLog interface {
	LogAttendance(ctx context.Context, entry *AttendanceLogEntry) error
	LogPermission(ctx context.Context, entry *PermissionLogEntry) error
	// ListAttendanceLog returns entries logged on dates from..to inclusive, oldest first
	ListAttendanceLog(ctx context.Context, from, to string) ([]AttendanceLogEntry, error)
	// ListPermissionLog returns entries logged on dates from..to inclusive, oldest first
	ListPermissionLog(ctx context.Context, from, to string) ([]PermissionLogEntry, error)
}

// AttendanceStore is everything a recognition process writes
type AttendanceStore interface {
	Ledger
	AuditLog
}

// UserStore manages dashboard accounts
type UserStore interface {
	GetUser(ctx context.Context, username string) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)
	// CreateUser returns ErrDuplicate if the username exists
	CreateUser(ctx context.Context, u *User) error
	UpdatePassword(ctx context.Context, username, passwordHash string) error
	DeleteUser(ctx context.Context, username string) error
}

// SessionStore persists dashboard sessions across restarts
type SessionStore interface {
	SaveSession(ctx context.Context, s *StoredSession) error
	GetSession(ctx context.Context, id string) (*StoredSession, error)
	DeleteSession(ctx context.Context, id string) error
	DeleteExpiredSessions(ctx context.Context) (int64, error)
}
