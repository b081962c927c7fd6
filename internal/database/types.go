package database

import (
	"time"
)

// AttendanceStatus is the day status stored in the attendance ledger
type AttendanceStatus string

const (
	StatusPresent AttendanceStatus = "present"
	StatusLate    AttendanceStatus = "late"
	StatusAbsent  AttendanceStatus = "absent"
	StatusLeave   AttendanceStatus = "leave"
	StatusHalfDay AttendanceStatus = "half-day"
)

// Valid reports whether s is one of the known statuses.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case StatusPresent, StatusLate, StatusAbsent, StatusLeave, StatusHalfDay:
		return true
	}
	return false
}

// Direction tells which camera produced an attendance log line
type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

// Permission log kinds
const (
	PermissionKindBreak      = "Break"
	PermissionKindPermission = "Permission"
)

// Employee is a registered person
type Employee struct {
	EmpID            string    `json:"emp_id"`
	Name             string    `json:"name"`
	Role             string    `json:"role"`
	Team             string    `json:"team"`
	Email            string    `json:"email,omitempty"`
	Phone            string    `json:"phone,omitempty"`
	ProfileImage     []byte    `json:"-"`
	RegistrationDate time.Time `json:"registration_date"`
}

// AttendanceRecord is the merged state of one employee on one date.
// Empty strings are fields that were never supplied.
type AttendanceRecord struct {
	ID               int64            `json:"id"`
	EmpID            string           `json:"emp_id"`
	Date             string           `json:"date"`
	EntryTime        string           `json:"entry_time,omitempty"`
	ExitTime         string           `json:"exit_time,omitempty"`
	Status           AttendanceStatus `json:"status,omitempty"`
	BreakIn          string           `json:"break_in,omitempty"`
	BreakOut         string           `json:"break_out,omitempty"`
	BreakLate        bool             `json:"break_late"`
	LunchIn          string           `json:"lunch_in,omitempty"`
	LunchOut         string           `json:"lunch_out,omitempty"`
	LunchLate        bool             `json:"lunch_late"`
	PermissionReason string           `json:"permission_reason,omitempty"`
}

// AttendanceRow is an attendance record joined with the employee it belongs to
type AttendanceRow struct {
	AttendanceRecord
	Name string `json:"name"`
	Role string `json:"role"`
	Team string `json:"team"`
}

// AttendanceUpdate is a partial update of an attendance record.
// A nil field is "not supplied" and leaves the stored value untouched.
type AttendanceUpdate struct {
	EntryTime        *string           `json:"entry_time,omitempty"`
	ExitTime         *string           `json:"exit_time,omitempty"`
	Status           *AttendanceStatus `json:"status,omitempty"`
	BreakIn          *string           `json:"break_in,omitempty"`
	BreakOut         *string           `json:"break_out,omitempty"`
	BreakLate        *bool             `json:"break_late,omitempty"`
	LunchIn          *string           `json:"lunch_in,omitempty"`
	LunchOut         *string           `json:"lunch_out,omitempty"`
	LunchLate        *bool             `json:"lunch_late,omitempty"`
	PermissionReason *string           `json:"permission_reason,omitempty"`
}

// IsEmpty reports whether no field is supplied.
func (u AttendanceUpdate) IsEmpty() bool {
	return u.EntryTime == nil && u.ExitTime == nil && u.Status == nil &&
		u.BreakIn == nil && u.BreakOut == nil && u.BreakLate == nil &&
		u.LunchIn == nil && u.LunchOut == nil && u.LunchLate == nil &&
		u.PermissionReason == nil
}

// Apply merges the supplied fields into rec.
func (u AttendanceUpdate) Apply(rec *AttendanceRecord) {
	if u.EntryTime != nil {
		rec.EntryTime = *u.EntryTime
	}
	if u.ExitTime != nil {
		rec.ExitTime = *u.ExitTime
	}
	if u.Status != nil {
		rec.Status = *u.Status
	}
	if u.BreakIn != nil {
		rec.BreakIn = *u.BreakIn
	}
	if u.BreakOut != nil {
		rec.BreakOut = *u.BreakOut
	}
	if u.BreakLate != nil {
		rec.BreakLate = *u.BreakLate
	}
	if u.LunchIn != nil {
		rec.LunchIn = *u.LunchIn
	}
	if u.LunchOut != nil {
		rec.LunchOut = *u.LunchOut
	}
	if u.LunchLate != nil {
		rec.LunchLate = *u.LunchLate
	}
	if u.PermissionReason != nil {
		rec.PermissionReason = *u.PermissionReason
	}
}

// AttendanceLogEntry is one append-only line of the attendance audit log
type AttendanceLogEntry struct {
	ID        int64     `json:"id"`
	EmpID     string    `json:"emp_id"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	Direction Direction `json:"direction"`
	Status    string    `json:"status"`
	Late      bool      `json:"late"`
	LoggedAt  time.Time `json:"logged_at"`
}

// PermissionLogEntry is one append-only line of the permission audit log
type PermissionLogEntry struct {
	ID       int64     `json:"id"`
	EmpID    string    `json:"emp_id"`
	Name     string    `json:"name"`
	Role     string    `json:"role"`
	Kind     string    `json:"kind"`
	Reason   string    `json:"reason"`
	LoggedAt time.Time `json:"logged_at"`
}

// User is a dashboard account
type User struct {
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// Dashboard roles
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleUser    = "user"
)

// StoredSession is a persisted dashboard session
type StoredSession struct {
	ID        string
	Username  string
	Role      string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// EmbeddingRecord is one registered face sample. Several records may share an EmpID;
// their order in the corpus decides which one wins a match.
type EmbeddingRecord struct {
	EmpID        string    `json:"emp_id"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	Team         string    `json:"team"`
	Embedding    []float32 `json:"embedding"`
	ProfileImage []byte    `json:"-"`
	SamplePath   string    `json:"sample_path,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
