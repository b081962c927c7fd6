// Package mock provides in-memory implementations of database interfaces for testing.
package mock

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// EmployeeStore is an in-memory database.EmployeeWriter
type EmployeeStore struct {
	mu        sync.RWMutex
	employees map[string]database.Employee

	// Error injection
	ListError   error
	CreateError error
	UpsertError error
}

// NewEmployeeStore creates an empty employee store
func NewEmployeeStore(employees ...database.Employee) *EmployeeStore {
	s := &EmployeeStore{employees: make(map[string]database.Employee)}
	for _, e := range employees {
		s.employees[e.EmpID] = e
	}
	return s
}

func (s *EmployeeStore) GetEmployee(ctx context.Context, empID string) (*database.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.employees[empID]
	if !ok {
		return nil, database.ErrNotFound
	}
	return &e, nil
}

func (s *EmployeeStore) ListEmployees(ctx context.Context) ([]database.Employee, error) {
	if s.ListError != nil {
		return nil, s.ListError
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]database.Employee, 0, len(s.employees))
	for _, e := range s.employees {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

func (s *EmployeeStore) CountEmployees(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.employees), nil
}

func (s *EmployeeStore) UpsertEmployee(ctx context.Context, e *database.Employee) error {
	if s.UpsertError != nil {
		return s.UpsertError
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.RegistrationDate.IsZero() {
		e.RegistrationDate = time.Now()
	}
	s.employees[e.EmpID] = *e
	return nil
}

func (s *EmployeeStore) CreateEmployee(ctx context.Context, e *database.Employee) error {
	if s.CreateError != nil {
		return s.CreateError
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.employees[e.EmpID]; ok {
		return database.ErrDuplicate
	}
	if e.RegistrationDate.IsZero() {
		e.RegistrationDate = time.Now()
	}
	s.employees[e.EmpID] = *e
	return nil
}

func (s *EmployeeStore) UpdateEmployee(ctx context.Context, e *database.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.employees[e.EmpID]
	if !ok {
		return database.ErrNotFound
	}
	cur.Name, cur.Role, cur.Team, cur.Email, cur.Phone = e.Name, e.Role, e.Team, e.Email, e.Phone
	s.employees[e.EmpID] = cur
	return nil
}

func (s *EmployeeStore) SetProfileImage(ctx context.Context, empID string, image []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.employees[empID]
	if !ok {
		return database.ErrNotFound
	}
	cur.ProfileImage = image
	s.employees[empID] = cur
	return nil
}

func (s *EmployeeStore) DeleteEmployee(ctx context.Context, empID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.employees[empID]; !ok {
		return database.ErrNotFound
	}
	delete(s.employees, empID)
	return nil
}

type ledgerKey struct {
	empID string
	date  string
}

// AttendanceStore is an in-memory database.AttendanceStore
type AttendanceStore struct {
	mu          sync.RWMutex
	records     map[ledgerKey]*database.AttendanceRecord
	nextID      int64
	attendance  []database.AttendanceLogEntry
	permissions []database.PermissionLogEntry
	employees   *EmployeeStore

	// Error injection
	RecordError error
	LogError    error
}

// NewAttendanceStore creates an empty ledger. Employees, when given, are joined into ListAttendance.
func NewAttendanceStore(employees *EmployeeStore) *AttendanceStore {
	return &AttendanceStore{records: make(map[ledgerKey]*database.AttendanceRecord), employees: employees}
}

func (s *AttendanceStore) RecordAttendance(ctx context.Context, empID, date string, update database.AttendanceUpdate) error {
	if s.RecordError != nil {
		return s.RecordError
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := ledgerKey{empID, date}
	rec, ok := s.records[key]
	if !ok {
		s.nextID++
		rec = &database.AttendanceRecord{ID: s.nextID, EmpID: empID, Date: date}
		s.records[key] = rec
	}
	update.Apply(rec)
	return nil
}

func (s *AttendanceStore) InsertAttendance(ctx context.Context, rec *database.AttendanceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := ledgerKey{rec.EmpID, rec.Date}
	if _, ok := s.records[key]; ok {
		return database.ErrDuplicate
	}
	s.nextID++
	rec.ID = s.nextID
	cp := *rec
	s.records[key] = &cp
	return nil
}

func (s *AttendanceStore) GetAttendance(ctx context.Context, empID, date string) (*database.AttendanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[ledgerKey{empID, date}]
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *AttendanceStore) ListAttendance(ctx context.Context, from, to string) ([]database.AttendanceRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []database.AttendanceRow
	for _, rec := range s.records {
		if rec.Date < from || rec.Date > to {
			continue
		}
		row := database.AttendanceRow{AttendanceRecord: *rec}
		if s.employees != nil {
			if e, err := s.employees.GetEmployee(ctx, rec.EmpID); err == nil {
				row.Name, row.Role, row.Team = e.Name, e.Role, e.Team
			}
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *AttendanceStore) DeleteAttendance(ctx context.Context, empID, date string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := ledgerKey{empID, date}
	if _, ok := s.records[key]; !ok {
		return database.ErrNotFound
	}
	delete(s.records, key)
	return nil
}

func (s *AttendanceStore) LogAttendance(ctx context.Context, entry *database.AttendanceLogEntry) error {
	if s.LogError != nil {
		return s.LogError
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entry.ID = int64(len(s.attendance) + 1)
	s.attendance = append(s.attendance, *entry)
	return nil
}

func (s *AttendanceStore) LogPermission(ctx context.Context, entry *database.PermissionLogEntry) error {
	if s.LogError != nil {
		return s.LogError
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entry.ID = int64(len(s.permissions) + 1)
	s.permissions = append(s.permissions, *entry)
	return nil
}

func inRange(t time.Time, from, to string) bool {
	d := t.Format("2006-01-02")
	return d >= from && d <= to
}

func (s *AttendanceStore) ListAttendanceLog(ctx context.Context, from, to string) ([]database.AttendanceLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []database.AttendanceLogEntry
	for _, e := range s.attendance {
		if inRange(e.LoggedAt, from, to) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *AttendanceStore) ListPermissionLog(ctx context.Context, from, to string) ([]database.PermissionLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []database.PermissionLogEntry
	for _, e := range s.permissions {
		if inRange(e.LoggedAt, from, to) {
			out = append(out, e)
		}
	}
	return out, nil
}

// AttendanceLog returns every attendance log line in insertion order
func (s *AttendanceStore) AttendanceLog() []database.AttendanceLogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]database.AttendanceLogEntry(nil), s.attendance...)
}

// PermissionLog returns every permission log line in insertion order
func (s *AttendanceStore) PermissionLog() []database.PermissionLogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]database.PermissionLogEntry(nil), s.permissions...)
}

// RecordCount returns the number of ledger rows
func (s *AttendanceStore) RecordCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// UserStore is an in-memory database.UserStore
type UserStore struct {
	mu    sync.RWMutex
	users map[string]database.User
}

// NewUserStore creates a user store holding users
func NewUserStore(users ...database.User) *UserStore {
	s := &UserStore{users: make(map[string]database.User)}
	for _, u := range users {
		s.users[u.Username] = u
	}
	return s
}

func (s *UserStore) GetUser(ctx context.Context, username string) (*database.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[username]
	if !ok {
		return nil, database.ErrNotFound
	}
	return &u, nil
}

func (s *UserStore) ListUsers(ctx context.Context) ([]database.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]database.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (s *UserStore) CreateUser(ctx context.Context, u *database.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.Username]; ok {
		return database.ErrDuplicate
	}
	s.users[u.Username] = *u
	return nil
}

func (s *UserStore) UpdatePassword(ctx context.Context, username, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[username]
	if !ok {
		return database.ErrNotFound
	}
	u.PasswordHash = passwordHash
	s.users[username] = u
	return nil
}

func (s *UserStore) DeleteUser(ctx context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[username]; !ok {
		return database.ErrNotFound
	}
	delete(s.users, username)
	return nil
}
