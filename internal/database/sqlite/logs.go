package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
)

func logStamp(t time.Time) (date, stamp string) {
	if t.IsZero() {
		t = time.Now()
	}
	return t.Format(constants.DateLayout), t.Format(time.RFC3339)
}

// LogAttendance appends an attendance audit line
func (r *AttendanceRepository) LogAttendance(ctx context.Context, entry *database.AttendanceLogEntry) error {
	date, stamp := logStamp(entry.LoggedAt)
	res, err := r.pool.Exec(ctx, `
		INSERT INTO attendance_log (emp_id, name, role, direction, status, late, log_date, logged_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, entry.EmpID, entry.Name, entry.Role, string(entry.Direction), entry.Status, entry.Late, date, stamp)
	if err != nil {
		return fmt.Errorf("log attendance: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		entry.ID = id
	}
	return nil
}

// LogPermission appends a permission audit line
func (r *AttendanceRepository) LogPermission(ctx context.Context, entry *database.PermissionLogEntry) error {
	date, stamp := logStamp(entry.LoggedAt)
	res, err := r.pool.Exec(ctx, `
		INSERT INTO permission_log (emp_id, name, role, kind, reason, log_date, logged_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, entry.EmpID, entry.Name, entry.Role, entry.Kind, entry.Reason, date, stamp)
	if err != nil {
		return fmt.Errorf("log permission: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		entry.ID = id
	}
	return nil
}

// ListAttendanceLog returns audit lines logged between from and to, oldest first
func (r *AttendanceRepository) ListAttendanceLog(ctx context.Context, from, to string) ([]database.AttendanceLogEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, emp_id, name, role, direction, status, late, logged_at
		FROM attendance_log
		WHERE log_date BETWEEN ? AND ?
		ORDER BY id
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("list attendance log: %w", err)
	}
	defer rows.Close()

	var out []database.AttendanceLogEntry
	for rows.Next() {
		var e database.AttendanceLogEntry
		var direction, stamp string
		if err := rows.Scan(&e.ID, &e.EmpID, &e.Name, &e.Role, &direction, &e.Status, &e.Late, &stamp); err != nil {
			return nil, fmt.Errorf("scan attendance log: %w", err)
		}
		e.Direction = database.Direction(direction)
		e.LoggedAt = parseTimestamp(stamp)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance log: %w", err)
	}
	return out, nil
}

// ListPermissionLog returns permission lines logged between from and to, oldest first
func (r *AttendanceRepository) ListPermissionLog(ctx context.Context, from, to string) ([]database.PermissionLogEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, emp_id, name, role, kind, reason, logged_at
		FROM permission_log
		WHERE log_date BETWEEN ? AND ?
		ORDER BY id
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("list permission log: %w", err)
	}
	defer rows.Close()

	var out []database.PermissionLogEntry
	for rows.Next() {
		var e database.PermissionLogEntry
		var stamp string
		if err := rows.Scan(&e.ID, &e.EmpID, &e.Name, &e.Role, &e.Kind, &e.Reason, &stamp); err != nil {
			return nil, fmt.Errorf("scan permission log: %w", err)
		}
		e.LoggedAt = parseTimestamp(stamp)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate permission log: %w", err)
	}
	return out, nil
}
