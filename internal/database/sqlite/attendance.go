package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// AttendanceRepository is the SQLite attendance ledger plus its audit logs
type AttendanceRepository struct {
	pool *Pool
}

// NewAttendanceRepository creates a new attendance repository
func NewAttendanceRepository(pool *Pool) *AttendanceRepository {
	return &AttendanceRepository{pool: pool}
}

const attendanceColumns = `a.id, a.emp_id, a.date, a.entry_time, a.exit_time, a.status,
	a.break_in, a.break_out, a.break_late, a.lunch_in, a.lunch_out, a.lunch_late, a.permission_reason`

func scanAttendance(row rowScanner, extra ...any) (*database.AttendanceRecord, error) {
	var rec database.AttendanceRecord
	var entry, exit, status, breakIn, breakOut, lunchIn, lunchOut, reason sql.NullString
	var breakLate, lunchLate sql.NullBool

	dest := []any{&rec.ID, &rec.EmpID, &rec.Date, &entry, &exit, &status,
		&breakIn, &breakOut, &breakLate, &lunchIn, &lunchOut, &lunchLate, &reason}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err //nolint:wrapcheck // wrapped by callers
	}

	rec.EntryTime = nullString(entry)
	rec.ExitTime = nullString(exit)
	rec.Status = database.AttendanceStatus(nullString(status))
	rec.BreakIn = nullString(breakIn)
	rec.BreakOut = nullString(breakOut)
	rec.BreakLate = breakLate.Valid && breakLate.Bool
	rec.LunchIn = nullString(lunchIn)
	rec.LunchOut = nullString(lunchOut)
	rec.LunchLate = lunchLate.Valid && lunchLate.Bool
	rec.PermissionReason = nullString(reason)
	return &rec, nil
}

// suppliedColumns lists the columns and values of the non-nil update fields.
func suppliedColumns(u database.AttendanceUpdate) ([]string, []any) {
	var cols []string
	var args []any
	add := func(col string, v any) {
		cols = append(cols, col)
		args = append(args, v)
	}
	if u.EntryTime != nil {
		add("entry_time", *u.EntryTime)
	}
	if u.ExitTime != nil {
		add("exit_time", *u.ExitTime)
	}
	if u.Status != nil {
		add("status", string(*u.Status))
	}
	if u.BreakIn != nil {
		add("break_in", *u.BreakIn)
	}
	if u.BreakOut != nil {
		add("break_out", *u.BreakOut)
	}
	if u.BreakLate != nil {
		add("break_late", *u.BreakLate)
	}
	if u.LunchIn != nil {
		add("lunch_in", *u.LunchIn)
	}
	if u.LunchOut != nil {
		add("lunch_out", *u.LunchOut)
	}
	if u.LunchLate != nil {
		add("lunch_late", *u.LunchLate)
	}
	if u.PermissionReason != nil {
		add("permission_reason", *u.PermissionReason)
	}
	return cols, args
}

func insertAttendance(ctx context.Context, tx *sql.Tx, empID, date string, u database.AttendanceUpdate) error {
	cols, args := suppliedColumns(u)
	cols = append([]string{"emp_id", "date"}, cols...)
	args = append([]any{empID, date}, args...)

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	query := fmt.Sprintf(`INSERT INTO attendance (%s) VALUES (%s)`, strings.Join(cols, ", "), placeholders)
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return err //nolint:wrapcheck // inspected by the caller for unique violations
	}
	return nil
}

func updateAttendance(ctx context.Context, tx *sql.Tx, empID, date string, u database.AttendanceUpdate) error {
	cols, args := suppliedColumns(u)
	if len(cols) == 0 {
		return nil
	}
	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = c + " = ?"
	}
	args = append(args, empID, date)
	query := fmt.Sprintf(`UPDATE attendance SET %s WHERE emp_id = ? AND date = ?`, strings.Join(sets, ", "))
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update attendance: %w", err)
	}
	return nil
}

// RecordAttendance merges update into the (empID, date) row.
func (r *AttendanceRepository) RecordAttendance(ctx context.Context, empID, date string, update database.AttendanceUpdate) error {
	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		var id int64
		err := tx.QueryRowContext(ctx, `SELECT id FROM attendance WHERE emp_id = ? AND date = ?`, empID, date).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return insertAttendance(ctx, tx, empID, date, update)
		}
		if err != nil {
			return fmt.Errorf("lookup attendance: %w", err)
		}
		return updateAttendance(ctx, tx, empID, date, update)
	})
	if isForeignKeyViolation(err) {
		return fmt.Errorf("record attendance for %s on %s: %w", empID, date, database.ErrUnknownEmployee)
	}
	if !isUniqueViolation(err) {
		if err != nil {
			return fmt.Errorf("record attendance for %s on %s: %w", empID, date, err)
		}
		return nil
	}

	// The other camera process inserted the row between our lookup and insert.
	err = r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		return updateAttendance(ctx, tx, empID, date, update)
	})
	if err != nil {
		return fmt.Errorf("record attendance for %s on %s: %w", empID, date, err)
	}
	return nil
}

func optString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// InsertAttendance inserts a full record; a duplicate (emp_id, date) is an error
func (r *AttendanceRepository) InsertAttendance(ctx context.Context, rec *database.AttendanceRecord) error {
	res, err := r.pool.db.ExecContext(ctx, `
		INSERT INTO attendance (emp_id, date, entry_time, exit_time, status, break_in, break_out,
			break_late, lunch_in, lunch_out, lunch_late, permission_reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.EmpID, rec.Date, optString(rec.EntryTime), optString(rec.ExitTime), optString(string(rec.Status)),
		optString(rec.BreakIn), optString(rec.BreakOut), rec.BreakLate,
		optString(rec.LunchIn), optString(rec.LunchOut), rec.LunchLate, optString(rec.PermissionReason))
	if err != nil {
		return mapError("insert attendance", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		rec.ID = id
	}
	return nil
}

// GetAttendance returns the (empID, date) row
func (r *AttendanceRepository) GetAttendance(ctx context.Context, empID, date string) (*database.AttendanceRecord, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+attendanceColumns+` FROM attendance a WHERE a.emp_id = ? AND a.date = ?`, empID, date)
	rec, err := scanAttendance(row)
	if err != nil {
		return nil, mapError("get attendance", err)
	}
	return rec, nil
}

// ListAttendance returns rows in the inclusive date range joined with employees
func (r *AttendanceRepository) ListAttendance(ctx context.Context, from, to string) ([]database.AttendanceRow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+attendanceColumns+`, e.name, e.role, e.team
		FROM attendance a
		JOIN employees e ON e.emp_id = a.emp_id
		WHERE a.date BETWEEN ? AND ?
		ORDER BY a.date DESC, e.name COLLATE NOCASE
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	defer rows.Close()

	var out []database.AttendanceRow
	for rows.Next() {
		var row database.AttendanceRow
		rec, err := scanAttendance(rows, &row.Name, &row.Role, &row.Team)
		if err != nil {
			return nil, fmt.Errorf("scan attendance: %w", err)
		}
		row.AttendanceRecord = *rec
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance: %w", err)
	}
	return out, nil
}

// DeleteAttendance removes the (empID, date) row
func (r *AttendanceRepository) DeleteAttendance(ctx context.Context, empID, date string) error {
	res, err := r.pool.Exec(ctx, `DELETE FROM attendance WHERE emp_id = ? AND date = ?`, empID, date)
	if err != nil {
		return fmt.Errorf("delete attendance: %w", err)
	}
	return requireAffected(res, "delete attendance")
}
