// Package report builds the dashboard reports over a date range and renders them as CSV.
package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
)

// Kind names a report
type Kind string

const (
	KindSummary       Kind = "summary"
	KindPermissions   Kind = "permissions"
	KindLate          Kind = "late"
	KindBreaks        Kind = "breaks"
	KindLunch         Kind = "lunch"
	KindAttendanceLog Kind = "attendance-log"
	KindPermissionLog Kind = "permission-log"
)

var kinds = []Kind{
	KindSummary, KindPermissions, KindLate, KindBreaks, KindLunch, KindAttendanceLog, KindPermissionLog,
}

// Kinds returns every known report kind in menu order.
func Kinds() []Kind {
	return append([]Kind(nil), kinds...)
}

// ParseKind validates a report kind.
func ParseKind(s string) (Kind, error) {
	for _, k := range kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown report kind %q", s)
}

// Range is an inclusive date range in ledger date format.
type Range struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// ParseRange validates from and to. Missing bounds default to the last
// DefaultReportDays days ending today.
func ParseRange(from, to string, now time.Time) (Range, error) {
	end := now
	if to != "" {
		t, err := time.ParseInLocation(constants.DateLayout, to, now.Location())
		if err != nil {
			return Range{}, fmt.Errorf("invalid to date %q, expected YYYY-MM-DD", to)
		}
		end = t
	}
	start := end.AddDate(0, 0, -constants.DefaultReportDays)
	if from != "" {
		t, err := time.ParseInLocation(constants.DateLayout, from, now.Location())
		if err != nil {
			return Range{}, fmt.Errorf("invalid from date %q, expected YYYY-MM-DD", from)
		}
		start = t
	}

	r := Range{From: start.Format(constants.DateLayout), To: end.Format(constants.DateLayout)}
	if r.From > r.To {
		return Range{}, fmt.Errorf("from date %s is after to date %s", r.From, r.To)
	}
	if days := int(end.Sub(start).Round(24*time.Hour).Hours() / 24); days > constants.MaxReportDays {
		return Range{}, fmt.Errorf("date range exceeds %d days", constants.MaxReportDays)
	}
	return r, nil
}

// Source is the read side of the ledger and audit logs.
type Source interface {
	ListAttendance(ctx context.Context, from, to string) ([]database.AttendanceRow, error)
	ListAttendanceLog(ctx context.Context, from, to string) ([]database.AttendanceLogEntry, error)
	ListPermissionLog(ctx context.Context, from, to string) ([]database.PermissionLogEntry, error)
}

// BreakRow is one line of the break analysis
type BreakRow struct {
	EmpID string `json:"emp_id"`
	Name  string `json:"name"`
	Date  string `json:"date"`
	In    string `json:"break_in,omitempty"`
	Out   string `json:"break_out,omitempty"`
	Late  bool   `json:"break_late"`
}

// LunchRow is one line of the lunch analysis
type LunchRow struct {
	EmpID string `json:"emp_id"`
	Name  string `json:"name"`
	Date  string `json:"date"`
	In    string `json:"lunch_in,omitempty"`
	Out   string `json:"lunch_out,omitempty"`
	Late  bool   `json:"lunch_late"`
}

// Report is a generated report. Data holds the typed rows for JSON,
// Columns and Rows the same content flattened for CSV.
type Report struct {
	Kind    Kind       `json:"kind"`
	Range   Range      `json:"range"`
	Count   int        `json:"count"`
	Data    any        `json:"rows"`
	Columns []string   `json:"-"`
	Rows    [][]string `json:"-"`
}

var attendanceColumns = []string{
	"emp_id", "name", "role", "team", "date", "entry_time", "exit_time", "status",
	"permission_reason", "break_in", "break_out", "break_late", "lunch_in", "lunch_out", "lunch_late",
}

// Build generates the report of the given kind.
func Build(ctx context.Context, src Source, kind Kind, r Range) (*Report, error) {
	rep := &Report{Kind: kind, Range: r}

	switch kind {
	case KindAttendanceLog:
		entries, err := src.ListAttendanceLog(ctx, r.From, r.To)
		if err != nil {
			return nil, fmt.Errorf("failed to list attendance log: %w", err)
		}
		rep.Columns = []string{"emp_id", "name", "role", "direction", "status", "late", "logged_at"}
		for _, e := range entries {
			rep.Rows = append(rep.Rows, []string{
				e.EmpID, e.Name, e.Role, string(e.Direction), e.Status,
				strconv.FormatBool(e.Late), e.LoggedAt.Format(time.RFC3339),
			})
		}
		rep.Data = nonNil(entries)
		rep.Count = len(entries)
		return rep, nil

	case KindPermissionLog:
		entries, err := src.ListPermissionLog(ctx, r.From, r.To)
		if err != nil {
			return nil, fmt.Errorf("failed to list permission log: %w", err)
		}
		rep.Columns = []string{"emp_id", "name", "role", "kind", "reason", "logged_at"}
		for _, e := range entries {
			rep.Rows = append(rep.Rows, []string{
				e.EmpID, e.Name, e.Role, e.Kind, e.Reason, e.LoggedAt.Format(time.RFC3339),
			})
		}
		rep.Data = nonNil(entries)
		rep.Count = len(entries)
		return rep, nil
	}

	rows, err := src.ListAttendance(ctx, r.From, r.To)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance: %w", err)
	}

	switch kind {
	case KindSummary, KindPermissions, KindLate:
		filtered := filter(rows, kind)
		rep.Columns = attendanceColumns
		for _, row := range filtered {
			rep.Rows = append(rep.Rows, attendanceRecord(row))
		}
		rep.Data = filtered
		rep.Count = len(filtered)

	case KindBreaks:
		out := make([]BreakRow, 0, len(rows))
		rep.Columns = []string{"emp_id", "name", "date", "break_in", "break_out", "break_late"}
		for _, row := range rows {
			b := BreakRow{row.EmpID, row.Name, row.Date, row.BreakIn, row.BreakOut, row.BreakLate}
			out = append(out, b)
			rep.Rows = append(rep.Rows, []string{b.EmpID, b.Name, b.Date, b.In, b.Out, strconv.FormatBool(b.Late)})
		}
		rep.Data = out
		rep.Count = len(out)

	case KindLunch:
		out := make([]LunchRow, 0, len(rows))
		rep.Columns = []string{"emp_id", "name", "date", "lunch_in", "lunch_out", "lunch_late"}
		for _, row := range rows {
			l := LunchRow{row.EmpID, row.Name, row.Date, row.LunchIn, row.LunchOut, row.LunchLate}
			out = append(out, l)
			rep.Rows = append(rep.Rows, []string{l.EmpID, l.Name, l.Date, l.In, l.Out, strconv.FormatBool(l.Late)})
		}
		rep.Data = out
		rep.Count = len(out)

	default:
		return nil, fmt.Errorf("unknown report kind %q", kind)
	}
	return rep, nil
}

func filter(rows []database.AttendanceRow, kind Kind) []database.AttendanceRow {
	out := make([]database.AttendanceRow, 0, len(rows))
	for _, row := range rows {
		switch {
		case kind == KindPermissions && row.PermissionReason == "":
			continue
		case kind == KindLate && row.Status != database.StatusLate:
			continue
		}
		out = append(out, row)
	}
	return out
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// AttendanceColumns is the CSV header of an attendance export.
func AttendanceColumns() []string {
	return append([]string(nil), attendanceColumns...)
}

func attendanceRecord(row database.AttendanceRow) []string {
	return []string{
		row.EmpID, row.Name, row.Role, row.Team, row.Date, row.EntryTime, row.ExitTime,
		string(row.Status), row.PermissionReason, row.BreakIn, row.BreakOut,
		strconv.FormatBool(row.BreakLate), row.LunchIn, row.LunchOut, strconv.FormatBool(row.LunchLate),
	}
}

// WriteAttendanceCSV writes ledger rows with the attendance export header.
func WriteAttendanceCSV(w io.Writer, rows []database.AttendanceRow) error {
	records := make([][]string, 0, len(rows))
	for _, row := range rows {
		records = append(records, attendanceRecord(row))
	}
	return writeCSV(w, attendanceColumns, records)
}

// WriteCSV renders the report with a header line.
func (r *Report) WriteCSV(w io.Writer) error {
	return writeCSV(w, r.Columns, r.Rows)
}

// Filename is the suggested download name, e.g. late_2025-01-01_2025-01-31.csv.
func (r *Report) Filename() string {
	return fmt.Sprintf("%s_%s_%s.csv", r.Kind, r.Range.From, r.Range.To)
}

func writeCSV(w io.Writer, header []string, records [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	if err := cw.WriteAll(records); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}

// WriteEmployeesCSV writes the employee directory without profile images.
func WriteEmployeesCSV(w io.Writer, employees []database.Employee) error {
	records := make([][]string, 0, len(employees))
	for _, e := range employees {
		records = append(records, []string{
			e.EmpID, e.Name, e.Role, e.Team, e.Email, e.Phone,
			e.RegistrationDate.Format(constants.DateLayout),
		})
	}
	return writeCSV(w, []string{"emp_id", "name", "role", "team", "email", "phone", "registration_date"}, records)
}
