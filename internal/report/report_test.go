package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/database/mock"
)

func ptr[T any](v T) *T {
	return &v
}

func seed(t *testing.T) *mock.AttendanceStore {
	t.Helper()
	ctx := context.Background()
	employees := mock.NewEmployeeStore(
		database.Employee{EmpID: "E1", Name: "Alice", Role: "Engineer", Team: "Core"},
		database.Employee{EmpID: "E2", Name: "Bob", Role: "Designer", Team: "UX"},
	)
	store := mock.NewAttendanceStore(employees)

	updates := []struct {
		empID, date string
		update      database.AttendanceUpdate
	}{
		{"E1", "2025-03-10", database.AttendanceUpdate{EntryTime: ptr("09:00:00"), Status: ptr(database.StatusPresent)}},
		{"E2", "2025-03-10", database.AttendanceUpdate{EntryTime: ptr("09:30:00"), Status: ptr(database.StatusLate)}},
		{"E2", "2025-03-10", database.AttendanceUpdate{PermissionReason: ptr("dentist")}},
		{"E1", "2025-03-11", database.AttendanceUpdate{BreakIn: ptr("10:30:00"), BreakOut: ptr("10:50:00")}},
		{"E1", "2025-03-11", database.AttendanceUpdate{LunchIn: ptr("13:00:00"), LunchLate: ptr(true)}},
		{"E1", "2025-04-01", database.AttendanceUpdate{EntryTime: ptr("09:00:00")}},
	}
	for _, u := range updates {
		if err := store.RecordAttendance(ctx, u.empID, u.date, u.update); err != nil {
			t.Fatal(err)
		}
	}

	logged := time.Date(2025, 3, 10, 9, 30, 0, 0, time.Local)
	if err := store.LogAttendance(ctx, &database.AttendanceLogEntry{
		EmpID: "E2", Name: "Bob", Direction: database.DirectionIn, Status: "present", Late: true, LoggedAt: logged,
	}); err != nil {
		t.Fatal(err)
	}
	if err := store.LogPermission(ctx, &database.PermissionLogEntry{
		EmpID: "E2", Name: "Bob", Kind: database.PermissionKindPermission, Reason: "dentist", LoggedAt: logged,
	}); err != nil {
		t.Fatal(err)
	}
	return store
}

var march = Range{From: "2025-03-01", To: "2025-03-31"}

func TestBuild(t *testing.T) {
	store := seed(t)

	tests := []struct {
		kind      Kind
		wantCount int
		wantFirst string
	}{
		{KindSummary, 3, "E1"},
		{KindPermissions, 1, "E2"},
		{KindLate, 1, "E2"},
		{KindBreaks, 3, "E1"},
		{KindLunch, 3, "E1"},
		{KindAttendanceLog, 1, "E2"},
		{KindPermissionLog, 1, "E2"},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			rep, err := Build(context.Background(), store, tt.kind, march)
			if err != nil {
				t.Fatalf("Build() error: %v", err)
			}
			if rep.Count != tt.wantCount {
				t.Fatalf("Count = %d, want %d", rep.Count, tt.wantCount)
			}
			if len(rep.Rows) != tt.wantCount {
				t.Errorf("len(Rows) = %d, want %d", len(rep.Rows), tt.wantCount)
			}
			for _, row := range rep.Rows {
				if len(row) != len(rep.Columns) {
					t.Errorf("row has %d fields, header has %d", len(row), len(rep.Columns))
				}
			}
			if rep.Rows[0][0] != tt.wantFirst {
				t.Errorf("first row emp_id = %q, want %q", rep.Rows[0][0], tt.wantFirst)
			}
		})
	}
}

func TestBuild_LunchColumns(t *testing.T) {
	rep, err := Build(context.Background(), seed(t), KindLunch, Range{From: "2025-03-11", To: "2025-03-11"})
	if err != nil {
		t.Fatal(err)
	}
	rows := rep.Data.([]LunchRow)
	if len(rows) != 1 {
		t.Fatalf("got %d rows", len(rows))
	}
	if rows[0].In != "13:00:00" || !rows[0].Late || rows[0].Name != "Alice" {
		t.Errorf("lunch row = %+v", rows[0])
	}
}

func TestBuild_EmptyLogIsNotNull(t *testing.T) {
	store := mock.NewAttendanceStore(nil)
	rep, err := Build(context.Background(), store, KindPermissionLog, march)
	if err != nil {
		t.Fatal(err)
	}
	if rows, ok := rep.Data.([]database.PermissionLogEntry); !ok || rows == nil {
		t.Errorf("Data = %#v, want empty slice", rep.Data)
	}
}

func TestBuild_UnknownKind(t *testing.T) {
	if _, err := Build(context.Background(), mock.NewAttendanceStore(nil), "payroll", march); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestReportCSV(t *testing.T) {
	rep, err := Build(context.Background(), seed(t), KindLate, march)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := rep.WriteCSV(&buf); err != nil {
		t.Fatal(err)
	}
	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d CSV lines, want header + 1", len(records))
	}
	if strings.Join(records[0][:3], ",") != "emp_id,name,role" {
		t.Errorf("header = %v", records[0])
	}
	if records[1][1] != "Bob" || records[1][7] != "late" || records[1][8] != "dentist" {
		t.Errorf("row = %v", records[1])
	}
	if got := rep.Filename(); got != "late_2025-03-01_2025-03-31.csv" {
		t.Errorf("Filename() = %q", got)
	}
}

func TestWriteEmployeesCSV(t *testing.T) {
	var buf bytes.Buffer
	err := WriteEmployeesCSV(&buf, []database.Employee{
		{EmpID: "E1", Name: "Müller, Jan", Team: "Core", RegistrationDate: time.Date(2025, 1, 6, 8, 0, 0, 0, time.UTC)},
	})
	if err != nil {
		t.Fatal(err)
	}
	want := "emp_id,name,role,team,email,phone,registration_date\nE1,\"Müller, Jan\",,Core,,,2025-01-06\n"
	if buf.String() != want {
		t.Errorf("csv = %q, want %q", buf.String(), want)
	}
}

func TestParseKind(t *testing.T) {
	for _, k := range Kinds() {
		if got, err := ParseKind(string(k)); err != nil || got != k {
			t.Errorf("ParseKind(%q) = %q, %v", k, got, err)
		}
	}
	if _, err := ParseKind("Late Arrivals"); err == nil {
		t.Error("expected error for display name")
	}
}

func TestParseRange(t *testing.T) {
	now := time.Date(2025, 3, 31, 15, 0, 0, 0, time.Local)

	tests := []struct {
		name     string
		from, to string
		want     Range
		wantErr  bool
	}{
		{name: "defaults", want: Range{From: "2025-03-01", To: "2025-03-31"}},
		{name: "explicit", from: "2025-01-01", to: "2025-01-31", want: Range{From: "2025-01-01", To: "2025-01-31"}},
		{name: "only to", to: "2025-02-28", want: Range{From: "2025-01-29", To: "2025-02-28"}},
		{name: "single day", from: "2025-03-10", to: "2025-03-10", want: Range{From: "2025-03-10", To: "2025-03-10"}},
		{name: "reversed", from: "2025-03-10", to: "2025-03-01", wantErr: true},
		{name: "bad date", from: "10/03/2025", wantErr: true},
		{name: "too long", from: "2023-01-01", to: "2025-01-01", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRange(tt.from, tt.to, now)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseRange() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
