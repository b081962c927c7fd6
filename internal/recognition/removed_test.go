package recognition

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/database/sqlite"
	"github.com/kozaktomas/face-attendance/internal/facematch"
)

// newSQLiteLoop runs the loop against a real ledger in which Alice (E1) was
// deleted after the corpus had been loaded.
func newSQLiteLoop(t *testing.T, dir database.Direction, at time.Time) (*Loop, *sqlite.AttendanceRepository, *fakeSpeaker) {
	t.Helper()
	ctx := context.Background()

	pool, err := sqlite.Open(ctx, &config.DatabaseConfig{
		Path:         filepath.Join(t.TempDir(), "attendance.db"),
		BusyTimeout:  5 * time.Second,
		MaxOpenConns: 4,
	})
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	employees := sqlite.NewEmployeeRepository(pool)
	for _, e := range []database.Employee{{EmpID: "E1", Name: "Alice"}, {EmpID: "E2", Name: "Bob"}} {
		if err := employees.UpsertEmployee(ctx, &e); err != nil {
			t.Fatalf("UpsertEmployee(%s): %v", e.EmpID, err)
		}
	}
	if err := employees.DeleteEmployee(ctx, "E1"); err != nil {
		t.Fatalf("DeleteEmployee(E1): %v", err)
	}

	matcher, err := facematch.NewMatcher("distance", 0.45)
	if err != nil {
		t.Fatal(err)
	}
	store := sqlite.NewAttendanceRepository(pool)
	speaker := &fakeSpeaker{}
	loop, err := New(Options{
		Direction: dir,
		Corpus:    testCorpus,
		Matcher:   matcher,
		Analyzer:  &fakeAnalyzer{faces: frames},
		Store:     store,
		Speaker:   speaker,
		Listener:  &fakeListener{reply: "dentist"},
		Now:       func() time.Time { return at },
	})
	if err != nil {
		t.Fatal(err)
	}
	return loop, store, speaker
}

func assertUnknown(t *testing.T, overlays []Overlay) {
	t.Helper()
	if len(overlays) != 1 {
		t.Fatalf("expected 1 overlay, got %d", len(overlays))
	}
	if overlays[0].Matched || overlays[0].Label != constants.UnknownLabel {
		t.Errorf("overlay = %+v, want unmatched %q", overlays[0], constants.UnknownLabel)
	}
}

func TestProcessFrame_RemovedEmployee(t *testing.T) {
	tests := []struct {
		name string
		dir  database.Direction
		at   time.Time
	}{
		{"entry", database.DirectionIn, day(9, 0, 0)},
		{"logout", database.DirectionOut, day(12, 0, 0)},
		{"permission window", database.DirectionOut, day(14, 30, 0)},
		{"exit correction", database.DirectionOut, day(20, 30, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			loop, store, _ := newSQLiteLoop(t, tt.dir, tt.at)
			date := tt.at.Format(constants.DateLayout)

			for i := 0; i < 2; i++ {
				overlays, err := loop.ProcessFrame(ctx, []byte("alice"))
				if err != nil {
					t.Fatalf("ProcessFrame(alice) #%d: %v", i+1, err)
				}
				assertUnknown(t, overlays)
			}

			if _, err := store.GetAttendance(ctx, "E1", date); !errors.Is(err, database.ErrNotFound) {
				t.Errorf("GetAttendance(E1) error = %v, want ErrNotFound", err)
			}
			logs, err := store.ListAttendanceLog(ctx, date, date)
			if err != nil {
				t.Fatal(err)
			}
			if len(logs) != 0 {
				t.Errorf("attendance log = %+v, want empty", logs)
			}
			perms, err := store.ListPermissionLog(ctx, date, date)
			if err != nil {
				t.Fatal(err)
			}
			if len(perms) != 0 {
				t.Errorf("permission log = %+v, want empty", perms)
			}
		})
	}
}

func TestProcessFrame_RemovedEmployeeKeepsOthers(t *testing.T) {
	ctx := context.Background()
	loop, store, speaker := newSQLiteLoop(t, database.DirectionIn, day(9, 0, 0))

	assertUnknown(t, mustProcess(t, loop, "alice"))
	if len(speaker.said) != 0 {
		t.Errorf("removed employee was greeted: %v", speaker.said)
	}

	overlays := mustProcess(t, loop, "bob")
	if len(overlays) != 1 || overlays[0].Label != "Bob" {
		t.Fatalf("overlays = %+v, want Bob", overlays)
	}
	rec, err := store.GetAttendance(ctx, "E2", day(9, 0, 0).Format(constants.DateLayout))
	if err != nil {
		t.Fatalf("GetAttendance(E2): %v", err)
	}
	if rec.EntryTime != "09:00:00" {
		t.Errorf("EntryTime = %q, want 09:00:00", rec.EntryTime)
	}
}

func TestRun_RemovedEmployeeDoesNotStopLoop(t *testing.T) {
	loop, store, _ := newSQLiteLoop(t, database.DirectionIn, day(9, 0, 0))
	source := &sliceSource{frames: []string{"alice", "bob", "alice"}}

	if err := loop.Run(context.Background(), source, nil); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	date := day(9, 0, 0).Format(constants.DateLayout)
	if _, err := store.GetAttendance(context.Background(), "E2", date); err != nil {
		t.Errorf("Bob after the removed face was not recorded: %v", err)
	}
}

func mustProcess(t *testing.T, loop *Loop, frame string) []Overlay {
	t.Helper()
	overlays, err := loop.ProcessFrame(context.Background(), []byte(frame))
	if err != nil {
		t.Fatalf("ProcessFrame(%s): %v", frame, err)
	}
	return overlays
}
