package attendance

import (
	"strings"
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/config"
)

func TestParseClockTime(t *testing.T) {
	tests := []struct {
		in      string
		want    ClockTime
		wantErr bool
	}{
		{in: "09:10", want: ClockTime{9, 10, 0}},
		{in: "09:10:00", want: ClockTime{9, 10, 0}},
		{in: " 23:59:59 ", want: ClockTime{23, 59, 59}},
		{in: "00:00", want: ClockTime{}},
		{in: "24:00", wantErr: true},
		{in: "12:60", wantErr: true},
		{in: "12:00:60", wantErr: true},
		{in: "12", wantErr: true},
		{in: "1:2:3:4", wantErr: true},
		{in: "ab:cd", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseClockTime(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseClockTime(%q) expected error, got %v", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseClockTime(%q) unexpected error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseClockTime(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestWindowContains(t *testing.T) {
	w := Window{Start: ClockTime{10, 30, 0}, End: ClockTime{10, 59, 0}}

	if !w.Contains(ClockTime{10, 59, 59}) {
		t.Error("window end minute should be inclusive")
	}
	if w.Contains(ClockTime{10, 29, 59}) {
		t.Error("10:29:59 should be outside the window")
	}
	if got := w.String(); got != "10:30-10:59" {
		t.Errorf("String() = %q", got)
	}
}

func TestDefaultSchedule(t *testing.T) {
	s := DefaultSchedule()

	if s.OnTimeUntil != (ClockTime{9, 10, 0}) {
		t.Errorf("OnTimeUntil = %v", s.OnTimeUntil)
	}
	if s.DelayBaseHour != 9 {
		t.Errorf("DelayBaseHour = %d", s.DelayBaseHour)
	}
	if len(s.BreakWindows) != 2 {
		t.Errorf("len(BreakWindows) = %d, want 2", len(s.BreakWindows))
	}
	if len(s.PermissionWindows) != 3 {
		t.Errorf("len(PermissionWindows) = %d, want 3", len(s.PermissionWindows))
	}
	if s.CorrectionFrom != (ClockTime{20, 0, 0}) {
		t.Errorf("CorrectionFrom = %v", s.CorrectionFrom)
	}
	if s.CorrectionCooldown != time.Minute {
		t.Errorf("CorrectionCooldown = %v", s.CorrectionCooldown)
	}
}

func TestNewSchedule_Errors(t *testing.T) {
	valid := func() config.ScheduleConfig {
		return config.ScheduleConfig{
			Entry:        config.EntryRules{OnTimeUntil: "09:10", DelayBaseHour: 9},
			BreakWindows: []config.WindowSpec{{Name: "b", Start: "10:30", End: "10:59"}},
			Exit:         config.ExitRules{CorrectionFrom: "20:00"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*config.ScheduleConfig)
		wantErr string
	}{
		{"bad entry", func(c *config.ScheduleConfig) { c.Entry.OnTimeUntil = "nine" }, "on_time_until"},
		{"bad base hour", func(c *config.ScheduleConfig) { c.Entry.DelayBaseHour = 25 }, "delay_base_hour"},
		{"bad window", func(c *config.ScheduleConfig) { c.BreakWindows[0].End = "x" }, "break_windows[0].end"},
		{"reversed window", func(c *config.ScheduleConfig) { c.BreakWindows[0].End = "10:00" }, "before start"},
		{"bad correction", func(c *config.ScheduleConfig) { c.Exit.CorrectionFrom = "" }, "correction_from"},
		{"negative cooldown", func(c *config.ScheduleConfig) { c.Exit.CorrectionCooldown = -time.Second }, "cooldown"},
	}

	if _, err := NewSchedule(valid()); err != nil {
		t.Fatalf("valid schedule rejected: %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			_, err := NewSchedule(cfg)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}
