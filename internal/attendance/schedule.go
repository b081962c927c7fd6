// Package attendance decides what a recognised face means at a given time of day:
// an on-time or late entry, a break, a permission exit, a logout or an exit correction.
package attendance

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kozaktomas/face-attendance/internal/config"
)

// ClockTime is a time of day with second precision.
type ClockTime struct {
	Hour, Minute, Second int
}

// ParseClockTime parses "HH:MM" or "HH:MM:SS".
func ParseClockTime(s string) (ClockTime, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return ClockTime{}, fmt.Errorf("invalid clock time %q", s)
	}

	limits := []int{23, 59, 59}
	values := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > limits[i] {
			return ClockTime{}, fmt.Errorf("invalid clock time %q", s)
		}
		values[i] = n
	}
	return ClockTime{Hour: values[0], Minute: values[1], Second: values[2]}, nil
}

// ClockOf returns the time of day of t in its own location.
func ClockOf(t time.Time) ClockTime {
	return ClockTime{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second()}
}

// Seconds returns the number of seconds since midnight.
func (c ClockTime) Seconds() int {
	return c.Hour*3600 + c.Minute*60 + c.Second
}

func (c ClockTime) minutes() int {
	return c.Hour*60 + c.Minute
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", c.Hour, c.Minute, c.Second)
}

// Window is an inclusive range of minutes within a day, e.g. 10:30-10:59
// contains every second from 10:30:00 through 10:59:59.
type Window struct {
	Name       string
	Start, End ClockTime
}

// Contains reports whether c falls inside the window at minute granularity.
func (w Window) Contains(c ClockTime) bool {
	m := c.minutes()
	return m >= w.Start.minutes() && m <= w.End.minutes()
}

func (w Window) String() string {
	return fmt.Sprintf("%02d:%02d-%02d:%02d", w.Start.Hour, w.Start.Minute, w.End.Hour, w.End.Minute)
}

// Schedule holds the cutoffs the classifier works with.
type Schedule struct {
	OnTimeUntil        ClockTime
	DelayBaseHour      int
	BreakWindows       []Window
	PermissionWindows  []Window
	CorrectionFrom     ClockTime
	CorrectionCooldown time.Duration
}

// NewSchedule validates a schedule read from configuration.
func NewSchedule(cfg config.ScheduleConfig) (*Schedule, error) {
	onTime, err := ParseClockTime(cfg.Entry.OnTimeUntil)
	if err != nil {
		return nil, fmt.Errorf("entry.on_time_until: %w", err)
	}
	if cfg.Entry.DelayBaseHour < 0 || cfg.Entry.DelayBaseHour > 23 {
		return nil, fmt.Errorf("entry.delay_base_hour out of range: %d", cfg.Entry.DelayBaseHour)
	}

	breaks, err := parseWindows("break_windows", cfg.BreakWindows)
	if err != nil {
		return nil, err
	}
	permissions, err := parseWindows("permission_windows", cfg.PermissionWindows)
	if err != nil {
		return nil, err
	}

	correction, err := ParseClockTime(cfg.Exit.CorrectionFrom)
	if err != nil {
		return nil, fmt.Errorf("exit.correction_from: %w", err)
	}
	if cfg.Exit.CorrectionCooldown < 0 {
		return nil, fmt.Errorf("exit.correction_cooldown must not be negative")
	}

	return &Schedule{
		OnTimeUntil:        onTime,
		DelayBaseHour:      cfg.Entry.DelayBaseHour,
		BreakWindows:       breaks,
		PermissionWindows:  permissions,
		CorrectionFrom:     correction,
		CorrectionCooldown: cfg.Exit.CorrectionCooldown,
	}, nil
}

// DefaultSchedule returns the schedule embedded in the binary.
func DefaultSchedule() *Schedule {
	cfg, err := config.LoadSchedule("")
	if err != nil {
		panic("embedded schedule: " + err.Error())
	}
	s, err := NewSchedule(cfg)
	if err != nil {
		panic("embedded schedule: " + err.Error())
	}
	return s
}

func parseWindows(field string, specs []config.WindowSpec) ([]Window, error) {
	windows := make([]Window, 0, len(specs))
	for i, spec := range specs {
		start, err := ParseClockTime(spec.Start)
		if err != nil {
			return nil, fmt.Errorf("%s[%d].start: %w", field, i, err)
		}
		end, err := ParseClockTime(spec.End)
		if err != nil {
			return nil, fmt.Errorf("%s[%d].end: %w", field, i, err)
		}
		if end.minutes() < start.minutes() {
			return nil, fmt.Errorf("%s[%d]: end %s before start %s", field, i, end, start)
		}
		windows = append(windows, Window{Name: spec.Name, Start: start, End: end})
	}
	return windows, nil
}
