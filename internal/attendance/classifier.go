package attendance

import (
	"fmt"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// SpokenTimeLayout is how times are read out to employees, e.g. "09:05 AM".
const SpokenTimeLayout = "03:04 PM"

// EntryDecision is the outcome of an entry-camera sighting.
type EntryDecision struct {
	Status       database.AttendanceStatus
	Late         bool
	DelayMinutes int
	Message      string
}

// LedgerStatus is the status written to the attendance table. A late entry is
// stored as late so reports can find it; the decision itself stays present.
func (d EntryDecision) LedgerStatus() database.AttendanceStatus {
	if d.Late {
		return database.StatusLate
	}
	return d.Status
}

// ExitKind tells what an exit-camera sighting does.
type ExitKind int

const (
	// ExitLogout logs the employee out.
	ExitLogout ExitKind = iota
	// ExitPermission asks the employee for a reason before letting them go.
	ExitPermission
	// ExitCorrection overwrites the exit time without a new log line.
	ExitCorrection
)

func (k ExitKind) String() string {
	switch k {
	case ExitLogout:
		return "logout"
	case ExitPermission:
		return "permission"
	case ExitCorrection:
		return "correction"
	}
	return fmt.Sprintf("ExitKind(%d)", int(k))
}

// ExitDecision is the outcome of an exit-camera sighting.
type ExitDecision struct {
	Kind    ExitKind
	Message string
}

// Classifier maps wall-clock time to attendance decisions. It is pure: all per-run
// memory lives in RunState.
type Classifier struct {
	schedule *Schedule
}

// NewClassifier creates a classifier over s. A nil schedule uses the embedded default.
func NewClassifier(s *Schedule) *Classifier {
	if s == nil {
		s = DefaultSchedule()
	}
	return &Classifier{schedule: s}
}

// Schedule returns the schedule the classifier uses.
func (c *Classifier) Schedule() *Schedule {
	return c.schedule
}

// ClassifyEntry decides whether an entry at now is on time or late.
func (c *Classifier) ClassifyEntry(name string, now time.Time) EntryDecision {
	clock := ClockOf(now)
	if clock.Seconds() <= c.schedule.OnTimeUntil.Seconds() {
		return EntryDecision{
			Status:  database.StatusPresent,
			Message: fmt.Sprintf("%s, Good morning. Marked present at %s", name, now.Format(SpokenTimeLayout)),
		}
	}

	delay := (clock.Hour-c.schedule.DelayBaseHour)*60 + clock.Minute
	return EntryDecision{
		Status:       database.StatusPresent,
		Late:         true,
		DelayMinutes: delay,
		Message:      fmt.Sprintf("%s, you are late by %d minutes", name, delay),
	}
}

// IsBreakTime reports whether now falls inside a break window.
func (c *Classifier) IsBreakTime(now time.Time) bool {
	return inAny(c.schedule.BreakWindows, ClockOf(now))
}

// InPermissionWindow reports whether leaving at now needs a reason.
func (c *Classifier) InPermissionWindow(now time.Time) bool {
	return inAny(c.schedule.PermissionWindows, ClockOf(now))
}

// IsCorrectionTime reports whether now is at or past the exit correction cutoff.
func (c *Classifier) IsCorrectionTime(now time.Time) bool {
	return ClockOf(now).Seconds() >= c.schedule.CorrectionFrom.Seconds()
}

// ClassifyExit decides what an exit at now does. Correction wins over every window.
func (c *Classifier) ClassifyExit(name string, now time.Time) ExitDecision {
	at := now.Format(SpokenTimeLayout)
	switch {
	case c.IsCorrectionTime(now):
		return ExitDecision{Kind: ExitCorrection, Message: fmt.Sprintf("Updated exit time for %s to %s", name, at)}
	case c.InPermissionWindow(now):
		return ExitDecision{Kind: ExitPermission, Message: fmt.Sprintf("%s, you're leaving during permission hours.", name)}
	default:
		return c.Logout(name, now)
	}
}

// Logout is the plain logout decision, used when a permission was already taken today.
func (c *Classifier) Logout(name string, now time.Time) ExitDecision {
	return ExitDecision{Kind: ExitLogout, Message: fmt.Sprintf("Goodbye %s, logged out at %s", name, now.Format(SpokenTimeLayout))}
}

func inAny(windows []Window, clock ClockTime) bool {
	for _, w := range windows {
		if w.Contains(clock) {
			return true
		}
	}
	return false
}

// Spoken feedback that does not depend on the employee.
const (
	ReasonPrompt       = "Please state your reason."
	PermissionRecorded = "Permission recorded."
	BreakRecorded      = "Break recorded."
	BreakHint          = "Press R for Break"
	PermissionHint     = "Press P for Permission"
	exitLabelSuffix    = " - OUT"
)

// ExitLabel is the overlay label drawn over a face seen by the exit camera.
func ExitLabel(name string) string {
	return name + exitLabelSuffix
}
