package attendance

import (
	"sync"
	"time"

	"github.com/kozaktomas/face-attendance/internal/constants"
)

// RunState is the memory of one recognition process: who has already been
// greeted or logged out today, who has already recorded a break or permission,
// and when each employee's exit time was last corrected. It starts empty on
// every process start and clears itself when the calendar day changes.
type RunState struct {
	mu               sync.Mutex
	day              string
	seen             map[string]time.Time
	permissionLogged map[string]bool
	lastCorrection   map[string]time.Time
}

// NewRunState returns an empty state.
func NewRunState() *RunState {
	return &RunState{
		seen:             make(map[string]time.Time),
		permissionLogged: make(map[string]bool),
		lastCorrection:   make(map[string]time.Time),
	}
}

// rollover must be called with mu held.
func (s *RunState) rollover(now time.Time) {
	day := now.Format(constants.DateLayout)
	if day == s.day {
		return
	}
	s.day = day
	clear(s.seen)
	clear(s.permissionLogged)
	clear(s.lastCorrection)
}

// MarkSeen records a sighting and reports whether it is the first one today.
func (s *RunState) MarkSeen(empID string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rollover(now)
	if _, ok := s.seen[empID]; ok {
		return false
	}
	s.seen[empID] = now
	return true
}

// Seen reports whether empID was already sighted today.
func (s *RunState) Seen(empID string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rollover(now)
	_, ok := s.seen[empID]
	return ok
}

// PermissionLogged reports whether a break or permission was already captured today.
func (s *RunState) PermissionLogged(empID string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rollover(now)
	return s.permissionLogged[empID]
}

// MarkPermissionLogged records a break or permission capture.
func (s *RunState) MarkPermissionLogged(empID string, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rollover(now)
	s.permissionLogged[empID] = true
}

// AllowCorrection reports whether an exit correction may be written now and,
// if so, starts the cooldown.
func (s *RunState) AllowCorrection(empID string, now time.Time, cooldown time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rollover(now)
	if last, ok := s.lastCorrection[empID]; ok && now.Sub(last) < cooldown {
		return false
	}
	s.lastCorrection[empID] = now
	return true
}

// SeenCount returns how many employees were sighted today.
func (s *RunState) SeenCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}
