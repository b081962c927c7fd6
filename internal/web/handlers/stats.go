package handlers

import (
	"net/http"
	"sync"
	"time"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
)

// statsCache holds cached stats with expiry
type statsCache struct {
	mu        sync.RWMutex
	data      *StatsResponse
	expiresAt time.Time
}

func (c *statsCache) get(now time.Time) (*StatsResponse, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.data == nil || now.After(c.expiresAt) {
		return nil, false
	}
	return c.data, true
}

func (c *statsCache) set(data *StatsResponse, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = data
	c.expiresAt = now.Add(constants.StatsCacheTTL)
}

func (c *statsCache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = nil
}

// StatsHandler serves the dashboard overview counters
type StatsHandler struct {
	employees database.EmployeeReader
	store     database.AttendanceStore
	now       func() time.Time
	cache     statsCache
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(employees database.EmployeeReader, store database.AttendanceStore) *StatsHandler {
	return &StatsHandler{employees: employees, store: store, now: time.Now}
}

// InvalidateCache clears the cached stats so the next request reads fresh data
func (h *StatsHandler) InvalidateCache() {
	h.cache.invalidate()
}

// StatsResponse represents the statistics of the current day
type StatsResponse struct {
	Date           string `json:"date"`
	TotalEmployees int    `json:"total_employees"`
	PresentToday   int    `json:"present_today"`
	LateToday      int    `json:"late_today"`
	OnLeave        int    `json:"on_leave"`
	Absent         int    `json:"absent"`
	LoggedOut      int    `json:"logged_out"`
	Permissions    int    `json:"permissions"`
	Breaks         int    `json:"breaks"`
}

// Get returns today's counters
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	if cached, ok := h.cache.get(now); ok {
		respondJSON(w, http.StatusOK, cached)
		return
	}

	ctx := r.Context()
	date := now.Format(constants.DateLayout)

	total, err := h.employees.CountEmployees(ctx)
	if err != nil {
		respondStoreError(w, "stats", err)
		return
	}
	rows, err := h.store.ListAttendance(ctx, date, date)
	if err != nil {
		respondStoreError(w, "stats", err)
		return
	}
	perms, err := h.store.ListPermissionLog(ctx, date, date)
	if err != nil {
		respondStoreError(w, "stats", err)
		return
	}

	stats := &StatsResponse{Date: date, TotalEmployees: total}
	for _, row := range rows {
		switch row.Status {
		case database.StatusLeave:
			stats.OnLeave++
		case database.StatusAbsent:
			stats.Absent++
		case database.StatusLate:
			stats.LateToday++
			stats.PresentToday++
		default:
			if row.EntryTime != "" || row.Status != "" {
				stats.PresentToday++
			}
		}
		if row.ExitTime != "" {
			stats.LoggedOut++
		}
	}
	for _, p := range perms {
		if p.Kind == database.PermissionKindBreak {
			stats.Breaks++
		} else {
			stats.Permissions++
		}
	}

	h.cache.set(stats, now)
	respondJSON(w, http.StatusOK, stats)
}
