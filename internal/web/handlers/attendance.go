package handlers

import (
	"bytes"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/report"
	"github.com/kozaktomas/face-attendance/internal/web/middleware"
)

// AttendanceHandler serves the ledger and manual marking
type AttendanceHandler struct {
	ledger    database.Ledger
	employees database.EmployeeReader
	now       func() time.Time
	onChange  func()
}

// NewAttendanceHandler creates a new attendance handler. onChange, when set, runs after
// every successful write so cached stats can be dropped.
func NewAttendanceHandler(ledger database.Ledger, employees database.EmployeeReader, onChange func()) *AttendanceHandler {
	return &AttendanceHandler{ledger: ledger, employees: employees, now: time.Now, onChange: onChange}
}

func (h *AttendanceHandler) changed() {
	if h.onChange != nil {
		h.onChange()
	}
}

// List returns ledger rows for ?from=&to=, optionally narrowed by ?emp_id= and ?status=
func (h *AttendanceHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rng, err := report.ParseRange(q.Get("from"), q.Get("to"), h.now())
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	rows, err := h.ledger.ListAttendance(r.Context(), rng.From, rng.To)
	if err != nil {
		respondStoreError(w, "attendance", err)
		return
	}

	empID, status := q.Get("emp_id"), database.AttendanceStatus(q.Get("status"))
	out := make([]database.AttendanceRow, 0, len(rows))
	for _, row := range rows {
		if empID != "" && row.EmpID != empID {
			continue
		}
		if status != "" && row.Status != status {
			continue
		}
		out = append(out, row)
	}
	respondJSON(w, http.StatusOK, out)
}

// TodayResponse is the attendance of the current day
type TodayResponse struct {
	Date    string                   `json:"date"`
	Records []database.AttendanceRow `json:"records"`
	Missing []database.Employee      `json:"missing"`
}

// Today returns today's rows and the employees that have none yet
func (h *AttendanceHandler) Today(w http.ResponseWriter, r *http.Request) {
	date := h.now().Format(constants.DateLayout)
	rows, err := h.ledger.ListAttendance(r.Context(), date, date)
	if err != nil {
		respondStoreError(w, "attendance", err)
		return
	}
	employees, err := h.employees.ListEmployees(r.Context())
	if err != nil {
		respondStoreError(w, "employees", err)
		return
	}

	seen := make(map[string]bool, len(rows))
	for _, row := range rows {
		seen[row.EmpID] = true
	}
	resp := TodayResponse{Date: date, Records: rows, Missing: []database.Employee{}}
	if resp.Records == nil {
		resp.Records = []database.AttendanceRow{}
	}
	for _, e := range employees {
		if !seen[e.EmpID] {
			resp.Missing = append(resp.Missing, e)
		}
	}
	respondJSON(w, http.StatusOK, resp)
}

func validDate(s string) bool {
	_, err := time.Parse(constants.DateLayout, s)
	return err == nil
}

// validateUpdate checks status and normalizes every supplied time to HH:MM:SS
func validateUpdate(u *database.AttendanceUpdate) string {
	if u.Status != nil && !u.Status.Valid() {
		return "invalid status " + string(*u.Status)
	}
	fields := []struct {
		name  string
		value *string
	}{
		{"entry_time", u.EntryTime}, {"exit_time", u.ExitTime},
		{"break_in", u.BreakIn}, {"break_out", u.BreakOut},
		{"lunch_in", u.LunchIn}, {"lunch_out", u.LunchOut},
	}
	for _, f := range fields {
		if err := normalizeClock(f.name, f.value); err != nil {
			return err.Error()
		}
	}
	return ""
}

// Mark merges the supplied fields into the row of {id} on {date}, creating it if needed
func (h *AttendanceHandler) Mark(w http.ResponseWriter, r *http.Request) {
	empID, date := chi.URLParam(r, "id"), chi.URLParam(r, "date")
	if !validDate(date) {
		respondError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	var update database.AttendanceUpdate
	if err := decodeJSON(r, &update); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if update.IsEmpty() {
		respondError(w, http.StatusBadRequest, "no fields supplied")
		return
	}
	if msg := validateUpdate(&update); msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}

	if _, err := h.employees.GetEmployee(r.Context(), empID); err != nil {
		respondStoreError(w, "employee", err)
		return
	}
	if err := h.ledger.RecordAttendance(r.Context(), empID, date, update); err != nil {
		respondStoreError(w, "attendance", err)
		return
	}
	h.changed()

	rec, err := h.ledger.GetAttendance(r.Context(), empID, date)
	if err != nil {
		respondStoreError(w, "attendance", err)
		return
	}
	log.Printf("Attendance of %s on %s marked by %s", sanitizeForLog(empID), date, actor(r))
	respondJSON(w, http.StatusOK, rec)
}

// Create inserts a full row and answers 409 when the employee already has one that day
func (h *AttendanceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EmpID string `json:"emp_id"`
		Date  string `json:"date"`
		database.AttendanceUpdate
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.EmpID == "" || !validDate(req.Date) {
		respondError(w, http.StatusBadRequest, "emp_id and a YYYY-MM-DD date are required")
		return
	}
	if msg := validateUpdate(&req.AttendanceUpdate); msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}
	if _, err := h.employees.GetEmployee(r.Context(), req.EmpID); err != nil {
		respondStoreError(w, "employee", err)
		return
	}

	rec := &database.AttendanceRecord{EmpID: req.EmpID, Date: req.Date, Status: database.StatusPresent}
	req.AttendanceUpdate.Apply(rec)
	if err := h.ledger.InsertAttendance(r.Context(), rec); err != nil {
		respondStoreError(w, "attendance", err)
		return
	}
	h.changed()
	log.Printf("Attendance of %s on %s created by %s", sanitizeForLog(rec.EmpID), rec.Date, actor(r))
	respondJSON(w, http.StatusCreated, rec)
}

// Delete removes the row of {id} on {date}
func (h *AttendanceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	empID, date := chi.URLParam(r, "id"), chi.URLParam(r, "date")
	if err := h.ledger.DeleteAttendance(r.Context(), empID, date); err != nil {
		respondStoreError(w, "attendance", err)
		return
	}
	h.changed()
	respondJSON(w, http.StatusOK, map[string]string{"deleted": empID, "date": date})
}

// Export downloads the ledger rows of a range as CSV
func (h *AttendanceHandler) Export(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rng, err := report.ParseRange(q.Get("from"), q.Get("to"), h.now())
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	rows, err := h.ledger.ListAttendance(r.Context(), rng.From, rng.To)
	if err != nil {
		respondStoreError(w, "attendance", err)
		return
	}

	var buf bytes.Buffer
	if err := report.WriteAttendanceCSV(&buf, rows); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to render csv")
		return
	}
	respondCSV(w, "attendance_"+rng.From+"_"+rng.To+".csv", buf.Bytes())
}

func actor(r *http.Request) string {
	if s := middleware.GetSessionFromContext(r.Context()); s != nil {
		return sanitizeForLog(s.Username)
	}
	return "anonymous"
}
