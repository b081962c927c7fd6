package handlers

import (
	"bytes"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/imaging"
	"github.com/kozaktomas/face-attendance/internal/report"
)

// EmployeesHandler handles the employee directory
type EmployeesHandler struct {
	employees database.EmployeeWriter
	corpus    *database.Corpus
	now       func() time.Time
}

// NewEmployeesHandler creates a new employees handler. When corpus is set, deleting an
// employee also drops their face samples so recognition stops matching them.
func NewEmployeesHandler(employees database.EmployeeWriter, corpus *database.Corpus) *EmployeesHandler {
	return &EmployeesHandler{employees: employees, corpus: corpus, now: time.Now}
}

// EmployeeResponse is an employee as served by the API
type EmployeeResponse struct {
	database.Employee
	HasPhoto bool `json:"has_photo"`
}

func toEmployeeResponse(e database.Employee) EmployeeResponse {
	return EmployeeResponse{Employee: e, HasPhoto: len(e.ProfileImage) > 0}
}

type employeeRequest struct {
	EmpID string `json:"emp_id"`
	Name  string `json:"name"`
	Role  string `json:"role"`
	Team  string `json:"team"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

func (req *employeeRequest) normalize() string {
	req.EmpID = strings.TrimSpace(req.EmpID)
	req.Name = strings.TrimSpace(req.Name)
	req.Role = strings.TrimSpace(req.Role)
	req.Team = strings.TrimSpace(req.Team)
	req.Email = strings.TrimSpace(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)

	switch {
	case req.EmpID == "":
		return "emp_id is required"
	case strings.ContainsAny(req.EmpID, `/\`) || req.EmpID == "." || req.EmpID == "..":
		return "emp_id must not contain path separators"
	case req.Name == "":
		return "name is required"
	case req.Email != "" && !strings.Contains(req.Email, "@"):
		return "email is not valid"
	}
	return ""
}

// List returns employees, optionally filtered by ?q= (diacritic- and case-insensitive)
func (h *EmployeesHandler) List(w http.ResponseWriter, r *http.Request) {
	employees, err := h.employees.ListEmployees(r.Context())
	if err != nil {
		respondStoreError(w, "employees", err)
		return
	}

	query := r.URL.Query().Get("q")
	out := make([]EmployeeResponse, 0, len(employees))
	for _, e := range employees {
		if facematch.MatchesQuery(query, e.EmpID, e.Name, e.Role, e.Team) {
			out = append(out, toEmployeeResponse(e))
		}
	}
	respondJSON(w, http.StatusOK, out)
}

// Get returns one employee
func (h *EmployeesHandler) Get(w http.ResponseWriter, r *http.Request) {
	e, err := h.employees.GetEmployee(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondStoreError(w, "employee", err)
		return
	}
	respondJSON(w, http.StatusOK, toEmployeeResponse(*e))
}

// Create adds an employee and answers 409 when the ID is taken
func (h *EmployeesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req employeeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if msg := req.normalize(); msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}

	e := &database.Employee{
		EmpID:            req.EmpID,
		Name:             req.Name,
		Role:             req.Role,
		Team:             req.Team,
		Email:            req.Email,
		Phone:            req.Phone,
		RegistrationDate: h.now(),
	}
	if err := h.employees.CreateEmployee(r.Context(), e); err != nil {
		respondStoreError(w, "employee", err)
		return
	}
	log.Printf("Employee %s created", sanitizeForLog(e.EmpID))
	respondJSON(w, http.StatusCreated, toEmployeeResponse(*e))
}

// Update overwrites the contact data of an employee
func (h *EmployeesHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req employeeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	req.EmpID = chi.URLParam(r, "id")
	if msg := req.normalize(); msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}

	e := &database.Employee{
		EmpID: req.EmpID,
		Name:  req.Name,
		Role:  req.Role,
		Team:  req.Team,
		Email: req.Email,
		Phone: req.Phone,
	}
	if err := h.employees.UpdateEmployee(r.Context(), e); err != nil {
		respondStoreError(w, "employee", err)
		return
	}
	updated, err := h.employees.GetEmployee(r.Context(), e.EmpID)
	if err != nil {
		respondStoreError(w, "employee", err)
		return
	}
	respondJSON(w, http.StatusOK, toEmployeeResponse(*updated))
}

// Delete removes an employee, their attendance rows and their face samples
func (h *EmployeesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	empID := chi.URLParam(r, "id")
	if err := h.employees.DeleteEmployee(r.Context(), empID); err != nil {
		respondStoreError(w, "employee", err)
		return
	}

	removed := 0
	if h.corpus != nil {
		n, err := h.corpus.Remove(empID)
		if err != nil {
			log.Printf("Removing samples of %s from corpus failed: %v", sanitizeForLog(empID), err)
			respondError(w, http.StatusInternalServerError, "employee deleted but corpus update failed")
			return
		}
		removed = n
	}
	log.Printf("Employee %s deleted with %d corpus records", sanitizeForLog(empID), removed)
	respondJSON(w, http.StatusOK, map[string]any{"deleted": empID, "corpus_records_removed": removed})
}

// Photo serves the stored profile thumbnail
func (h *EmployeesHandler) Photo(w http.ResponseWriter, r *http.Request) {
	e, err := h.employees.GetEmployee(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondStoreError(w, "employee", err)
		return
	}
	if len(e.ProfileImage) == 0 {
		respondError(w, http.StatusNotFound, "employee has no photo")
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.Write(e.ProfileImage)
}

// UploadPhoto replaces the profile thumbnail with an uploaded image
func (h *EmployeesHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	empID := chi.URLParam(r, "id")

	var data []byte
	var err error
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err = r.ParseMultipartForm(constants.MaxProfileImageBytes); err != nil {
			respondError(w, http.StatusBadRequest, "invalid multipart form")
			return
		}
		file, _, ferr := r.FormFile("photo")
		if ferr != nil {
			respondError(w, http.StatusBadRequest, "photo field is required")
			return
		}
		defer file.Close()
		data, err = io.ReadAll(io.LimitReader(file, constants.MaxProfileImageBytes+1))
	} else {
		data, err = io.ReadAll(io.LimitReader(r.Body, constants.MaxProfileImageBytes+1))
	}
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read image")
		return
	}
	if len(data) > constants.MaxProfileImageBytes {
		respondError(w, http.StatusRequestEntityTooLarge, "image is too large")
		return
	}

	thumb, err := imaging.Thumbnail(data, nil, constants.ProfileThumbnailSize)
	if err != nil {
		respondError(w, http.StatusBadRequest, "unsupported image")
		return
	}
	if err := h.employees.SetProfileImage(r.Context(), empID, thumb); err != nil {
		respondStoreError(w, "employee", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"emp_id": empID, "bytes": len(thumb)})
}

// Export downloads the directory as CSV
func (h *EmployeesHandler) Export(w http.ResponseWriter, r *http.Request) {
	employees, err := h.employees.ListEmployees(r.Context())
	if err != nil {
		respondStoreError(w, "employees", err)
		return
	}
	var buf bytes.Buffer
	if err := report.WriteEmployeesCSV(&buf, employees); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to render csv")
		return
	}
	respondCSV(w, "employees.csv", buf.Bytes())
}
