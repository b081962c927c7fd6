package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/database"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondStoreError maps repository errors to status codes. Anything unexpected is
// logged and reported as a 500 with a generic message.
func respondStoreError(w http.ResponseWriter, what string, err error) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		respondError(w, http.StatusNotFound, what+" not found")
	case errors.Is(err, database.ErrDuplicate):
		respondError(w, http.StatusConflict, what+" already exists")
	case errors.Is(err, database.ErrUnknownEmployee):
		respondError(w, http.StatusNotFound, "employee not found")
	default:
		log.Printf("%s: %v", what, err)
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

// decodeJSON decodes the request body into dst, rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// respondCSV sends a rendered CSV file as a download.
func respondCSV(w http.ResponseWriter, filename string, data []byte) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// normalizeClock validates an HH:MM[:SS] time and returns it as HH:MM:SS.
func normalizeClock(field string, value *string) error {
	if value == nil || *value == "" {
		return nil
	}
	clock, err := attendance.ParseClockTime(*value)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	*value = clock.String()
	return nil
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
