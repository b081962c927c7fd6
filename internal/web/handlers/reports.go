package handlers

import (
	"bytes"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-attendance/internal/report"
)

// ReportsHandler serves the report kinds as JSON or CSV
type ReportsHandler struct {
	source report.Source
	now    func() time.Time
}

// NewReportsHandler creates a new reports handler
func NewReportsHandler(source report.Source) *ReportsHandler {
	return &ReportsHandler{source: source, now: time.Now}
}

// Kinds lists the available reports
func (h *ReportsHandler) Kinds(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, report.Kinds())
}

// Get builds the report {kind} over ?from=&to=; ?format=csv downloads it
func (h *ReportsHandler) Get(w http.ResponseWriter, r *http.Request) {
	kind, err := report.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	q := r.URL.Query()
	rng, err := report.ParseRange(q.Get("from"), q.Get("to"), h.now())
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	rep, err := report.Build(r.Context(), h.source, kind, rng)
	if err != nil {
		respondStoreError(w, "report", err)
		return
	}

	switch q.Get("format") {
	case "", "json":
		respondJSON(w, http.StatusOK, rep)
	case "csv":
		var buf bytes.Buffer
		if err := rep.WriteCSV(&buf); err != nil {
			respondError(w, http.StatusInternalServerError, "failed to render csv")
			return
		}
		respondCSV(w, rep.Filename(), buf.Bytes())
	default:
		respondError(w, http.StatusBadRequest, "format must be json or csv")
	}
}
