package handlers

import (
	"net/http"
	"strconv"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/facematch"
)

// CorpusHandler exposes the embedding corpus read-only
type CorpusHandler struct {
	corpus  *database.Corpus
	matcher *facematch.Matcher
}

// NewCorpusHandler creates a new corpus handler
func NewCorpusHandler(corpus *database.Corpus, matcher *facematch.Matcher) *CorpusHandler {
	return &CorpusHandler{corpus: corpus, matcher: matcher}
}

// CorpusResponse summarizes the corpus per employee
type CorpusResponse struct {
	Path      string                   `json:"path"`
	Records   int                      `json:"records"`
	Employees []database.CorpusSummary `json:"employees"`
}

// Summary returns the samples per employee in match priority order
func (h *CorpusHandler) Summary(w http.ResponseWriter, r *http.Request) {
	records, err := h.corpus.Load()
	if err != nil {
		respondStoreError(w, "corpus", err)
		return
	}
	summary := database.Summarize(records)
	if summary == nil {
		summary = []database.CorpusSummary{}
	}
	respondJSON(w, http.StatusOK, CorpusResponse{
		Path:      h.corpus.Path(),
		Records:   len(records),
		Employees: summary,
	})
}

// AuditResponse lists records recognition may attribute to the wrong employee
type AuditResponse struct {
	Records   int                 `json:"records"`
	Metric    facematch.Metric    `json:"metric"`
	Threshold float64             `json:"threshold"`
	Findings  []facematch.Finding `json:"findings"`
}

// Audit runs the first-match audit with ?k= neighbours per record
func (h *CorpusHandler) Audit(w http.ResponseWriter, r *http.Request) {
	k := constants.DefaultAuditNeighbors
	if s := r.URL.Query().Get("k"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > 100 {
			respondError(w, http.StatusBadRequest, "k must be between 1 and 100")
			return
		}
		k = n
	}

	records, err := h.corpus.Load()
	if err != nil {
		respondStoreError(w, "corpus", err)
		return
	}
	findings, err := h.matcher.Audit(records, k, nil)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if findings == nil {
		findings = []facematch.Finding{}
	}
	respondJSON(w, http.StatusOK, AuditResponse{
		Records:   len(records),
		Metric:    h.matcher.Metric,
		Threshold: h.matcher.Threshold,
		Findings:  findings,
	})
}
