package facematch

import (
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// Finding is a corpus record that another employee's samples can steal.
type Finding struct {
	Index int    `json:"index"`
	EmpID string `json:"emp_id"`
	Name  string `json:"name"`

	// Shadowed is set when replaying the record through FirstMatch
	// returns a different employee, i.e. recognition would misidentify it.
	Shadowed        bool    `json:"shadowed"`
	MatchedEmpID    string  `json:"matched_emp_id"`
	MatchedIndex    int     `json:"matched_index"`
	MatchedDistance float64 `json:"matched_distance"`

	// NearestOther is the closest record of a different employee found by the index.
	NearestOtherEmpID    string  `json:"nearest_other_emp_id,omitempty"`
	NearestOtherIndex    int     `json:"nearest_other_index"`
	NearestOtherDistance float64 `json:"nearest_other_distance"`
}

// Audit replays every record against the corpus and reports the ones whose first match
// is another employee, or whose nearest other employee is within the threshold.
// k bounds the neighbours inspected per record; progress, when set, is called once per record.
func (m *Matcher) Audit(records []database.EmbeddingRecord, k int, progress func()) ([]Finding, error) {
	if k <= 0 {
		return nil, fmt.Errorf("neighbour count must be positive, got %d", k)
	}
	if len(records) == 0 {
		return nil, nil
	}

	index, err := database.NewHNSWIndex(records)
	if err != nil {
		return nil, fmt.Errorf("building neighbour index: %w", err)
	}
	var findings []Finding

	for i := range records {
		if progress != nil {
			progress()
		}
		rec := &records[i]
		if len(rec.Embedding) == 0 {
			continue
		}

		f := Finding{Index: i, EmpID: rec.EmpID, Name: rec.Name, MatchedIndex: -1, NearestOtherIndex: -1}
		if match, ok := m.FirstMatch(records, rec.Embedding); ok {
			f.MatchedEmpID = match.Record.EmpID
			f.MatchedIndex = match.Index
			f.MatchedDistance = match.Distance
			f.Shadowed = match.Record.EmpID != rec.EmpID
		}

		// one extra neighbour because the record finds itself
		neighbors, err := index.Search(rec.Embedding, k+1)
		if err != nil {
			return nil, fmt.Errorf("searching neighbours of record %d: %w", i, err)
		}
		for _, n := range neighbors {
			if n.Record.EmpID == rec.EmpID {
				continue
			}
			f.NearestOtherEmpID = n.Record.EmpID
			f.NearestOtherIndex = n.Index
			f.NearestOtherDistance = n.Distance
			break
		}

		crowded := false
		if f.NearestOtherEmpID != "" {
			crowded, _ = m.Accepts(rec.Embedding, records[f.NearestOtherIndex].Embedding)
		}
		if f.Shadowed || crowded {
			findings = append(findings, f)
		}
	}
	return findings, nil
}
