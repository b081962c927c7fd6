// Package facematch decides which registered employee, if any, a detected face belongs to.
package facematch

import (
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
)

// Metric selects how an embedding is compared with the corpus.
type Metric string

const (
	// MetricDistance accepts a record when cosine distance < threshold.
	MetricDistance Metric = "distance"
	// MetricSimilarity accepts a record when cosine similarity > threshold.
	MetricSimilarity Metric = "similarity"
)

// Matcher compares embeddings against the corpus with a fixed metric and threshold.
type Matcher struct {
	Metric    Metric
	Threshold float64
}

// NewMatcher validates the metric and fills in the default threshold when threshold <= 0.
func NewMatcher(metric string, threshold float64) (*Matcher, error) {
	m := Metric(metric)
	if m == "" {
		m = MetricDistance
	}
	switch m {
	case MetricDistance:
		if threshold <= 0 {
			threshold = constants.DefaultDistanceThreshold
		}
	case MetricSimilarity:
		if threshold <= 0 {
			threshold = constants.DefaultSimilarityThreshold
		}
	default:
		return nil, fmt.Errorf("unknown match metric %q (want distance or similarity)", metric)
	}
	return &Matcher{Metric: m, Threshold: threshold}, nil
}

// Match is an accepted corpus record.
type Match struct {
	Record   *database.EmbeddingRecord
	Index    int     // position of Record in the corpus
	Distance float64 // cosine distance, also reported when matching by similarity
}

// Accepts reports whether two embeddings are close enough to be the same person.
func (m *Matcher) Accepts(a, b []float32) (bool, float64) {
	dist := database.CosineDistance(a, b)
	if m.Metric == MetricSimilarity {
		return database.CosineSimilarity(a, b) > m.Threshold, dist
	}
	return dist < m.Threshold, dist
}

// FirstMatch walks the corpus in order and returns the FIRST record that passes the
// threshold. It is deliberately not a best-match search: when two records both pass,
// the earlier one wins even if a later one is closer. `corpus audit` reports the
// records where this differs from the nearest identity.
func (m *Matcher) FirstMatch(corpus []database.EmbeddingRecord, embedding []float32) (Match, bool) {
	for i := range corpus {
		if ok, dist := m.Accepts(corpus[i].Embedding, embedding); ok {
			return Match{Record: &corpus[i], Index: i, Distance: dist}, true
		}
	}
	return Match{}, false
}
