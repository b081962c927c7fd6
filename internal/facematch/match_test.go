package facematch

import (
	"math"
	"testing"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// vectorAtDistance returns a unit vector whose cosine distance to (1, 0) is d.
func vectorAtDistance(d float64) []float32 {
	cos := 1 - d
	sin := math.Sqrt(1 - cos*cos)
	return []float32{float32(cos), float32(sin)}
}

func record(empID string, emb []float32) database.EmbeddingRecord {
	return database.EmbeddingRecord{EmpID: empID, Name: "Employee " + empID, Embedding: emb}
}

func TestNewMatcher(t *testing.T) {
	tests := []struct {
		metric    string
		threshold float64
		want      Matcher
		wantErr   bool
	}{
		{metric: "", threshold: 0, want: Matcher{MetricDistance, 0.45}},
		{metric: "distance", threshold: 0.3, want: Matcher{MetricDistance, 0.3}},
		{metric: "similarity", threshold: 0, want: Matcher{MetricSimilarity, 0.6}},
		{metric: "euclid", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.metric, func(t *testing.T) {
			m, err := NewMatcher(tt.metric, tt.threshold)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if *m != tt.want {
				t.Errorf("NewMatcher() = %+v, want %+v", *m, tt.want)
			}
		})
	}
}

func TestFirstMatch_Threshold(t *testing.T) {
	m, _ := NewMatcher("distance", 0.45)
	query := []float32{1, 0}

	tests := []struct {
		name     string
		distance float64
		want     bool
	}{
		{"well inside", 0.10, true},
		{"just inside", 0.44, true},
		{"just outside", 0.46, false},
		{"far away", 0.90, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			corpus := []database.EmbeddingRecord{record("E1", vectorAtDistance(tt.distance))}
			match, ok := m.FirstMatch(corpus, query)
			if ok != tt.want {
				t.Fatalf("FirstMatch ok = %v, want %v (distance %.2f)", ok, tt.want, tt.distance)
			}
			if ok && math.Abs(match.Distance-tt.distance) > 1e-4 {
				t.Errorf("Distance = %v, want %v", match.Distance, tt.distance)
			}
		})
	}
}

func TestFirstMatch_EarlierRecordWins(t *testing.T) {
	m, _ := NewMatcher("distance", 0.45)
	corpus := []database.EmbeddingRecord{
		record("FAR", vectorAtDistance(0.9)),
		record("EARLY", vectorAtDistance(0.40)),
		record("CLOSE", vectorAtDistance(0.01)),
	}

	match, ok := m.FirstMatch(corpus, []float32{1, 0})
	if !ok {
		t.Fatal("expected a match")
	}
	if match.Record.EmpID != "EARLY" {
		t.Errorf("matched %s, want EARLY even though CLOSE is nearer", match.Record.EmpID)
	}
	if match.Index != 1 {
		t.Errorf("Index = %d, want 1", match.Index)
	}
}

func TestFirstMatch_SelfMatch(t *testing.T) {
	m, _ := NewMatcher("distance", 0.45)
	stored := []float32{0.12, -0.5, 0.33, 0.8}
	corpus := []database.EmbeddingRecord{
		record("A", []float32{-1, 0, 0, 0}),
		record("B", stored),
	}

	match, ok := m.FirstMatch(corpus, stored)
	if !ok {
		t.Fatal("stored embedding should match its own record")
	}
	if match.Record.EmpID != "B" {
		t.Errorf("matched %s, want B", match.Record.EmpID)
	}
	if match.Distance > 1e-6 {
		t.Errorf("Distance = %v, want 0", match.Distance)
	}
}

func TestFirstMatch_Similarity(t *testing.T) {
	m, _ := NewMatcher("similarity", 0.6)
	query := []float32{1, 0}

	// similarity 0.65 passes, 0.55 does not
	if _, ok := m.FirstMatch([]database.EmbeddingRecord{record("E1", vectorAtDistance(0.35))}, query); !ok {
		t.Error("similarity 0.65 should match")
	}
	if _, ok := m.FirstMatch([]database.EmbeddingRecord{record("E1", vectorAtDistance(0.45))}, query); ok {
		t.Error("similarity 0.55 should not match")
	}
}

func TestFirstMatch_EmptyAndMismatched(t *testing.T) {
	m, _ := NewMatcher("distance", 0.45)

	if _, ok := m.FirstMatch(nil, []float32{1, 0}); ok {
		t.Error("empty corpus should never match")
	}
	corpus := []database.EmbeddingRecord{record("E1", []float32{1, 0, 0})}
	if _, ok := m.FirstMatch(corpus, []float32{1, 0}); ok {
		t.Error("dimension mismatch should never match")
	}
}
