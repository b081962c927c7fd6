package database

import "math"

// CosineSimilarity computes the cosine similarity between two vectors.
// Returns 0 for mismatched, empty or zero vectors.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	similarity := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// Clamp to [-1, 1] to handle floating point errors
	return math.Max(-1, math.Min(1, similarity))
}

// CosineDistance computes the cosine distance between two vectors.
// Returns a value between 0 (identical) and 2 (opposite); invalid input is as far as it gets.
func CosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 2.0
	}
	s := CosineSimilarity(a, b)
	if s == 0 && isZero(a, b) {
		return 2.0
	}
	return 1 - s
}

func isZero(a, b []float32) bool {
	za, zb := true, true
	for i := range a {
		if a[i] != 0 {
			za = false
		}
		if b[i] != 0 {
			zb = false
		}
	}
	return za || zb
}
