// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

// Face matching constants
const (
	// DefaultDistanceThreshold is the maximum cosine distance (exclusive) for a face
	// to be accepted as a registered employee
	DefaultDistanceThreshold = 0.45

	// DefaultSimilarityThreshold is the minimum cosine similarity (exclusive) used when
	// matching is configured by similarity instead of distance
	DefaultSimilarityThreshold = 0.6

	// UnknownLabel is drawn over faces that match nobody
	UnknownLabel = "Unknown"
)

// Registration constants
const (
	// RegistrationSamples is the number of accepted face samples per enrollment
	RegistrationSamples = 3

	// ProfileThumbnailSize is the longest edge of the stored profile image
	ProfileThumbnailSize = 256
)

// Voice constants
const (
	// NotUnderstood is what every failed speech-to-text attempt degrades to
	NotUnderstood = "Could not understand"

	// BreakReason is stored for every break capture
	BreakReason = "Break time"
)

// Corpus audit constants
const (
	// DefaultAuditNeighbors is how many nearest neighbours the corpus audit inspects
	DefaultAuditNeighbors = 5
)

// Layout strings for values stored in the ledger
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05"
)
