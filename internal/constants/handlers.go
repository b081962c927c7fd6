// Package constants provides shared constants used across the codebase.
package constants

import "time"

// Handler constants
const (
	// DefaultReportDays is the range used by report endpoints when no dates are given
	DefaultReportDays = 30

	// MaxReportDays caps a single report request
	MaxReportDays = 366

	// StatsCacheTTL is how long dashboard stats are cached between requests
	StatsCacheTTL = 30 * time.Second

	// MaxProfileImageBytes limits the profile image accepted by the employee endpoints
	MaxProfileImageBytes = 5 << 20

	// MinPasswordLength applies to every dashboard password except the seeded admin one
	MinPasswordLength = 8
)
