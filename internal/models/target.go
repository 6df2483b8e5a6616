package models

import "time"

// Target kinds.
const (
	KindPhone   = "phone"
	KindProfile = "profile"
)

// Check frequencies.
const (
	FreqHourly = "hourly"
	FreqDaily  = "daily"
	FreqWeekly = "weekly"
)

// Target statuses.
const (
	StatusActive   = "active"
	StatusRunning  = "running"
	StatusAlerting = "alerting"
	StatusError    = "error"
)

// Target is a monitored entity on the watchlist.
type Target struct {
	ID            int        `json:"id"`
	WatchID       string     `json:"watch_id"`
	Owner         string     `json:"owner"`
	Identifier    string     `json:"identifier"`
	Kind          string     `json:"kind"`      // phone, profile
	Frequency     string     `json:"frequency"` // hourly, daily, weekly
	Status        string     `json:"status"`    // active, running, alerting, error
	BaselineScore int        `json:"baseline_score"`
	CurrentScore  int        `json:"current_score"`
	AlertsCount   int        `json:"alerts_count"`
	LastCheckedAt *time.Time `json:"last_checked_at,omitempty"`
	NextCheckAt   time.Time  `json:"next_check_at"`
	CreatedAt     time.Time  `json:"created_at"`
}

// CheckInterval returns the re-check interval for a frequency. Unknown
// frequencies fall back to daily.
func CheckInterval(frequency string) time.Duration {
	switch frequency {
	case FreqHourly:
		return time.Hour
	case FreqWeekly:
		return 7 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// ValidKind reports whether kind is a supported target kind.
func ValidKind(kind string) bool {
	return kind == KindPhone || kind == KindProfile
}

// ValidFrequency reports whether frequency is a supported check frequency.
func ValidFrequency(frequency string) bool {
	return frequency == FreqHourly || frequency == FreqDaily || frequency == FreqWeekly
}
