package models

import "time"

// Alert types, one per diff rule.
const (
	AlertBioChanged    = "bio_changed"
	AlertFollowerSpike = "follower_spike"
	AlertFollowerDrop  = "follower_drop"
	AlertScoreDrop     = "score_drop"
)

// Alert severities.
const (
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// Alert is one diff-triggered notification. Alerts are append-only; read and
// dismissed are independent flags.
type Alert struct {
	ID        int       `json:"id"`
	TargetID  int       `json:"target_id"`
	Type      string    `json:"type"`
	Severity  string    `json:"severity"`
	Title     string    `json:"title"`
	Details   string    `json:"details,omitempty"`
	OldValue  string    `json:"old_value,omitempty"`
	NewValue  string    `json:"new_value,omitempty"`
	Read      bool      `json:"read"`
	Dismissed bool      `json:"dismissed"`
	CreatedAt time.Time `json:"created_at"`
}
