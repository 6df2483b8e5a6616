package monitor

import (
	"fmt"

	"github.com/crucial707/risk-watch/internal/models"
)

// DiffEvent is one semantically meaningful change between two consecutive
// snapshots, already mapped to its fixed alert type and severity.
type DiffEvent struct {
	Type     string
	Severity string
	Title    string
	Details  string
	OldValue string
	NewValue string
}

// Diff compares two consecutive snapshots of the same target and returns
// the changes that warrant an alert. Rules and severities are fixed:
//
//	bio changed (both non-empty)        -> medium
//	followers grew past 1.2x (strict)   -> high
//	followers fell below 0.8x           -> medium
//	score fell by more than 15 (strict) -> critical
//
// Diff(s, s) is always empty.
func Diff(prev, curr *models.Snapshot) []DiffEvent {
	if prev == nil || curr == nil {
		return nil
	}
	var events []DiffEvent

	if prev.Fields.Bio != "" && curr.Fields.Bio != "" && prev.Fields.Bio != curr.Fields.Bio {
		events = append(events, DiffEvent{
			Type:     models.AlertBioChanged,
			Severity: models.SeverityMedium,
			Title:    "Profile bio changed",
			Details:  "The profile bio was rewritten since the last check",
			OldValue: prev.Fields.Bio,
			NewValue: curr.Fields.Bio,
		})
	}

	prevF := prev.Fields.FollowerCount
	currF := curr.Fields.FollowerCount
	if float64(currF) > float64(prevF)*1.2 {
		events = append(events, DiffEvent{
			Type:     models.AlertFollowerSpike,
			Severity: models.SeverityHigh,
			Title:    "Follower count spiked",
			Details:  fmt.Sprintf("Followers jumped from %d to %d", prevF, currF),
			OldValue: fmt.Sprintf("%d", prevF),
			NewValue: fmt.Sprintf("%d", currF),
		})
	}
	if float64(currF) < float64(prevF)*0.8 {
		events = append(events, DiffEvent{
			Type:     models.AlertFollowerDrop,
			Severity: models.SeverityMedium,
			Title:    "Follower count dropped",
			Details:  fmt.Sprintf("Followers fell from %d to %d", prevF, currF),
			OldValue: fmt.Sprintf("%d", prevF),
			NewValue: fmt.Sprintf("%d", currF),
		})
	}

	if prev.Score-curr.Score > 15 {
		events = append(events, DiffEvent{
			Type:     models.AlertScoreDrop,
			Severity: models.SeverityCritical,
			Title:    "Trust score dropped sharply",
			Details:  fmt.Sprintf("Score fell from %d to %d between checks", prev.Score, curr.Score),
			OldValue: fmt.Sprintf("%d", prev.Score),
			NewValue: fmt.Sprintf("%d", curr.Score),
		})
	}

	return events
}
