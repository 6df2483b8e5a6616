package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/crucial707/risk-watch/internal/collectors"
	"github.com/crucial707/risk-watch/internal/metrics"
	"github.com/crucial707/risk-watch/internal/models"
	"github.com/crucial707/risk-watch/internal/repo"
	"github.com/crucial707/risk-watch/internal/risk"
)

// CheckResult is what one monitoring pass over a target produced.
type CheckResult struct {
	Snapshot      *models.Snapshot `json:"snapshot,omitempty"`
	Assessment    risk.Assessment  `json:"assessment"`
	AlertsCreated int              `json:"alerts_created"`
}

// Monitor captures snapshots, diffs them against the previous capture, and
// appends alerts for the changes that fire.
type Monitor struct {
	Snapshots *repo.SnapshotRepo
	Alerts    *repo.AlertRepo
	Collector *collectors.Collector

	// DedupWindow suppresses an alert when one of the same type and
	// severity was created for the target within the window. Zero disables
	// suppression.
	DedupWindow time.Duration

	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time
}

func (m *Monitor) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

// Check runs one full pass for a target: collect evidence, score, persist a
// snapshot, diff against the previous one, and append alerts. A first check
// (no prior snapshot) never creates alerts.
func (m *Monitor) Check(ctx context.Context, target *models.Target) (*CheckResult, error) {
	obs, err := m.Collector.Collect(ctx, target.Identifier, target.Kind)
	if err != nil {
		return nil, fmt.Errorf("collect %s: %w", target.Identifier, err)
	}

	assessment := risk.Aggregate(target.Identifier, obs.Evidence)

	prev, err := m.Snapshots.Latest(ctx, target.ID)
	if err != nil {
		return nil, fmt.Errorf("load previous snapshot: %w", err)
	}

	now := m.now()
	snap, err := m.Snapshots.Insert(ctx, models.Snapshot{
		TargetID:   target.ID,
		CapturedAt: now,
		Fields:     obs.Fields,
		Score:      assessment.Score,
		Level:      assessment.Level,
		Flags:      obs.Flags,
	})
	if err != nil {
		return nil, fmt.Errorf("persist snapshot: %w", err)
	}

	result := &CheckResult{Snapshot: snap, Assessment: assessment}
	if prev == nil {
		return result, nil
	}

	for _, ev := range Diff(prev, snap) {
		suppressed, err := m.suppressed(ctx, target.ID, ev)
		if err != nil {
			return result, fmt.Errorf("alert dedup lookup: %w", err)
		}
		if suppressed {
			slog.Debug("alert suppressed by dedup window",
				"target", target.Identifier, "type", ev.Type)
			continue
		}
		if _, err := m.Alerts.Insert(ctx, models.Alert{
			TargetID:  target.ID,
			Type:      ev.Type,
			Severity:  ev.Severity,
			Title:     ev.Title,
			Details:   ev.Details,
			OldValue:  ev.OldValue,
			NewValue:  ev.NewValue,
			CreatedAt: now,
		}); err != nil {
			return result, fmt.Errorf("persist alert: %w", err)
		}
		metrics.IncAlertsTotal(ev.Severity)
		result.AlertsCreated++
	}

	return result, nil
}

func (m *Monitor) suppressed(ctx context.Context, targetID int, ev DiffEvent) (bool, error) {
	if m.DedupWindow <= 0 {
		return false, nil
	}
	return m.Alerts.HasRecent(ctx, targetID, ev.Type, ev.Severity, m.now().Add(-m.DedupWindow))
}
