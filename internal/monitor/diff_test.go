package monitor

import (
	"testing"

	"github.com/crucial707/risk-watch/internal/models"
)

func snap(bio string, followers, score int) *models.Snapshot {
	return &models.Snapshot{
		Fields: models.SnapshotFields{Bio: bio, FollowerCount: followers},
		Score:  score,
	}
}

func eventTypes(events []DiffEvent) []string {
	var out []string
	for _, e := range events {
		out = append(out, e.Type)
	}
	return out
}

func TestDiff_Idempotent(t *testing.T) {
	cases := []*models.Snapshot{
		snap("", 0, 0),
		snap("hello", 100, 50),
		snap("crypto expert", 99999, 95),
	}
	for i, s := range cases {
		if events := Diff(s, s); len(events) != 0 {
			t.Errorf("case %d: Diff(s, s) = %v, want empty", i, eventTypes(events))
		}
	}
}

func TestDiff_BioChanged(t *testing.T) {
	events := Diff(snap("old bio", 100, 50), snap("new bio", 100, 50))
	if len(events) != 1 || events[0].Type != models.AlertBioChanged {
		t.Fatalf("got %v, want [bio_changed]", eventTypes(events))
	}
	if events[0].Severity != models.SeverityMedium {
		t.Errorf("severity: got %q, want medium", events[0].Severity)
	}
	if events[0].OldValue != "old bio" || events[0].NewValue != "new bio" {
		t.Errorf("values: %+v", events[0])
	}
}

func TestDiff_BioChange_RequiresBothNonEmpty(t *testing.T) {
	if events := Diff(snap("", 100, 50), snap("new bio", 100, 50)); len(events) != 0 {
		t.Errorf("empty->set must not fire, got %v", eventTypes(events))
	}
	if events := Diff(snap("old bio", 100, 50), snap("", 100, 50)); len(events) != 0 {
		t.Errorf("set->empty must not fire, got %v", eventTypes(events))
	}
}

func TestDiff_FollowerSpikeBoundary(t *testing.T) {
	// 100 -> 121 is strictly past 1.2x and fires; 100 -> 120 is exactly
	// 1.2x and must not.
	events := Diff(snap("b", 100, 50), snap("b", 121, 50))
	if len(events) != 1 || events[0].Type != models.AlertFollowerSpike {
		t.Fatalf("121 followers: got %v, want [follower_spike]", eventTypes(events))
	}
	if events[0].Severity != models.SeverityHigh {
		t.Errorf("severity: got %q, want high", events[0].Severity)
	}
	if events := Diff(snap("b", 100, 50), snap("b", 120, 50)); len(events) != 0 {
		t.Errorf("120 followers: got %v, want none", eventTypes(events))
	}
}

func TestDiff_FollowerDropBoundary(t *testing.T) {
	events := Diff(snap("b", 100, 50), snap("b", 79, 50))
	if len(events) != 1 || events[0].Type != models.AlertFollowerDrop {
		t.Fatalf("79 followers: got %v, want [follower_drop]", eventTypes(events))
	}
	if events[0].Severity != models.SeverityMedium {
		t.Errorf("severity: got %q, want medium", events[0].Severity)
	}
	if events := Diff(snap("b", 100, 50), snap("b", 80, 50)); len(events) != 0 {
		t.Errorf("80 followers: got %v, want none", eventTypes(events))
	}
}

func TestDiff_ScoreDropBoundary(t *testing.T) {
	// A drop of 16 fires; a drop of exactly 15 does not.
	events := Diff(snap("b", 100, 80), snap("b", 100, 64))
	if len(events) != 1 || events[0].Type != models.AlertScoreDrop {
		t.Fatalf("drop of 16: got %v, want [score_drop]", eventTypes(events))
	}
	if events[0].Severity != models.SeverityCritical {
		t.Errorf("severity: got %q, want critical", events[0].Severity)
	}
	if events := Diff(snap("b", 100, 80), snap("b", 100, 65)); len(events) != 0 {
		t.Errorf("drop of 15: got %v, want none", eventTypes(events))
	}
}

func TestDiff_MultipleEvents(t *testing.T) {
	events := Diff(snap("old", 100, 80), snap("new", 130, 60))
	types := eventTypes(events)
	want := map[string]bool{
		models.AlertBioChanged:    true,
		models.AlertFollowerSpike: true,
		models.AlertScoreDrop:     true,
	}
	if len(types) != len(want) {
		t.Fatalf("got %v, want 3 events", types)
	}
	for _, ty := range types {
		if !want[ty] {
			t.Errorf("unexpected event %q", ty)
		}
	}
}

func TestDiff_NilSnapshots(t *testing.T) {
	if events := Diff(nil, snap("b", 10, 10)); events != nil {
		t.Errorf("nil prev: got %v", eventTypes(events))
	}
	if events := Diff(snap("b", 10, 10), nil); events != nil {
		t.Errorf("nil curr: got %v", eventTypes(events))
	}
}
