package models

import "time"

// SnapshotFields are the observable attributes captured for a target at
// check time. Phone targets leave the profile counters at zero.
type SnapshotFields struct {
	Bio            string `json:"bio,omitempty"`
	FollowerCount  int    `json:"follower_count"`
	FollowingCount int    `json:"following_count"`
	PostCount      int    `json:"post_count"`
	Verified       bool   `json:"verified"`
}

// Snapshot is a point-in-time capture of a target's state and score.
// Snapshots are append-only and read newest-first.
type Snapshot struct {
	ID         int            `json:"id"`
	TargetID   int            `json:"target_id"`
	CapturedAt time.Time      `json:"captured_at"`
	Fields     SnapshotFields `json:"fields"`
	Score      int            `json:"score"`
	Level      string         `json:"level"`
	Flags      []string       `json:"flags,omitempty"`
}
