package repo

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/crucial707/risk-watch/internal/models"
)

// SnapshotRepo persists point-in-time target captures. Snapshots are
// append-only; nothing here updates or deletes rows.
type SnapshotRepo struct {
	DB *sql.DB
}

// NewSnapshotRepo returns a new SnapshotRepo.
func NewSnapshotRepo(db *sql.DB) *SnapshotRepo {
	return &SnapshotRepo{DB: db}
}

// Insert appends a snapshot and returns it with id set.
func (r *SnapshotRepo) Insert(ctx context.Context, s models.Snapshot) (*models.Snapshot, error) {
	fieldsJSON, err := json.Marshal(s.Fields)
	if err != nil {
		return nil, err
	}
	var flagsJSON []byte
	if len(s.Flags) > 0 {
		flagsJSON, err = json.Marshal(s.Flags)
		if err != nil {
			return nil, err
		}
	}
	err = r.DB.QueryRowContext(ctx,
		`INSERT INTO snapshots (target_id, captured_at, fields, score, level, flags)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		s.TargetID, s.CapturedAt, fieldsJSON, s.Score, s.Level, nullJSON(flagsJSON),
	).Scan(&s.ID)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Latest returns the newest snapshot for a target, or nil when the target
// has never been captured.
func (r *SnapshotRepo) Latest(ctx context.Context, targetID int) (*models.Snapshot, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT id, target_id, captured_at, fields, score, level, flags
		 FROM snapshots WHERE target_id = $1
		 ORDER BY captured_at DESC, id DESC LIMIT 1`,
		targetID)
	s, err := scanSnapshot(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ListByTarget returns a target's snapshots, most recent first.
func (r *SnapshotRepo) ListByTarget(ctx context.Context, targetID, limit, offset int) ([]models.Snapshot, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, target_id, captured_at, fields, score, level, flags
		 FROM snapshots WHERE target_id = $1
		 ORDER BY captured_at DESC, id DESC LIMIT $2 OFFSET $3`,
		targetID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Snapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *s)
	}
	return list, rows.Err()
}

func scanSnapshot(row interface{ Scan(...interface{}) error }) (*models.Snapshot, error) {
	var s models.Snapshot
	var fieldsJSON, flagsJSON []byte
	if err := row.Scan(&s.ID, &s.TargetID, &s.CapturedAt, &fieldsJSON, &s.Score, &s.Level, &flagsJSON); err != nil {
		return nil, err
	}
	if len(fieldsJSON) > 0 {
		if err := json.Unmarshal(fieldsJSON, &s.Fields); err != nil {
			return nil, err
		}
	}
	if len(flagsJSON) > 0 {
		if err := json.Unmarshal(flagsJSON, &s.Flags); err != nil {
			return nil, err
		}
	}
	return &s, nil
}

func nullJSON(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return b
}
