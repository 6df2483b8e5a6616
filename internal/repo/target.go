package repo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/crucial707/risk-watch/internal/models"
	"github.com/lib/pq"
)

const targetColumns = `id, watch_id, owner, identifier, kind, frequency, status,
	baseline_score, current_score, alerts_count, last_checked_at, next_check_at, created_at`

// TargetRepo persists monitored targets (the watchlist).
type TargetRepo struct {
	DB *sql.DB
}

// NewTargetRepo returns a new TargetRepo.
func NewTargetRepo(db *sql.DB) *TargetRepo {
	return &TargetRepo{DB: db}
}

func scanTarget(row interface{ Scan(...interface{}) error }) (*models.Target, error) {
	t := &models.Target{}
	var lastChecked sql.NullTime
	err := row.Scan(&t.ID, &t.WatchID, &t.Owner, &t.Identifier, &t.Kind, &t.Frequency,
		&t.Status, &t.BaselineScore, &t.CurrentScore, &t.AlertsCount,
		&lastChecked, &t.NextCheckAt, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	if lastChecked.Valid {
		t.LastCheckedAt = &lastChecked.Time
	}
	return t, nil
}

// Create inserts a new target with status=active and next_check_at=now, so
// the first check runs on the next scheduler sweep. A duplicate
// (owner, identifier) returns ErrDuplicateTarget.
func (r *TargetRepo) Create(ctx context.Context, watchID, owner, identifier, kind, frequency string) (*models.Target, error) {
	row := r.DB.QueryRowContext(ctx,
		`INSERT INTO targets (watch_id, owner, identifier, kind, frequency)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+targetColumns,
		watchID, owner, identifier, kind, frequency,
	)
	t, err := scanTarget(row)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, ErrDuplicateTarget
		}
		return nil, err
	}
	return t, nil
}

// GetByWatchID returns one target by its external watch id, or nil if not found.
func (r *TargetRepo) GetByWatchID(ctx context.Context, watchID string) (*models.Target, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+targetColumns+` FROM targets WHERE watch_id = $1`, watchID)
	t, err := scanTarget(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// GetByID returns one target by internal id, or nil if not found.
func (r *TargetRepo) GetByID(ctx context.Context, id int) (*models.Target, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+targetColumns+` FROM targets WHERE id = $1`, id)
	t, err := scanTarget(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// List returns an owner's targets, most recent first.
func (r *TargetRepo) List(ctx context.Context, owner string, limit, offset int) ([]models.Target, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+targetColumns+` FROM targets WHERE owner = $1 ORDER BY id DESC LIMIT $2 OFFSET $3`,
		owner, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Target
	for rows.Next() {
		t, err := scanTarget(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *t)
	}
	return list, rows.Err()
}

// Due returns targets whose next check time has passed and that are not
// already running, ordered oldest first.
func (r *TargetRepo) Due(ctx context.Context, now time.Time, limit int) ([]models.Target, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+targetColumns+` FROM targets
		 WHERE next_check_at <= $1 AND status <> 'running'
		 ORDER BY next_check_at LIMIT $2`,
		now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Target
	for rows.Next() {
		t, err := scanTarget(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *t)
	}
	return list, rows.Err()
}

// Claim takes the per-target run lease by flipping status to running.
// Returns false when another run already holds the lease.
func (r *TargetRepo) Claim(ctx context.Context, id int) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE targets SET status = 'running' WHERE id = $1 AND status <> 'running'`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// FinishCheck releases the lease after a successful check: status, score,
// timestamps. baseline_score is set from the first completed check and then
// frozen. next_check_at only ever moves forward.
func (r *TargetRepo) FinishCheck(ctx context.Context, id int, status string, score int, checkedAt, nextCheckAt time.Time) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE targets SET
			status = $2,
			current_score = $3,
			baseline_score = CASE WHEN last_checked_at IS NULL THEN $3 ELSE baseline_score END,
			last_checked_at = $4,
			next_check_at = GREATEST(next_check_at, $5)
		 WHERE id = $1`,
		id, status, score, checkedAt, nextCheckAt)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkError releases the lease after a failed check. The schedule stays
// alive: next_check_at advances by the normal interval.
func (r *TargetRepo) MarkError(ctx context.Context, id int, checkedAt, nextCheckAt time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE targets SET status = 'error', last_checked_at = $2,
			next_check_at = GREATEST(next_check_at, $3)
		 WHERE id = $1`,
		id, checkedAt, nextCheckAt)
	return err
}

// Delete removes a target (and, via cascade, its snapshots and alerts).
func (r *TargetRepo) Delete(ctx context.Context, watchID string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM targets WHERE watch_id = $1`, watchID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
