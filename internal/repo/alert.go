package repo

import (
	"context"
	"database/sql"
	"time"

	"github.com/crucial707/risk-watch/internal/models"
)

// AlertRepo persists diff-triggered alerts. Alerts are append-only; only
// the read and dismissed flags are ever updated.
type AlertRepo struct {
	db *sql.DB
}

// NewAlertRepo returns a new AlertRepo.
func NewAlertRepo(db *sql.DB) *AlertRepo {
	return &AlertRepo{db: db}
}

// Insert appends an alert and increments the target's alerts_count in the
// same transaction, so the counter never drifts from the log.
func (r *AlertRepo) Insert(ctx context.Context, a models.Alert) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var id int
	err = tx.QueryRowContext(ctx,
		`INSERT INTO alerts (target_id, type, severity, title, details, old_value, new_value, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id`,
		a.TargetID, a.Type, a.Severity, a.Title, a.Details, a.OldValue, a.NewValue, a.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE targets SET alerts_count = alerts_count + 1 WHERE id = $1`,
		a.TargetID); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// List returns alerts newest first. unreadOnly restricts to read=false.
func (r *AlertRepo) List(ctx context.Context, unreadOnly bool, limit, offset int) ([]models.Alert, error) {
	query := `SELECT id, target_id, type, severity, title, COALESCE(details,''),
		COALESCE(old_value,''), COALESCE(new_value,''), read, dismissed, created_at
		FROM alerts`
	if unreadOnly {
		query += ` WHERE read = FALSE`
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Alert
	for rows.Next() {
		var a models.Alert
		if err := rows.Scan(&a.ID, &a.TargetID, &a.Type, &a.Severity, &a.Title, &a.Details,
			&a.OldValue, &a.NewValue, &a.Read, &a.Dismissed, &a.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

// MarkRead sets read=true. Dismissal state is untouched.
func (r *AlertRepo) MarkRead(ctx context.Context, id int) error {
	return r.setFlag(ctx, id, "read")
}

// Dismiss sets dismissed=true. Read state is untouched.
func (r *AlertRepo) Dismiss(ctx context.Context, id int) error {
	return r.setFlag(ctx, id, "dismissed")
}

func (r *AlertRepo) setFlag(ctx context.Context, id int, column string) error {
	// column is one of the two fixed flag names, never caller input.
	res, err := r.db.ExecContext(ctx,
		`UPDATE alerts SET `+column+` = TRUE WHERE id = $1`, id)
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

// HasRecent reports whether an alert of the same type and severity was
// created for the target since the given time. Used for duplicate
// suppression across consecutive checks.
func (r *AlertRepo) HasRecent(ctx context.Context, targetID int, alertType, severity string, since time.Time) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM alerts
		 WHERE target_id = $1 AND type = $2 AND severity = $3 AND created_at > $4`,
		targetID, alertType, severity, since).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
