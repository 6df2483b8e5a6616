package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/crucial707/risk-watch/internal/risk"
)

// AssessmentCacheRepo is a durable keyed store with TTL eviction for
// one-shot verification results. Expired rows are invisible to readers and
// purged by the scheduler sweep.
type AssessmentCacheRepo struct {
	DB *sql.DB
}

// NewAssessmentCacheRepo returns a new AssessmentCacheRepo.
func NewAssessmentCacheRepo(db *sql.DB) *AssessmentCacheRepo {
	return &AssessmentCacheRepo{DB: db}
}

// Get returns the cached assessment for an identifier, or nil when absent
// or expired.
func (r *AssessmentCacheRepo) Get(ctx context.Context, identifier string, now time.Time) (*risk.Assessment, error) {
	var payload []byte
	err := r.DB.QueryRowContext(ctx,
		`SELECT assessment FROM assessment_cache WHERE identifier = $1 AND expires_at > $2`,
		identifier, now).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var a risk.Assessment
	if err := json.Unmarshal(payload, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// Put stores or replaces the cached assessment for an identifier.
func (r *AssessmentCacheRepo) Put(ctx context.Context, identifier string, a risk.Assessment, expiresAt time.Time) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx,
		`INSERT INTO assessment_cache (identifier, assessment, expires_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (identifier) DO UPDATE SET assessment = $2, expires_at = $3`,
		identifier, payload, expiresAt)
	return err
}

// PurgeExpired deletes rows past their expiry and returns how many went.
func (r *AssessmentCacheRepo) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		`DELETE FROM assessment_cache WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
