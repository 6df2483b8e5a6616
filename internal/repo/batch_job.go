package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/crucial707/risk-watch/internal/models"
)

// BatchJobRepo persists batch jobs. Each job is a single row updated
// incrementally while its items are processed, with the accumulated results
// embedded as JSON.
type BatchJobRepo struct {
	DB *sql.DB
}

// NewBatchJobRepo returns a new BatchJobRepo.
func NewBatchJobRepo(db *sql.DB) *BatchJobRepo {
	return &BatchJobRepo{DB: db}
}

// Create inserts a new job with status=pending and returns its internal id.
func (r *BatchJobRepo) Create(ctx context.Context, jobID string, items []string) (int, error) {
	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return 0, err
	}
	var id int
	err = r.DB.QueryRowContext(ctx,
		`INSERT INTO batch_jobs (job_id, status, total_count, items)
		 VALUES ($1, 'pending', $2, $3) RETURNING id`,
		jobID, len(items), itemsJSON,
	).Scan(&id)
	return id, err
}

// GetByJobID returns a job by its external id, or nil if not found.
func (r *BatchJobRepo) GetByJobID(ctx context.Context, jobID string) (*models.BatchJob, error) {
	var j models.BatchJob
	var completedAt sql.NullTime
	var resultsJSON []byte
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, job_id, status, total_count, processed_count, success_count,
			failure_count, results, created_at, completed_at
		 FROM batch_jobs WHERE job_id = $1`,
		jobID,
	).Scan(&j.ID, &j.JobID, &j.Status, &j.TotalCount, &j.ProcessedCount,
		&j.SuccessCount, &j.FailureCount, &resultsJSON, &j.CreatedAt, &completedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if completedAt.Valid {
		j.CompletedAt = &completedAt.Time
	}
	if len(resultsJSON) > 0 {
		if err := json.Unmarshal(resultsJSON, &j.Results); err != nil {
			return nil, err
		}
	}
	return &j, nil
}

// Items returns the submitted item list for a job.
func (r *BatchJobRepo) Items(ctx context.Context, jobID string) ([]string, error) {
	var itemsJSON []byte
	err := r.DB.QueryRowContext(ctx,
		`SELECT items FROM batch_jobs WHERE job_id = $1`, jobID).Scan(&itemsJSON)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var items []string
	if err := json.Unmarshal(itemsJSON, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// ClaimRun transitions pending -> processing. Returns false when the job is
// not pending (already running, finished, or canceled).
func (r *BatchJobRepo) ClaimRun(ctx context.Context, jobID string) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE batch_jobs SET status = 'processing' WHERE job_id = $1 AND status = 'pending'`,
		jobID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// SaveProgress persists incremental counters and the result set after each
// item, so progress is observable mid-run.
func (r *BatchJobRepo) SaveProgress(ctx context.Context, jobID string, processed, success, failure int, results []models.BatchResult) error {
	resultsJSON, err := json.Marshal(results)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx,
		`UPDATE batch_jobs SET processed_count = $2, success_count = $3,
			failure_count = $4, results = $5
		 WHERE job_id = $1`,
		jobID, processed, success, failure, resultsJSON)
	return err
}

// Complete marks a processing job completed. A canceled job stays canceled.
func (r *BatchJobRepo) Complete(ctx context.Context, jobID string, completedAt time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE batch_jobs SET status = 'completed', completed_at = $2
		 WHERE job_id = $1 AND status = 'processing'`,
		jobID, completedAt)
	return err
}

// Cancel marks a job canceled unless it already reached a terminal state.
// Returns false when nothing changed.
func (r *BatchJobRepo) Cancel(ctx context.Context, jobID string, canceledAt time.Time) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE batch_jobs SET status = 'canceled', completed_at = $2
		 WHERE job_id = $1 AND status IN ('pending', 'processing')`,
		jobID, canceledAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Status returns just the status column for the cancellation check between
// items, avoiding a full row read per iteration.
func (r *BatchJobRepo) Status(ctx context.Context, jobID string) (string, error) {
	var status string
	err := r.DB.QueryRowContext(ctx,
		`SELECT status FROM batch_jobs WHERE job_id = $1`, jobID).Scan(&status)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	return status, err
}
