package models

import "time"

// Batch job statuses.
const (
	JobPending    = "pending"
	JobProcessing = "processing"
	JobCompleted  = "completed"
	JobCanceled   = "canceled"
)

// BatchResult is one row of a batch job's result set. Exactly one of
// Score/Level/Flags or Error is meaningful per row.
type BatchResult struct {
	Input string   `json:"input"`
	Score int      `json:"score"`
	Level string   `json:"level"`
	Flags []string `json:"flags,omitempty"`
	Error string   `json:"error,omitempty"`
}

// BatchJob is a caller-submitted list of identifiers scored sequentially.
// A single row is updated incrementally as items complete.
type BatchJob struct {
	ID             int           `json:"id"`
	JobID          string        `json:"job_id"`
	Status         string        `json:"status"`
	TotalCount     int           `json:"total_count"`
	ProcessedCount int           `json:"processed_count"`
	SuccessCount   int           `json:"success_count"`
	FailureCount   int           `json:"failure_count"`
	Results        []BatchResult `json:"results,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	CompletedAt    *time.Time    `json:"completed_at,omitempty"`
}
