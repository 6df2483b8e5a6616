package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/crucial707/risk-watch/internal/collectors"
	"github.com/crucial707/risk-watch/internal/metrics"
	"github.com/crucial707/risk-watch/internal/models"
	"github.com/crucial707/risk-watch/internal/repo"
	"github.com/crucial707/risk-watch/internal/risk"
	"github.com/google/uuid"
)

// ErrJobNotFound is returned for unknown job ids.
var ErrJobNotFound = errors.New("batch job not found")

// ErrEmptyBatch is returned when a job is submitted with no items.
var ErrEmptyBatch = errors.New("batch must contain at least one item")

// DefaultItemEstimate seeds the ETA before any item has been measured.
const DefaultItemEstimate = 3 * time.Second

// Orchestrator runs batch jobs. Items within a job are processed strictly
// one at a time so the shared evidence collectors are never hammered by a
// single job; distinct jobs may run concurrently behind the collectors'
// global rate limiter.
type Orchestrator struct {
	Jobs      *repo.BatchJobRepo
	Collector *collectors.Collector

	// ItemEstimate seeds per-item ETA math until measurements replace it.
	ItemEstimate time.Duration
	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time

	mu            sync.Mutex
	itemsMeasured int
	totalDuration time.Duration
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// Create persists a new pending job and kicks off its asynchronous run.
func (o *Orchestrator) Create(ctx context.Context, items []string) (string, error) {
	cleaned := make([]string, 0, len(items))
	for _, it := range items {
		if s := strings.TrimSpace(it); s != "" {
			cleaned = append(cleaned, s)
		}
	}
	if len(cleaned) == 0 {
		return "", ErrEmptyBatch
	}

	jobID := uuid.NewString()
	if _, err := o.Jobs.Create(ctx, jobID, cleaned); err != nil {
		return "", fmt.Errorf("create batch job: %w", err)
	}

	// The run outlives the submitting request.
	go func() {
		if err := o.Run(context.Background(), jobID); err != nil {
			slog.Error("batch run failed", "job_id", jobID, "error", err)
		}
	}()

	return jobID, nil
}

// Run processes a job's items sequentially. A failing item is isolated to
// its own result row and never aborts the batch. Progress is persisted after
// every item, and a cancellation request takes effect at the next item
// boundary: in-flight item work always runs to completion.
func (o *Orchestrator) Run(ctx context.Context, jobID string) error {
	claimed, err := o.Jobs.ClaimRun(ctx, jobID)
	if err != nil {
		return fmt.Errorf("claim job run: %w", err)
	}
	if !claimed {
		// Already running, finished, or canceled before it started.
		return nil
	}

	items, err := o.Jobs.Items(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load job items: %w", err)
	}

	var results []models.BatchResult
	processed, success, failure := 0, 0, 0

	for _, item := range items {
		status, err := o.Jobs.Status(ctx, jobID)
		if err != nil {
			return fmt.Errorf("job status: %w", err)
		}
		if status == models.JobCanceled {
			slog.Info("batch run canceled", "job_id", jobID, "processed", processed)
			metrics.IncBatchJobsTotal(models.JobCanceled)
			return nil
		}

		start := o.now()
		row := o.scoreItem(ctx, item)
		o.observe(o.now().Sub(start))

		if row.Error != "" {
			failure++
			metrics.IncBatchItemsTotal("failure")
		} else {
			success++
			metrics.IncBatchItemsTotal("success")
		}
		processed++
		results = append(results, row)

		if err := o.Jobs.SaveProgress(ctx, jobID, processed, success, failure, results); err != nil {
			return fmt.Errorf("save progress: %w", err)
		}
	}

	if err := o.Jobs.Complete(ctx, jobID, o.now()); err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	metrics.IncBatchJobsTotal(models.JobCompleted)
	slog.Info("batch run completed", "job_id", jobID,
		"success", success, "failure", failure)
	return nil
}

// scoreItem evaluates one identifier. Failures come back as an error row,
// never as a Go error.
func (o *Orchestrator) scoreItem(ctx context.Context, item string) models.BatchResult {
	obs, err := o.Collector.Collect(ctx, item, identifierKind(item))
	if err != nil {
		return models.BatchResult{Input: item, Level: "error", Error: err.Error()}
	}
	a := risk.Aggregate(item, obs.Evidence)
	return models.BatchResult{Input: item, Score: a.Score, Level: a.Level, Flags: obs.Flags}
}

// identifierKind guesses phone vs profile from the identifier's shape.
func identifierKind(s string) string {
	if strings.HasPrefix(s, "+") {
		return models.KindPhone
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return models.KindProfile
		}
	}
	return models.KindPhone
}

func (o *Orchestrator) observe(d time.Duration) {
	o.mu.Lock()
	o.itemsMeasured++
	o.totalDuration += d
	o.mu.Unlock()
}

// perItemEstimate is the measured average item duration, or the configured
// seed while nothing has been measured yet.
func (o *Orchestrator) perItemEstimate() time.Duration {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.itemsMeasured > 0 {
		return o.totalDuration / time.Duration(o.itemsMeasured)
	}
	if o.ItemEstimate > 0 {
		return o.ItemEstimate
	}
	return DefaultItemEstimate
}

// JobStatus is the live progress view of a job.
type JobStatus struct {
	JobID      string  `json:"job_id"`
	Status     string  `json:"status"`
	Progress   int     `json:"progress"`
	ETASeconds float64 `json:"eta_seconds"`
}

// Status reports a job's progress percentage and remaining-time estimate.
func (o *Orchestrator) Status(ctx context.Context, jobID string) (*JobStatus, error) {
	job, err := o.Jobs.GetByJobID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, ErrJobNotFound
	}

	progress := 0
	if job.TotalCount > 0 {
		progress = int(math.Round(float64(job.ProcessedCount) / float64(job.TotalCount) * 100))
	}
	eta := 0.0
	if job.Status == models.JobPending || job.Status == models.JobProcessing {
		remaining := job.TotalCount - job.ProcessedCount
		eta = (time.Duration(remaining) * o.perItemEstimate()).Seconds()
	}

	return &JobStatus{JobID: job.JobID, Status: job.Status, Progress: progress, ETASeconds: eta}, nil
}

// Cancel requests cooperative cancellation. The current item finishes; the
// loop stops at the next boundary. Canceling a finished job is a no-op.
func (o *Orchestrator) Cancel(ctx context.Context, jobID string) error {
	job, err := o.Jobs.GetByJobID(ctx, jobID)
	if err != nil {
		return err
	}
	if job == nil {
		return ErrJobNotFound
	}
	_, err = o.Jobs.Cancel(ctx, jobID, o.now())
	return err
}

// JobStats summarizes a (possibly filtered) result set.
type JobStats struct {
	CountsByLevel map[string]int `json:"counts_by_level"`
	AverageScore  float64        `json:"average_score"`
}

// JobResults bundles result rows with their aggregate stats.
type JobResults struct {
	JobID   string               `json:"job_id"`
	Status  string               `json:"status"`
	Results []models.BatchResult `json:"results"`
	Stats   JobStats             `json:"stats"`
}

// Results returns a job's result rows, optionally filtered by risk level and
// sorted by score (descending) or by level severity. The average covers only
// scored rows; an empty filtered set yields average 0, never NaN.
func (o *Orchestrator) Results(ctx context.Context, jobID, sortBy, filterRisk string) (*JobResults, error) {
	job, err := o.Jobs.GetByJobID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, ErrJobNotFound
	}

	results := job.Results
	if filterRisk != "" {
		filtered := make([]models.BatchResult, 0, len(results))
		for _, r := range results {
			if r.Level == filterRisk {
				filtered = append(filtered, r)
			}
		}
		results = filtered
	}

	switch sortBy {
	case "score":
		sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	case "level", "risk":
		sort.SliceStable(results, func(i, j int) bool {
			return risk.LevelOrder(results[i].Level) < risk.LevelOrder(results[j].Level)
		})
	}

	stats := JobStats{CountsByLevel: make(map[string]int)}
	scored, sum := 0, 0
	for _, r := range results {
		stats.CountsByLevel[r.Level]++
		if r.Error == "" {
			scored++
			sum += r.Score
		}
	}
	if scored > 0 {
		stats.AverageScore = float64(sum) / float64(scored)
	}

	if results == nil {
		results = []models.BatchResult{}
	}
	return &JobResults{JobID: job.JobID, Status: job.Status, Results: results, Stats: stats}, nil
}
