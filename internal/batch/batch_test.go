package batch

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/crucial707/risk-watch/internal/collectors"
	"github.com/crucial707/risk-watch/internal/models"
	"github.com/crucial707/risk-watch/internal/repo"
)

// flakyReputation fails for one specific key and succeeds for the rest.
type flakyReputation struct {
	failKey string
	calls   int
}

func (f *flakyReputation) Lookup(ctx context.Context, key string) (*collectors.ReputationResult, error) {
	f.calls++
	if key == f.failKey {
		return nil, errors.New("lookup failed")
	}
	return &collectors.ReputationResult{SpamScore: 40, Valid: true}, nil
}

func TestRun_ItemFailureIsIsolated(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	items := []string{"+15550000001", "+15550000002", "+15550000003", "+15550000004", "+15550000005"}
	itemsJSON, _ := json.Marshal(items)

	mock.ExpectExec(`UPDATE batch_jobs SET status = 'processing'`).
		WithArgs("job-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT items FROM batch_jobs`).
		WithArgs("job-1").
		WillReturnRows(sqlmock.NewRows([]string{"items"}).AddRow(itemsJSON))

	for i := 1; i <= len(items); i++ {
		failure := 0
		if i >= 3 { // item #3 is the one that fails
			failure = 1
		}
		mock.ExpectQuery(`SELECT status FROM batch_jobs`).
			WithArgs("job-1").
			WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("processing"))
		mock.ExpectExec(`UPDATE batch_jobs SET processed_count`).
			WithArgs("job-1", i, i-failure, failure, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectExec(`UPDATE batch_jobs SET status = 'completed'`).
		WithArgs("job-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rep := &flakyReputation{failKey: "+15550000003"}
	o := &Orchestrator{
		Jobs:      repo.NewBatchJobRepo(db),
		Collector: &collectors.Collector{Reputation: rep},
	}

	if err := o.Run(context.Background(), "job-1"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.calls != 5 {
		t.Errorf("collector calls: got %d, want 5", rep.calls)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestRun_CancellationStopsAtItemBoundary(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	items := []string{"+15550000001", "+15550000002", "+15550000003"}
	itemsJSON, _ := json.Marshal(items)

	mock.ExpectExec(`UPDATE batch_jobs SET status = 'processing'`).
		WithArgs("job-2").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT items FROM batch_jobs`).
		WithArgs("job-2").
		WillReturnRows(sqlmock.NewRows([]string{"items"}).AddRow(itemsJSON))

	// Item 1 runs; before item 2 the status check sees the cancel.
	mock.ExpectQuery(`SELECT status FROM batch_jobs`).
		WithArgs("job-2").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("processing"))
	mock.ExpectExec(`UPDATE batch_jobs SET processed_count`).
		WithArgs("job-2", 1, 1, 0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT status FROM batch_jobs`).
		WithArgs("job-2").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("canceled"))

	rep := &flakyReputation{}
	o := &Orchestrator{
		Jobs:      repo.NewBatchJobRepo(db),
		Collector: &collectors.Collector{Reputation: rep},
	}

	if err := o.Run(context.Background(), "job-2"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.calls != 1 {
		t.Errorf("collector calls: got %d, want 1 (no item after cancel)", rep.calls)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func jobRow(mock sqlmock.Sqlmock, jobID, status string, total, processed int, results []models.BatchResult) {
	resultsJSON, _ := json.Marshal(results)
	success, failure := 0, 0
	for _, r := range results {
		if r.Error != "" {
			failure++
		} else {
			success++
		}
	}
	mock.ExpectQuery(`SELECT id, job_id, status`).
		WithArgs(jobID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "job_id", "status", "total_count",
			"processed_count", "success_count", "failure_count", "results", "created_at", "completed_at"}).
			AddRow(1, jobID, status, total, processed, success, failure, resultsJSON, time.Now(), nil))
}

func TestStatus_ProgressAndETA(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	jobRow(mock, "job-3", models.JobProcessing, 3, 1, []models.BatchResult{
		{Input: "+15550000001", Score: 20, Level: "safe"},
	})

	o := &Orchestrator{Jobs: repo.NewBatchJobRepo(db), ItemEstimate: 3 * time.Second}
	st, err := o.Status(context.Background(), "job-3")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.Progress != 33 {
		t.Errorf("progress: got %d, want 33", st.Progress)
	}
	if st.ETASeconds != 6 {
		t.Errorf("eta: got %v, want 6", st.ETASeconds)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestStatus_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT id, job_id, status`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "job_id", "status", "total_count",
			"processed_count", "success_count", "failure_count", "results", "created_at", "completed_at"}))

	o := &Orchestrator{Jobs: repo.NewBatchJobRepo(db)}
	if _, err := o.Status(context.Background(), "missing"); !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func TestResults_SortByLevel(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	jobRow(mock, "job-4", models.JobCompleted, 4, 4, []models.BatchResult{
		{Input: "a", Score: 10, Level: "safe"},
		{Input: "b", Level: "error", Error: "boom"},
		{Input: "c", Score: 90, Level: "critical"},
		{Input: "d", Score: 40, Level: "suspicious"},
	})

	o := &Orchestrator{Jobs: repo.NewBatchJobRepo(db)}
	res, err := o.Results(context.Background(), "job-4", "level", "")
	if err != nil {
		t.Fatalf("Results: %v", err)
	}
	var got []string
	for _, r := range res.Results {
		got = append(got, r.Level)
	}
	want := []string{"critical", "suspicious", "safe", "error"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order: got %v, want %v", got, want)
		}
	}
	if res.Stats.CountsByLevel["error"] != 1 || res.Stats.CountsByLevel["critical"] != 1 {
		t.Errorf("counts: %+v", res.Stats.CountsByLevel)
	}
	// Average over the three scored rows: (10+90+40)/3.
	if res.Stats.AverageScore < 46.6 || res.Stats.AverageScore > 46.7 {
		t.Errorf("average: got %v", res.Stats.AverageScore)
	}
}

func TestResults_EmptyFilteredSet(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	jobRow(mock, "job-5", models.JobCompleted, 1, 1, []models.BatchResult{
		{Input: "a", Score: 10, Level: "safe"},
	})

	o := &Orchestrator{Jobs: repo.NewBatchJobRepo(db)}
	res, err := o.Results(context.Background(), "job-5", "", "critical")
	if err != nil {
		t.Fatalf("Results: %v", err)
	}
	if len(res.Results) != 0 {
		t.Errorf("expected empty result set, got %d", len(res.Results))
	}
	if res.Stats.AverageScore != 0 {
		t.Errorf("average must be 0 for an empty set, got %v", res.Stats.AverageScore)
	}
}

func TestResults_SortByScore(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	jobRow(mock, "job-6", models.JobCompleted, 3, 3, []models.BatchResult{
		{Input: "a", Score: 10, Level: "safe"},
		{Input: "b", Score: 90, Level: "critical"},
		{Input: "c", Score: 55, Level: "high"},
	})

	o := &Orchestrator{Jobs: repo.NewBatchJobRepo(db)}
	res, err := o.Results(context.Background(), "job-6", "score", "")
	if err != nil {
		t.Fatalf("Results: %v", err)
	}
	if res.Results[0].Score != 90 || res.Results[1].Score != 55 || res.Results[2].Score != 10 {
		t.Errorf("unexpected score order: %+v", res.Results)
	}
}

func TestIdentifierKind(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"+15551234567", models.KindPhone},
		{"15551234567", models.KindPhone},
		{"@scam_account", models.KindProfile},
		{"some_user", models.KindProfile},
	}
	for _, c := range cases {
		if got := identifierKind(c.in); got != c.want {
			t.Errorf("identifierKind(%q): got %q, want %q", c.in, got, c.want)
		}
	}
}
