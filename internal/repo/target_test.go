package repo

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
)

var targetCols = []string{"id", "watch_id", "owner", "identifier", "kind", "frequency",
	"status", "baseline_score", "current_score", "alerts_count", "last_checked_at",
	"next_check_at", "created_at"}

func TestTargetRepo_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`INSERT INTO targets`).
		WithArgs("w-1", "default", "+15551234567", "phone", "daily").
		WillReturnRows(sqlmock.NewRows(targetCols).
			AddRow(1, "w-1", "default", "+15551234567", "phone", "daily", "active", 0, 0, 0, nil, now, now))

	r := NewTargetRepo(db)
	tr, err := r.Create(context.Background(), "w-1", "default", "+15551234567", "phone", "daily")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if tr.ID != 1 || tr.WatchID != "w-1" || tr.Status != "active" || tr.LastCheckedAt != nil {
		t.Errorf("unexpected target: %+v", tr)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestTargetRepo_Create_Duplicate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO targets`).
		WithArgs("w-2", "default", "+15551234567", "phone", "daily").
		WillReturnError(&pq.Error{Code: "23505"})

	r := NewTargetRepo(db)
	_, err = r.Create(context.Background(), "w-2", "default", "+15551234567", "phone", "daily")
	if !errors.Is(err, ErrDuplicateTarget) {
		t.Fatalf("expected ErrDuplicateTarget, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestTargetRepo_GetByWatchID_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT id, watch_id, owner`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	r := NewTargetRepo(db)
	tr, err := r.GetByWatchID(context.Background(), "missing")
	if err != nil {
		t.Fatalf("GetByWatchID: %v", err)
	}
	if tr != nil {
		t.Errorf("expected nil, got %+v", tr)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestTargetRepo_Claim(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`UPDATE targets SET status = 'running'`).
		WithArgs(7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE targets SET status = 'running'`).
		WithArgs(7).
		WillReturnResult(sqlmock.NewResult(0, 0))

	r := NewTargetRepo(db)
	ok, err := r.Claim(context.Background(), 7)
	if err != nil || !ok {
		t.Fatalf("first claim: ok=%v err=%v", ok, err)
	}
	ok, err = r.Claim(context.Background(), 7)
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if ok {
		t.Error("second claim must lose while lease is held")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestTargetRepo_Due(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`SELECT id, watch_id, owner`).
		WithArgs(now, 100).
		WillReturnRows(sqlmock.NewRows(targetCols).
			AddRow(3, "w-3", "default", "@acct", "profile", "hourly", "active", 10, 10, 0, now.Add(-time.Hour), now.Add(-time.Minute), now.Add(-48*time.Hour)))

	r := NewTargetRepo(db)
	due, err := r.Due(context.Background(), now, 100)
	if err != nil {
		t.Fatalf("Due: %v", err)
	}
	if len(due) != 1 || due[0].ID != 3 || due[0].Kind != "profile" {
		t.Errorf("unexpected due list: %+v", due)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestTargetRepo_Delete_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`DELETE FROM targets`).
		WithArgs("gone").
		WillReturnResult(sqlmock.NewResult(0, 0))

	r := NewTargetRepo(db)
	if err := r.Delete(context.Background(), "gone"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}
