package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/crucial707/risk-watch/internal/repo"
	"github.com/lib/pq"
)

var targetCols = []string{"id", "watch_id", "owner", "identifier", "kind", "frequency",
	"status", "baseline_score", "current_score", "alerts_count", "last_checked_at",
	"next_check_at", "created_at"}

func TestWatchlistHandler_Add(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`INSERT INTO targets`).
		WithArgs(sqlmock.AnyArg(), "default", "+15551234567", "phone", "daily").
		WillReturnRows(sqlmock.NewRows(targetCols).
			AddRow(1, "w-1", "default", "+15551234567", "phone", "daily", "active", 0, 0, 0, nil, now, now))

	h := &WatchlistHandler{Targets: repo.NewTargetRepo(db)}

	body := []byte(`{"identifier": "+15551234567", "kind": "phone", "frequency": "daily"}`)
	req := httptest.NewRequest("POST", "/watchlist", jsonBody(body))
	rr := httptest.NewRecorder()
	h.Add(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("Add status: got %d, want 201 (body: %s)", rr.Code, rr.Body.String())
	}
	var out struct {
		WatchID string `json:"watch_id"`
		Status  string `json:"status"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.WatchID != "w-1" || out.Status != "active" {
		t.Errorf("unexpected response: %+v", out)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestWatchlistHandler_Add_Duplicate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO targets`).
		WithArgs(sqlmock.AnyArg(), "default", "+15551234567", "phone", "daily").
		WillReturnError(&pq.Error{Code: "23505"})

	h := &WatchlistHandler{Targets: repo.NewTargetRepo(db)}

	body := []byte(`{"identifier": "+15551234567", "kind": "phone", "frequency": "daily"}`)
	req := httptest.NewRequest("POST", "/watchlist", jsonBody(body))
	rr := httptest.NewRecorder()
	h.Add(rr, req)

	if rr.Code != http.StatusConflict {
		t.Errorf("Add duplicate status: got %d, want 409", rr.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestWatchlistHandler_Add_Validation(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	h := &WatchlistHandler{Targets: repo.NewTargetRepo(db)}

	body := []byte(`{"identifier": "", "kind": "email"}`)
	req := httptest.NewRequest("POST", "/watchlist", jsonBody(body))
	rr := httptest.NewRecorder()
	h.Add(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", rr.Code)
	}
	var out struct {
		Fields map[string]string `json:"fields"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Fields["identifier"] == "" || out.Fields["kind"] == "" {
		t.Errorf("expected field errors for identifier and kind: %+v", out.Fields)
	}
}

func TestWatchlistHandler_Remove_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`DELETE FROM targets`).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	h := &WatchlistHandler{Targets: repo.NewTargetRepo(db)}

	req := requestWithChiURLParams("DELETE", "/watchlist/missing", nil, map[string]string{"watchID": "missing"})
	rr := httptest.NewRecorder()
	h.Remove(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", rr.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestWatchlistHandler_Timeline(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`SELECT id, watch_id, owner`).
		WithArgs("w-1").
		WillReturnRows(sqlmock.NewRows(targetCols).
			AddRow(3, "w-1", "default", "@acct", "profile", "daily", "active", 10, 40, 2, now, now.Add(24*time.Hour), now))
	mock.ExpectQuery(`SELECT id, target_id, captured_at`).
		WithArgs(3, 50, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "target_id", "captured_at", "fields", "score", "level", "flags"}).
			AddRow(2, 3, now, []byte(`{"bio":"hello","follower_count":150}`), 40, "suspicious", nil).
			AddRow(1, 3, now.Add(-24*time.Hour), []byte(`{"bio":"hello","follower_count":100}`), 10, "safe", nil))

	h := &WatchlistHandler{Targets: repo.NewTargetRepo(db), Snapshots: repo.NewSnapshotRepo(db)}

	req := requestWithChiURLParams("GET", "/watchlist/w-1/timeline", nil, map[string]string{"watchID": "w-1"})
	rr := httptest.NewRecorder()
	h.Timeline(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	var snaps []struct {
		ID     int `json:"id"`
		Fields struct {
			FollowerCount int `json:"follower_count"`
		} `json:"fields"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&snaps); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(snaps) != 2 || snaps[0].ID != 2 || snaps[0].Fields.FollowerCount != 150 {
		t.Errorf("unexpected timeline: %+v", snaps)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}
