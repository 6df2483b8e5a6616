package repo

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestSnapshotRepo_Latest(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`SELECT id, target_id, captured_at`).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"id", "target_id", "captured_at", "fields", "score", "level", "flags"}).
			AddRow(2, 3, now, []byte(`{"bio":"hello","follower_count":150}`), 40, "suspicious", []byte(`["voip"]`)))

	r := NewSnapshotRepo(db)
	s, err := r.Latest(context.Background(), 3)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if s == nil || s.Fields.FollowerCount != 150 || s.Level != "suspicious" {
		t.Fatalf("unexpected snapshot: %+v", s)
	}
	if len(s.Flags) != 1 || s.Flags[0] != "voip" {
		t.Errorf("unexpected flags: %v", s.Flags)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestSnapshotRepo_Latest_CorruptFlags(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT id, target_id, captured_at`).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"id", "target_id", "captured_at", "fields", "score", "level", "flags"}).
			AddRow(2, 3, time.Now(), []byte(`{"bio":"hello"}`), 0, "safe", []byte(`{not json`)))

	r := NewSnapshotRepo(db)
	if _, err := r.Latest(context.Background(), 3); err == nil {
		t.Fatal("expected an error for undecodable flags, got nil")
	}
}
