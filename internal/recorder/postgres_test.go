package recorder

import (
	"context"
	"errors"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/annotation-study/registration/internal/db/repositories"
)

func newPostgresSink(t *testing.T) (*PostgresSink, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	repo := repositories.NewRegistrationRepository(sqlx.NewDb(db, "sqlmock"))
	return NewPostgresSink(repo), mock
}

func TestPostgresSink_Append(t *testing.T) {
	s, mock := newPostgresSink(t)
	rec := sampleRecord()
	mock.ExpectExec("INSERT INTO registrations").
		WithArgs(rec.ID, "German, English", 29, "German", "German", "Master's degree", "p@example.org",
			rec.RegisteredAt, "anno_z9y8x7", true, true, 1, sqlmock.AnyArg(), nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := s.Append(context.Background(), rec); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPostgresSink_InsertError(t *testing.T) {
	s, mock := newPostgresSink(t)
	mock.ExpectExec("INSERT INTO registrations").WillReturnError(errors.New("relation does not exist"))

	if err := s.Append(context.Background(), sampleRecord()); err == nil {
		t.Error("Append() = nil error, want insert failure")
	}
}
