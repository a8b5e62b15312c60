package jobs

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jobvert/jobvert/internal/repository"
	"github.com/jobvert/jobvert/internal/worker"
)

func newHandler(t *testing.T) (*ExpireJobPostHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewExpireJobPostHandler(repository.New(db), logger), mock
}

func expirePayload(t *testing.T, id uuid.UUID) []byte {
	t.Helper()
	payload, err := json.Marshal(worker.ExpireJobPostPayload{JobPostID: id, Plan: "Bonsai"})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return payload
}

func TestExpireJobPostHandler_DeletesPost(t *testing.T) {
	handler, mock := newHandler(t)
	id := uuid.New()

	mock.ExpectExec("DELETE FROM job_posts").
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := handler.Handle(context.Background(), expirePayload(t, id)); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestExpireJobPostHandler_MissingPostIsNoOp(t *testing.T) {
	handler, mock := newHandler(t)
	id := uuid.New()

	mock.ExpectExec("DELETE FROM job_posts").
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 0))

	// Already deleted — expiration must succeed without error.
	if err := handler.Handle(context.Background(), expirePayload(t, id)); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	// Second firing against the same missing row behaves the same.
	mock.ExpectExec("DELETE FROM job_posts").
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := handler.Handle(context.Background(), expirePayload(t, id)); err != nil {
		t.Fatalf("Handle() second call error = %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestExpireJobPostHandler_BadPayloadIsPermanent(t *testing.T) {
	handler, _ := newHandler(t)

	err := handler.Handle(context.Background(), []byte("not json"))
	if err == nil {
		t.Fatal("expected error for malformed payload")
	}
	if !worker.IsPermanent(err) {
		t.Errorf("malformed payload should be a permanent error, got %v", err)
	}
}
