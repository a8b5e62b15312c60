package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Job statuses for the background queue.
const (
	JobStatusPending   = "pending"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
)

// Job is one row of the background job queue.
type Job struct {
	ID           uuid.UUID
	JobType      string
	Payload      []byte
	Status       string
	Priority     int32
	Attempts     int32
	MaxAttempts  int32
	ScheduledAt  time.Time
	StartedAt    sql.NullTime
	CompletedAt  sql.NullTime
	ErrorMessage sql.NullString
	CreatedAt    time.Time
}

// EnqueueJobParams contains the columns for a new queue entry.
type EnqueueJobParams struct {
	JobType     string
	Payload     []byte
	Priority    int32
	MaxAttempts int32
	ScheduledAt time.Time
}

// UpdateJobFailedParams records a failed attempt.
type UpdateJobFailedParams struct {
	ID           uuid.UUID
	ErrorMessage sql.NullString
}

const jobColumns = `id, job_type, payload, status, priority, attempts, max_attempts, scheduled_at, started_at, completed_at, error_message, created_at`

func scanJob(row *sql.Row) (Job, error) {
	var j Job
	err := row.Scan(
		&j.ID,
		&j.JobType,
		&j.Payload,
		&j.Status,
		&j.Priority,
		&j.Attempts,
		&j.MaxAttempts,
		&j.ScheduledAt,
		&j.StartedAt,
		&j.CompletedAt,
		&j.ErrorMessage,
		&j.CreatedAt,
	)
	return j, err
}

// EnqueueJob inserts a new pending job.
func (q *Queries) EnqueueJob(ctx context.Context, params EnqueueJobParams) (Job, error) {
	const query = `INSERT INTO jobs (job_type, payload, priority, max_attempts, scheduled_at)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + jobColumns
	return scanJob(q.db.QueryRowContext(ctx, query,
		params.JobType,
		params.Payload,
		params.Priority,
		params.MaxAttempts,
		params.ScheduledAt,
	))
}

// DequeueJob locks and returns the next runnable job. SKIP LOCKED keeps
// concurrent workers from fighting over the same row. Must run inside a
// transaction; returns sql.ErrNoRows when nothing is due.
func (q *Queries) DequeueJob(ctx context.Context) (Job, error) {
	const query = `SELECT ` + jobColumns + ` FROM jobs
WHERE status = 'pending' AND scheduled_at <= now()
ORDER BY priority DESC, scheduled_at
LIMIT 1
FOR UPDATE SKIP LOCKED`
	return scanJob(q.db.QueryRowContext(ctx, query))
}

// UpdateJobStarted marks a job as running and counts the attempt.
func (q *Queries) UpdateJobStarted(ctx context.Context, id uuid.UUID) error {
	const query = `UPDATE jobs
SET status = 'running', attempts = attempts + 1, started_at = now()
WHERE id = $1`
	_, err := q.db.ExecContext(ctx, query, id)
	return err
}

// UpdateJobCompleted marks a job as successfully completed.
func (q *Queries) UpdateJobCompleted(ctx context.Context, id uuid.UUID) error {
	const query = `UPDATE jobs
SET status = 'completed', completed_at = now(), error_message = NULL
WHERE id = $1`
	_, err := q.db.ExecContext(ctx, query, id)
	return err
}

// UpdateJobFailed records a failure. Jobs under their attempt budget are
// rescheduled with exponential backoff; the rest are marked failed.
func (q *Queries) UpdateJobFailed(ctx context.Context, params UpdateJobFailedParams) error {
	const query = `UPDATE jobs
SET status = CASE WHEN attempts >= max_attempts THEN 'failed' ELSE 'pending' END,
    scheduled_at = now() + (interval '1 minute' * power(2, attempts)),
    error_message = $2
WHERE id = $1`
	_, err := q.db.ExecContext(ctx, query, params.ID, params.ErrorMessage)
	return err
}

// RecoverStaleJobs resets running jobs whose worker likely crashed.
// Returns the number of jobs reset.
func (q *Queries) RecoverStaleJobs(ctx context.Context, thresholdSeconds float64) (int64, error) {
	const query = `UPDATE jobs
SET status = 'pending', started_at = NULL
WHERE status = 'running' AND started_at < now() - ($1 * interval '1 second')`
	result, err := q.db.ExecContext(ctx, query, thresholdSeconds)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// MarkPermanentlyFailed moves a job straight to failed, bypassing retries.
func (q *Queries) MarkPermanentlyFailed(ctx context.Context, id uuid.UUID, errorMessage string) error {
	const query = `UPDATE jobs
SET status = 'failed', error_message = $2, completed_at = now()
WHERE id = $1`
	_, err := q.db.ExecContext(ctx, query, id, errorMessage)
	return err
}
