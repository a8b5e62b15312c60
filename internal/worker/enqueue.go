package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jobvert/jobvert/internal/repository"
)

// Job type constants - these must match the JobHandler.Type() values
const (
	JobTypeExpireJobPost = "expire_job_post"
)

// Priority constants for job scheduling
const (
	PriorityLow    = 0
	PriorityNormal = 10
	PriorityHigh   = 20
)

// ExpireJobPostPayload is the payload for job post expiration jobs.
type ExpireJobPostPayload struct {
	JobPostID uuid.UUID `json:"job_post_id"`
	Plan      string    `json:"plan"`
}

// EnqueueOption is a functional option for customizing job enqueue parameters.
type EnqueueOption func(*repository.EnqueueJobParams)

// WithPriority sets the job priority.
func WithPriority(priority int32) EnqueueOption {
	return func(p *repository.EnqueueJobParams) {
		p.Priority = priority
	}
}

// WithMaxAttempts sets the maximum number of retry attempts.
func WithMaxAttempts(attempts int32) EnqueueOption {
	return func(p *repository.EnqueueJobParams) {
		p.MaxAttempts = attempts
	}
}

// WithDelay schedules the job to run after a delay.
func WithDelay(delay time.Duration) EnqueueOption {
	return func(p *repository.EnqueueJobParams) {
		p.ScheduledAt = time.Now().Add(delay)
	}
}

// EnqueueJob is a generic helper for enqueuing jobs with custom options.
func EnqueueJob(
	ctx context.Context,
	queries *repository.Queries,
	jobType string,
	payload interface{},
	opts ...EnqueueOption,
) (repository.Job, error) {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return repository.Job{}, fmt.Errorf("marshal payload: %w", err)
	}

	params := repository.EnqueueJobParams{
		JobType:     jobType,
		Payload:     payloadJSON,
		Priority:    PriorityNormal,
		MaxAttempts: 3,
		ScheduledAt: time.Now(),
	}

	for _, opt := range opts {
		opt(&params)
	}

	job, err := queries.EnqueueJob(ctx, params)
	if err != nil {
		return repository.Job{}, fmt.Errorf("enqueue job: %w", err)
	}

	return job, nil
}

// EnqueueExpireJobPost schedules the deletion of a job post once its plan's
// validity window elapses. Called at job creation time; the delay is the
// plan's duration, so the expiration clock starts at creation, not at
// activation.
func EnqueueExpireJobPost(
	ctx context.Context,
	queries *repository.Queries,
	jobPostID uuid.UUID,
	plan string,
	delay time.Duration,
	opts ...EnqueueOption,
) (repository.Job, error) {
	payload := ExpireJobPostPayload{
		JobPostID: jobPostID,
		Plan:      plan,
	}

	opts = append([]EnqueueOption{WithDelay(delay)}, opts...)
	return EnqueueJob(ctx, queries, JobTypeExpireJobPost, payload, opts...)
}
