// Package jobs contains background job handlers executed by the worker.
//
// This file implements job post expiration: the delayed deletion of a job
// post once its listing plan's validity window has elapsed. Since plan
// usage is computed from currently ACTIVE posts, deleting the row is what
// frees the consumed credit — there is no separate release operation.
package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jobvert/jobvert/internal/metrics"
	"github.com/jobvert/jobvert/internal/repository"
	"github.com/jobvert/jobvert/internal/worker"
)

// ExpireJobPostHandler deletes a job post whose validity window elapsed.
type ExpireJobPostHandler struct {
	queries *repository.Queries
	logger  *slog.Logger
}

// NewExpireJobPostHandler creates the expiration handler.
func NewExpireJobPostHandler(queries *repository.Queries, logger *slog.Logger) *ExpireJobPostHandler {
	return &ExpireJobPostHandler{
		queries: queries,
		logger:  logger,
	}
}

// Type returns the job type identifier.
func (h *ExpireJobPostHandler) Type() string {
	return worker.JobTypeExpireJobPost
}

// Handle deletes the job post named in the payload.
//
// Deletion is idempotent: the queue delivers at least once, and the post
// may have been deleted manually in the meantime. A missing row is logged
// and treated as success.
func (h *ExpireJobPostHandler) Handle(ctx context.Context, payload []byte) error {
	var p worker.ExpireJobPostPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return worker.NewPermanentError(fmt.Errorf("unmarshal payload: %w", err))
	}

	deleted, err := h.queries.DeleteJobPost(ctx, p.JobPostID)
	if err != nil {
		return fmt.Errorf("delete job post: %w", err)
	}

	if deleted == 0 {
		h.logger.Info("Job post already gone, nothing to expire", "job_post_id", p.JobPostID)
		return nil
	}

	metrics.JobPostsExpired.WithLabelValues(p.Plan).Inc()
	h.logger.Info("Job post expired", "job_post_id", p.JobPostID, "plan", p.Plan)
	return nil
}
