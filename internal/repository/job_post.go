package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// JobPost is the database representation of a job listing.
// Benefits are stored as a JSONB array.
type JobPost struct {
	ID             uuid.UUID
	CompanyID      uuid.UUID
	JobTitle       string
	JobDescription string
	EmploymentType string
	Location       string
	SalaryFrom     int
	SalaryTo       int
	Benefits       []string
	ListingPlan    string
	Status         string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// PlanActiveCount is one row of the active-posts-per-plan aggregate.
type PlanActiveCount struct {
	Plan  string
	Count int
}

// CreateJobPostParams contains the columns for a new job post row.
type CreateJobPostParams struct {
	CompanyID      uuid.UUID
	JobTitle       string
	JobDescription string
	EmploymentType string
	Location       string
	SalaryFrom     int
	SalaryTo       int
	Benefits       []string
	ListingPlan    string
	Status         string
}

const jobPostColumns = `id, company_id, job_title, job_description, employment_type, location, salary_from, salary_to, benefits, listing_plan, status, created_at, updated_at`

func scanJobPost(row *sql.Row) (JobPost, error) {
	var jp JobPost
	var benefits []byte
	err := row.Scan(
		&jp.ID,
		&jp.CompanyID,
		&jp.JobTitle,
		&jp.JobDescription,
		&jp.EmploymentType,
		&jp.Location,
		&jp.SalaryFrom,
		&jp.SalaryTo,
		&benefits,
		&jp.ListingPlan,
		&jp.Status,
		&jp.CreatedAt,
		&jp.UpdatedAt,
	)
	if err != nil {
		return JobPost{}, err
	}
	if len(benefits) > 0 {
		if err := json.Unmarshal(benefits, &jp.Benefits); err != nil {
			return JobPost{}, err
		}
	}
	return jp, nil
}

// CreateJobPost inserts a new job post and returns the stored row.
func (q *Queries) CreateJobPost(ctx context.Context, params CreateJobPostParams) (JobPost, error) {
	benefits, err := json.Marshal(params.Benefits)
	if err != nil {
		return JobPost{}, err
	}

	const query = `INSERT INTO job_posts (company_id, job_title, job_description, employment_type, location, salary_from, salary_to, benefits, listing_plan, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING ` + jobPostColumns
	return scanJobPost(q.db.QueryRowContext(ctx, query,
		params.CompanyID,
		params.JobTitle,
		params.JobDescription,
		params.EmploymentType,
		params.Location,
		params.SalaryFrom,
		params.SalaryTo,
		benefits,
		params.ListingPlan,
		params.Status,
	))
}

// GetJobPost fetches a job post by ID.
func (q *Queries) GetJobPost(ctx context.Context, id uuid.UUID) (JobPost, error) {
	const query = `SELECT ` + jobPostColumns + ` FROM job_posts WHERE id = $1`
	return scanJobPost(q.db.QueryRowContext(ctx, query, id))
}

// CountActiveJobPosts counts a company's ACTIVE posts under one plan.
func (q *Queries) CountActiveJobPosts(ctx context.Context, companyID uuid.UUID, plan string) (int, error) {
	const query = `SELECT count(*) FROM job_posts
WHERE company_id = $1 AND listing_plan = $2 AND status = 'ACTIVE'`
	var count int
	err := q.db.QueryRowContext(ctx, query, companyID, plan).Scan(&count)
	return count, err
}

// CountActiveJobPostsByPlan counts a company's ACTIVE posts grouped by plan.
// Plans with no active posts are absent from the result.
func (q *Queries) CountActiveJobPostsByPlan(ctx context.Context, companyID uuid.UUID) ([]PlanActiveCount, error) {
	const query = `SELECT listing_plan, count(*) FROM job_posts
WHERE company_id = $1 AND status = 'ACTIVE'
GROUP BY listing_plan`
	rows, err := q.db.QueryContext(ctx, query, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PlanActiveCount
	for rows.Next() {
		var pc PlanActiveCount
		if err := rows.Scan(&pc.Plan, &pc.Count); err != nil {
			return nil, err
		}
		out = append(out, pc)
	}
	return out, rows.Err()
}

// UpdateJobPostStatus sets the status of a job post.
func (q *Queries) UpdateJobPostStatus(ctx context.Context, id uuid.UUID, status string) error {
	const query = `UPDATE job_posts SET status = $2, updated_at = now() WHERE id = $1`
	result, err := q.db.ExecContext(ctx, query, id, status)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteJobPost removes a job post row. Returns the number of rows deleted
// so callers can distinguish an already-gone post (0) without treating it
// as an error.
func (q *Queries) DeleteJobPost(ctx context.Context, id uuid.UUID) (int64, error) {
	const query = `DELETE FROM job_posts WHERE id = $1`
	result, err := q.db.ExecContext(ctx, query, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// DeleteJobPostOwned removes a job post only when it belongs to the given
// company.
func (q *Queries) DeleteJobPostOwned(ctx context.Context, id, companyID uuid.UUID) (int64, error) {
	const query = `DELETE FROM job_posts WHERE id = $1 AND company_id = $2`
	result, err := q.db.ExecContext(ctx, query, id, companyID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
