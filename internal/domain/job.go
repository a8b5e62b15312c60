// Package domain contains core business types and interfaces.
//
// This file defines the JobPost type and its status state machine.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// JobPostStatus represents the lifecycle state of a job post.
//
// A post is created DRAFT when payment is required, or directly ACTIVE when
// a credit is available (or free posting is enabled). Payment completion
// moves DRAFT to ACTIVE. Expiration deletes the row outright, so there is
// no terminal status value.
type JobPostStatus string

const (
	JobPostStatusDraft  JobPostStatus = "DRAFT"
	JobPostStatusActive JobPostStatus = "ACTIVE"
)

// ConsumesCredit reports whether a post in this status counts toward its
// plan's usage. Only ACTIVE posts consume quota; an abandoned DRAFT never
// converts and never consumes.
func (s JobPostStatus) ConsumesCredit() bool {
	return s == JobPostStatusActive
}

// CanTransitionTo reports whether the transition s -> target is allowed.
func (s JobPostStatus) CanTransitionTo(target JobPostStatus) bool {
	switch s {
	case JobPostStatusDraft:
		return target == JobPostStatusActive
	default:
		return false
	}
}

// ApplyPaymentCompleted computes the status after a confirmed payment.
//
// Webhook delivery is at-least-once, so a replay against an already ACTIVE
// post must be a no-op rather than an error: changed is false and the
// status is returned unchanged.
func (s JobPostStatus) ApplyPaymentCompleted() (next JobPostStatus, changed bool, err error) {
	switch s {
	case JobPostStatusDraft:
		return JobPostStatusActive, true, nil
	case JobPostStatusActive:
		return JobPostStatusActive, false, nil
	default:
		return s, false, Errorf(ECONFLICT, "job.apply_payment", "cannot activate job post in status %q", s)
	}
}

// JobPost represents a published or pending job listing.
// ListingPlan is fixed at creation and never changes.
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
	ListingPlan    ListingPlan
	Status         JobPostStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsActive returns true when the post is live and consuming a credit.
func (j *JobPost) IsActive() bool {
	return j.Status.ConsumesCredit()
}

// CreateJobParams contains the validated parameters for creating a job post.
type CreateJobParams struct {
	JobTitle       string
	JobDescription string
	EmploymentType string
	Location       string
	SalaryFrom     int
	SalaryTo       int
	Benefits       []string
	ListingPlan    ListingPlan
}
