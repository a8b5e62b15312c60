// Package service contains the business logic layer.
//
// This file implements the job service: job post creation behind the
// credit gate, activation from completed payments, and manual deletion.
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jobvert/jobvert/internal/billing"
	"github.com/jobvert/jobvert/internal/domain"
	"github.com/jobvert/jobvert/internal/email"
	"github.com/jobvert/jobvert/internal/metrics"
	"github.com/jobvert/jobvert/internal/repository"
	"github.com/jobvert/jobvert/internal/worker"
)

// =============================================================================
// Interface Definition
// =============================================================================

// CreateJobResult is the outcome of a job creation attempt.
//
// When RequiresPayment is true the post was stored as DRAFT and the
// caller must redirect the user to CheckoutURL; otherwise the post is
// already ACTIVE.
type CreateJobResult struct {
	Job             *domain.JobPost
	RequiresPayment bool
	CheckoutURL     string
}

// ActivationResult is the outcome of processing a completed payment.
//
// CreditsGranted is zero on webhook replays: an already ACTIVE post
// means the purchase was recorded before, so the ledger is untouched.
type ActivationResult struct {
	Job            *domain.JobPost
	Company        *domain.Company
	CreditsGranted int
}

// JobService defines the interface for job post operations.
type JobService interface {
	// Create stores a new job post for the company, gated on plan credits.
	// The post is created ACTIVE when a credit is available (or free
	// posting is enabled), DRAFT with a checkout URL otherwise. Either way
	// the company's last-used plan is updated and expiration is scheduled.
	Create(ctx context.Context, user *domain.User, company *domain.Company, params domain.CreateJobParams) (*CreateJobResult, error)

	// ActivateFromPayment processes a completed checkout: it grants the
	// purchased credit bundle and flips the paid post to ACTIVE, atomically.
	// Replays against an already ACTIVE post are no-ops.
	ActivateFromPayment(ctx context.Context, stripeCustomerID string, jobPostID uuid.UUID, plan domain.ListingPlan) (*ActivationResult, error)

	// Delete removes a job post owned by the company.
	Delete(ctx context.Context, companyID, jobPostID uuid.UUID) error
}

// =============================================================================
// Implementation
// =============================================================================

// JobServiceConfig carries the settings the job service needs.
type JobServiceConfig struct {
	// FreePostingEnabled bypasses the payment gate: every post is created
	// ACTIVE regardless of remaining credits, and no credit is consumed.
	FreePostingEnabled bool

	// BaseURL is the application's public URL, used for checkout redirect
	// targets and links in emails.
	BaseURL string
}

type jobService struct {
	db      *sql.DB
	queries *repository.Queries
	billing billing.Service
	email   email.EmailService
	logger  *slog.Logger
	cfg     JobServiceConfig
}

// NewJobService creates a new JobService.
func NewJobService(
	db *sql.DB,
	queries *repository.Queries,
	billingService billing.Service,
	emailService email.EmailService,
	logger *slog.Logger,
	cfg JobServiceConfig,
) JobService {
	return &jobService{
		db:      db,
		queries: queries,
		billing: billingService,
		email:   emailService,
		logger:  logger,
		cfg:     cfg,
	}
}

// Create stores a new job post for the company, gated on plan credits.
func (s *jobService) Create(ctx context.Context, user *domain.User, company *domain.Company, params domain.CreateJobParams) (*CreateJobResult, error) {
	const op = "JobService.Create"

	tier, err := domain.GetTier(params.ListingPlan)
	if err != nil {
		return nil, err
	}

	// Gate check: remaining capacity for the submitted plan only. The
	// count and the insert are not one atomic unit; a concurrent create
	// can at worst activate one extra post, which the drift metric surfaces.
	active, err := s.queries.CountActiveJobPosts(ctx, company.ID, string(tier.Name))
	if err != nil {
		s.logger.Error("failed to count active posts", "error", err, "op", op, "company_id", company.ID)
		return nil, domain.Internal(err, op, "Failed to check plan capacity")
	}

	purchased := 0
	credit, err := s.queries.GetPlanCredit(ctx, company.ID, string(tier.Name))
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		s.logger.Error("failed to get plan credit", "error", err, "op", op, "company_id", company.ID)
		return nil, domain.Internal(err, op, "Failed to check plan credits")
	}
	if err == nil {
		purchased = credit.CreditsPurchased
	}

	usage := domain.NewPlanUsage(tier, purchased, active)
	requiresPayment := !s.cfg.FreePostingEnabled && usage.Remaining <= 0

	status := domain.JobPostStatusActive
	if requiresPayment {
		status = domain.JobPostStatusDraft
	}

	repoJob, err := s.queries.CreateJobPost(ctx, repository.CreateJobPostParams{
		CompanyID:      company.ID,
		JobTitle:       params.JobTitle,
		JobDescription: params.JobDescription,
		EmploymentType: params.EmploymentType,
		Location:       params.Location,
		SalaryFrom:     params.SalaryFrom,
		SalaryTo:       params.SalaryTo,
		Benefits:       params.Benefits,
		ListingPlan:    string(tier.Name),
		Status:         string(status),
	})
	if err != nil {
		s.logger.Error("failed to create job post", "error", err, "op", op, "company_id", company.ID)
		return nil, domain.Internal(err, op, "Failed to create job post")
	}
	job := repoJobPostToDomain(repoJob)
	metrics.JobPostsCreated.WithLabelValues(string(tier.Name), string(status)).Inc()

	// Remember the plan for next time, whether or not payment is pending.
	if err := s.queries.UpdateCompanyLastUsedPlan(ctx, company.ID, string(tier.Name)); err != nil {
		s.logger.Warn("failed to update last used plan", "error", err, "op", op, "company_id", company.ID)
	}

	// The expiration clock starts at creation. The post already exists, so
	// a scheduling failure is logged rather than failing the request.
	delay := time.Duration(tier.DurationDays) * 24 * time.Hour
	if _, err := worker.EnqueueExpireJobPost(ctx, s.queries, job.ID, string(tier.Name), delay); err != nil {
		s.logger.Error("failed to schedule job post expiration", "error", err, "op", op, "job_post_id", job.ID)
	}

	if !requiresPayment {
		s.logger.Info("job post published",
			"job_post_id", job.ID,
			"company_id", company.ID,
			"plan", tier.Name,
			"remaining_before", usage.Remaining,
		)
		// Best-effort notification.
		if err := s.email.SendJobPublishedEmail(ctx, user.Email, user.DisplayName(), job.JobTitle, s.jobURL(job.ID)); err != nil {
			s.logger.Warn("failed to send publication email", "error", err, "job_post_id", job.ID)
		}
		return &CreateJobResult{Job: &job}, nil
	}

	checkoutURL, err := s.startCheckout(ctx, user, company, &job, tier)
	if err != nil {
		return nil, err
	}

	s.logger.Info("job post pending payment",
		"job_post_id", job.ID,
		"company_id", company.ID,
		"plan", tier.Name,
	)
	return &CreateJobResult{
		Job:             &job,
		RequiresPayment: true,
		CheckoutURL:     checkoutURL,
	}, nil
}

// startCheckout ensures the company has a Stripe customer and opens a
// checkout session for the tier's credit bundle.
func (s *jobService) startCheckout(ctx context.Context, user *domain.User, company *domain.Company, job *domain.JobPost, tier domain.PricingTier) (string, error) {
	const op = "JobService.startCheckout"

	if s.billing == nil {
		return "", &domain.Error{Code: domain.EPAYMENT, Op: op, Message: "Payments are not available"}
	}

	customerID := company.StripeCustomerID
	if customerID == "" {
		id, err := s.billing.CreateCustomer(user.Email, company.Name)
		if err != nil {
			s.logger.Error("failed to create stripe customer", "error", err, "op", op, "company_id", company.ID)
			return "", &domain.Error{Code: domain.EPAYMENT, Op: op, Message: "Failed to set up payment", Err: err}
		}
		if err := s.queries.UpdateCompanyStripeCustomer(ctx, company.ID, id); err != nil {
			s.logger.Error("failed to store stripe customer", "error", err, "op", op, "company_id", company.ID)
			return "", domain.Internal(err, op, "Failed to set up payment")
		}
		customerID = id
	}

	checkoutURL, err := s.billing.CreateJobCheckoutSession(billing.CheckoutParams{
		CustomerID: customerID,
		JobID:      job.ID.String(),
		Tier:       tier,
		SuccessURL: fmt.Sprintf("%s/my-jobs?checkout=success", s.cfg.BaseURL),
		CancelURL:  fmt.Sprintf("%s/post-job?checkout=cancelled", s.cfg.BaseURL),
	})
	if err != nil {
		s.logger.Error("failed to create checkout session", "error", err, "op", op, "job_post_id", job.ID)
		return "", &domain.Error{Code: domain.EPAYMENT, Op: op, Message: "Failed to start checkout", Err: err}
	}

	metrics.CheckoutSessionsStarted.WithLabelValues(string(tier.Name)).Inc()
	return checkoutURL, nil
}

// ActivateFromPayment processes a completed checkout.
func (s *jobService) ActivateFromPayment(ctx context.Context, stripeCustomerID string, jobPostID uuid.UUID, plan domain.ListingPlan) (*ActivationResult, error) {
	const op = "JobService.ActivateFromPayment"

	tier, err := domain.GetTier(plan)
	if err != nil {
		return nil, err
	}

	repoCompany, err := s.queries.GetCompanyByStripeCustomerID(ctx, stripeCustomerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "company", stripeCustomerID)
		}
		s.logger.Error("failed to resolve company from customer", "error", err, "op", op)
		return nil, domain.Internal(err, op, "Failed to resolve company")
	}
	company := repoCompanyToDomain(repoCompany)

	repoJob, err := s.queries.GetJobPost(ctx, jobPostID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "job post", jobPostID.String())
		}
		s.logger.Error("failed to get job post", "error", err, "op", op, "job_post_id", jobPostID)
		return nil, domain.Internal(err, op, "Failed to retrieve job post")
	}
	job := repoJobPostToDomain(repoJob)

	if job.CompanyID != company.ID {
		s.logger.Warn("payment for job post owned by another company",
			"op", op,
			"job_post_id", job.ID,
			"job_company_id", job.CompanyID,
			"paying_company_id", company.ID,
		)
		return nil, domain.Forbidden(op, "Job post does not belong to the paying company")
	}

	next, changed, err := job.Status.ApplyPaymentCompleted()
	if err != nil {
		return nil, err
	}
	if !changed {
		// Webhook replay: the purchase was already recorded.
		s.logger.Info("payment replay ignored", "op", op, "job_post_id", job.ID)
		return &ActivationResult{Job: &job, Company: &company}, nil
	}

	// Credit grant and activation are one atomic unit: a post must never
	// go live without its paid credits landing in the ledger, or vice versa.
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("failed to begin transaction", "error", err, "op", op)
		return nil, domain.Internal(err, op, "Failed to record payment")
	}
	defer tx.Rollback()

	qtx := s.queries.WithTx(tx)
	if _, err := qtx.UpsertPlanCredit(ctx, company.ID, string(tier.Name), tier.BundleSize); err != nil {
		s.logger.Error("failed to upsert plan credit", "error", err, "op", op, "company_id", company.ID)
		return nil, domain.Internal(err, op, "Failed to record payment")
	}
	if err := qtx.UpdateJobPostStatus(ctx, job.ID, string(next)); err != nil {
		s.logger.Error("failed to activate job post", "error", err, "op", op, "job_post_id", job.ID)
		return nil, domain.Internal(err, op, "Failed to record payment")
	}
	if err := tx.Commit(); err != nil {
		s.logger.Error("failed to commit payment", "error", err, "op", op, "job_post_id", job.ID)
		return nil, domain.Internal(err, op, "Failed to record payment")
	}

	job.Status = next
	metrics.CreditsPurchased.WithLabelValues(string(tier.Name)).Add(float64(tier.BundleSize))

	s.logger.Info("payment recorded",
		"job_post_id", job.ID,
		"company_id", company.ID,
		"plan", tier.Name,
		"credits_granted", tier.BundleSize,
	)
	return &ActivationResult{
		Job:            &job,
		Company:        &company,
		CreditsGranted: tier.BundleSize,
	}, nil
}

// Delete removes a job post owned by the company.
func (s *jobService) Delete(ctx context.Context, companyID, jobPostID uuid.UUID) error {
	const op = "JobService.Delete"

	deleted, err := s.queries.DeleteJobPostOwned(ctx, jobPostID, companyID)
	if err != nil {
		s.logger.Error("failed to delete job post", "error", err, "op", op, "job_post_id", jobPostID)
		return domain.Internal(err, op, "Failed to delete job post")
	}
	if deleted == 0 {
		return domain.NotFound(op, "job post", jobPostID.String())
	}

	s.logger.Info("job post deleted", "job_post_id", jobPostID, "company_id", companyID)
	return nil
}

// jobURL builds the public URL of a job post.
func (s *jobService) jobURL(id uuid.UUID) string {
	return fmt.Sprintf("%s/jobs/%s", s.cfg.BaseURL, id)
}

// repoJobPostToDomain converts a repository JobPost to a domain JobPost.
func repoJobPostToDomain(rj repository.JobPost) domain.JobPost {
	return domain.JobPost{
		ID:             rj.ID,
		CompanyID:      rj.CompanyID,
		JobTitle:       rj.JobTitle,
		JobDescription: rj.JobDescription,
		EmploymentType: rj.EmploymentType,
		Location:       rj.Location,
		SalaryFrom:     rj.SalaryFrom,
		SalaryTo:       rj.SalaryTo,
		Benefits:       rj.Benefits,
		ListingPlan:    domain.ListingPlan(rj.ListingPlan),
		Status:         domain.JobPostStatus(rj.Status),
		CreatedAt:      rj.CreatedAt,
		UpdatedAt:      rj.UpdatedAt,
	}
}
