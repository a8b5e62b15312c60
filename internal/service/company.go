// Package service contains the business logic layer.
//
// This file implements the company service: employer account lookups and
// the default listing plan preference.
package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jobvert/jobvert/internal/domain"
	"github.com/jobvert/jobvert/internal/repository"
)

// CompanyService defines the interface for company-related operations.
type CompanyService interface {
	// GetByUserID retrieves the company owned by a user.
	// Returns ENOTFOUND when the user has not completed onboarding; the
	// handlers turn that into an onboarding redirect.
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Company, error)

	// GetByStripeCustomerID resolves the company behind a Stripe customer.
	GetByStripeCustomerID(ctx context.Context, customerID string) (*domain.Company, error)

	// SetDefaultPlan stores or clears the company's sticky plan preference.
	// An empty plan clears it.
	SetDefaultPlan(ctx context.Context, companyID uuid.UUID, plan string) error
}

// companyService implements CompanyService.
type companyService struct {
	queries *repository.Queries
	logger  *slog.Logger
}

// NewCompanyService creates a new CompanyService.
func NewCompanyService(queries *repository.Queries, logger *slog.Logger) CompanyService {
	return &companyService{
		queries: queries,
		logger:  logger,
	}
}

// GetByUserID retrieves the company owned by a user.
func (s *companyService) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Company, error) {
	const op = "CompanyService.GetByUserID"

	repoCompany, err := s.queries.GetCompanyByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "company", userID.String())
		}
		s.logger.Error("failed to get company", "error", err, "op", op, "user_id", userID)
		return nil, domain.Internal(err, op, "Failed to retrieve company")
	}

	company := repoCompanyToDomain(repoCompany)
	return &company, nil
}

// GetByStripeCustomerID resolves the company behind a Stripe customer.
func (s *companyService) GetByStripeCustomerID(ctx context.Context, customerID string) (*domain.Company, error) {
	const op = "CompanyService.GetByStripeCustomerID"

	repoCompany, err := s.queries.GetCompanyByStripeCustomerID(ctx, customerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "company", customerID)
		}
		s.logger.Error("failed to get company by customer", "error", err, "op", op)
		return nil, domain.Internal(err, op, "Failed to retrieve company")
	}

	company := repoCompanyToDomain(repoCompany)
	return &company, nil
}

// SetDefaultPlan stores or clears the company's sticky plan preference.
func (s *companyService) SetDefaultPlan(ctx context.Context, companyID uuid.UUID, plan string) error {
	const op = "CompanyService.SetDefaultPlan"

	plan = strings.TrimSpace(plan)
	if plan != "" && !domain.ValidPlan(domain.ListingPlan(plan)) {
		return domain.Invalid(op, "Unknown listing plan")
	}

	if err := s.queries.UpdateCompanyDefaultPlan(ctx, companyID, plan); err != nil {
		s.logger.Error("failed to set default plan", "error", err, "op", op, "company_id", companyID)
		return domain.Internal(err, op, "Failed to update default plan")
	}

	s.logger.Info("default plan updated", "company_id", companyID, "plan", plan)
	return nil
}

// repoCompanyToDomain converts a repository Company to a domain Company.
func repoCompanyToDomain(rc repository.Company) domain.Company {
	return domain.Company{
		ID:                  rc.ID,
		UserID:              rc.UserID,
		Name:                rc.Name,
		StripeCustomerID:    fromNullString(rc.StripeCustomerID),
		DefaultListingPlan:  planFromNullString(rc.DefaultListingPlan),
		LastUsedListingPlan: planFromNullString(rc.LastUsedListingPlan),
		CreatedAt:           rc.CreatedAt,
		UpdatedAt:           rc.UpdatedAt,
	}
}

// fromNullString converts sql.NullString to string.
func fromNullString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// planFromNullString converts a nullable plan column to *domain.ListingPlan.
func planFromNullString(ns sql.NullString) *domain.ListingPlan {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	plan := domain.ListingPlan(ns.String)
	return &plan
}
