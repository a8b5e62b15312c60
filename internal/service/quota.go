// Package service contains the business logic layer.
//
// This file implements the quota service: the per-plan usage aggregator.
// Usage is always derived fresh from the credit ledger and the active job
// post counts; nothing is cached or materialized. Plan auto-selection is
// pure and lives in the domain package (domain.ResolveInitialPlan).
package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jobvert/jobvert/internal/domain"
	"github.com/jobvert/jobvert/internal/metrics"
	"github.com/jobvert/jobvert/internal/repository"
)

// =============================================================================
// Interface Definition
// =============================================================================

// QuotaService defines operations for computing plan usage.
type QuotaService interface {
	// GetPlanUsage returns the usage entry for every catalog tier, in
	// catalog order, for the given company. Plans the company never
	// purchased or used appear with zero counts.
	GetPlanUsage(ctx context.Context, companyID uuid.UUID) ([]domain.PlanUsage, error)
}

// =============================================================================
// Implementation
// =============================================================================

type quotaService struct {
	queries *repository.Queries
	logger  *slog.Logger
}

// NewQuotaService creates a new QuotaService.
func NewQuotaService(queries *repository.Queries, logger *slog.Logger) QuotaService {
	return &quotaService{
		queries: queries,
		logger:  logger,
	}
}

// GetPlanUsage returns the usage entry for every catalog tier.
func (s *quotaService) GetPlanUsage(ctx context.Context, companyID uuid.UUID) ([]domain.PlanUsage, error) {
	const op = "QuotaService.GetPlanUsage"

	credits, err := s.queries.ListPlanCredits(ctx, companyID)
	if err != nil {
		s.logger.Error("failed to list plan credits", "error", err, "op", op, "company_id", companyID)
		return nil, domain.Internal(err, op, "Failed to load plan credits")
	}

	activeCounts, err := s.queries.CountActiveJobPostsByPlan(ctx, companyID)
	if err != nil {
		s.logger.Error("failed to count active job posts", "error", err, "op", op, "company_id", companyID)
		return nil, domain.Internal(err, op, "Failed to count active job posts")
	}

	purchasedByPlan := make(map[string]int, len(credits))
	for _, c := range credits {
		purchasedByPlan[c.Plan] = c.CreditsPurchased
	}
	usedByPlan := make(map[string]int, len(activeCounts))
	for _, c := range activeCounts {
		usedByPlan[c.Plan] = c.Count
	}

	usage := make([]domain.PlanUsage, 0, len(domain.Tiers))
	for _, tier := range domain.ListTiers() {
		entry := domain.NewPlanUsage(tier, purchasedByPlan[string(tier.Name)], usedByPlan[string(tier.Name)])
		if entry.HasDrift() {
			// More active posts than purchased credits. The limit already
			// self-healed; surface the inconsistency for operators.
			s.logger.Warn("plan credit drift detected",
				"company_id", companyID,
				"plan", entry.Plan,
				"used", entry.Used,
				"purchased", entry.Purchased,
			)
			metrics.PlanCreditDrift.WithLabelValues(string(entry.Plan)).Inc()
		}
		usage = append(usage, entry)
	}

	return usage, nil
}
