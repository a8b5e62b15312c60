// Package handler contains HTTP handlers for the JobVert application.
//
// This file implements the quota and pricing API.
//
// Routes:
//   - GET /api/plans              -> HandleListPlans
//   - GET /api/subscription/quota -> HandleGetQuota
//
// The quota route tolerates anonymous access: callers without a session or
// without a company get an empty usage list instead of an error, so the
// posting form can render before onboarding completes.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/jobvert/jobvert/internal/auth"
	"github.com/jobvert/jobvert/internal/domain"
	"github.com/jobvert/jobvert/internal/service"
)

// QuotaHandler serves plan usage and the pricing catalog.
type QuotaHandler struct {
	quotaService   service.QuotaService
	companyService service.CompanyService
	logger         *slog.Logger
}

// NewQuotaHandler creates a new QuotaHandler.
func NewQuotaHandler(quotaService service.QuotaService, companyService service.CompanyService, logger *slog.Logger) *QuotaHandler {
	return &QuotaHandler{
		quotaService:   quotaService,
		companyService: companyService,
		logger:         logger,
	}
}

// RegisterRoutes registers quota routes on the provided mux.
// Both routes are mounted behind WithUser only; authentication is optional.
func (h *QuotaHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/plans", h.HandleListPlans)
	mux.HandleFunc("GET /api/subscription/quota", h.HandleGetQuota)
}

// planResponse is one catalog entry in the pricing API.
type planResponse struct {
	Name         domain.ListingPlan `json:"name"`
	BundleSize   int                `json:"bundleSize"`
	DurationDays int                `json:"durationDays"`
	PriceMonthly int                `json:"priceMonthly"`
	PriceAnnual  int                `json:"priceAnnual"`
}

// HandleListPlans returns the static pricing catalog.
func (h *QuotaHandler) HandleListPlans(w http.ResponseWriter, r *http.Request) {
	tiers := domain.ListTiers()
	plans := make([]planResponse, 0, len(tiers))
	for _, tier := range tiers {
		plans = append(plans, planResponse{
			Name:         tier.Name,
			BundleSize:   tier.BundleSize,
			DurationDays: tier.DurationDays,
			PriceMonthly: tier.PriceMonthly,
			PriceAnnual:  tier.PriceAnnual,
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"plans": plans})
}

// quotaResponse is the quota API payload.
type quotaResponse struct {
	PlanUsage []domain.PlanUsage `json:"planUsage"`
	Selection *domain.Selection  `json:"selection,omitempty"`
}

// HandleGetQuota returns per-plan usage and the auto-selected initial plan
// for the authenticated user's company.
func (h *QuotaHandler) HandleGetQuota(w http.ResponseWriter, r *http.Request) {
	empty := quotaResponse{PlanUsage: []domain.PlanUsage{}}

	user := auth.GetUser(r.Context())
	if user == nil {
		writeJSON(w, http.StatusOK, empty)
		return
	}

	company, err := h.companyService.GetByUserID(r.Context(), user.ID)
	if err != nil {
		if domain.ErrorCode(err) == domain.ENOTFOUND {
			// Onboarding not finished yet.
			writeJSON(w, http.StatusOK, empty)
			return
		}
		ErrorResponse(w, r, h.logger, err)
		return
	}

	usage, err := h.quotaService.GetPlanUsage(r.Context(), company.ID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	selection := domain.ResolveInitialPlan(usage, domain.SelectionOptions{
		LastUsed:    company.LastUsedListingPlan,
		DefaultPlan: company.DefaultListingPlan,
	})

	writeJSON(w, http.StatusOK, quotaResponse{
		PlanUsage: usage,
		Selection: &selection,
	})
}
