// Package handler contains HTTP handlers for the JobVert application.
//
// This file implements company settings.
//
// Route:
//   - POST /settings/default-plan -> HandleSetDefaultPlan
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/jobvert/jobvert/internal/auth"
	"github.com/jobvert/jobvert/internal/domain"
	"github.com/jobvert/jobvert/internal/service"
)

// CompanyHandler handles company settings.
type CompanyHandler struct {
	companyService service.CompanyService
	logger         *slog.Logger
}

// NewCompanyHandler creates a new CompanyHandler.
func NewCompanyHandler(companyService service.CompanyService, logger *slog.Logger) *CompanyHandler {
	return &CompanyHandler{
		companyService: companyService,
		logger:         logger,
	}
}

// RegisterRoutes registers company routes on the provided mux.
// Mount behind WithUser + RequireUser.
func (h *CompanyHandler) RegisterRoutes(mux *http.ServeMux, stack func(http.Handler) http.Handler) {
	mux.Handle("POST /settings/default-plan", stack(http.HandlerFunc(h.HandleSetDefaultPlan)))
}

// setDefaultPlanRequest is the default plan update payload.
// An empty plan clears the preference.
type setDefaultPlanRequest struct {
	Plan string `json:"plan"`
}

// HandleSetDefaultPlan stores or clears the company's sticky plan preference.
func (h *CompanyHandler) HandleSetDefaultPlan(w http.ResponseWriter, r *http.Request) {
	const op = "CompanyHandler.HandleSetDefaultPlan"

	user := auth.GetUser(r.Context())
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	company, err := h.companyService.GetByUserID(r.Context(), user.ID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	var req setDefaultPlanRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "Invalid request body"))
		return
	}

	if err := h.companyService.SetDefaultPlan(r.Context(), company.ID, req.Plan); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	if !acceptsJSON(r) {
		http.Redirect(w, r, "/settings", http.StatusSeeOther)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
