// Package handler contains HTTP handlers for the JobVert application.
//
// This file implements job post submission and deletion.
//
// Routes:
//   - POST /post-job             -> HandleCreateJob
//   - POST /my-jobs/{id}/delete  -> HandleDeleteJob
//
// Both routes require an authenticated user. Submission additionally needs
// a company; users who have not finished onboarding are redirected there.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/jobvert/jobvert/internal/auth"
	"github.com/jobvert/jobvert/internal/domain"
	"github.com/jobvert/jobvert/internal/service"
)

// JobHandler handles job post submission and management.
type JobHandler struct {
	jobService     service.JobService
	companyService service.CompanyService
	validate       *validator.Validate
	logger         *slog.Logger
}

// NewJobHandler creates a new JobHandler.
func NewJobHandler(jobService service.JobService, companyService service.CompanyService, logger *slog.Logger) *JobHandler {
	return &JobHandler{
		jobService:     jobService,
		companyService: companyService,
		validate:       validator.New(validator.WithRequiredStructEnabled()),
		logger:         logger,
	}
}

// RegisterRoutes registers job routes on the provided mux.
// Mount behind WithUser + RequireUser.
func (h *JobHandler) RegisterRoutes(mux *http.ServeMux, stack func(http.Handler) http.Handler) {
	mux.Handle("POST /post-job", stack(http.HandlerFunc(h.HandleCreateJob)))
	mux.Handle("POST /my-jobs/{id}/delete", stack(http.HandlerFunc(h.HandleDeleteJob)))
}

// createJobRequest is the job submission payload.
type createJobRequest struct {
	JobTitle       string   `json:"jobTitle" validate:"required,min=3,max=120"`
	JobDescription string   `json:"jobDescription" validate:"required,min=20,max=20000"`
	EmploymentType string   `json:"employmentType" validate:"required,oneof=CDI CDD Freelance Alternance Stage"`
	Location       string   `json:"location" validate:"required,max=120"`
	SalaryFrom     int      `json:"salaryFrom" validate:"gte=0"`
	SalaryTo       int      `json:"salaryTo" validate:"gte=0,gtecsfield=SalaryFrom"`
	Benefits       []string `json:"benefits" validate:"max=20,dive,min=1,max=80"`
	ListingPlan    string   `json:"listingPlan" validate:"required"`
}

// createJobResponse is the job submission result payload.
type createJobResponse struct {
	JobID           uuid.UUID            `json:"jobId"`
	Status          domain.JobPostStatus `json:"status"`
	RequiresPayment bool                 `json:"requiresPayment"`
	CheckoutURL     string               `json:"checkoutUrl,omitempty"`
}

// HandleCreateJob accepts a job submission and runs it through the credit
// gate. Responds 201 with the stored post; when payment is required the
// response carries the checkout URL for the client to redirect to.
func (h *JobHandler) HandleCreateJob(w http.ResponseWriter, r *http.Request) {
	const op = "JobHandler.HandleCreateJob"

	user := auth.GetUser(r.Context())
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	company, err := h.companyService.GetByUserID(r.Context(), user.ID)
	if err != nil {
		if domain.ErrorCode(err) == domain.ENOTFOUND && !acceptsJSON(r) {
			// Company profile comes first.
			http.Redirect(w, r, "/onboarding", http.StatusSeeOther)
			return
		}
		ErrorResponse(w, r, h.logger, err)
		return
	}

	var req createJobRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "Invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		ValidationErrorResponse(w, r, h.logger, toValidationError(op, err))
		return
	}

	result, err := h.jobService.Create(r.Context(), user, company, domain.CreateJobParams{
		JobTitle:       strings.TrimSpace(req.JobTitle),
		JobDescription: strings.TrimSpace(req.JobDescription),
		EmploymentType: req.EmploymentType,
		Location:       strings.TrimSpace(req.Location),
		SalaryFrom:     req.SalaryFrom,
		SalaryTo:       req.SalaryTo,
		Benefits:       req.Benefits,
		ListingPlan:    domain.ListingPlan(req.ListingPlan),
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	if !acceptsJSON(r) {
		if result.RequiresPayment {
			http.Redirect(w, r, result.CheckoutURL, http.StatusSeeOther)
		} else {
			http.Redirect(w, r, "/my-jobs", http.StatusSeeOther)
		}
		return
	}

	writeJSON(w, http.StatusCreated, createJobResponse{
		JobID:           result.Job.ID,
		Status:          result.Job.Status,
		RequiresPayment: result.RequiresPayment,
		CheckoutURL:     result.CheckoutURL,
	})
}

// HandleDeleteJob removes one of the company's job posts.
func (h *JobHandler) HandleDeleteJob(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	jobID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("JobHandler.HandleDeleteJob", "Invalid job post ID"))
		return
	}

	company, err := h.companyService.GetByUserID(r.Context(), user.ID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	if err := h.jobService.Delete(r.Context(), company.ID, jobID); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	if !acceptsJSON(r) {
		http.Redirect(w, r, "/my-jobs", http.StatusSeeOther)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// toValidationError converts validator errors into the domain's field map.
func toValidationError(op string, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return domain.Invalid(op, "Validation failed")
	}

	ve := &domain.ValidationError{Op: op, Fields: make(map[string]string, len(verrs))}
	for _, fe := range verrs {
		field := fe.Field()
		if field != "" {
			field = strings.ToLower(field[:1]) + field[1:]
		}
		ve.Fields[field] = messageForTag(fe)
	}
	return ve
}

// messageForTag maps a validation tag to a user-facing message.
func messageForTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "min":
		return fmt.Sprintf("Must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("Must be at most %s characters", fe.Param())
	case "oneof":
		return fmt.Sprintf("Must be one of: %s", fe.Param())
	case "gte":
		return fmt.Sprintf("Must be at least %s", fe.Param())
	case "gtecsfield":
		return "Must not be lower than the minimum salary"
	default:
		return "Invalid value"
	}
}
