// Package handler contains HTTP handlers for the JobVert application.
//
// This file implements the Stripe webhook handler for payment events.
//
// Route:
//   - POST /webhooks/stripe -> HandleStripeWebhook
//
// This route is PUBLIC (no auth middleware) because Stripe calls it directly.
// Authentication is via the Stripe webhook signature verification.
package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v79"

	"github.com/jobvert/jobvert/internal/billing"
	"github.com/jobvert/jobvert/internal/domain"
	"github.com/jobvert/jobvert/internal/email"
	"github.com/jobvert/jobvert/internal/service"
)

// WebhookHandler handles incoming webhook events from Stripe.
type WebhookHandler struct {
	billing     billing.Service
	jobService  service.JobService
	userService service.UserService
	email       email.EmailService
	baseURL     string
	logger      *slog.Logger
}

// NewWebhookHandler creates a new WebhookHandler.
// billingService may be nil when Stripe is not configured.
func NewWebhookHandler(
	billingService billing.Service,
	jobService service.JobService,
	userService service.UserService,
	emailService email.EmailService,
	baseURL string,
	logger *slog.Logger,
) *WebhookHandler {
	return &WebhookHandler{
		billing:     billingService,
		jobService:  jobService,
		userService: userService,
		email:       emailService,
		baseURL:     baseURL,
		logger:      logger,
	}
}

// RegisterRoutes registers webhook routes on the provided mux.
// These routes are PUBLIC — no auth middleware.
func (h *WebhookHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /webhooks/stripe", h.HandleStripeWebhook)
}

// HandleStripeWebhook processes incoming Stripe webhook events.
//
// Failed events are rejected with a non-2xx status so Stripe redelivers:
// transient processing errors get a 500, events the system refuses (unknown
// customer, foreign or missing job post, bad metadata) get a 400.
func (h *WebhookHandler) HandleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	if h.billing == nil {
		h.logger.Warn("stripe webhook received but billing is not configured")
		w.WriteHeader(http.StatusOK)
		return
	}

	// Read body (limit to 64KB)
	body, err := io.ReadAll(io.LimitReader(r.Body, 65536))
	if err != nil {
		h.logger.Error("failed to read webhook body", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	signature := r.Header.Get("Stripe-Signature")
	event, err := h.billing.VerifyWebhookSignature(body, signature)
	if err != nil {
		h.logger.Warn("webhook signature verification failed", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	h.logger.Info("stripe webhook received", "type", event.Type, "id", event.ID)

	switch event.Type {
	case "checkout.session.completed":
		if err := h.handleCheckoutCompleted(event); err != nil {
			if domain.ErrorCode(err) == domain.EINTERNAL {
				w.WriteHeader(http.StatusInternalServerError)
			} else {
				w.WriteHeader(http.StatusBadRequest)
			}
			return
		}
	default:
		h.logger.Debug("unhandled webhook event type", "type", event.Type)
	}

	w.WriteHeader(http.StatusOK)
}

// handleCheckoutCompleted grants the purchased credits and activates the
// paid job post. Any returned error rejects the event; the caller picks the
// status from the error code.
func (h *WebhookHandler) handleCheckoutCompleted(event stripe.Event) error {
	const op = "WebhookHandler.handleCheckoutCompleted"

	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		h.logger.Error("failed to parse checkout session", "error", err)
		return domain.Invalid(op, "Malformed checkout session")
	}

	if session.Customer == nil {
		h.logger.Warn("checkout session missing customer", "session_id", session.ID)
		return domain.Invalid(op, "Checkout session has no customer")
	}

	jobID, err := uuid.Parse(session.Metadata[billing.MetadataJobID])
	if err != nil {
		h.logger.Error("checkout session missing job metadata", "session_id", session.ID)
		return domain.Invalid(op, "Checkout session has no job ID")
	}
	plan := domain.ListingPlan(session.Metadata[billing.MetadataListingPlan])

	result, err := h.jobService.ActivateFromPayment(webhookCtx(), session.Customer.ID, jobID, plan)
	if err != nil {
		h.logger.Error("payment event rejected", "error", err, "job_post_id", jobID, "session_id", session.ID)
		return err
	}

	if result.CreditsGranted > 0 {
		h.sendConfirmationEmail(result)
	}
	return nil
}

// sendConfirmationEmail notifies the purchasing company. Best-effort: the
// payment is already recorded, so failures are only logged.
func (h *WebhookHandler) sendConfirmationEmail(result *service.ActivationResult) {
	user, err := h.userService.GetByID(webhookCtx(), result.Company.UserID)
	if err != nil {
		h.logger.Warn("failed to load user for confirmation email", "error", err, "company_id", result.Company.ID)
		return
	}

	jobURL := h.baseURL + "/jobs/" + result.Job.ID.String()
	if err := h.email.SendPaymentConfirmationEmail(webhookCtx(), user.Email, user.DisplayName(),
		result.Job.JobTitle, string(result.Job.ListingPlan), jobURL); err != nil {
		h.logger.Warn("failed to send confirmation email", "error", err, "job_post_id", result.Job.ID)
	}
}

// webhookCtx returns a background context for webhook processing.
// Webhook events are async and carry no user request context.
func webhookCtx() context.Context {
	return context.Background()
}
