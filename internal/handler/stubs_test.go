package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v79"

	"github.com/jobvert/jobvert/internal/auth"
	"github.com/jobvert/jobvert/internal/billing"
	"github.com/jobvert/jobvert/internal/domain"
	"github.com/jobvert/jobvert/internal/service"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// withUser attaches an authenticated user to the request context.
func withUser(r *http.Request, user *domain.User) *http.Request {
	return r.WithContext(auth.SetUser(r.Context(), user))
}

func doRequest(h http.HandlerFunc, r *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h(rec, r)
	return rec
}

// =============================================================================
// Service stubs
// =============================================================================

type stubCompanyService struct {
	company       *domain.Company
	err           error
	defaultPlanIn string
	setDefaultErr error
}

func (s *stubCompanyService) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Company, error) {
	return s.company, s.err
}

func (s *stubCompanyService) GetByStripeCustomerID(ctx context.Context, customerID string) (*domain.Company, error) {
	return s.company, s.err
}

func (s *stubCompanyService) SetDefaultPlan(ctx context.Context, companyID uuid.UUID, plan string) error {
	s.defaultPlanIn = plan
	return s.setDefaultErr
}

type stubQuotaService struct {
	usage []domain.PlanUsage
	err   error
}

func (s *stubQuotaService) GetPlanUsage(ctx context.Context, companyID uuid.UUID) ([]domain.PlanUsage, error) {
	return s.usage, s.err
}

type stubJobService struct {
	createResult   *service.CreateJobResult
	createErr      error
	createParams   *domain.CreateJobParams
	activateResult *service.ActivationResult
	activateErr    error
	activatedJobs  []uuid.UUID
	deleteErr      error
	deletedJobs    []uuid.UUID
}

func (s *stubJobService) Create(ctx context.Context, user *domain.User, company *domain.Company, params domain.CreateJobParams) (*service.CreateJobResult, error) {
	s.createParams = &params
	return s.createResult, s.createErr
}

func (s *stubJobService) ActivateFromPayment(ctx context.Context, stripeCustomerID string, jobPostID uuid.UUID, plan domain.ListingPlan) (*service.ActivationResult, error) {
	s.activatedJobs = append(s.activatedJobs, jobPostID)
	return s.activateResult, s.activateErr
}

func (s *stubJobService) Delete(ctx context.Context, companyID, jobPostID uuid.UUID) error {
	s.deletedJobs = append(s.deletedJobs, jobPostID)
	return s.deleteErr
}

type stubUserService struct {
	user *domain.User
	err  error
}

func (s *stubUserService) GetBySessionToken(ctx context.Context, token string) (*domain.User, error) {
	return s.user, s.err
}

func (s *stubUserService) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return s.user, s.err
}

type stubBillingService struct {
	event    stripe.Event
	eventErr error
}

func (s *stubBillingService) CreateCustomer(email, name string) (string, error) {
	return "cus_stub", nil
}

func (s *stubBillingService) CreateJobCheckoutSession(params billing.CheckoutParams) (string, error) {
	return "https://checkout.stripe.test/session", nil
}

func (s *stubBillingService) VerifyWebhookSignature(payload []byte, signature string) (stripe.Event, error) {
	return s.event, s.eventErr
}

type stubEmailService struct {
	published     []string
	confirmations []string
}

func (s *stubEmailService) SendJobPublishedEmail(ctx context.Context, to, name, jobTitle, jobURL string) error {
	s.published = append(s.published, jobTitle)
	return nil
}

func (s *stubEmailService) SendPaymentConfirmationEmail(ctx context.Context, to, name, jobTitle, plan, jobURL string) error {
	s.confirmations = append(s.confirmations, jobTitle)
	return nil
}

// Sanity: stubs satisfy the interfaces they stand in for.
var (
	_ service.CompanyService = (*stubCompanyService)(nil)
	_ service.QuotaService   = (*stubQuotaService)(nil)
	_ service.JobService     = (*stubJobService)(nil)
	_ service.UserService    = (*stubUserService)(nil)
	_ billing.Service        = (*stubBillingService)(nil)
)

func mustNewRequest(t *testing.T, method, target string, body io.Reader) *http.Request {
	t.Helper()
	r := httptest.NewRequest(method, target, body)
	r.Header.Set("Accept", "application/json")
	r.Header.Set("Content-Type", "application/json")
	return r
}
