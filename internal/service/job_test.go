package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v79"

	"github.com/jobvert/jobvert/internal/billing"
	"github.com/jobvert/jobvert/internal/domain"
	"github.com/jobvert/jobvert/internal/repository"
)

// stubBilling records billing calls instead of hitting Stripe.
type stubBilling struct {
	customerID  string
	checkoutURL string
	customerErr error
	checkoutErr error

	customersCreated int
	checkouts        []billing.CheckoutParams
}

func (b *stubBilling) CreateCustomer(email, name string) (string, error) {
	b.customersCreated++
	if b.customerErr != nil {
		return "", b.customerErr
	}
	return b.customerID, nil
}

func (b *stubBilling) CreateJobCheckoutSession(params billing.CheckoutParams) (string, error) {
	b.checkouts = append(b.checkouts, params)
	if b.checkoutErr != nil {
		return "", b.checkoutErr
	}
	return b.checkoutURL, nil
}

func (b *stubBilling) VerifyWebhookSignature(payload []byte, signature string) (stripe.Event, error) {
	return stripe.Event{}, nil
}

// stubEmail records outbound emails.
type stubEmail struct {
	published     []string
	confirmations []string
	sendErr       error
}

func (e *stubEmail) SendJobPublishedEmail(ctx context.Context, to, name, jobTitle, jobURL string) error {
	e.published = append(e.published, jobTitle)
	return e.sendErr
}

func (e *stubEmail) SendPaymentConfirmationEmail(ctx context.Context, to, name, jobTitle, plan, jobURL string) error {
	e.confirmations = append(e.confirmations, jobTitle)
	return e.sendErr
}

type jobServiceFixture struct {
	svc     JobService
	mock    sqlmock.Sqlmock
	billing *stubBilling
	email   *stubEmail
}

func newJobServiceFixture(t *testing.T, freePosting bool) *jobServiceFixture {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	b := &stubBilling{customerID: "cus_test123", checkoutURL: "https://checkout.stripe.test/session"}
	e := &stubEmail{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	svc := NewJobService(db, repository.New(db), b, e, logger, JobServiceConfig{
		FreePostingEnabled: freePosting,
		BaseURL:            "https://jobvert.test",
	})
	return &jobServiceFixture{svc: svc, mock: mock, billing: b, email: e}
}

func testUser() *domain.User {
	return &domain.User{ID: uuid.New(), Email: "employer@example.com", Name: "Jo Martin"}
}

func testCompany(customerID string) *domain.Company {
	return &domain.Company{
		ID:               uuid.New(),
		UserID:           uuid.New(),
		Name:             "Verdant SARL",
		StripeCustomerID: customerID,
	}
}

func testCreateParams(plan domain.ListingPlan) domain.CreateJobParams {
	return domain.CreateJobParams{
		JobTitle:       "Paysagiste",
		JobDescription: "Entretien d'espaces verts",
		EmploymentType: "CDI",
		Location:       "Lyon",
		SalaryFrom:     24000,
		SalaryTo:       30000,
		Benefits:       []string{"Mutuelle"},
		ListingPlan:    plan,
	}
}

func jobPostRows(id, companyID uuid.UUID, plan, status string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "company_id", "job_title", "job_description", "employment_type",
		"location", "salary_from", "salary_to", "benefits", "listing_plan",
		"status", "created_at", "updated_at",
	}).AddRow(id, companyID, "Paysagiste", "Entretien d'espaces verts", "CDI",
		"Lyon", 24000, 30000, []byte(`["Mutuelle"]`), plan, status, now, now)
}

func planCreditRows(companyID uuid.UUID, plan string, purchased int) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "company_id", "plan", "credits_purchased", "created_at", "updated_at",
	}).AddRow(uuid.New(), companyID, plan, purchased, now, now)
}

func companyRows(c *domain.Company) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "user_id", "name", "stripe_customer_id", "default_listing_plan",
		"last_used_listing_plan", "created_at", "updated_at",
	}).AddRow(c.ID, c.UserID, c.Name, c.StripeCustomerID, nil, nil, now, now)
}

func queueJobRows() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "job_type", "payload", "status", "priority", "attempts",
		"max_attempts", "scheduled_at", "started_at", "completed_at",
		"error_message", "created_at",
	}).AddRow(uuid.New(), "expire_job_post", []byte(`{}`), "pending", 10, 0, 3, now, nil, nil, nil, now)
}

// expectCreateTail sets up the statements every successful create runs
// after the insert: last-used plan update and expiration scheduling.
func expectCreateTail(mock sqlmock.Sqlmock, companyID uuid.UUID, plan string) {
	mock.ExpectExec("UPDATE companies SET last_used_listing_plan").
		WithArgs(companyID, plan).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("INSERT INTO jobs").
		WillReturnRows(queueJobRows())
}

func TestJobService_Create_PublishesWithRemainingCredit(t *testing.T) {
	f := newJobServiceFixture(t, false)
	user := testUser()
	company := testCompany("cus_existing")
	jobID := uuid.New()

	f.mock.ExpectQuery("SELECT count").
		WithArgs(company.ID, "Arbuste").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	f.mock.ExpectQuery("FROM plan_credits").
		WithArgs(company.ID, "Arbuste").
		WillReturnRows(planCreditRows(company.ID, "Arbuste", 3))
	f.mock.ExpectQuery("INSERT INTO job_posts").
		WillReturnRows(jobPostRows(jobID, company.ID, "Arbuste", "ACTIVE"))
	expectCreateTail(f.mock, company.ID, "Arbuste")

	result, err := f.svc.Create(context.Background(), user, company, testCreateParams(domain.PlanArbuste))
	require.NoError(t, err)

	assert.False(t, result.RequiresPayment)
	assert.Empty(t, result.CheckoutURL)
	assert.Equal(t, domain.JobPostStatusActive, result.Job.Status)
	assert.Equal(t, []string{"Paysagiste"}, f.email.published)
	assert.Empty(t, f.billing.checkouts)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestJobService_Create_RequiresPaymentWhenExhausted(t *testing.T) {
	f := newJobServiceFixture(t, false)
	user := testUser()
	company := testCompany("cus_existing")
	jobID := uuid.New()

	// 1 purchased, 1 active: remaining is zero.
	f.mock.ExpectQuery("SELECT count").
		WithArgs(company.ID, "Bonsai").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	f.mock.ExpectQuery("FROM plan_credits").
		WithArgs(company.ID, "Bonsai").
		WillReturnRows(planCreditRows(company.ID, "Bonsai", 1))
	f.mock.ExpectQuery("INSERT INTO job_posts").
		WillReturnRows(jobPostRows(jobID, company.ID, "Bonsai", "DRAFT"))
	expectCreateTail(f.mock, company.ID, "Bonsai")

	result, err := f.svc.Create(context.Background(), user, company, testCreateParams(domain.PlanBonsai))
	require.NoError(t, err)

	assert.True(t, result.RequiresPayment)
	assert.Equal(t, "https://checkout.stripe.test/session", result.CheckoutURL)
	assert.Equal(t, domain.JobPostStatusDraft, result.Job.Status)
	assert.Empty(t, f.email.published)

	require.Len(t, f.billing.checkouts, 1)
	checkout := f.billing.checkouts[0]
	assert.Equal(t, "cus_existing", checkout.CustomerID)
	assert.Equal(t, jobID.String(), checkout.JobID)
	assert.Equal(t, domain.PlanBonsai, checkout.Tier.Name)
	assert.Zero(t, f.billing.customersCreated)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestJobService_Create_NeverPurchasedGoesToCheckout(t *testing.T) {
	f := newJobServiceFixture(t, false)
	user := testUser()
	company := testCompany("") // no Stripe customer yet
	jobID := uuid.New()

	f.mock.ExpectQuery("SELECT count").
		WithArgs(company.ID, "Bonsai").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	f.mock.ExpectQuery("FROM plan_credits").
		WithArgs(company.ID, "Bonsai").
		WillReturnError(sql.ErrNoRows)
	f.mock.ExpectQuery("INSERT INTO job_posts").
		WillReturnRows(jobPostRows(jobID, company.ID, "Bonsai", "DRAFT"))
	expectCreateTail(f.mock, company.ID, "Bonsai")
	f.mock.ExpectExec("UPDATE companies SET stripe_customer_id").
		WithArgs(company.ID, "cus_test123").
		WillReturnResult(sqlmock.NewResult(0, 1))

	result, err := f.svc.Create(context.Background(), user, company, testCreateParams(domain.PlanBonsai))
	require.NoError(t, err)

	assert.True(t, result.RequiresPayment)
	assert.Equal(t, 1, f.billing.customersCreated)
	require.Len(t, f.billing.checkouts, 1)
	assert.Equal(t, "cus_test123", f.billing.checkouts[0].CustomerID)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestJobService_Create_FreePostingBypassesGate(t *testing.T) {
	f := newJobServiceFixture(t, true)
	user := testUser()
	company := testCompany("")
	jobID := uuid.New()

	// Exhausted on paper, but free posting publishes anyway.
	f.mock.ExpectQuery("SELECT count").
		WithArgs(company.ID, "Bonsai").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))
	f.mock.ExpectQuery("FROM plan_credits").
		WithArgs(company.ID, "Bonsai").
		WillReturnError(sql.ErrNoRows)
	f.mock.ExpectQuery("INSERT INTO job_posts").
		WillReturnRows(jobPostRows(jobID, company.ID, "Bonsai", "ACTIVE"))
	expectCreateTail(f.mock, company.ID, "Bonsai")

	result, err := f.svc.Create(context.Background(), user, company, testCreateParams(domain.PlanBonsai))
	require.NoError(t, err)

	assert.False(t, result.RequiresPayment)
	assert.Equal(t, domain.JobPostStatusActive, result.Job.Status)
	assert.Empty(t, f.billing.checkouts)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestJobService_Create_UnknownPlanRejected(t *testing.T) {
	f := newJobServiceFixture(t, false)

	_, err := f.svc.Create(context.Background(), testUser(), testCompany(""), testCreateParams("Platine"))
	require.Error(t, err)
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestJobService_ActivateFromPayment_GrantsAndActivates(t *testing.T) {
	f := newJobServiceFixture(t, false)
	company := testCompany("cus_paid")
	jobID := uuid.New()

	f.mock.ExpectQuery("FROM companies WHERE stripe_customer_id").
		WithArgs("cus_paid").
		WillReturnRows(companyRows(company))
	f.mock.ExpectQuery("FROM job_posts WHERE id").
		WithArgs(jobID).
		WillReturnRows(jobPostRows(jobID, company.ID, "Arbuste", "DRAFT"))

	f.mock.ExpectBegin()
	f.mock.ExpectQuery("INSERT INTO plan_credits").
		WithArgs(company.ID, "Arbuste", 3).
		WillReturnRows(planCreditRows(company.ID, "Arbuste", 3))
	f.mock.ExpectExec("UPDATE job_posts SET status").
		WithArgs(jobID, "ACTIVE").
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectCommit()

	result, err := f.svc.ActivateFromPayment(context.Background(), "cus_paid", jobID, domain.PlanArbuste)
	require.NoError(t, err)

	assert.Equal(t, 3, result.CreditsGranted)
	assert.Equal(t, domain.JobPostStatusActive, result.Job.Status)
	assert.Equal(t, company.ID, result.Company.ID)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestJobService_ActivateFromPayment_ReplayIsNoOp(t *testing.T) {
	f := newJobServiceFixture(t, false)
	company := testCompany("cus_paid")
	jobID := uuid.New()

	f.mock.ExpectQuery("FROM companies WHERE stripe_customer_id").
		WithArgs("cus_paid").
		WillReturnRows(companyRows(company))
	f.mock.ExpectQuery("FROM job_posts WHERE id").
		WithArgs(jobID).
		WillReturnRows(jobPostRows(jobID, company.ID, "Arbuste", "ACTIVE"))
	// No transaction: the ledger must not be credited twice.

	result, err := f.svc.ActivateFromPayment(context.Background(), "cus_paid", jobID, domain.PlanArbuste)
	require.NoError(t, err)

	assert.Zero(t, result.CreditsGranted)
	assert.Equal(t, domain.JobPostStatusActive, result.Job.Status)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestJobService_ActivateFromPayment_RollsBackWhenActivationFails(t *testing.T) {
	f := newJobServiceFixture(t, false)
	company := testCompany("cus_paid")
	jobID := uuid.New()

	f.mock.ExpectQuery("FROM companies WHERE stripe_customer_id").
		WithArgs("cus_paid").
		WillReturnRows(companyRows(company))
	f.mock.ExpectQuery("FROM job_posts WHERE id").
		WithArgs(jobID).
		WillReturnRows(jobPostRows(jobID, company.ID, "Bonsai", "DRAFT"))

	// Credit lands, activation fails: the whole unit must roll back.
	f.mock.ExpectBegin()
	f.mock.ExpectQuery("INSERT INTO plan_credits").
		WithArgs(company.ID, "Bonsai", 1).
		WillReturnRows(planCreditRows(company.ID, "Bonsai", 1))
	f.mock.ExpectExec("UPDATE job_posts SET status").
		WithArgs(jobID, "ACTIVE").
		WillReturnError(errors.New("connection reset"))
	f.mock.ExpectRollback()

	_, err := f.svc.ActivateFromPayment(context.Background(), "cus_paid", jobID, domain.PlanBonsai)
	require.Error(t, err)
	assert.Equal(t, domain.EINTERNAL, domain.ErrorCode(err))
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestJobService_ActivateFromPayment_WrongOwnerForbidden(t *testing.T) {
	f := newJobServiceFixture(t, false)
	company := testCompany("cus_paid")
	jobID := uuid.New()

	f.mock.ExpectQuery("FROM companies WHERE stripe_customer_id").
		WithArgs("cus_paid").
		WillReturnRows(companyRows(company))
	f.mock.ExpectQuery("FROM job_posts WHERE id").
		WithArgs(jobID).
		WillReturnRows(jobPostRows(jobID, uuid.New(), "Bonsai", "DRAFT"))

	_, err := f.svc.ActivateFromPayment(context.Background(), "cus_paid", jobID, domain.PlanBonsai)
	require.Error(t, err)
	assert.Equal(t, domain.EFORBIDDEN, domain.ErrorCode(err))
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestJobService_ActivateFromPayment_UnknownCustomer(t *testing.T) {
	f := newJobServiceFixture(t, false)

	f.mock.ExpectQuery("FROM companies WHERE stripe_customer_id").
		WithArgs("cus_ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := f.svc.ActivateFromPayment(context.Background(), "cus_ghost", uuid.New(), domain.PlanBonsai)
	require.Error(t, err)
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestJobService_Delete(t *testing.T) {
	f := newJobServiceFixture(t, false)
	companyID := uuid.New()
	jobID := uuid.New()

	f.mock.ExpectExec("DELETE FROM job_posts").
		WithArgs(jobID, companyID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, f.svc.Delete(context.Background(), companyID, jobID))
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestJobService_Delete_NotOwnedIsNotFound(t *testing.T) {
	f := newJobServiceFixture(t, false)
	companyID := uuid.New()
	jobID := uuid.New()

	f.mock.ExpectExec("DELETE FROM job_posts").
		WithArgs(jobID, companyID).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := f.svc.Delete(context.Background(), companyID, jobID)
	require.Error(t, err)
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))
	assert.NoError(t, f.mock.ExpectationsWereMet())
}
