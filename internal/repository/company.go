package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Company is the database representation of an employer account.
type Company struct {
	ID                  uuid.UUID
	UserID              uuid.UUID
	Name                string
	StripeCustomerID    sql.NullString
	DefaultListingPlan  sql.NullString
	LastUsedListingPlan sql.NullString
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

const companyColumns = `id, user_id, name, stripe_customer_id, default_listing_plan, last_used_listing_plan, created_at, updated_at`

func scanCompany(row *sql.Row) (Company, error) {
	var c Company
	err := row.Scan(
		&c.ID,
		&c.UserID,
		&c.Name,
		&c.StripeCustomerID,
		&c.DefaultListingPlan,
		&c.LastUsedListingPlan,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	return c, err
}

// GetCompanyByUserID fetches the company owned by a user.
// Returns sql.ErrNoRows when the user has not completed onboarding.
func (q *Queries) GetCompanyByUserID(ctx context.Context, userID uuid.UUID) (Company, error) {
	const query = `SELECT ` + companyColumns + ` FROM companies WHERE user_id = $1`
	return scanCompany(q.db.QueryRowContext(ctx, query, userID))
}

// GetCompanyByID fetches a company by primary key.
func (q *Queries) GetCompanyByID(ctx context.Context, id uuid.UUID) (Company, error) {
	const query = `SELECT ` + companyColumns + ` FROM companies WHERE id = $1`
	return scanCompany(q.db.QueryRowContext(ctx, query, id))
}

// GetCompanyByStripeCustomerID resolves the company behind a payment
// processor customer reference.
func (q *Queries) GetCompanyByStripeCustomerID(ctx context.Context, customerID string) (Company, error) {
	const query = `SELECT ` + companyColumns + ` FROM companies WHERE stripe_customer_id = $1`
	return scanCompany(q.db.QueryRowContext(ctx, query, customerID))
}

// UpdateCompanyStripeCustomer stores the Stripe customer reference created
// for a company on its first checkout.
func (q *Queries) UpdateCompanyStripeCustomer(ctx context.Context, id uuid.UUID, customerID string) error {
	const query = `UPDATE companies SET stripe_customer_id = $2, updated_at = now() WHERE id = $1`
	_, err := q.db.ExecContext(ctx, query, id, customerID)
	return err
}

// UpdateCompanyLastUsedPlan records the plan submitted on the most recent
// job creation.
func (q *Queries) UpdateCompanyLastUsedPlan(ctx context.Context, id uuid.UUID, plan string) error {
	const query = `UPDATE companies SET last_used_listing_plan = $2, updated_at = now() WHERE id = $1`
	_, err := q.db.ExecContext(ctx, query, id, plan)
	return err
}

// UpdateCompanyDefaultPlan stores the company's sticky plan preference.
// An empty plan clears the preference.
func (q *Queries) UpdateCompanyDefaultPlan(ctx context.Context, id uuid.UUID, plan string) error {
	const query = `UPDATE companies SET default_listing_plan = NULLIF($2, ''), updated_at = now() WHERE id = $1`
	_, err := q.db.ExecContext(ctx, query, id, plan)
	return err
}
