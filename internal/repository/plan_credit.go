package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// PlanCredit is one ledger row: credits purchased by a company for a plan.
type PlanCredit struct {
	ID               uuid.UUID
	CompanyID        uuid.UUID
	Plan             string
	CreditsPurchased int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// GetPlanCredit fetches the ledger row for one (company, plan) pair.
// Returns sql.ErrNoRows when the company never purchased that plan.
func (q *Queries) GetPlanCredit(ctx context.Context, companyID uuid.UUID, plan string) (PlanCredit, error) {
	const query = `SELECT id, company_id, plan, credits_purchased, created_at, updated_at
FROM plan_credits
WHERE company_id = $1 AND plan = $2`
	var pc PlanCredit
	err := q.db.QueryRowContext(ctx, query, companyID, plan).Scan(
		&pc.ID,
		&pc.CompanyID,
		&pc.Plan,
		&pc.CreditsPurchased,
		&pc.CreatedAt,
		&pc.UpdatedAt,
	)
	return pc, err
}

// ListPlanCredits fetches all ledger rows for a company.
func (q *Queries) ListPlanCredits(ctx context.Context, companyID uuid.UUID) ([]PlanCredit, error) {
	const query = `SELECT id, company_id, plan, credits_purchased, created_at, updated_at
FROM plan_credits
WHERE company_id = $1
ORDER BY plan`
	rows, err := q.db.QueryContext(ctx, query, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PlanCredit
	for rows.Next() {
		var pc PlanCredit
		if err := rows.Scan(
			&pc.ID,
			&pc.CompanyID,
			&pc.Plan,
			&pc.CreditsPurchased,
			&pc.CreatedAt,
			&pc.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, pc)
	}
	return out, rows.Err()
}

// UpsertPlanCredit adds purchased credits to the ledger row for
// (company, plan), creating the row on the first purchase. The counter is
// monotonically non-decreasing; nothing ever subtracts from it.
func (q *Queries) UpsertPlanCredit(ctx context.Context, companyID uuid.UUID, plan string, creditsToAdd int) (PlanCredit, error) {
	const query = `INSERT INTO plan_credits (company_id, plan, credits_purchased)
VALUES ($1, $2, $3)
ON CONFLICT (company_id, plan)
DO UPDATE SET credits_purchased = plan_credits.credits_purchased + EXCLUDED.credits_purchased,
              updated_at = now()
RETURNING id, company_id, plan, credits_purchased, created_at, updated_at`
	var pc PlanCredit
	err := q.db.QueryRowContext(ctx, query, companyID, plan, creditsToAdd).Scan(
		&pc.ID,
		&pc.CompanyID,
		&pc.Plan,
		&pc.CreditsPurchased,
		&pc.CreatedAt,
		&pc.UpdatedAt,
	)
	return pc, err
}
