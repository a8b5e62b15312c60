// Package domain contains core business types and interfaces.
//
// This file defines the User and Company domain types. Registration and
// onboarding live outside this core; a user may exist without a company
// until onboarding completes, which is why the company lookup is allowed
// to come back empty.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// User represents an authenticated account. Only the fields the quota core
// needs are modeled here; profile management is handled elsewhere.
type User struct {
	ID        uuid.UUID
	Email     string
	Name      string
	CreatedAt time.Time
}

// DisplayName returns the user's name or email if name is empty.
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

// Company represents an employer account that purchases listing plans and
// publishes job posts.
//
// DefaultListingPlan is a sticky preference the company sets in its profile.
// LastUsedListingPlan is maintained automatically: it is set to whichever
// plan was submitted on the most recent job creation, regardless of whether
// that creation required payment. Both feed the plan auto-selection resolver.
type Company struct {
	ID                  uuid.UUID
	UserID              uuid.UUID
	Name                string
	StripeCustomerID    string
	DefaultListingPlan  *ListingPlan
	LastUsedListingPlan *ListingPlan
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// PlanCredit is one row of the plan credit ledger: credits purchased by a
// company for a single plan. CreditsPurchased only ever grows; capacity is
// reclaimed implicitly when active job posts expire, never by decrementing
// this counter.
type PlanCredit struct {
	ID               uuid.UUID
	CompanyID        uuid.UUID
	Plan             ListingPlan
	CreditsPurchased int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Session represents an authenticated session.
// Sessions are stored with a SHA-256 hash of the token; the raw token is
// only ever held by the client.
type Session struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}
