// Package domain contains core business types and interfaces.
//
// This file defines plan usage accounting and the plan auto-selection
// resolver. Both are pure computations: the service layer feeds them
// counts from the database, and every branch is unit-testable without I/O.
package domain

// PlanUsage is the derived credit balance for one plan of one company.
// It is recomputed from the ledger and the active post counts on every
// read; there is no materialized quota view to drift out of sync.
type PlanUsage struct {
	Plan       ListingPlan `json:"plan"`
	Used       int         `json:"used"`
	Limit      int         `json:"limit"`
	Remaining  int         `json:"remaining"`
	BundleSize int         `json:"bundleSize"`
	Purchased  int         `json:"purchased"`
}

// HasDrift reports whether more credits are in use than were ever
// purchased. The limit self-heals around this (see NewPlanUsage), but the
// condition indicates ledger drift worth investigating operationally.
func (u PlanUsage) HasDrift() bool {
	return u.Used > u.Purchased
}

// NewPlanUsage computes the usage entry for a plan from the purchased
// credit total and the count of currently ACTIVE posts.
//
// The limit is max(purchased, used) rather than purchased alone: if
// backfilled or manually corrected data leaves more active posts than
// recorded purchases, the apparent limit expands to match usage instead of
// reporting a negative remaining balance.
func NewPlanUsage(tier PricingTier, purchased, used int) PlanUsage {
	limit := purchased
	if used > limit {
		limit = used
	}
	remaining := limit - used
	if remaining < 0 {
		remaining = 0
	}
	return PlanUsage{
		Plan:       tier.Name,
		Used:       used,
		Limit:      limit,
		Remaining:  remaining,
		BundleSize: tier.BundleSize,
		Purchased:  purchased,
	}
}

// SelectionReason explains why the resolver picked a plan.
type SelectionReason string

const (
	ReasonLastUsed SelectionReason = "lastUsed"
	ReasonDefault  SelectionReason = "default"
	ReasonFallback SelectionReason = "fallback"
)

// SelectionOptions carries a company's plan preferences into the resolver.
type SelectionOptions struct {
	LastUsed    *ListingPlan
	DefaultPlan *ListingPlan
}

// Selection is the resolver's result. Plan is always one of the catalog's
// tier names.
type Selection struct {
	Plan   ListingPlan     `json:"plan"`
	Reason SelectionReason `json:"reason"`
}

// ResolveInitialPlan picks the plan to pre-select for a new job post draft.
//
// Decision order, first match wins:
//  1. The last-used plan, if set and it still has remaining capacity.
//  2. The company's default plan, if set and it still has remaining capacity.
//  3. The first plan in usage order with remaining capacity; when every plan
//     is exhausted, fall back to lastUsed, then defaultPlan, then the first
//     catalog tier.
//
// The function is total: it always returns a catalog plan, even when no
// plan has any capacity left. The reason reflects whether the chosen plan
// matches lastUsed or defaultPlan, otherwise it is "fallback".
func ResolveInitialPlan(usage []PlanUsage, opts SelectionOptions) Selection {
	byPlan := make(map[ListingPlan]PlanUsage, len(usage))
	for _, entry := range usage {
		byPlan[entry.Plan] = entry
	}

	if opts.LastUsed != nil {
		if entry, ok := byPlan[*opts.LastUsed]; ok && entry.Remaining > 0 {
			return Selection{Plan: *opts.LastUsed, Reason: ReasonLastUsed}
		}
	}

	if opts.DefaultPlan != nil {
		if entry, ok := byPlan[*opts.DefaultPlan]; ok && entry.Remaining > 0 {
			return Selection{Plan: *opts.DefaultPlan, Reason: ReasonDefault}
		}
	}

	var fallback ListingPlan
	switch {
	case firstWithCapacity(usage) != nil:
		fallback = *firstWithCapacity(usage)
	case opts.LastUsed != nil:
		fallback = *opts.LastUsed
	case opts.DefaultPlan != nil:
		fallback = *opts.DefaultPlan
	default:
		fallback = DefaultTier().Name
	}

	reason := ReasonFallback
	if opts.LastUsed != nil && fallback == *opts.LastUsed {
		reason = ReasonLastUsed
	} else if opts.DefaultPlan != nil && fallback == *opts.DefaultPlan {
		reason = ReasonDefault
	}

	return Selection{Plan: fallback, Reason: reason}
}

func firstWithCapacity(usage []PlanUsage) *ListingPlan {
	for _, entry := range usage {
		if entry.Remaining > 0 {
			plan := entry.Plan
			return &plan
		}
	}
	return nil
}
