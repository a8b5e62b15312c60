// Package domain contains core business types and interfaces.
//
// This file defines the static pricing catalog for job listing plans.
// The catalog is compile-time constant: every listing plan referenced by a
// job post or a plan credit row must be one of these tiers, and catalog
// order is significant (the first tier is the ultimate fallback when
// auto-selecting a plan).
package domain

// ListingPlan identifies a pricing tier by name.
type ListingPlan string

const (
	PlanBonsai  ListingPlan = "Bonsai"
	PlanArbuste ListingPlan = "Arbuste"
	PlanForet   ListingPlan = "Forêt"
)

// PricingTier describes one listing plan offering.
//
// BundleSize is the number of job-post credits granted per purchase.
// DurationDays is the validity window applied to each job post created
// under this tier before automatic expiration.
type PricingTier struct {
	Name         ListingPlan
	BundleSize   int
	DurationDays int
	PriceMonthly int // EUR, charged per bundle at checkout
	PriceAnnual  int // EUR, informational
}

// Tiers is the ordered pricing catalog.
var Tiers = []PricingTier{
	{
		Name:         PlanBonsai,
		BundleSize:   1,
		DurationDays: 30,
		PriceMonthly: 79,
		PriceAnnual:  790,
	},
	{
		Name:         PlanArbuste,
		BundleSize:   3,
		DurationDays: 60,
		PriceMonthly: 149,
		PriceAnnual:  1490,
	},
	{
		Name:         PlanForet,
		BundleSize:   10,
		DurationDays: 365,
		PriceMonthly: 249,
		PriceAnnual:  2490,
	},
}

// ListTiers returns the catalog in order. The returned slice is shared;
// callers must not modify it.
func ListTiers() []PricingTier {
	return Tiers
}

// GetTier looks up a tier by plan name.
// Returns an EINVALID error for names not in the catalog.
func GetTier(name ListingPlan) (PricingTier, error) {
	for _, tier := range Tiers {
		if tier.Name == name {
			return tier, nil
		}
	}
	return PricingTier{}, Errorf(EINVALID, "plan.get_tier", "unknown listing plan %q", name)
}

// ValidPlan reports whether name is one of the catalog's tier names.
func ValidPlan(name ListingPlan) bool {
	_, err := GetTier(name)
	return err == nil
}

// DefaultTier returns the first catalog tier, used as the last-resort
// fallback during plan auto-selection.
func DefaultTier() PricingTier {
	return Tiers[0]
}
