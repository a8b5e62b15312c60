// Package billing provides Stripe integration for job posting payments.
//
// Job posts are paid per bundle: a checkout session in payment mode buys
// one credit bundle of the post's listing plan. The session carries the
// job post ID and plan name in its metadata so the webhook can activate
// the right post when the payment completes.
package billing

import (
	"fmt"

	"github.com/stripe/stripe-go/v79"
	checkoutsession "github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/customer"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/jobvert/jobvert/internal/domain"
)

// Metadata keys attached to checkout sessions.
const (
	MetadataJobID       = "jobId"
	MetadataListingPlan = "listingPlan"
)

// CheckoutParams describes the job post a checkout session pays for.
type CheckoutParams struct {
	CustomerID string
	JobID      string
	Tier       domain.PricingTier
	SuccessURL string
	CancelURL  string
}

// Service defines the interface for billing operations.
type Service interface {
	// CreateCustomer creates a new Stripe customer for the given email.
	CreateCustomer(email, name string) (string, error)

	// CreateJobCheckoutSession creates a Stripe Checkout session for buying
	// the tier's credit bundle, scoped to one job post via metadata.
	// Returns the checkout URL to redirect the user to.
	CreateJobCheckoutSession(params CheckoutParams) (string, error)

	// VerifyWebhookSignature verifies the Stripe webhook signature and returns the event.
	VerifyWebhookSignature(payload []byte, signature string) (stripe.Event, error)
}

// stripeService is the concrete implementation of Service.
type stripeService struct {
	webhookSecret string
}

// NewStripeService creates a new Stripe billing service.
//
// The secretKey is used to authenticate Stripe API calls.
// The webhookSecret is used to verify incoming webhook signatures.
func NewStripeService(secretKey, webhookSecret string) Service {
	stripe.Key = secretKey

	return &stripeService{
		webhookSecret: webhookSecret,
	}
}

func (s *stripeService) CreateCustomer(email, name string) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(email),
		Name:  stripe.String(name),
	}
	c, err := customer.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe create customer: %w", err)
	}
	return c.ID, nil
}

func (s *stripeService) CreateJobCheckoutSession(p CheckoutParams) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Customer: stripe.String(p.CustomerID),
		Mode:     stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(string(stripe.CurrencyEUR)),
					UnitAmount: stripe.Int64(int64(p.Tier.PriceMonthly) * 100),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(fmt.Sprintf("Job Posting - %d Days", p.Tier.DurationDays)),
						Description: stripe.String(fmt.Sprintf("%s: %d offre(s) sur %d jours",
							p.Tier.Name, p.Tier.BundleSize, p.Tier.DurationDays)),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		InvoiceCreation: &stripe.CheckoutSessionInvoiceCreationParams{
			Enabled: stripe.Bool(true),
		},
		BillingAddressCollection: stripe.String(string(stripe.CheckoutSessionBillingAddressCollectionRequired)),
		SuccessURL:               stripe.String(p.SuccessURL),
		CancelURL:                stripe.String(p.CancelURL),
	}
	params.AddMetadata(MetadataJobID, p.JobID)
	params.AddMetadata(MetadataListingPlan, string(p.Tier.Name))

	sess, err := checkoutsession.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe create checkout session: %w", err)
	}
	return sess.URL, nil
}

func (s *stripeService) VerifyWebhookSignature(payload []byte, signature string) (stripe.Event, error) {
	event, err := webhook.ConstructEvent(payload, signature, s.webhookSecret)
	if err != nil {
		return stripe.Event{}, fmt.Errorf("stripe webhook signature verification failed: %w", err)
	}
	return event, nil
}
