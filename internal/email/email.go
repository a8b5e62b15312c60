// Package email provides email sending functionality for JobVert.
//
// This package defines an EmailService interface with an SMTP
// implementation (Mailhog in development, any standard SMTP relay in
// production). Sending is best-effort from the caller's perspective:
// the job and payment flows log delivery failures but never fail the
// surrounding operation because of one.
package email

import (
	"context"
)

// =============================================================================
// Interface Definition
// =============================================================================

// EmailService defines the interface for sending transactional emails.
//
// All methods are context-aware for timeout and cancellation support.
type EmailService interface {
	// SendJobPublishedEmail notifies a company that its job post went live
	// without requiring payment.
	// Parameters:
	// - to: Recipient email address
	// - name: Recipient's name for personalization
	// - jobTitle: Title of the published job post
	// - jobURL: Public URL of the job post
	SendJobPublishedEmail(ctx context.Context, to, name, jobTitle, jobURL string) error

	// SendPaymentConfirmationEmail confirms a completed checkout and the
	// activation of the job post it paid for.
	// Parameters:
	// - to: Recipient email address
	// - name: Recipient's name for personalization
	// - jobTitle: Title of the activated job post
	// - plan: Name of the purchased listing plan
	// - jobURL: Public URL of the job post
	SendPaymentConfirmationEmail(ctx context.Context, to, name, jobTitle, plan, jobURL string) error
}

// =============================================================================
// Email Data Types
// =============================================================================

// Email represents a single email message.
type Email struct {
	To       string // Recipient email address
	Subject  string // Email subject line
	HTMLBody string // HTML content of the email
	TextBody string // Plain text fallback content
}

// =============================================================================
// Configuration Types
// =============================================================================

// SMTPConfig holds SMTP server configuration.
type SMTPConfig struct {
	Host     string // SMTP server hostname (e.g., "localhost" for Mailhog)
	Port     int    // SMTP server port (e.g., 1025 for Mailhog)
	Username string // SMTP authentication username (empty for Mailhog)
	Password string // SMTP authentication password (empty for Mailhog)
	From     string // Default sender email address
	FromName string // Default sender display name
}

// =============================================================================
// Common Constants
// =============================================================================

const (
	// DefaultFromEmail is the default sender email for transactional emails.
	DefaultFromEmail = "noreply@jobvert.fr"

	// DefaultFromName is the default sender display name.
	DefaultFromName = "JobVert"
)
