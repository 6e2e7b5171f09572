package domain

import (
	"context"
	"strings"

	"consultancy-backend/pkg/email"
	"consultancy-backend/pkg/recaptcha"
)

// ContactAction is the reCAPTCHA action label the site's contact form executes with.
const ContactAction = "CONTACT_FORM"

// Result messages returned to the site.
const (
	MessageSent            = "Your message has been sent successfully!"
	MessageDeliveryPending = "Message received (email notification pending)"
	MessageSecurityFailed  = "Security verification failed. Please try again."
	MessageDeliveryFailed  = "Failed to send message. Please try again later."
)

// SubmissionRequest represents a contact form submission. It lives for one request and is never stored.
type SubmissionRequest struct {
	Name           string `json:"name" validate:"required,max=200" example:"John Doe"`
	Email          string `json:"email" validate:"required,email,max=254" example:"john@example.com"`
	Phone          string `json:"phone" validate:"required,min=8,max=32,valid_phone" example:"+971501234567"`
	Subject        string `json:"subject" validate:"required,max=200" example:"Business Development"`
	Message        string `json:"message" validate:"required,max=5000" example:"I would like to discuss a partnership opportunity."`
	RecaptchaToken string `json:"recaptchaToken" validate:"required" example:"03AFcWeA..."`
}

// Normalize trims surrounding whitespace so blank fields fail the required rule.
func (r *SubmissionRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	r.Phone = strings.TrimSpace(r.Phone)
	r.Subject = strings.TrimSpace(r.Subject)
	r.Message = strings.TrimSpace(r.Message)
	r.RecaptchaToken = strings.TrimSpace(r.RecaptchaToken)
}

// SubmissionResult is returned on acceptance.
type SubmissionResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// DeliveryPolicy decides what a failed notification means for the caller.
type DeliveryPolicy string

const (
	// DeliveryBestEffort reports success to the submitter and logs the failed send.
	DeliveryBestEffort DeliveryPolicy = "best_effort"
	// DeliveryStrict fails the submission with DeliveryUnavailable.
	DeliveryStrict DeliveryPolicy = "strict"
)

// ParseDeliveryPolicy falls back to best effort for unknown values.
func ParseDeliveryPolicy(s string) DeliveryPolicy {
	if DeliveryPolicy(strings.ToLower(strings.TrimSpace(s))) == DeliveryStrict {
		return DeliveryStrict
	}
	return DeliveryBestEffort
}

// RiskVerifier scores a client risk token.
type RiskVerifier interface {
	Verify(ctx context.Context, token, expectedAction string) (recaptcha.Assessment, bool)
}

// Notifier hands a formatted notification to the mail relay.
type Notifier interface {
	Send(ctx context.Context, n email.Notification, replyTo string) error
}

// ContactUsecase defines the interface for contact form operations
type ContactUsecase interface {
	// Submit validates, verifies and relays a contact form submission
	Submit(ctx context.Context, req *SubmissionRequest) (*SubmissionResult, error)
}
