package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ViolationKind names the specific rule a field broke.
type ViolationKind string

const (
	ViolationMissing      ViolationKind = "missing"
	ViolationInvalidEmail ViolationKind = "invalid_email"
	ViolationInvalidPhone ViolationKind = "invalid_phone"
	ViolationTooShort     ViolationKind = "too_short"
	ViolationTooLong      ViolationKind = "too_long"
	ViolationInvalid      ViolationKind = "invalid"
)

// Violation is a single field-level failure, keyed by the JSON field name.
type Violation struct {
	Field   string        `json:"field"`
	Kind    ViolationKind `json:"kind"`
	Message string        `json:"message"`
}

func (v Violation) String() string {
	return v.Field + ": " + v.Message
}

// FieldLabels maps JSON field names to user-facing labels
var FieldLabels = map[string]string{
	"name":           "Name",
	"email":          "Email",
	"phone":          "Phone",
	"subject":        "Subject",
	"message":        "Message",
	"recaptchaToken": "reCAPTCHA",
}

// requiredMessages overrides the generic "is required" text for fields the form labels differently.
var requiredMessages = map[string]string{
	"name":           "Name is required",
	"email":          "Email is required",
	"phone":          "Please enter a valid phone number with country code",
	"subject":        "Subject is required",
	"message":        "Message is required",
	"recaptchaToken": "reCAPTCHA verification is required",
}

// Violations converts validator.ValidationErrors into typed violations.
// Any other error becomes a single ViolationInvalid entry.
func Violations(err error) []Violation {
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return []Violation{{Kind: ViolationInvalid, Message: err.Error()}}
	}

	violations := make([]Violation, 0, len(validationErrors))
	for _, e := range validationErrors {
		violations = append(violations, toViolation(e))
	}
	return violations
}

// Summary joins violation messages for a one-line client message.
func Summary(violations []Violation) string {
	msgs := make([]string, 0, len(violations))
	for _, v := range violations {
		msgs = append(msgs, v.Message)
	}
	return strings.Join(msgs, "; ")
}

func toViolation(e validator.FieldError) Violation {
	field := e.Field()
	label := getFieldLabel(field)
	param := e.Param()

	v := Violation{Field: field}
	switch e.Tag() {
	case "required":
		v.Kind = ViolationMissing
		if msg, ok := requiredMessages[field]; ok {
			v.Message = msg
		} else {
			v.Message = fmt.Sprintf("%s is required", label)
		}

	case "email":
		v.Kind = ViolationInvalidEmail
		v.Message = "Invalid email address"

	case "valid_phone":
		v.Kind = ViolationInvalidPhone
		v.Message = "Please enter a valid phone number with country code"

	case "min":
		v.Kind = ViolationTooShort
		if field == "phone" {
			v.Message = "Please enter a valid phone number with country code"
		} else {
			v.Message = fmt.Sprintf("%s must be at least %s characters", label, param)
		}

	case "max":
		v.Kind = ViolationTooLong
		v.Message = fmt.Sprintf("%s must be at most %s characters", label, param)

	default:
		v.Kind = ViolationInvalid
		v.Message = fmt.Sprintf("%s is invalid (%s)", label, e.Tag())
	}
	return v
}

func getFieldLabel(field string) string {
	if label, ok := FieldLabels[field]; ok {
		return label
	}
	return field
}
