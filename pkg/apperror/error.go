package apperror

import (
	"errors"
	"net/http"
)

// Kind classifies why a request was refused. It is stable and safe to expose to clients.
type Kind string

const (
	KindValidation          Kind = "VALIDATION_ERROR"
	KindSecurityCheckFailed Kind = "SECURITY_CHECK_FAILED"
	KindDeliveryUnavailable Kind = "DELIVERY_UNAVAILABLE"
	KindRateLimited         Kind = "RATE_LIMITED"
	KindInternal            Kind = "INTERNAL"
)

type AppError struct {
	Code    int         `json:"code"`
	Kind    Kind        `json:"kind,omitempty"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	Err     error       `json:"-"`
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// StatusText returns the RPC-style status name for the HTTP code (e.g. BAD_REQUEST).
func (e *AppError) StatusText() string {
	switch e.Code {
	case http.StatusBadRequest:
		return "BAD_REQUEST"
	case http.StatusTooManyRequests:
		return "TOO_MANY_REQUESTS"
	case http.StatusServiceUnavailable:
		return "SERVICE_UNAVAILABLE"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusMethodNotAllowed:
		return "METHOD_NOT_SUPPORTED"
	default:
		return "INTERNAL_SERVER_ERROR"
	}
}

func New(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func BadRequest(message string) *AppError {
	return New(http.StatusBadRequest, message, nil)
}

// Validation reports malformed input. details carries the per-field violations.
func Validation(message string, details interface{}) *AppError {
	e := New(http.StatusBadRequest, message, nil)
	e.Kind = KindValidation
	e.Details = details
	return e
}

// SecurityCheckFailed reports that the bot-risk verifier denied the submission.
func SecurityCheckFailed(message string) *AppError {
	e := New(http.StatusBadRequest, message, nil)
	e.Kind = KindSecurityCheckFailed
	return e
}

// DeliveryUnavailable is only surfaced when the delivery policy is strict.
func DeliveryUnavailable(message string, err error) *AppError {
	e := New(http.StatusServiceUnavailable, message, err)
	e.Kind = KindDeliveryUnavailable
	return e
}

func TooManyRequests(message string) *AppError {
	e := New(http.StatusTooManyRequests, message, nil)
	e.Kind = KindRateLimited
	return e
}

func NotFound(message string) *AppError {
	return New(http.StatusNotFound, message, nil)
}

func Internal(err error) *AppError {
	e := New(http.StatusInternalServerError, "Internal Server Error", err)
	e.Kind = KindInternal
	return e
}

// IsKind reports whether err is an *AppError of the given kind.
func IsKind(err error, kind Kind) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Kind == kind
}
