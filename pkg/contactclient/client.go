// Package contactclient drives the contact form from the client side: local
// checks, the risk challenge, the submission call and resetting the form.
package contactclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// ContactAction is the action label the risk challenge runs with.
const ContactAction = "CONTACT_FORM"

var (
	// ErrConsentRequired blocks submission until the privacy policy is accepted.
	ErrConsentRequired = errors.New("please accept the privacy policy to continue")
	// ErrChallengeIncomplete blocks submission until the risk challenge yields a token.
	ErrChallengeIncomplete = errors.New("please complete the security check")
)

const transportFailureMessage = "Failed to send message. Please try again later."

// Form holds what the user typed.
type Form struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	Subject        string `json:"subject"`
	Message        string `json:"message"`
	PrivacyConsent bool   `json:"-"`
}

// TokenSource runs the in-browser risk challenge and returns its token.
type TokenSource interface {
	Token(ctx context.Context, action string) (string, error)
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func(ctx context.Context, action string) (string, error)

func (f TokenFunc) Token(ctx context.Context, action string) (string, error) { return f(ctx, action) }

// FieldError is one server-reported field violation.
type FieldError struct {
	Field   string `json:"field"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Status is what the form shows after a submission attempt.
type Status struct {
	Success    bool
	Message    string
	Kind       string
	Fields     []FieldError
	StatusCode int
}

type Option func(*Controller)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Controller) { c.http = hc }
}

// Controller owns one form instance. Submit is serialized; concurrent calls wait.
type Controller struct {
	endpoint string
	tokens   TokenSource
	http     *http.Client

	mu   sync.Mutex
	form Form
}

// NewController targets {baseURL}/v1/contact.
func NewController(baseURL string, tokens TokenSource, opts ...Option) *Controller {
	c := &Controller{
		endpoint: strings.TrimRight(baseURL, "/") + "/v1/contact",
		tokens:   tokens,
		http:     &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetForm replaces the current field values.
func (c *Controller) SetForm(f Form) {
	c.mu.Lock()
	c.form = f
	c.mu.Unlock()
}

// Form returns a copy of the current field values.
func (c *Controller) Form() Form {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.form
}

type submission struct {
	Form
	RecaptchaToken string `json:"recaptchaToken"`
}

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   *struct {
		Code    string       `json:"code"`
		Kind    string       `json:"kind"`
		Details []FieldError `json:"details"`
	} `json:"error"`
}

// Submit sends the form. Local checks fail with ErrConsentRequired or
// ErrChallengeIncomplete before any request is made. Server rejections come
// back as a Status with Success false and a nil error; the form is cleared only on success.
func (c *Controller) Submit(ctx context.Context) (Status, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.form.PrivacyConsent {
		return Status{Message: ErrConsentRequired.Error()}, ErrConsentRequired
	}
	if c.tokens == nil {
		return Status{Message: ErrChallengeIncomplete.Error()}, ErrChallengeIncomplete
	}
	token, err := c.tokens.Token(ctx, ContactAction)
	if err != nil || strings.TrimSpace(token) == "" {
		if err == nil {
			err = ErrChallengeIncomplete
		} else {
			err = fmt.Errorf("%w: %v", ErrChallengeIncomplete, err)
		}
		return Status{Message: ErrChallengeIncomplete.Error()}, err
	}

	body, err := json.Marshal(submission{Form: c.form, RecaptchaToken: token})
	if err != nil {
		return Status{Message: transportFailureMessage}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Status{Message: transportFailureMessage}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Status{Message: transportFailureMessage}, fmt.Errorf("contact submit: %w", err)
	}
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil || json.Unmarshal(raw, &env) != nil || env.Message == "" {
		return Status{Message: transportFailureMessage, StatusCode: resp.StatusCode},
			fmt.Errorf("contact submit: unexpected response (HTTP %d)", resp.StatusCode)
	}

	status := Status{
		Success:    env.Success && resp.StatusCode < 300,
		Message:    env.Message,
		StatusCode: resp.StatusCode,
	}
	if env.Error != nil {
		status.Kind = env.Error.Kind
		status.Fields = env.Error.Details
	}
	if status.Success {
		c.form = Form{}
	}
	return status, nil
}
