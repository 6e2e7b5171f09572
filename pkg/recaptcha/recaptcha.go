// Package recaptcha scores reCAPTCHA Enterprise tokens through the assessments REST API.
//
// The gate is lenient on purpose: provider outages, missing credentials and browser-side token
// problems admit the submission unless FailOpen is disabled. Threshold is the reviewed knob for
// how human a score has to look.
package recaptcha

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"consultancy-backend/pkg/logger"
	"consultancy-backend/pkg/security"
)

const (
	DefaultBaseURL   = "https://recaptchaenterprise.googleapis.com"
	DefaultThreshold = 0.3
	// DefaultScore is assumed when the assessment carries no risk analysis.
	DefaultScore   = 0.5
	DefaultTimeout = 8 * time.Second

	// maxResponseBytes caps how much of the provider response is read.
	maxResponseBytes = 1 << 20
)

// BenignInvalidReasons are token failures caused by the visitor's browser or by the provider
// itself; they are admitted rather than treated as abuse.
var BenignInvalidReasons = map[string]bool{
	"BROWSER_ERROR":              true,
	"INVALID_REASON_UNSPECIFIED": true,
	"UNKNOWN_INVALID_REASON":     true,
}

// Config holds the reCAPTCHA Enterprise project settings.
type Config struct {
	BaseURL   string
	ProjectID string
	SiteKey   string
	APIKey    string
	// Threshold is the lowest passing score. Nil or outside [0, 1] uses DefaultThreshold;
	// an explicit 0 admits every valid token.
	Threshold *float64
	// FailOpen admits submissions when the provider cannot give an answer.
	FailOpen bool
	Timeout  time.Duration
}

// Assessment is what the verifier learned about one token.
type Assessment struct {
	Valid         bool
	InvalidReason string
	Action        string
	ActionMatched bool
	Score         float64
	ScorePresent  bool
	Reasons       []string
	// Fallback is set when the decision came from the availability policy instead of the provider.
	Fallback       bool
	FallbackReason string
}

// Client verifies tokens. It is safe for concurrent use.
type Client struct {
	cfg        Config
	threshold  float64
	httpClient *http.Client
	audit      *security.SecurityLogger
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the default timeout-bound HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithAuditLogger sets where verifier decisions are recorded.
func WithAuditLogger(sl *security.SecurityLogger) Option {
	return func(c *Client) { c.audit = sl }
}

// NewClient applies defaults for base URL, threshold and timeout.
func NewClient(cfg Config, opts ...Option) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	threshold := DefaultThreshold
	if t := cfg.Threshold; t != nil && *t >= 0 && *t <= 1 {
		threshold = *t
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	c := &Client{
		cfg:        cfg,
		threshold:  threshold,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.audit == nil {
		c.audit = security.DefaultLogger()
	}
	return c
}

// IsConfigured reports whether the assessment API can be called at all.
func (c *Client) IsConfigured() bool {
	return c.cfg.APIKey != "" && c.cfg.ProjectID != "" && c.cfg.SiteKey != ""
}

type assessmentRequest struct {
	Event event `json:"event"`
}

type event struct {
	Token          string `json:"token"`
	SiteKey        string `json:"siteKey"`
	ExpectedAction string `json:"expectedAction"`
}

type assessmentResponse struct {
	TokenProperties *struct {
		Valid         *bool  `json:"valid"`
		InvalidReason string `json:"invalidReason"`
		Action        string `json:"action"`
	} `json:"tokenProperties"`
	RiskAnalysis *struct {
		Score   *float64 `json:"score"`
		Reasons []string `json:"reasons"`
	} `json:"riskAnalysis"`
}

// Verify asks the provider to assess token and returns whether the submission may proceed.
func (c *Client) Verify(ctx context.Context, token, expectedAction string) (Assessment, bool) {
	if !c.IsConfigured() {
		return c.fallback(ctx, token, "not_configured", nil)
	}

	resp, err := c.assess(ctx, token, expectedAction)
	if err != nil {
		return c.fallback(ctx, token, "provider_error", err)
	}

	a := Assessment{Valid: true, Score: DefaultScore}
	if tp := resp.TokenProperties; tp != nil {
		a.InvalidReason = tp.InvalidReason
		a.Action = tp.Action
		if tp.Valid != nil {
			a.Valid = *tp.Valid
		} else if tp.InvalidReason != "" && tp.InvalidReason != "INVALID_REASON_UNSPECIFIED" {
			a.Valid = false
		}
	}
	a.ActionMatched = a.Action == expectedAction
	if ra := resp.RiskAnalysis; ra != nil {
		a.Reasons = ra.Reasons
		if ra.Score != nil {
			a.Score = *ra.Score
			a.ScorePresent = true
		}
	}

	if !a.Valid {
		if BenignInvalidReasons[a.InvalidReason] {
			a.Fallback = true
			a.FallbackReason = "benign_invalid_reason"
			c.audit.LogCaptchaDecision(ctx, security.EventCaptchaFallback, token, map[string]interface{}{
				"reason":         a.FallbackReason,
				"invalid_reason": a.InvalidReason,
			})
			return a, true
		}
		c.audit.LogCaptchaDecision(ctx, security.EventCaptchaRejected, token, map[string]interface{}{
			"invalid_reason": a.InvalidReason,
		})
		return a, false
	}

	if !a.ActionMatched {
		c.audit.LogCaptchaDecision(ctx, security.EventCaptchaActionMismatch, token, map[string]interface{}{
			"expected": expectedAction,
			"actual":   a.Action,
		})
	}

	if a.Score < c.threshold {
		c.audit.LogCaptchaDecision(ctx, security.EventCaptchaRejected, token, map[string]interface{}{
			"score":     a.Score,
			"threshold": c.threshold,
			"reasons":   a.Reasons,
		})
		return a, false
	}

	c.audit.LogCaptchaDecision(ctx, security.EventCaptchaAccepted, token, map[string]interface{}{
		"score":         a.Score,
		"score_present": a.ScorePresent,
	})
	return a, true
}

func (c *Client) assess(ctx context.Context, token, expectedAction string) (*assessmentResponse, error) {
	body, err := json.Marshal(assessmentRequest{Event: event{
		Token:          token,
		SiteKey:        c.cfg.SiteKey,
		ExpectedAction: expectedAction,
	}})
	if err != nil {
		return nil, fmt.Errorf("encode assessment: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/projects/%s/assessments?key=%s",
		c.cfg.BaseURL, url.PathEscape(c.cfg.ProjectID), url.QueryEscape(c.cfg.APIKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build assessment request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		// url.Error embeds the request URL, which carries the API key
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return nil, fmt.Errorf("assessment call: %w", err)
	}
	defer res.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read assessment: %w", err)
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, fmt.Errorf("assessment call: status %d: %s", res.StatusCode, truncate(string(payload), 200))
	}

	var out assessmentResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, fmt.Errorf("decode assessment: %w", err)
	}
	return &out, nil
}

// fallback applies the availability policy when the provider gave no usable answer.
func (c *Client) fallback(ctx context.Context, token, reason string, err error) (Assessment, bool) {
	a := Assessment{Fallback: true, FallbackReason: reason}

	details := map[string]interface{}{
		"reason":    reason,
		"fail_open": c.cfg.FailOpen,
	}
	if err != nil {
		details["error"] = err.Error()
	}
	logger.Log.Warn("reCAPTCHA assessment unavailable", "reason", reason, "fail_open", c.cfg.FailOpen, "error", err)
	c.audit.LogCaptchaDecision(ctx, security.EventCaptchaFallback, token, details)

	return a, c.cfg.FailOpen
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
