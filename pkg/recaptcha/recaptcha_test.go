package recaptcha_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"consultancy-backend/pkg/recaptcha"
	"consultancy-backend/pkg/security"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newAudit() (*security.SecurityLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return security.NewSecurityLogger(zap.New(core), "test", "test"), logs
}

func newClient(t *testing.T, srv *httptest.Server, failOpen bool) (*recaptcha.Client, *observer.ObservedLogs) {
	t.Helper()
	audit, logs := newAudit()
	c := recaptcha.NewClient(recaptcha.Config{
		BaseURL:   srv.URL,
		ProjectID: "site-project",
		SiteKey:   "site-key",
		APIKey:    "api-key",
		FailOpen:  failOpen,
		Timeout:   time.Second,
	}, recaptcha.WithAuditLogger(audit))
	return c, logs
}

func jsonServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestVerify_SendsAssessmentRequest(t *testing.T) {
	var got struct {
		Event struct {
			Token          string `json:"token"`
			SiteKey        string `json:"siteKey"`
			ExpectedAction string `json:"expectedAction"`
		} `json:"event"`
	}
	var path, key string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		key = r.URL.Query().Get("key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"tokenProperties":{"valid":true,"action":"CONTACT_FORM"},"riskAnalysis":{"score":0.9}}`))
	}))
	defer srv.Close()

	c, _ := newClient(t, srv, true)
	a, ok := c.Verify(context.Background(), "tok-123", "CONTACT_FORM")

	assert.True(t, ok)
	assert.Equal(t, "/v1/projects/site-project/assessments", path)
	assert.Equal(t, "api-key", key)
	assert.Equal(t, "tok-123", got.Event.Token)
	assert.Equal(t, "site-key", got.Event.SiteKey)
	assert.Equal(t, "CONTACT_FORM", got.Event.ExpectedAction)
	assert.InDelta(t, 0.9, a.Score, 1e-9)
	assert.True(t, a.ActionMatched)
	assert.False(t, a.Fallback)
}

func TestVerify_DecisionPolicy(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		failOpen bool
		want     bool
		fallback bool
	}{
		{"high score", 200, `{"tokenProperties":{"valid":true,"action":"CONTACT_FORM"},"riskAnalysis":{"score":0.9}}`, true, true, false},
		{"score at threshold", 200, `{"tokenProperties":{"valid":true},"riskAnalysis":{"score":0.3}}`, true, true, false},
		{"score below threshold", 200, `{"tokenProperties":{"valid":true},"riskAnalysis":{"score":0.1}}`, true, false, false},
		{"explicit zero score", 200, `{"tokenProperties":{"valid":true},"riskAnalysis":{"score":0}}`, true, false, false},
		{"absent score defaults to 0.5", 200, `{"tokenProperties":{"valid":true}}`, true, true, false},
		{"invalid token", 200, `{"tokenProperties":{"valid":false,"invalidReason":"MALFORMED"}}`, true, false, false},
		{"expired token", 200, `{"tokenProperties":{"valid":false,"invalidReason":"EXPIRED"}}`, true, false, false},
		{"browser error is benign", 200, `{"tokenProperties":{"valid":false,"invalidReason":"BROWSER_ERROR"}}`, true, true, true},
		{"unspecified reason is benign", 200, `{"tokenProperties":{"valid":false,"invalidReason":"INVALID_REASON_UNSPECIFIED"}}`, true, true, true},
		{"unknown reason is benign", 200, `{"tokenProperties":{"valid":false,"invalidReason":"UNKNOWN_INVALID_REASON"}}`, true, true, true},
		{"omitted valid with reason", 200, `{"tokenProperties":{"invalidReason":"DUPE"}}`, true, false, false},
		{"provider 500 fails open", 500, `{"error":"boom"}`, true, true, true},
		{"provider 403 fails open", 403, `{"error":{"message":"API key not valid"}}`, true, true, true},
		{"garbage body fails open", 200, `not json`, true, true, true},
		{"provider 500 fails closed", 500, `{}`, false, false, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := jsonServer(t, tc.status, tc.body)
			c, _ := newClient(t, srv, tc.failOpen)

			a, ok := c.Verify(context.Background(), "token", "CONTACT_FORM")
			assert.Equal(t, tc.want, ok)
			assert.Equal(t, tc.fallback, a.Fallback)
		})
	}
}

func TestVerify_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	audit, logs := newAudit()
	c := recaptcha.NewClient(recaptcha.Config{
		BaseURL:   srv.URL,
		ProjectID: "p",
		SiteKey:   "s",
		APIKey:    "k",
		FailOpen:  true,
		Timeout:   50 * time.Millisecond,
	}, recaptcha.WithAuditLogger(audit))

	a, ok := c.Verify(context.Background(), "token", "CONTACT_FORM")
	assert.True(t, ok)
	assert.Equal(t, "provider_error", a.FallbackReason)
	assert.Equal(t, 1, logs.FilterMessage(string(security.EventCaptchaFallback)).Len())
}

func TestVerify_NotConfigured(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	audit, logs := newAudit()

	open := recaptcha.NewClient(recaptcha.Config{BaseURL: srv.URL, FailOpen: true}, recaptcha.WithAuditLogger(audit))
	a, ok := open.Verify(context.Background(), "token", "CONTACT_FORM")
	assert.True(t, ok)
	assert.Equal(t, "not_configured", a.FallbackReason)

	closed := recaptcha.NewClient(recaptcha.Config{BaseURL: srv.URL}, recaptcha.WithAuditLogger(audit))
	_, ok = closed.Verify(context.Background(), "token", "CONTACT_FORM")
	assert.False(t, ok)

	assert.Zero(t, atomic.LoadInt32(&calls))
	assert.Equal(t, 2, logs.FilterMessage(string(security.EventCaptchaFallback)).Len())
}

func TestVerify_AuditsWithoutRawToken(t *testing.T) {
	srv := jsonServer(t, 200, `{"tokenProperties":{"valid":true,"action":"LOGIN"},"riskAnalysis":{"score":0.8}}`)
	c, logs := newClient(t, srv, true)

	a, ok := c.Verify(context.Background(), "secret-token", "CONTACT_FORM")
	require.True(t, ok)
	assert.False(t, a.ActionMatched)

	assert.Equal(t, 1, logs.FilterMessage(string(security.EventCaptchaActionMismatch)).Len())
	for _, entry := range logs.All() {
		for _, f := range entry.Context {
			assert.NotEqual(t, "secret-token", f.String)
		}
	}
}

func TestNewClient_Defaults(t *testing.T) {
	srv := jsonServer(t, 200, `{"tokenProperties":{"valid":true},"riskAnalysis":{"score":0.29}}`)
	audit, _ := newAudit()
	outOfRange := 5.0
	c := recaptcha.NewClient(recaptcha.Config{
		BaseURL:   srv.URL,
		ProjectID: "p",
		SiteKey:   "s",
		APIKey:    "k",
		Threshold: &outOfRange,
	}, recaptcha.WithAuditLogger(audit))

	_, ok := c.Verify(context.Background(), "token", "CONTACT_FORM")
	assert.False(t, ok)
	assert.True(t, c.IsConfigured())
}

func TestVerify_ExplicitThreshold(t *testing.T) {
	tests := []struct {
		name      string
		threshold float64
		score     string
		want      bool
	}{
		{"zero admits zero score", 0, "0.0", true},
		{"zero admits low score", 0, "0.1", true},
		{"strict threshold rejects default pass", 0.7, "0.5", false},
		{"upper bound admits perfect score", 1, "1.0", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := jsonServer(t, 200, `{"tokenProperties":{"valid":true,"action":"CONTACT_FORM"},"riskAnalysis":{"score":`+tc.score+`}}`)
			audit, _ := newAudit()
			threshold := tc.threshold
			c := recaptcha.NewClient(recaptcha.Config{
				BaseURL:   srv.URL,
				ProjectID: "p",
				SiteKey:   "s",
				APIKey:    "k",
				Threshold: &threshold,
			}, recaptcha.WithAuditLogger(audit))

			_, ok := c.Verify(context.Background(), "token", "CONTACT_FORM")
			assert.Equal(t, tc.want, ok)
		})
	}
}

func TestVerify_TransportErrorDoesNotLogAPIKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	baseURL := srv.URL
	srv.Close()

	audit, logs := newAudit()
	c := recaptcha.NewClient(recaptcha.Config{
		BaseURL:   baseURL,
		ProjectID: "p",
		SiteKey:   "s",
		APIKey:    "very-secret-api-key",
		FailOpen:  true,
		Timeout:   time.Second,
	}, recaptcha.WithAuditLogger(audit))

	_, ok := c.Verify(context.Background(), "token", "CONTACT_FORM")
	assert.True(t, ok)
	require.Equal(t, 1, logs.Len())
	for _, f := range logs.All()[0].Context {
		assert.NotContains(t, f.String, "very-secret-api-key")
	}
}
