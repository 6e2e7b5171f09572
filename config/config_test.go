package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("FRONTEND_URL", "https://consultancy.example/")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	t.Setenv("CONTACT_EMAIL_BCC", "")
	t.Setenv("RECAPTCHA_THRESHOLD", "")
	t.Setenv("RATE_LIMIT_WINDOW_SECONDS", "")
	t.Setenv("TRUSTED_PROXIES", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, []string{"https://consultancy.example"}, cfg.AllowedOrigins)
	assert.Nil(t, cfg.ContactEmailBcc)
	assert.Nil(t, cfg.TrustedProxies)
	assert.Equal(t, 0.3, cfg.RecaptchaThreshold)
	assert.True(t, cfg.RecaptchaFailOpen)
	assert.Equal(t, 10*time.Minute, cfg.RateLimitWindow())
}

func TestLoadConfig_ZeroThresholdIsKept(t *testing.T) {
	t.Setenv("RECAPTCHA_THRESHOLD", "0")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 0.0, cfg.RecaptchaThreshold)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("CONTACT_EMAIL_BCC", "a@example.com, ,b@example.com")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://www.consultancy.example")
	t.Setenv("RECAPTCHA_THRESHOLD", "0.7")
	t.Setenv("RECAPTCHA_FAIL_OPEN", "false")
	t.Setenv("SMTP_TIMEOUT_SECONDS", "3")
	t.Setenv("RATE_LIMIT_CONTACT_LIMIT", "not-a-number")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 192.168.1.10")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, []string{"a@example.com", "b@example.com"}, cfg.ContactEmailBcc)
	assert.Contains(t, cfg.AllowedOrigins, "https://www.consultancy.example")
	assert.Equal(t, 0.7, cfg.RecaptchaThreshold)
	assert.False(t, cfg.RecaptchaFailOpen)
	assert.Equal(t, 3*time.Second, cfg.SMTPTimeout)
	assert.Equal(t, 5, cfg.RateLimitContactLimit)
	assert.Equal(t, []string{"10.0.0.0/8", "192.168.1.10"}, cfg.TrustedProxies)
}
