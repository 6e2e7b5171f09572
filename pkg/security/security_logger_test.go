package security

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestMaskEmail(t *testing.T) {
	cases := map[string]string{
		"john@example.com": "j***@example.com",
		"j@example.com":    "***@example.com",
		"no-at-sign":       "***",
		"":                 "***",
	}
	for in, want := range cases {
		assert.Equal(t, want, MaskEmail(in), in)
	}
}

func TestLogDeliveryFailed_MasksSubmitter(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	sl := NewSecurityLogger(zap.New(core), "svc", "test")

	ctx := WithRequestID(context.Background(), "req-1")
	sl.LogDeliveryFailed(ctx, "john@example.com", errors.New("535 auth failed"))

	entries := logs.FilterMessage(string(EventDeliveryFailed)).All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)

	fields := entries[0].ContextMap()
	assert.Equal(t, "j***@example.com", fields["subject_value"])
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, string(SeverityHIGH), fields["severity"])
	assert.NotContains(t, fields["details"], "john@example.com")
}

func TestLogCaptchaDecision_HashesToken(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	sl := NewSecurityLogger(zap.New(core), "svc", "test")

	sl.LogCaptchaDecision(context.Background(), EventCaptchaAccepted, "raw-token", nil)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, HashValue("raw-token"), entries[0].ContextMap()["subject_value"])
	assert.NotEqual(t, "raw-token", entries[0].ContextMap()["subject_value"])
}

func TestNilLoggerIsSafe(t *testing.T) {
	var sl *SecurityLogger
	assert.NotPanics(t, func() {
		sl.Log(context.Background(), SecurityEvent{Event: EventRateLimitTriggered})
		_ = sl.Sync()
	})
}

func TestGetSeverity_UnknownIsWarn(t *testing.T) {
	assert.Equal(t, SeverityWARN, GetSeverity("something_new"))
}
