package security

import "go.uber.org/zap/zapcore"

// Severity represents the severity level of a security event
// This is derived from EventType, NOT user-provided
type Severity string

const (
	SeverityINFO   Severity = "INFO"
	SeverityMEDIUM Severity = "MEDIUM"
	SeverityWARN   Severity = "WARN"
	SeverityHIGH   Severity = "HIGH"
)

// EventSeverityMap defines the hard-coded severity for each event type
var EventSeverityMap = map[EventType]Severity{
	EventCaptchaAccepted:       SeverityINFO,
	EventValidationFailed:      SeverityINFO,
	EventCaptchaActionMismatch: SeverityMEDIUM,
	EventCaptchaFallback:       SeverityMEDIUM,
	EventCaptchaRejected:       SeverityWARN,
	EventRateLimitTriggered:    SeverityWARN,
	EventDeliveryFailed:        SeverityHIGH,
}

// GetSeverity returns the severity for an event type. Unknown events are WARN.
func GetSeverity(event EventType) Severity {
	if s, ok := EventSeverityMap[event]; ok {
		return s
	}
	return SeverityWARN
}

func (s Severity) level() zapcore.Level {
	switch s {
	case SeverityINFO:
		return zapcore.InfoLevel
	case SeverityHIGH:
		return zapcore.ErrorLevel
	default:
		return zapcore.WarnLevel
	}
}
