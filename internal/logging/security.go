package logging

import (
	"github.com/rs/zerolog"
)

// ThreatEvent describes a detected threat for audit logging. The full
// detail (matched signature keys, scores, identities) is logged
// server-side only; none of it is ever echoed to the client.
type ThreatEvent struct {
	// Event is the event type (e.g. "threat_detected", "banned_request",
	// "auto_escalation", "escalation_degraded").
	Event string
	// IP is the client IP address.
	IP string
	// UserID is the authenticated user identifier, if known.
	UserID string
	// TokenSig is the session token signature, if known. Sanitized
	// before logging.
	TokenSig string
	// Severity is the highest matched severity ("critical", "high", ...).
	Severity string
	// Threats lists the matched signature keys.
	Threats []string
	// RiskScore is the cumulative risk score of the scan.
	RiskScore int
	// Action is the decision taken ("block", "warn", "deceive", "deny").
	Action string
	// Method and Path identify the request.
	Method string
	Path   string
	// RequestID correlates the event with request logs.
	RequestID string
	// Error carries an infrastructure failure detail, if any.
	Error string
}

// SecurityLogger writes threat events to the security sink. It is the
// single place threat detections are persisted; handlers must log
// through it before writing any response.
type SecurityLogger struct {
	logger zerolog.Logger
}

// NewSecurityLogger creates a security logger backed by the global logger.
func NewSecurityLogger() *SecurityLogger {
	return &SecurityLogger{
		logger: With().Str("component", "security").Logger(),
	}
}

// NewSecurityLoggerWithLogger creates a security logger with a custom
// zerolog logger, used by tests to capture output.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewSecurityLoggerWithLogger(logger zerolog.Logger) *SecurityLogger {
	return &SecurityLogger{
		logger: logger.With().Str("component", "security").Logger(),
	}
}

// LogThreat logs a threat event with identity sanitization.
func (l *SecurityLogger) LogThreat(event *ThreatEvent) {
	e := l.logger.Warn().
		Str("event", event.Event)

	if event.IP != "" {
		e = e.Str("ip", event.IP)
	}
	if event.UserID != "" {
		e = e.Str("user_id", SanitizeIdentity(event.UserID))
	}
	if event.TokenSig != "" {
		e = e.Str("token_sig", SanitizeIdentity(event.TokenSig))
	}
	if event.Severity != "" {
		e = e.Str("severity", event.Severity)
	}
	if len(event.Threats) > 0 {
		e = e.Strs("threats", event.Threats)
	}
	if event.RiskScore > 0 {
		e = e.Int("risk_score", event.RiskScore)
	}
	if event.Action != "" {
		e = e.Str("action", event.Action)
	}
	if event.Method != "" {
		e = e.Str("method", event.Method)
	}
	if event.Path != "" {
		e = e.Str("path", event.Path)
	}
	if event.RequestID != "" {
		e = e.Str("request_id", event.RequestID)
	}
	if event.Error != "" {
		e = e.Str("error", event.Error)
	}

	e.Msg("security event")
}

// Warn logs a warning on the security sink.
func (l *SecurityLogger) Warn() *zerolog.Event { return l.logger.Warn() }

// Error logs an error on the security sink.
func (l *SecurityLogger) Error() *zerolog.Event { return l.logger.Error() }

// SanitizeIdentity masks an identity value, keeping only the first and
// last four characters. Example: "user-12345678" -> "user...5678".
func SanitizeIdentity(v string) string {
	if v == "" {
		return ""
	}
	if len(v) <= 8 {
		return "***"
	}
	return v[:4] + "..." + v[len(v)-4:]
}
