package logger

import (
	"context"
	"log/slog"
	"time"
)

// AuditEvent represents a security audit event
type AuditEvent struct {
	EventType     string
	ResourceCode  string
	OriginAddress string
	UserAgent     string
	Success       bool
	FailureReason string
	Metadata      map[string]string
}

// AuditLogger provides audit logging functionality
type AuditLogger struct {
	logger *slog.Logger
}

// NewAuditLogger creates a new audit logger
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{
		logger: logger,
	}
}

// LogAccessAttempt logs login attempts against a protected resource
func (al *AuditLogger) LogAccessAttempt(event AuditEvent) {
	attrs := []slog.Attr{
		slog.String("audit_type", "access"),
		slog.String("event_type", event.EventType),
		slog.Bool("success", event.Success),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}

	if event.ResourceCode != "" {
		attrs = append(attrs, slog.String("resource_code", event.ResourceCode))
	}
	if event.OriginAddress != "" {
		attrs = append(attrs, slog.String("origin_address", event.OriginAddress))
	}
	if event.UserAgent != "" {
		attrs = append(attrs, slog.String("user_agent", event.UserAgent))
	}
	if event.FailureReason != "" {
		attrs = append(attrs, slog.String("failure_reason", event.FailureReason))
	}

	if event.Success {
		al.logger.LogAttrs(context.Background(), slog.LevelInfo, "audit", attrs...)
	} else {
		al.logger.LogAttrs(context.Background(), slog.LevelWarn, "audit", attrs...)
	}
}

// LogCredentialAction logs credential lifecycle events (create, revoke, cleanup)
func (al *AuditLogger) LogCredentialAction(eventType, resourceCode, credentialID string, metadata map[string]string) {
	attrs := []slog.Attr{
		slog.String("audit_type", "credential"),
		slog.String("event_type", eventType),
		slog.String("resource_code", resourceCode),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}

	if credentialID != "" {
		attrs = append(attrs, slog.String("credential_id", credentialID))
	}

	for key, val := range metadata {
		attrs = append(attrs, slog.String(key, val))
	}

	al.logger.LogAttrs(context.Background(), slog.LevelInfo, "audit", attrs...)
}

// LogAdminAction logs admin surface events (password change, blocklist edits)
func (al *AuditLogger) LogAdminAction(eventType, originAddress string, success bool) {
	attrs := []slog.Attr{
		slog.String("audit_type", "admin"),
		slog.String("event_type", eventType),
		slog.Bool("success", success),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}

	if originAddress != "" {
		attrs = append(attrs, slog.String("origin_address", originAddress))
	}

	if success {
		al.logger.LogAttrs(context.Background(), slog.LevelInfo, "audit", attrs...)
	} else {
		al.logger.LogAttrs(context.Background(), slog.LevelWarn, "audit", attrs...)
	}
}
