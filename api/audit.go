package api

import (
	"context"
	"log/slog"
	"time"

	"github.com/rvaughn/gatewarden/internal/uuid"
	"github.com/rvaughn/gatewarden/storage"
)

// AuditEvent identifies the type of security-relevant action being logged.
type AuditEvent string

const (
	AuditLoginSuccess     AuditEvent = "login_success"
	AuditLoginFailure     AuditEvent = "login_failure"
	AuditLoginRateLimited AuditEvent = "login_rate_limited"
	AuditLogout           AuditEvent = "logout"
	AuditAuthDenied       AuditEvent = "auth_denied"
	AuditRateLimited      AuditEvent = "rate_limited"
	AuditAdminDenied      AuditEvent = "admin_denied"
	AuditSessionsRevoked  AuditEvent = "sessions_revoked"
)

// auditLogger writes structured audit events to the process log and, when a
// store is configured, to the persistent hash-chained trail. Entries carry
// identities and addresses only; credential material never reaches either
// sink.
type auditLogger struct {
	logger  *slog.Logger
	store   storage.Store
	metrics *metricsCollector
}

func newAuditLogger(logger *slog.Logger) *auditLogger {
	return &auditLogger{
		logger: logger.With("component", "audit"),
	}
}

// auditRecord captures one event's caller-supplied fields.
type auditRecord struct {
	userID   string
	method   string
	clientIP string
	detail   string
}

func (al *auditLogger) log(event AuditEvent, rec auditRecord) {
	attrs := []slog.Attr{
		slog.String("event", string(event)),
	}
	if rec.userID != "" {
		attrs = append(attrs, slog.String("user_id", rec.userID))
	}
	if rec.method != "" {
		attrs = append(attrs, slog.String("method", rec.method))
	}
	if rec.clientIP != "" {
		attrs = append(attrs, slog.String("client_ip", rec.clientIP))
	}
	if rec.detail != "" {
		attrs = append(attrs, slog.String("detail", rec.detail))
	}
	al.logger.LogAttrs(context.Background(), slog.LevelInfo, "audit", attrs...)

	al.metrics.recordEvent(event)

	if al.store != nil {
		_, err := al.store.Append(storage.Entry{
			ID:        uuid.New(),
			Event:     string(event),
			UserID:    rec.userID,
			Method:    rec.method,
			ClientIP:  rec.clientIP,
			Detail:    rec.detail,
			CreatedAt: time.Now().UTC().Format(time.RFC3339),
		})
		if err != nil {
			al.logger.Warn("audit trail append failed", "error", err)
		}
	}
}

// recent returns up to limit persisted entries, newest first. Without a
// store the trail is empty.
func (al *auditLogger) recent(limit int) ([]storage.Entry, error) {
	if al.store == nil {
		return nil, nil
	}
	return al.store.Recent(limit)
}
