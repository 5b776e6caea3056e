package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/sla-service/internal/domain"
	"github.com/spec-kit/sla-service/internal/repository"
)

// AuditLogger appends audit trail entries best-effort: a failed append is
// logged for operators but never surfaced into the caller's success path.
type AuditLogger struct {
	logs   repository.SlaLogRepository
	logger *zap.Logger
}

// NewAuditLogger constructs the logger.
func NewAuditLogger(logs repository.SlaLogRepository, logger *zap.Logger) *AuditLogger {
	return &AuditLogger{logs: logs, logger: logger}
}

// Append writes one audit entry.
func (a *AuditLogger) Append(ctx context.Context, entry *domain.SlaLog) {
	if a == nil || a.logs == nil {
		return
	}
	if err := a.logs.Append(ctx, entry); err != nil {
		a.logger.Error("audit log append failed",
			zap.String("tenant_id", entry.TenantID),
			zap.String("action", string(entry.Action)),
			zap.String("event_type", entry.EventType),
			zap.Error(err))
	}
}
