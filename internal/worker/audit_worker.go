package worker

import (
	"go.uber.org/zap"

	"github.com/spec-kit/request-service/internal/service"
)

// StartAuditWorker attaches the audit subscriber to the dispatcher. It reports
// whether any event type is being recorded.
func StartAuditWorker(auditService *service.AuditService, logger *zap.Logger) bool {
	if logger == nil {
		logger = zap.NewNop()
	}
	if auditService == nil {
		logger.Warn("audit worker not started: no audit service")
		return false
	}
	subscribed := auditService.RegisterHandlers()
	if subscribed == 0 {
		logger.Warn("audit worker idle: dispatcher or event log missing")
		return false
	}
	logger.Info("audit worker started", zap.Int("event_types", subscribed))
	return true
}
