package worker

import (
	"go.uber.org/zap"

	"github.com/spec-kit/auth-engine/internal/service"
)

// StartAuditWorker attaches the audit trail to the event dispatcher and
// reports whether any event type was subscribed.
func StartAuditWorker(audit *service.AuditService, logger *zap.Logger) bool {
	if logger == nil {
		logger = zap.NewNop()
	}
	if audit == nil {
		logger.Warn("audit trail disabled")
		return false
	}

	subscribed := audit.RegisterHandlers()
	if len(subscribed) == 0 {
		logger.Warn("audit trail has no dispatcher; authentication events are not recorded")
		return false
	}

	names := make([]string, 0, len(subscribed))
	for _, eventType := range subscribed {
		names = append(names, string(eventType))
	}
	logger.Info("audit trail attached", zap.Strings("events", names))
	return true
}
