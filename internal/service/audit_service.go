package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/auth-engine/internal/auth"
	"github.com/spec-kit/auth-engine/internal/events"
	"github.com/spec-kit/auth-engine/internal/observability"
)

// AuditService writes an audit trail line for every authentication event.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger) *AuditService {
	return &AuditService{
		dispatcher: dispatcher,
		logger:     logger.Named("audit"),
	}
}

// RegisterHandlers subscribes the audit trail and returns the event types it now receives.
func (a *AuditService) RegisterHandlers() []events.EventType {
	if a.dispatcher == nil {
		return nil
	}
	handlers := []struct {
		eventType events.EventType
		handle    events.EventHandler
	}{
		{events.EventLoginSucceeded, a.handleLoginSucceeded},
		{events.EventLoginRejected, a.handleLoginRejected},
		{events.EventTokenRejected, a.handleTokenRejected},
	}
	subscribed := make([]events.EventType, 0, len(handlers))
	for _, h := range handlers {
		a.dispatcher.Subscribe(h.eventType, h.handle)
		subscribed = append(subscribed, h.eventType)
	}
	return subscribed
}

func (a *AuditService) handleLoginSucceeded(_ context.Context, event events.Event) error {
	fields := a.baseFields(event)
	if p, ok := event.Payload.(events.LoginSucceededPayload); ok {
		fields = append(fields,
			zap.String("token_id", p.TokenID),
			zap.Strings("roles", p.Roles),
			zap.Time("expires_at", p.ExpiresAt))
	}
	a.logger.Info("LoginSucceeded", fields...)
	return nil
}

func (a *AuditService) handleLoginRejected(_ context.Context, event events.Event) error {
	fields := a.baseFields(event)
	if p, ok := event.Payload.(events.LoginRejectedPayload); ok {
		fields = append(fields, zap.String("outcome", p.Outcome))
	}
	a.logger.Warn("LoginRejected", fields...)
	return nil
}

func (a *AuditService) handleTokenRejected(_ context.Context, event events.Event) error {
	fields := a.baseFields(event)
	if p, ok := event.Payload.(events.TokenRejectedPayload); ok {
		fields = append(fields, zap.String("kind", p.Kind))
	}
	a.logger.Info("TokenRejected", fields...)
	return nil
}

func (a *AuditService) baseFields(event events.Event) []zap.Field {
	return []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("subject", observability.MaskEmail(event.Subject.String())),
		zap.Time("at", event.Timestamp),
	}
}

// RejectionPublisher forwards gate rejections to a recorder and the event dispatcher.
type RejectionPublisher struct {
	dispatcher events.Dispatcher
	next       auth.RejectionRecorder
}

// NewRejectionPublisher wraps next, which may be nil.
func NewRejectionPublisher(dispatcher events.Dispatcher, next auth.RejectionRecorder) *RejectionPublisher {
	return &RejectionPublisher{dispatcher: dispatcher, next: next}
}

// RecordTokenRejection implements auth.RejectionRecorder.
func (p *RejectionPublisher) RecordTokenRejection(kind auth.TokenErrorKind) {
	if p.next != nil {
		p.next.RecordTokenRejection(kind)
	}
	if p.dispatcher != nil {
		_ = p.dispatcher.Publish(context.Background(), events.NewEvent(events.EventTokenRejected, "", events.TokenRejectedPayload{
			Kind: string(kind),
		}))
	}
}
