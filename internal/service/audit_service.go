package service

import (
	"context"

	"trade-intel-be/internal/pkg/logger"
	"trade-intel-be/pkg/events"
	"trade-intel-be/pkg/nats"
)

// IAuditService records chat lifecycle events from the bus into the
// structured log, giving operators a durable trail independent of the
// per-request stream logs.
type IAuditService interface {
	Start() error
}

type auditService struct {
	subscriber *nats.Subscriber
	log        logger.ILogger
}

func NewAuditService(subscriber *nats.Subscriber, log logger.ILogger) IAuditService {
	return &auditService{
		subscriber: subscriber,
		log:        log,
	}
}

func (s *auditService) Start() error {
	return s.subscriber.Subscribe("events.>", "audit-log", func(_ context.Context, event events.Event) error {
		s.log.Info("audit", "bus event", map[string]interface{}{
			"subject": event.EventType(),
			"payload": event.Payload(),
		})
		return nil
	})
}
