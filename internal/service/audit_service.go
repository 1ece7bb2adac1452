package service

import (
	"context"

	"city-inspect-be/internal/pkg/logger"
	"city-inspect-be/pkg/events"
	pktNats "city-inspect-be/pkg/nats"
)

type IAuditService interface {
	Consume(ctx context.Context) error
	Close()
}

// auditService tails the task lifecycle stream and mirrors it into the
// structured application log. It is the only in-process subscriber;
// the REST handlers never read from NATS.
type auditService struct {
	subscriber *pktNats.Subscriber
	logger     logger.ILogger
}

func NewAuditService(subscriber *pktNats.Subscriber, logger logger.ILogger) IAuditService {
	return &auditService{
		subscriber: subscriber,
		logger:     logger,
	}
}

func (as *auditService) Consume(ctx context.Context) error {
	return as.subscriber.Subscribe("inspect.events.>", "inspect-audit", func(_ context.Context, event events.Event) error {
		as.logger.Info("AUDIT", "task event", map[string]interface{}{
			"type":    event.EventType(),
			"payload": event.Payload(),
		})
		return nil
	})
}

func (as *auditService) Close() {
	as.subscriber.Close()
}
