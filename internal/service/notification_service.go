package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/joaomjbraga/shipment-management/internal/events"
)

// NotificationService logs delivery events and forwards them to the broker
// when one is configured.
type NotificationService struct {
	publisher events.Publisher
	logger    *zap.Logger
}

// NewNotificationService creates the service. publisher may be nil.
func NewNotificationService(publisher events.Publisher, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		publisher: publisher,
		logger:    logger,
	}
}

// Handle processes one event.
func (n *NotificationService) Handle(ctx context.Context, event events.Event) error {
	n.logger.Info(string(event.Type),
		zap.String("event_id", event.ID),
		zap.String("delivery_id", event.DeliveryID),
		zap.String("actor_id", event.Actor.UserID),
		zap.Any("payload", event.Payload))
	if n.publisher == nil {
		return nil
	}
	return n.publisher.PublishEvent(ctx, event)
}
