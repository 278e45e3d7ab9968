package events

import (
	"time"

	"github.com/joaomjbraga/shipment-management/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventDeliveryCreated       EventType = "delivery_created"
	EventDeliveryStatusChanged EventType = "delivery_status_changed"
	EventDeliveryLogAdded      EventType = "delivery_log_added"
)

// Actor identifies who triggered an event.
type Actor struct {
	UserID string      `json:"user_id"`
	Role   domain.Role `json:"role"`
}

// ActorFrom builds an Actor from an authenticated identity.
func ActorFrom(identity domain.Identity) Actor {
	return Actor{UserID: identity.ID, Role: identity.Role}
}

// Event represents a domain event emitted by services.
type Event struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	DeliveryID string    `json:"delivery_id"`
	Actor      Actor     `json:"actor"`
	Timestamp  time.Time `json:"timestamp"`
	Payload    any       `json:"payload"`
}

// DeliveryCreatedPayload payload.
type DeliveryCreatedPayload struct {
	UserID      string                `json:"user_id"`
	Description string                `json:"description"`
	Status      domain.DeliveryStatus `json:"status"`
}

// DeliveryStatusChangedPayload payload.
type DeliveryStatusChangedPayload struct {
	OldStatus domain.DeliveryStatus `json:"old_status"`
	NewStatus domain.DeliveryStatus `json:"new_status"`
	LogID     string                `json:"log_id"`
}

// DeliveryLogAddedPayload payload.
type DeliveryLogAddedPayload struct {
	LogID       string `json:"log_id"`
	Description string `json:"description"`
}

// DeliveryEventTypes lists every event the delivery service emits.
var DeliveryEventTypes = []EventType{
	EventDeliveryCreated,
	EventDeliveryStatusChanged,
	EventDeliveryLogAdded,
}
