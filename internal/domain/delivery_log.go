package domain

import "time"

// DeliveryLog is an immutable, append-only journal entry for a delivery.
type DeliveryLog struct {
	ID          string
	DeliveryID  string
	Description string
	CreatedAt   time.Time
}
