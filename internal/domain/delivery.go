package domain

import (
	"fmt"
	"time"
)

// DeliveryStatus enumerates lifecycle states for deliveries.
type DeliveryStatus string

const (
	DeliveryStatusProcessing DeliveryStatus = "processing"
	DeliveryStatusShipped    DeliveryStatus = "shipped"
	DeliveryStatusDelivered  DeliveryStatus = "delivered"
)

var statusRank = map[DeliveryStatus]int{
	DeliveryStatusProcessing: 0,
	DeliveryStatusShipped:    1,
	DeliveryStatusDelivered:  2,
}

// Valid reports whether s is one of the known statuses.
func (s DeliveryStatus) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// Rank returns the position of s in the lifecycle, or -1 when unknown.
func (s DeliveryStatus) Rank() int {
	if r, ok := statusRank[s]; ok {
		return r
	}
	return -1
}

// Delivery is the tracked shipment aggregate.
type Delivery struct {
	ID          string
	UserID      string
	Description string
	Status      DeliveryStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// DeliveryOwner is the owner summary attached to delivery listings.
type DeliveryOwner struct {
	Name  string
	Email string
}

// DeliveryWithOwner pairs a delivery with its owner summary.
type DeliveryWithOwner struct {
	Delivery
	Owner DeliveryOwner
}

// TransitionError reports a rejected lifecycle move.
type TransitionError struct {
	Current   DeliveryStatus
	Requested DeliveryStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid status transition from %s to %s", e.Current, e.Requested)
}

// ValidateTransition accepts only a single forward step:
// processing -> shipped -> delivered.
func ValidateTransition(current, requested DeliveryStatus) error {
	cur, next := current.Rank(), requested.Rank()
	if cur < 0 || next < 0 || next != cur+1 {
		return &TransitionError{Current: current, Requested: requested}
	}
	return nil
}
