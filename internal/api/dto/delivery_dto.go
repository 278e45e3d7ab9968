package dto

import (
	"strings"
	"time"

	"github.com/joaomjbraga/shipment-management/internal/domain"
)

// DeliveryCreateRequest payload for POST /deliveries.
type DeliveryCreateRequest struct {
	UserID      string `json:"user_id" validate:"required,uuid"`
	Description string `json:"description" validate:"required,max=2000"`
}

// Normalize trims surrounding whitespace before validation.
func (r *DeliveryCreateRequest) Normalize() {
	r.UserID = strings.TrimSpace(r.UserID)
	r.Description = strings.TrimSpace(r.Description)
}

// DeliveryStatusRequest payload for PATCH /deliveries/:id/status.
type DeliveryStatusRequest struct {
	Status string `json:"status" validate:"required,status"`
}

// Normalize is a no-op; status values are matched exactly.
func (r *DeliveryStatusRequest) Normalize() {}

// DeliveryLogCreateRequest payload for POST /deliveries-logs.
type DeliveryLogCreateRequest struct {
	DeliveryID  string `json:"delivery_id" validate:"required,uuid"`
	Description string `json:"description" validate:"required,max=2000"`
}

// Normalize trims surrounding whitespace before validation.
func (r *DeliveryLogCreateRequest) Normalize() {
	r.DeliveryID = strings.TrimSpace(r.DeliveryID)
	r.Description = strings.TrimSpace(r.Description)
}

// DeliveryResponse is the wire form of a delivery.
type DeliveryResponse struct {
	ID          string                `json:"id"`
	UserID      string                `json:"user_id"`
	Description string                `json:"description"`
	Status      domain.DeliveryStatus `json:"status"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

// DeliveryOwnerResponse is the owner summary in listings.
type DeliveryOwnerResponse struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// DeliveryListItem is one row of GET /deliveries.
type DeliveryListItem struct {
	DeliveryResponse
	User DeliveryOwnerResponse `json:"user"`
}

// DeliveryLogResponse is the wire form of a log entry.
type DeliveryLogResponse struct {
	ID          string    `json:"id"`
	DeliveryID  string    `json:"delivery_id"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// DeliveryWithLogsResponse is returned by GET /deliveries-logs/:id/show.
type DeliveryWithLogsResponse struct {
	DeliveryResponse
	Logs []DeliveryLogResponse `json:"logs"`
}

func NewDeliveryResponse(d *domain.Delivery) DeliveryResponse {
	return DeliveryResponse{
		ID:          d.ID,
		UserID:      d.UserID,
		Description: d.Description,
		Status:      d.Status,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

func NewDeliveryList(items []domain.DeliveryWithOwner) []DeliveryListItem {
	out := make([]DeliveryListItem, 0, len(items))
	for i := range items {
		out = append(out, DeliveryListItem{
			DeliveryResponse: NewDeliveryResponse(&items[i].Delivery),
			User: DeliveryOwnerResponse{
				Name:  items[i].Owner.Name,
				Email: items[i].Owner.Email,
			},
		})
	}
	return out
}

func NewDeliveryLogResponse(entry *domain.DeliveryLog) DeliveryLogResponse {
	return DeliveryLogResponse{
		ID:          entry.ID,
		DeliveryID:  entry.DeliveryID,
		Description: entry.Description,
		CreatedAt:   entry.CreatedAt,
	}
}

func NewDeliveryWithLogs(d *domain.Delivery, entries []domain.DeliveryLog) DeliveryWithLogsResponse {
	logs := make([]DeliveryLogResponse, 0, len(entries))
	for i := range entries {
		logs = append(logs, NewDeliveryLogResponse(&entries[i]))
	}
	return DeliveryWithLogsResponse{
		DeliveryResponse: NewDeliveryResponse(d),
		Logs:             logs,
	}
}
