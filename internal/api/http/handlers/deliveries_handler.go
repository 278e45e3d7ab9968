package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/joaomjbraga/shipment-management/internal/api/dto"
	"github.com/joaomjbraga/shipment-management/internal/auth"
	"github.com/joaomjbraga/shipment-management/internal/domain"
	"github.com/joaomjbraga/shipment-management/internal/service"
	"github.com/joaomjbraga/shipment-management/pkg/util/validation"
)

// DeliveriesHandler exposes delivery endpoints.
type DeliveriesHandler struct {
	deliveries *service.DeliveryService
	validate   *validation.Validator
}

// NewDeliveriesHandler constructs handler.
func NewDeliveriesHandler(deliveries *service.DeliveryService, v *validation.Validator) *DeliveriesHandler {
	return &DeliveriesHandler{deliveries: deliveries, validate: v}
}

// Create handles POST /deliveries.
func (h *DeliveriesHandler) Create(c *fiber.Ctx) error {
	identity, err := auth.MustIdentity(c)
	if err != nil {
		return err
	}
	var req dto.DeliveryCreateRequest
	if err := bindBody(c, h.validate, &req); err != nil {
		return err
	}

	delivery, err := h.deliveries.Create(c.UserContext(), *identity, service.DeliveryCreateInput{
		UserID:      req.UserID,
		Description: req.Description,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewDeliveryResponse(delivery))
}

// List handles GET /deliveries.
func (h *DeliveriesHandler) List(c *fiber.Ctx) error {
	items, err := h.deliveries.List(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(dto.NewDeliveryList(items))
}

// UpdateStatus handles PATCH /deliveries/:id/status.
func (h *DeliveriesHandler) UpdateStatus(c *fiber.Ctx) error {
	identity, err := auth.MustIdentity(c)
	if err != nil {
		return err
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	var req dto.DeliveryStatusRequest
	if err := bindBody(c, h.validate, &req); err != nil {
		return err
	}

	delivery, err := h.deliveries.UpdateStatus(c.UserContext(), *identity, id, domain.DeliveryStatus(req.Status))
	if err != nil {
		return err
	}
	return c.JSON(dto.NewDeliveryResponse(delivery))
}
