package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/joaomjbraga/shipment-management/internal/api/dto"
	"github.com/joaomjbraga/shipment-management/internal/auth"
	"github.com/joaomjbraga/shipment-management/internal/service"
	"github.com/joaomjbraga/shipment-management/pkg/util/validation"
)

// DeliveryLogsHandler exposes the delivery journal.
type DeliveryLogsHandler struct {
	deliveries *service.DeliveryService
	validate   *validation.Validator
}

// NewDeliveryLogsHandler constructs handler.
func NewDeliveryLogsHandler(deliveries *service.DeliveryService, v *validation.Validator) *DeliveryLogsHandler {
	return &DeliveryLogsHandler{deliveries: deliveries, validate: v}
}

// Create handles POST /deliveries-logs.
func (h *DeliveryLogsHandler) Create(c *fiber.Ctx) error {
	identity, err := auth.MustIdentity(c)
	if err != nil {
		return err
	}
	var req dto.DeliveryLogCreateRequest
	if err := bindBody(c, h.validate, &req); err != nil {
		return err
	}

	entry, err := h.deliveries.AddLog(c.UserContext(), *identity, service.DeliveryLogInput{
		DeliveryID:  req.DeliveryID,
		Description: req.Description,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewDeliveryLogResponse(entry))
}

// Show handles GET /deliveries-logs/:id/show.
func (h *DeliveryLogsHandler) Show(c *fiber.Ctx) error {
	identity, err := auth.MustIdentity(c)
	if err != nil {
		return err
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}

	delivery, entries, err := h.deliveries.ShowWithLogs(c.UserContext(), *identity, id)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewDeliveryWithLogs(delivery, entries))
}
