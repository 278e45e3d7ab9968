package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/joaomjbraga/shipment-management/internal/api/dto"
	"github.com/joaomjbraga/shipment-management/internal/auth"
	"github.com/joaomjbraga/shipment-management/internal/domain"
	"github.com/joaomjbraga/shipment-management/internal/service"
	"github.com/joaomjbraga/shipment-management/pkg/util/validation"
)

// UsersHandler exposes account endpoints.
type UsersHandler struct {
	users    *service.UserService
	validate *validation.Validator
}

// NewUsersHandler constructs handler.
func NewUsersHandler(users *service.UserService, v *validation.Validator) *UsersHandler {
	return &UsersHandler{users: users, validate: v}
}

// Create handles POST /users.
func (h *UsersHandler) Create(c *fiber.Ctx) error {
	var req dto.UserCreateRequest
	if err := bindBody(c, h.validate, &req); err != nil {
		return err
	}

	user, err := h.users.Register(c.UserContext(), service.UserCreateInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewUserResponse(user))
}

// List handles GET /users.
func (h *UsersHandler) List(c *fiber.Ctx) error {
	users, err := h.users.List(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(dto.NewUserListResponse(users))
}

// Update handles PUT /users/:id.
func (h *UsersHandler) Update(c *fiber.Ctx) error {
	identity, err := auth.MustIdentity(c)
	if err != nil {
		return err
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	var req dto.UserUpdateRequest
	if err := bindBody(c, h.validate, &req); err != nil {
		return err
	}

	input := service.UserUpdateInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	}
	if req.Role != nil {
		role := domain.Role(*req.Role)
		input.Role = &role
	}

	user, err := h.users.Update(c.UserContext(), *identity, id, input)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewUserResponse(user))
}

// Delete handles DELETE /users/:id.
func (h *UsersHandler) Delete(c *fiber.Ctx) error {
	identity, err := auth.MustIdentity(c)
	if err != nil {
		return err
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	if err := h.users.Delete(c.UserContext(), *identity, id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
