package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/joaomjbraga/shipment-management/internal/api/dto"
	"github.com/joaomjbraga/shipment-management/internal/service"
	"github.com/joaomjbraga/shipment-management/pkg/util/validation"
)

// SessionsHandler exchanges credentials for bearer tokens.
type SessionsHandler struct {
	auth     *service.AuthService
	validate *validation.Validator
}

// NewSessionsHandler constructs handler.
func NewSessionsHandler(authService *service.AuthService, v *validation.Validator) *SessionsHandler {
	return &SessionsHandler{auth: authService, validate: v}
}

// Create handles POST /sessions.
func (h *SessionsHandler) Create(c *fiber.Ctx) error {
	var req dto.SessionRequest
	if err := bindBody(c, h.validate, &req); err != nil {
		return err
	}

	session, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(dto.SessionResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		User: dto.SessionUser{
			ID:    session.User.ID,
			Name:  session.User.Name,
			Email: session.User.Email,
			Role:  string(session.User.Role),
		},
	})
}
