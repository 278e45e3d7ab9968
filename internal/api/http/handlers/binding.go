package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	apperrors "github.com/joaomjbraga/shipment-management/pkg/util/errorutil"
	"github.com/joaomjbraga/shipment-management/pkg/util/validation"
)

const validationFailed = "Validation failed."

type normalizer interface {
	Normalize()
}

// bindBody parses the JSON body into out, normalizes it and validates it.
func bindBody(c *fiber.Ctx, v *validation.Validator, out normalizer) error {
	if err := c.BodyParser(out); err != nil {
		return apperrors.NewValidationError(validationFailed, validation.ToDetails(err))
	}
	out.Normalize()
	return v.Struct(out)
}

// pathUUID reads a route parameter that must be a UUID.
func pathUUID(c *fiber.Ctx, name string) (string, error) {
	raw := c.Params(name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", apperrors.NewValidationError(validationFailed, []apperrors.FieldError{
			{Field: name, Message: "must be a valid UUID"},
		})
	}
	return id.String(), nil
}
