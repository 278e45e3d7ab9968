package auth

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/joaomjbraga/shipment-management/internal/domain"
	apperrors "github.com/joaomjbraga/shipment-management/pkg/util/errorutil"
)

// ErrForbidden means the identity is valid but its role is not allowed.
var ErrForbidden = errors.New("auth: role not allowed")

// RoleSet is an exact-membership set of roles.
type RoleSet map[domain.Role]struct{}

// NewRoleSet builds a set from roles.
func NewRoleSet(roles ...domain.Role) RoleSet {
	set := make(RoleSet, len(roles))
	for _, role := range roles {
		set[role] = struct{}{}
	}
	return set
}

// ParseRoleSet builds a set from configuration strings, rejecting unknown names.
func ParseRoleSet(names []string) (RoleSet, error) {
	set := make(RoleSet, len(names))
	for _, name := range names {
		role := domain.Role(name)
		if !role.Valid() {
			return nil, errors.New("auth: unknown role " + name)
		}
		set[role] = struct{}{}
	}
	return set, nil
}

// Has reports membership.
func (s RoleSet) Has(role domain.Role) bool {
	_, ok := s[role]
	return ok
}

// Authorize allows iff identity is present and its role is in allowed.
func Authorize(identity *domain.Identity, allowed RoleSet) error {
	if identity == nil || identity.ID == "" {
		return ErrUnauthenticated
	}
	if !allowed.Has(identity.Role) {
		return ErrForbidden
	}
	return nil
}

// RequireRoles ensures the authenticated identity has one of the allowed roles.
func RequireRoles(roles ...domain.Role) fiber.Handler {
	return RequireRoleSet(NewRoleSet(roles...))
}

// RequireRoleSet is RequireRoles for a prebuilt set.
func RequireRoleSet(allowed RoleSet) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, _ := IdentityFromContext(c)
		switch err := Authorize(identity, allowed); {
		case err == nil:
			return c.Next()
		case errors.Is(err, ErrUnauthenticated):
			return apperrors.NewUnauthorized(UnauthorizedMessage, err)
		default:
			return apperrors.NewForbidden("Forbidden.")
		}
	}
}
