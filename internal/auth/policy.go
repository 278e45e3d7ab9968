package auth

import "github.com/joaomjbraga/shipment-management/internal/domain"

// CanActOn applies ownership refinement on top of a passed role check:
// sellers act on any resource, customers only on resources they own.
func CanActOn(identity *domain.Identity, ownerID string) bool {
	if identity == nil || identity.ID == "" {
		return false
	}
	switch identity.Role {
	case domain.RoleSeller:
		return true
	case domain.RoleCustomer:
		return ownerID != "" && identity.ID == ownerID
	default:
		return false
	}
}
