package domain

import "time"

// Role is the coarse capability class carried by every account.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleSeller   Role = "seller"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleSeller:
		return true
	}
	return false
}

// User is the domain model for customers and sellers.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity returns the authenticated view of the user.
func (u *User) Identity() Identity {
	return Identity{ID: u.ID, Role: u.Role}
}
