package service

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/joaomjbraga/shipment-management/internal/auth"
	"github.com/joaomjbraga/shipment-management/internal/domain"
	"github.com/joaomjbraga/shipment-management/internal/repository"
	apperrors "github.com/joaomjbraga/shipment-management/pkg/util/errorutil"
)

// UserCreateInput describes self-registration.
type UserCreateInput struct {
	Name     string
	Email    string
	Password string
}

// UserUpdateInput carries optional changes; nil fields are left untouched.
type UserUpdateInput struct {
	Name     *string
	Email    *string
	Password *string
	Role     *domain.Role
}

// UserService manages accounts.
type UserService struct {
	users      repository.UserRepository
	bcryptCost int
}

// NewUserService constructs the service.
func NewUserService(users repository.UserRepository, bcryptCost int) *UserService {
	return &UserService{users: users, bcryptCost: bcryptCost}
}

// Register creates a customer account.
func (s *UserService) Register(ctx context.Context, input UserCreateInput) (*domain.User, error) {
	return s.create(ctx, input, domain.RoleCustomer)
}

// EnsureSeller creates the seller account or resets its name, password and role.
// Used by cmd/seed since sellers cannot self-register.
func (s *UserService) EnsureSeller(ctx context.Context, input UserCreateInput) (*domain.User, error) {
	existing, err := s.users.GetByEmail(ctx, normalizeEmail(input.Email))
	if errors.Is(err, pgx.ErrNoRows) {
		return s.create(ctx, input, domain.RoleSeller)
	}
	if err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}
	existing.Name = strings.TrimSpace(input.Name)
	existing.PasswordHash = hash
	existing.Role = domain.RoleSeller
	if err := s.users.Update(ctx, existing); err != nil {
		return nil, err
	}
	return existing, nil
}

func (s *UserService) create(ctx context.Context, input UserCreateInput, role domain.Role) (*domain.User, error) {
	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}
	user := &domain.User{
		Name:         strings.TrimSpace(input.Name),
		Email:        normalizeEmail(input.Email),
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, mapUserError(err)
	}
	return user, nil
}

// List returns all accounts.
func (s *UserService) List(ctx context.Context) ([]domain.User, error) {
	return s.users.List(ctx)
}

// Update applies changes to an account. Customers may only edit themselves
// and only sellers may change a role.
func (s *UserService) Update(ctx context.Context, actor domain.Identity, id string, input UserUpdateInput) (*domain.User, error) {
	if !auth.CanActOn(&actor, id) {
		return nil, apperrors.NewForbidden("You can only change your own account.")
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, mapUserError(err)
	}

	if input.Name != nil {
		user.Name = strings.TrimSpace(*input.Name)
	}
	if input.Email != nil {
		user.Email = normalizeEmail(*input.Email)
	}
	if input.Password != nil {
		hash, err := auth.HashPassword(*input.Password, s.bcryptCost)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}
	if input.Role != nil && *input.Role != user.Role {
		if actor.Role != domain.RoleSeller {
			return nil, apperrors.NewForbidden("Only sellers can change roles.")
		}
		user.Role = *input.Role
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, mapUserError(err)
	}
	return user, nil
}

// Delete removes an account together with its deliveries.
func (s *UserService) Delete(ctx context.Context, actor domain.Identity, id string) error {
	if !auth.CanActOn(&actor, id) {
		return apperrors.NewForbidden("You can only delete your own account.")
	}
	return mapUserError(s.users.Delete(ctx, id))
}

func mapUserError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrEmailTaken):
		return apperrors.NewDomainError("EMAIL_TAKEN", "User with same email already exists.", http.StatusBadRequest,
			[]apperrors.FieldError{{Field: "email", Message: "email is already registered"}})
	case errors.Is(err, pgx.ErrNoRows):
		return apperrors.NewNotFound("User")
	default:
		return err
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
