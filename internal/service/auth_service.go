package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/joaomjbraga/shipment-management/internal/auth"
	"github.com/joaomjbraga/shipment-management/internal/domain"
	"github.com/joaomjbraga/shipment-management/internal/repository"
	apperrors "github.com/joaomjbraga/shipment-management/pkg/util/errorutil"
)

// InvalidCredentialsMessage is returned for every failed login, whatever the cause.
const InvalidCredentialsMessage = "Invalid email or password."

// Session is the result of a successful login.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      *domain.User
}

// AuthService exchanges credentials for bearer tokens.
type AuthService struct {
	users    repository.UserRepository
	tokenMgr *auth.TokenManager
	logger   *zap.Logger
	failures auth.FailureRecorder
}

// NewAuthService builds the service. failures may be nil.
func NewAuthService(users repository.UserRepository, tokenMgr *auth.TokenManager, logger *zap.Logger, failures auth.FailureRecorder) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:    users,
		tokenMgr: tokenMgr,
		logger:   logger,
		failures: failures,
	}
}

// Login verifies email and password and issues a token.
// Unknown email, wrong password and a corrupt stored hash are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, s.reject("unknown_email", nil)
	}
	if err != nil {
		return nil, err
	}

	ok, err := auth.ComparePassword(user.PasswordHash, password)
	if errors.Is(err, auth.ErrCorruptHash) {
		s.logger.Error("stored password hash is corrupt", zap.String("user_id", user.ID))
		return nil, s.reject("corrupt_hash", err)
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.reject("wrong_password", nil)
	}

	token, exp, err := s.tokenMgr.Issue(user.Identity())
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: exp, User: user}, nil
}

func (s *AuthService) reject(reason string, cause error) error {
	s.logger.Info("login rejected", zap.String("reason", reason))
	if s.failures != nil {
		s.failures.RecordAuthFailure(reason)
	}
	return apperrors.NewUnauthorized(InvalidCredentialsMessage, cause)
}
