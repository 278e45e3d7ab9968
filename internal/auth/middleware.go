package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/joaomjbraga/shipment-management/internal/domain"
	apperrors "github.com/joaomjbraga/shipment-management/pkg/util/errorutil"
)

const identityKey = "auth_identity"

// UnauthorizedMessage is the only text callers see for any authentication failure.
const UnauthorizedMessage = "Unauthorized."

var (
	ErrMissingCredentials = errors.New("auth: missing bearer credentials")
	ErrUnauthenticated    = errors.New("auth: request is not authenticated")
)

// FailureRecorder receives the internal reason of a rejected request.
type FailureRecorder interface {
	RecordAuthFailure(reason string)
}

// AuthMiddleware validates bearer tokens and binds the identity to the request.
type AuthMiddleware struct {
	tokens  *TokenManager
	logger  *zap.Logger
	metrics FailureRecorder
}

// NewAuthMiddleware constructs middleware. metrics may be nil.
func NewAuthMiddleware(tokens *TokenManager, logger *zap.Logger, metrics FailureRecorder) *AuthMiddleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthMiddleware{tokens: tokens, logger: logger, metrics: metrics}
}

// Authenticate resolves an identity from a raw Authorization header value.
func (m *AuthMiddleware) Authenticate(rawHeader string) (domain.Identity, error) {
	parts := strings.SplitN(strings.TrimSpace(rawHeader), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return domain.Identity{}, ErrMissingCredentials
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return domain.Identity{}, ErrMissingCredentials
	}
	return m.tokens.Verify(token)
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	identity, err := m.Authenticate(c.Get(fiber.HeaderAuthorization))
	if err != nil {
		reason := FailureReason(err)
		m.logger.Warn("authentication failed",
			zap.String("reason", reason),
			zap.String("method", c.Method()),
			zap.String("path", c.Path()))
		if m.metrics != nil {
			m.metrics.RecordAuthFailure(reason)
		}
		return apperrors.NewUnauthorized(UnauthorizedMessage, err)
	}

	c.Locals(identityKey, &identity)
	return c.Next()
}

// FailureReason maps an authentication error to a stable label for logs and metrics.
func FailureReason(err error) string {
	switch {
	case errors.Is(err, ErrMissingCredentials):
		return "missing_credentials"
	case errors.Is(err, ErrExpiredToken):
		return "expired_token"
	case errors.Is(err, ErrInvalidSignature):
		return "invalid_signature"
	case errors.Is(err, ErrMalformedToken):
		return "malformed_token"
	default:
		return "unknown"
	}
}

// IdentityFromContext retrieves the authenticated identity. It fails closed:
// anything other than an identity stored by Handle reports false.
func IdentityFromContext(c *fiber.Ctx) (*domain.Identity, bool) {
	identity, ok := c.Locals(identityKey).(*domain.Identity)
	if !ok || identity == nil || identity.ID == "" {
		return nil, false
	}
	return identity, true
}

// MustIdentity is IdentityFromContext for handlers: a missing identity becomes a 401.
func MustIdentity(c *fiber.Ctx) (*domain.Identity, error) {
	identity, ok := IdentityFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized(UnauthorizedMessage, ErrUnauthenticated)
	}
	return identity, nil
}
