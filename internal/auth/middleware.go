package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/request-service/internal/domain"
	"github.com/spec-kit/request-service/internal/events"
	apperrors "github.com/spec-kit/request-service/pkg/util/errorutil"
)

const principalKey = "auth_principal"

// Messages returned for each authentication failure.
const (
	MsgNotAuthenticated = "Not authenticated. Please log in."
	MsgTokenExpired     = "Token expired. Please log in again."
	MsgTokenInvalid     = "Token invalid. Please log in again."
	MsgTokenRevoked     = "Token revoked. Please log in again."
	MsgInvalidToken     = "Invalid authentication token."
	MsgUserGone         = "User no longer exists."
)

// UserLookup resolves the current role of a user id.
type UserLookup interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

// Authenticator validates credentials and loads principals.
type Authenticator struct {
	tokens      *TokenManager
	users       UserLookup
	revocations RevocationStore
	dispatcher  events.Dispatcher
	cookieName  string
	logger      *zap.Logger
}

// AuthenticatorDeps bundles collaborators for the authenticator.
type AuthenticatorDeps struct {
	Tokens      *TokenManager
	Users       UserLookup
	Revocations RevocationStore
	Dispatcher  events.Dispatcher
	CookieName  string
	Logger      *zap.Logger
}

// NewAuthenticator constructs middleware.
func NewAuthenticator(deps AuthenticatorDeps) *Authenticator {
	a := &Authenticator{
		tokens:      deps.Tokens,
		users:       deps.Users,
		revocations: deps.Revocations,
		dispatcher:  deps.Dispatcher,
		cookieName:  deps.CookieName,
		logger:      deps.Logger,
	}
	if a.revocations == nil {
		a.revocations = NoopRevocations{}
	}
	if a.cookieName == "" {
		a.cookieName = "token"
	}
	if a.logger == nil {
		a.logger = zap.NewNop()
	}
	return a
}

// Authenticate verifies a raw token and returns the principal behind it. The role
// comes from the stored user, so role changes apply to existing tokens.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (*domain.Principal, error) {
	if token == "" {
		return nil, apperrors.NewUnauthorized(MsgNotAuthenticated)
	}

	claims, err := a.tokens.ParseToken(token)
	if err != nil {
		if errors.Is(err, ErrTokenExpired) {
			return nil, apperrors.NewUnauthorized(MsgTokenExpired)
		}
		return nil, apperrors.NewUnauthorized(MsgTokenInvalid)
	}
	if claims.UserID <= 0 {
		return nil, apperrors.NewUnauthorized(MsgInvalidToken)
	}

	revoked, err := a.revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		a.logger.Warn("revocation lookup failed", zap.Error(err))
	} else if revoked {
		return nil, apperrors.NewUnauthorized(MsgTokenRevoked)
	}

	user, err := a.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnauthorized(MsgUserGone)
		}
		return nil, apperrors.MapError(err)
	}

	principal := &domain.Principal{UserID: user.ID, Role: user.Role, TokenID: claims.ID}
	if claims.ExpiresAt != nil {
		principal.ExpiresAt = claims.ExpiresAt.Time
	}
	return principal, nil
}

// Handle enforces authentication for protected routes. The credential is read from
// the auth cookie first, then from a bearer Authorization header.
func (a *Authenticator) Handle(c *fiber.Ctx) error {
	principal, err := a.Authenticate(c.UserContext(), a.credential(c))
	if err != nil {
		a.publishFailure(c, err)
		return err
	}
	c.Locals(principalKey, principal)
	return c.Next()
}

// Credential extracts the raw token from the request, if any.
func (a *Authenticator) credential(c *fiber.Ctx) string {
	if token := c.Cookies(a.cookieName); token != "" {
		return token
	}
	header := c.Get(fiber.HeaderAuthorization)
	parts := strings.SplitN(header, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

func (a *Authenticator) publishFailure(c *fiber.Ctx, err error) {
	if a.dispatcher == nil {
		return
	}
	_ = a.dispatcher.Publish(c.UserContext(), events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventAuthFailed,
		Timestamp: a.tokens.now(),
		Payload:   events.AuthPayload{IP: c.IP(), Reason: apperrors.ToDomainError(err).Message},
	})
}

// PrincipalFromContext retrieves the authenticated principal.
func PrincipalFromContext(c *fiber.Ctx) (*domain.Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*domain.Principal)
	return principal, ok && principal != nil
}

// WithPrincipal stores a principal on the request context.
func WithPrincipal(c *fiber.Ctx, principal *domain.Principal) {
	c.Locals(principalKey, principal)
}
