package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/request-service/internal/auth"
	"github.com/spec-kit/request-service/internal/config"
	"github.com/spec-kit/request-service/internal/domain"
	"github.com/spec-kit/request-service/internal/events"
	"github.com/spec-kit/request-service/internal/repository"
	apperrors "github.com/spec-kit/request-service/pkg/util/errorutil"
)

const (
	MsgInvalidCredentials = "Invalid email or password"
	MsgEmailExists        = "Email already exists"
	MsgAdminSignup        = "Role must be user or technician"
)

// SignupInput is the self-registration payload.
type SignupInput struct {
	Name     string `validate:"required"`
	Email    string `validate:"required,email"`
	Password string `validate:"required,strongpassword"`
	Role     string
	IP       string
}

// LoginInput carries credentials.
type LoginInput struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
	IP       string
}

// LoginResult is a successful login.
type LoginResult struct {
	User  *domain.User
	Token auth.IssuedToken
}

// AuthService coordinates registration and login flows.
type AuthService struct {
	users       repository.UserRepository
	tokens      *auth.TokenManager
	revocations auth.RevocationStore
	dispatcher  events.Dispatcher
	validate    *validator.Validate
	bcryptCost  int
	logger      *zap.Logger
	now         func() time.Time
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	UserRepo    repository.UserRepository
	Tokens      *auth.TokenManager
	Revocations auth.RevocationStore
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	s := &AuthService{
		users:       deps.UserRepo,
		tokens:      deps.Tokens,
		revocations: deps.Revocations,
		dispatcher:  deps.Dispatcher,
		validate:    newValidator(),
		bcryptCost:  cfg.BcryptCost,
		logger:      deps.Logger,
		now:         time.Now,
	}
	if s.revocations == nil {
		s.revocations = auth.NoopRevocations{}
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// Signup registers a user or technician account.
func (s *AuthService) Signup(ctx context.Context, input SignupInput) (*domain.User, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.TrimSpace(input.Email)
	input.Password = strings.TrimSpace(input.Password)
	if err := s.validate.Struct(input); err != nil {
		return nil, validationError(err)
	}

	role := domain.RoleUser
	if strings.TrimSpace(input.Role) != "" {
		parsed, err := domain.ParseRole(input.Role)
		if err != nil || parsed == domain.RoleAdmin {
			return nil, apperrors.NewValidationError(MsgAdminSignup, nil)
		}
		role = parsed
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	user := &domain.User{Name: input.Name, Email: input.Email, PasswordHash: hash, Role: role}
	if err := s.users.Create(ctx, user); err != nil {
		if apperrors.IsUniqueViolation(err) {
			s.publishAuth(ctx, events.EventSignupFailed, nil, events.AuthPayload{Email: input.Email, IP: input.IP, Reason: MsgEmailExists})
			return nil, apperrors.NewConflict(MsgEmailExists, nil)
		}
		return nil, apperrors.MapError(err)
	}

	s.publishAuth(ctx, events.EventUserSignedUp, user, events.AuthPayload{Email: user.Email, IP: input.IP})
	return user, nil
}

// Login verifies credentials and issues a token. Unknown email and wrong password
// produce the same error.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	input.Email = strings.TrimSpace(input.Email)
	input.Password = strings.TrimSpace(input.Password)
	if err := s.validate.Struct(input); err != nil {
		return nil, validationError(err)
	}

	user, err := s.users.GetByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.publishAuth(ctx, events.EventLoginFailed, nil, events.AuthPayload{Email: input.Email, IP: input.IP})
			return nil, apperrors.NewValidationError(MsgInvalidCredentials, nil)
		}
		return nil, apperrors.MapError(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, input.Password); err != nil {
		s.publishAuth(ctx, events.EventLoginFailed, user, events.AuthPayload{Email: input.Email, IP: input.IP})
		return nil, apperrors.NewValidationError(MsgInvalidCredentials, nil)
	}

	token, err := s.tokens.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	s.publishAuth(ctx, events.EventLoginSucceed, user, events.AuthPayload{Email: user.Email, IP: input.IP})
	return &LoginResult{User: user, Token: token}, nil
}

// Logout revokes the caller's token for the rest of its lifetime.
func (s *AuthService) Logout(ctx context.Context, principal *domain.Principal, ip string) error {
	if principal == nil {
		return nil
	}
	if ttl := principal.ExpiresAt.Sub(s.now()); principal.TokenID != "" && ttl > 0 {
		if err := s.revocations.Revoke(ctx, principal.TokenID, ttl); err != nil {
			s.logger.Warn("token revocation failed", zap.Int64("user_id", principal.UserID), zap.Error(err))
		}
	}
	id := principal.UserID
	publish(ctx, s.dispatcher, s.now, events.Event{
		Type:    events.EventLoggedOut,
		Actor:   events.Actor{UserID: &id, Role: principal.Role},
		Payload: events.AuthPayload{IP: ip},
	})
	return nil
}

// EnsureAdmin inserts the default admin unless its email is taken.
func (s *AuthService) EnsureAdmin(ctx context.Context, seed config.SeedConfig) (bool, error) {
	if strings.TrimSpace(seed.AdminEmail) == "" || seed.AdminPassword == "" {
		return false, nil
	}
	hash, err := auth.HashPassword(seed.AdminPassword, s.bcryptCost)
	if err != nil {
		return false, err
	}
	user := &domain.User{
		Name:         seed.AdminName,
		Email:        strings.TrimSpace(seed.AdminEmail),
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
	}
	inserted, err := s.users.EnsureExists(ctx, user)
	if err != nil {
		return false, err
	}
	if inserted {
		s.logger.Info("default admin created", zap.String("email", user.Email))
	}
	return inserted, nil
}

func (s *AuthService) publishAuth(ctx context.Context, eventType events.EventType, user *domain.User, payload events.AuthPayload) {
	event := events.Event{Type: eventType, Payload: payload}
	if user != nil {
		id := user.ID
		event.Actor = events.Actor{UserID: &id, Role: user.Role}
	}
	publish(ctx, s.dispatcher, s.now, event)
}
