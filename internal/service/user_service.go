package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/request-service/internal/auth"
	"github.com/spec-kit/request-service/internal/config"
	"github.com/spec-kit/request-service/internal/domain"
	"github.com/spec-kit/request-service/internal/events"
	"github.com/spec-kit/request-service/internal/repository"
	apperrors "github.com/spec-kit/request-service/pkg/util/errorutil"
)

// CreateUserInput is the admin account creation payload.
type CreateUserInput struct {
	Name     string `validate:"required"`
	Email    string `validate:"required,email"`
	Password string `validate:"required,strongpassword"`
	Role     string `validate:"required,oneof=admin technician user"`
}

// UpdateUserInput carries the fields to change. Nil fields are kept.
type UpdateUserInput struct {
	Name     *string `validate:"omitnil,min=1"`
	Email    *string `validate:"omitnil,email"`
	Password *string `validate:"omitnil,strongpassword"`
	Role     *string `validate:"omitnil,oneof=admin technician user"`
}

// UserService manages accounts.
type UserService struct {
	users      repository.UserRepository
	dispatcher events.Dispatcher
	validate   *validator.Validate
	bcryptCost int
	now        func() time.Time
}

// NewUserService constructs the service.
func NewUserService(cfg config.AuthConfig, users repository.UserRepository, dispatcher events.Dispatcher) *UserService {
	return &UserService{
		users:      users,
		dispatcher: dispatcher,
		validate:   newValidator(),
		bcryptCost: cfg.BcryptCost,
		now:        time.Now,
	}
}

// List returns users, optionally only those holding role.
func (s *UserService) List(ctx context.Context, rawRole string) ([]domain.User, error) {
	var filter *domain.Role
	if strings.TrimSpace(rawRole) != "" {
		role, err := domain.ParseRole(rawRole)
		if err != nil {
			return nil, apperrors.NewValidationError("Invalid role", map[string]any{"role": rawRole})
		}
		filter = &role
	}
	users, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return users, nil
}

// Get returns one user.
func (s *UserService) Get(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, userNotFoundOr(err, id)
	}
	return user, nil
}

// Create stores a new account with a hashed password.
func (s *UserService) Create(ctx context.Context, principal *domain.Principal, input CreateUserInput) (*domain.User, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.TrimSpace(input.Email)
	input.Role = strings.ToLower(strings.TrimSpace(input.Role))
	if err := s.validate.Struct(input); err != nil {
		return nil, validationError(err)
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	user := &domain.User{Name: input.Name, Email: input.Email, PasswordHash: hash, Role: domain.Role(input.Role)}
	if err := s.users.Create(ctx, user); err != nil {
		if apperrors.IsUniqueViolation(err) {
			return nil, apperrors.NewConflict(MsgEmailExists, nil)
		}
		return nil, apperrors.MapError(err)
	}
	s.publishUser(ctx, events.EventUserCreated, principal, user)
	return user, nil
}

// Update applies the supplied fields to an existing account.
func (s *UserService) Update(ctx context.Context, principal *domain.Principal, id int64, input UpdateUserInput) (*domain.User, error) {
	input.Name = trimmed(input.Name)
	input.Email = trimmed(input.Email)
	if input.Role != nil {
		role := strings.ToLower(strings.TrimSpace(*input.Role))
		input.Role = &role
	}
	if err := s.validate.Struct(input); err != nil {
		return nil, validationError(err)
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, userNotFoundOr(err, id)
	}
	if input.Name != nil {
		user.Name = *input.Name
	}
	if input.Email != nil {
		user.Email = *input.Email
	}
	if input.Role != nil {
		user.Role = domain.Role(*input.Role)
	}
	if input.Password != nil {
		hash, err := auth.HashPassword(*input.Password, s.bcryptCost)
		if err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		user.PasswordHash = hash
	}

	if err := s.users.Update(ctx, user); err != nil {
		if apperrors.IsUniqueViolation(err) {
			return nil, apperrors.NewConflict(MsgEmailExists, nil)
		}
		return nil, userNotFoundOr(err, id)
	}
	s.publishUser(ctx, events.EventUserUpdated, principal, user)
	return user, nil
}

// Delete removes an account. Requests assigned to it keep the dangling technician id.
func (s *UserService) Delete(ctx context.Context, principal *domain.Principal, id int64) error {
	deleted, err := s.users.Delete(ctx, id)
	if err != nil {
		return apperrors.MapError(err)
	}
	if !deleted {
		return apperrors.NewNotFound("User", map[string]any{"user_id": id})
	}
	s.publishUser(ctx, events.EventUserDeleted, principal, &domain.User{ID: id})
	return nil
}

func (s *UserService) publishUser(ctx context.Context, eventType events.EventType, principal *domain.Principal, user *domain.User) {
	publish(ctx, s.dispatcher, s.now, events.Event{
		Type:    eventType,
		Actor:   principalActor(principal),
		Payload: events.UserChangedPayload{UserID: user.ID, Email: user.Email, Role: user.Role},
	})
}

func userNotFoundOr(err error, id int64) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound("User", map[string]any{"user_id": id})
	}
	return apperrors.MapError(err)
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	return &t
}
