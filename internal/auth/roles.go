package auth

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/spec-kit/request-service/internal/domain"
	"github.com/spec-kit/request-service/internal/events"
	apperrors "github.com/spec-kit/request-service/pkg/util/errorutil"
)

const (
	MsgNoPrincipal  = "Not authenticated. Make sure auth middleware runs first."
	MsgAccessDenied = "Access denied. Insufficient permissions."
)

// RoleSet is an allow-list of roles.
type RoleSet struct {
	admin, technician, user bool
}

// NewRoleSet builds an allow-list. Unknown roles are ignored.
func NewRoleSet(roles ...domain.Role) RoleSet {
	var s RoleSet
	for _, role := range roles {
		switch role {
		case domain.RoleAdmin:
			s.admin = true
		case domain.RoleTechnician:
			s.technician = true
		case domain.RoleUser:
			s.user = true
		}
	}
	return s
}

// AnyRole allows every known role.
func AnyRole() RoleSet {
	return NewRoleSet(domain.Roles...)
}

// Allows reports whether role is in the set.
func (s RoleSet) Allows(role domain.Role) bool {
	switch role {
	case domain.RoleAdmin:
		return s.admin
	case domain.RoleTechnician:
		return s.technician
	case domain.RoleUser:
		return s.user
	default:
		return false
	}
}

// Check is the authorization decision: no principal is Unauthenticated, a role
// outside the set is Forbidden.
func Check(principal *domain.Principal, allowed RoleSet) error {
	if principal == nil {
		return apperrors.NewUnauthorized(MsgNoPrincipal)
	}
	if !allowed.Allows(principal.Role) {
		return apperrors.NewForbidden(MsgAccessDenied)
	}
	return nil
}

// Gate enforces role allow-lists on routes and reports denials.
type Gate struct {
	dispatcher events.Dispatcher
}

// NewGate builds a gate. dispatcher may be nil.
func NewGate(dispatcher events.Dispatcher) *Gate {
	return &Gate{dispatcher: dispatcher}
}

// Require returns middleware allowing only the given roles.
func (g *Gate) Require(roles ...domain.Role) fiber.Handler {
	allowed := NewRoleSet(roles...)
	return func(c *fiber.Ctx) error {
		principal, _ := PrincipalFromContext(c)
		if err := Check(principal, allowed); err != nil {
			g.publishDenied(c.UserContext(), principal, c.IP())
			return err
		}
		return c.Next()
	}
}

// RequireAuthenticated allows any known role.
func (g *Gate) RequireAuthenticated() fiber.Handler {
	return g.Require(domain.Roles...)
}

func (g *Gate) publishDenied(ctx context.Context, principal *domain.Principal, ip string) {
	if g == nil || g.dispatcher == nil || principal == nil {
		return
	}
	userID := principal.UserID
	_ = g.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventAuthDenied,
		Actor:     events.Actor{UserID: &userID, Role: principal.Role},
		Timestamp: time.Now(),
		Payload:   events.AuthPayload{IP: ip, Reason: MsgAccessDenied},
	})
}
