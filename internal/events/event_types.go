package events

import (
	"time"

	"github.com/spec-kit/request-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventRequestCreated       EventType = "request.created"
	EventRequestAssigned      EventType = "request.assigned"
	EventRequestUpdated       EventType = "request.updated"
	EventRequestStatusChanged EventType = "request.status_changed"
	EventRequestDeleted       EventType = "request.deleted"

	EventUserSignedUp EventType = "auth.signup"
	EventSignupFailed EventType = "auth.signup_failed"
	EventLoginSucceed EventType = "auth.login"
	EventLoginFailed  EventType = "auth.login_failed"
	EventLoggedOut    EventType = "auth.logout"
	EventAuthFailed   EventType = "auth.failed"
	EventAuthDenied   EventType = "auth.denied"

	EventUserCreated EventType = "user.created"
	EventUserUpdated EventType = "user.updated"
	EventUserDeleted EventType = "user.deleted"
)

// AllTypes lists every event type.
var AllTypes = []EventType{
	EventRequestCreated, EventRequestAssigned, EventRequestUpdated, EventRequestStatusChanged, EventRequestDeleted,
	EventUserSignedUp, EventSignupFailed, EventLoginSucceed, EventLoginFailed, EventLoggedOut, EventAuthFailed, EventAuthDenied,
	EventUserCreated, EventUserUpdated, EventUserDeleted,
}

// Actor encapsulates actor metadata for an event.
type Actor struct {
	UserID *int64      `json:"user_id,omitempty"`
	Role   domain.Role `json:"role,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	RequestID *int64    `json:"request_id,omitempty"`
	Actor     Actor     `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// RequestCreatedPayload payload.
type RequestCreatedPayload struct {
	Title    string `json:"title"`
	Category string `json:"category"`
	Priority string `json:"priority"`
}

// RequestAssignedPayload payload.
type RequestAssignedPayload struct {
	TechnicianID int64                `json:"technician_id"`
	OldStatus    domain.RequestStatus `json:"old_status"`
}

// RequestChangedPayload covers updates and status changes.
type RequestChangedPayload struct {
	OldStatus    domain.RequestStatus `json:"old_status,omitempty"`
	NewStatus    domain.RequestStatus `json:"new_status,omitempty"`
	TechnicianID *int64               `json:"technician_id,omitempty"`
	Completed    bool                 `json:"completed,omitempty"`
}

// AuthPayload describes authentication activity.
type AuthPayload struct {
	Email  string `json:"email,omitempty"`
	IP     string `json:"ip,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// UserChangedPayload describes account administration.
type UserChangedPayload struct {
	UserID int64       `json:"user_id"`
	Email  string      `json:"email,omitempty"`
	Role   domain.Role `json:"role,omitempty"`
}
