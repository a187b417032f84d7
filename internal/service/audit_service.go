package service

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/spec-kit/request-service/internal/domain"
	"github.com/spec-kit/request-service/internal/eventlog"
	"github.com/spec-kit/request-service/internal/events"
	"github.com/spec-kit/request-service/internal/repository"
	apperrors "github.com/spec-kit/request-service/pkg/util/errorutil"
)

var auditMessages = map[events.EventType]string{
	events.EventRequestCreated:       "REQUEST CREATED",
	events.EventRequestAssigned:      "REQUEST ASSIGNED",
	events.EventRequestUpdated:       "REQUEST UPDATED",
	events.EventRequestStatusChanged: "REQUEST STATUS CHANGED",
	events.EventRequestDeleted:       "REQUEST DELETED",
	events.EventUserSignedUp:         "SIGNUP SUCCESS",
	events.EventSignupFailed:         "SIGNUP FAILED",
	events.EventLoginSucceed:         "LOGIN SUCCESS",
	events.EventLoginFailed:          "LOGIN FAILED",
	events.EventLoggedOut:            "LOGOUT",
	events.EventAuthFailed:           "AUTH FAILED",
	events.EventAuthDenied:           "ACCESS DENIED",
	events.EventUserCreated:          "USER CREATED",
	events.EventUserUpdated:          "USER UPDATED",
	events.EventUserDeleted:          "USER DELETED",
}

// AuditService records domain events in the event log.
type AuditService struct {
	dispatcher events.Dispatcher
	log        eventlog.Log
	history    repository.AuditRepository
	logger     *zap.Logger
}

// NewAuditService creates the service. history may be nil when no store backs it.
func NewAuditService(dispatcher events.Dispatcher, log eventlog.Log, history repository.AuditRepository, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{
		dispatcher: dispatcher,
		log:        log,
		history:    history,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to every event type and returns how many
// subscriptions it made; zero when there is no dispatcher or sink.
func (a *AuditService) RegisterHandlers() int {
	if a.dispatcher == nil || a.log == nil {
		return 0
	}
	for _, eventType := range events.AllTypes {
		a.dispatcher.Subscribe(eventType, a.handle)
	}
	return len(events.AllTypes)
}

// History returns the recorded entries of one request, oldest first.
func (a *AuditService) History(ctx context.Context, requestID int64) ([]domain.AuditEntry, error) {
	if a.history == nil {
		return []domain.AuditEntry{}, nil
	}
	entries, err := a.history.ListByRequest(ctx, requestID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

// handle never fails the publishing operation; sink errors are only logged.
func (a *AuditService) handle(ctx context.Context, event events.Event) error {
	entry := EntryFromEvent(event)
	if err := a.log.Append(ctx, entry); err != nil {
		a.logger.Error("audit append failed",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
	}
	return nil
}

// EntryFromEvent converts an event to its audit entry.
func EntryFromEvent(event events.Event) domain.AuditEntry {
	message, ok := auditMessages[event.Type]
	if !ok {
		message = string(event.Type)
	}
	entry := domain.AuditEntry{
		ID:        event.ID,
		Kind:      string(event.Type),
		ActorID:   event.Actor.UserID,
		RequestID: event.RequestID,
		Message:   message,
		Fields:    payloadFields(event.Payload),
		CreatedAt: event.Timestamp,
	}
	if event.Actor.Role != "" {
		entry.Fields["actor_role"] = string(event.Actor.Role)
	}
	return entry
}

func payloadFields(payload any) map[string]any {
	fields := map[string]any{}
	if payload == nil {
		return fields
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return fields
	}
	_ = json.Unmarshal(raw, &fields)
	return fields
}
