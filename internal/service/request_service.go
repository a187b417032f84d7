package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/request-service/internal/config"
	"github.com/spec-kit/request-service/internal/domain"
	"github.com/spec-kit/request-service/internal/events"
	"github.com/spec-kit/request-service/internal/lifecycle"
	"github.com/spec-kit/request-service/internal/repository"
	apperrors "github.com/spec-kit/request-service/pkg/util/errorutil"
)

// ErrMissingFields is returned by Create when a required field is blank.
var ErrMissingFields = apperrors.NewValidationCode(apperrors.CodeMissingFields, "Missing required fields")

// RequestService coordinates request workflows.
type RequestService struct {
	requests   repository.RequestRepository
	users      repository.UserRepository
	dispatcher events.Dispatcher
	policy     config.RequestsConfig
	now        func() time.Time
}

// RequestDependencies bundles collaborators for the request service.
type RequestDependencies struct {
	RequestRepo repository.RequestRepository
	UserRepo    repository.UserRepository
	Dispatcher  events.Dispatcher
	Policy      config.RequestsConfig
}

// RequestCreateInput describes request creation payload.
type RequestCreateInput struct {
	Title       string
	Location    string
	Category    string
	Language    *string
	Priority    string
	Description string
}

// RequestListFilter narrows GET /requests.
type RequestListFilter struct {
	Status       *domain.RequestStatus
	TechnicianID *int64
}

// NewRequestService constructs the service.
func NewRequestService(deps RequestDependencies) *RequestService {
	return &RequestService{
		requests:   deps.RequestRepo,
		users:      deps.UserRepo,
		dispatcher: deps.Dispatcher,
		policy:     deps.Policy,
		now:        time.Now,
	}
}

// Create stores a new pending request.
func (s *RequestService) Create(ctx context.Context, principal *domain.Principal, input RequestCreateInput) (*domain.Request, error) {
	req := &domain.Request{
		Title:       strings.TrimSpace(input.Title),
		Location:    strings.TrimSpace(input.Location),
		Category:    strings.TrimSpace(input.Category),
		Priority:    strings.TrimSpace(input.Priority),
		Description: strings.TrimSpace(input.Description),
		Status:      domain.RequestStatusPending,
	}
	if req.Title == "" || req.Location == "" || req.Category == "" || req.Priority == "" || req.Description == "" {
		return nil, ErrMissingFields
	}
	if input.Language != nil {
		if lang := strings.TrimSpace(*input.Language); lang != "" {
			req.Language = &lang
		}
	}

	if err := s.requests.Create(ctx, req); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publishEvent(ctx, events.Event{
		Type:      events.EventRequestCreated,
		RequestID: &req.ID,
		Actor:     principalActor(principal),
		Payload: events.RequestCreatedPayload{
			Title:    req.Title,
			Category: req.Category,
			Priority: req.Priority,
		},
	})
	return req, nil
}

// Get returns one request with its technician name.
func (s *RequestService) Get(ctx context.Context, id int64) (*domain.Request, error) {
	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, id)
	}
	return req, nil
}

// List returns all requests matching filter.
func (s *RequestService) List(ctx context.Context, filter RequestListFilter) ([]domain.Request, error) {
	repoFilter := repository.RequestFilter{TechnicianID: filter.TechnicianID}
	if filter.Status != nil {
		repoFilter.Statuses = []domain.RequestStatus{*filter.Status}
	}
	reqs, err := s.requests.List(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return reqs, nil
}

// ListForTechnician returns the requests assigned to the caller.
func (s *RequestService) ListForTechnician(ctx context.Context, principal *domain.Principal) ([]domain.Request, error) {
	if principal == nil {
		return nil, apperrors.NewUnauthorized("user required")
	}
	techID := principal.UserID
	reqs, err := s.requests.List(ctx, repository.RequestFilter{TechnicianID: &techID})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return reqs, nil
}

// Assign sets the technician and moves the request to assigned whatever its
// current status. A nil technician claims the request for the caller.
func (s *RequestService) Assign(ctx context.Context, principal *domain.Principal, id int64, rawTechnicianID any) (*domain.Request, error) {
	techID, err := s.resolveTechnician(principal, rawTechnicianID)
	if err != nil {
		return nil, err
	}
	if err := s.verifyTechnician(ctx, techID); err != nil {
		return nil, err
	}
	current, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, id)
	}

	updated, err := s.apply(ctx, lifecycle.Assign(current, techID))
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, apperrors.NewNotFound("Request", map[string]any{"request_id": id})
	}
	s.publishEvent(ctx, events.Event{
		Type:      events.EventRequestAssigned,
		RequestID: &updated.ID,
		Actor:     principalActor(principal),
		Payload: events.RequestAssignedPayload{
			TechnicianID: techID,
			OldStatus:    current.Status,
		},
	})
	return updated, nil
}

// Update merges a technician assignment and/or status change into the stored
// request. For an unknown id it returns (nil, nil) when lenient updates are on.
func (s *RequestService) Update(ctx context.Context, principal *domain.Principal, id int64, patch lifecycle.Patch) (*domain.Request, error) {
	if err := lifecycle.ValidatePatch(patch); err != nil {
		return nil, err
	}
	if patch.TechnicianID != nil {
		techID, _ := lifecycle.CoerceTechnicianID(patch.TechnicianID)
		if err := s.verifyTechnician(ctx, techID); err != nil {
			return nil, err
		}
	}

	current, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, s.missingOnUpdate(err, id)
	}
	m, err := lifecycle.ApplyUpdate(current, patch, s.now())
	if err != nil {
		return nil, err
	}
	updated, err := s.apply(ctx, m)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, s.missingOnUpdate(pgx.ErrNoRows, id)
	}

	payload := events.RequestChangedPayload{OldStatus: current.Status, NewStatus: updated.Status}
	if techID, ok := m.TechnicianID(); ok {
		payload.TechnicianID = &techID
	}
	_, payload.Completed = m.Value(lifecycle.FieldCompletedAt)
	s.publishEvent(ctx, events.Event{
		Type:      events.EventRequestUpdated,
		RequestID: &updated.ID,
		Actor:     principalActor(principal),
		Payload:   payload,
	})
	return updated, nil
}

// SetStatus changes only the status. Moving into completed stamps completed_at.
func (s *RequestService) SetStatus(ctx context.Context, principal *domain.Principal, id int64, raw string) (*domain.Request, error) {
	if _, ok := domain.ParseRequestStatus(raw); !ok {
		return nil, lifecycle.ErrInvalidStatus
	}
	return s.changeStatus(ctx, principal, id, raw)
}

// Approve moves a request to in_progress.
func (s *RequestService) Approve(ctx context.Context, principal *domain.Principal, id int64) (*domain.Request, error) {
	return s.changeStatus(ctx, principal, id, string(domain.RequestStatusInProgress))
}

// Remove deletes a request.
func (s *RequestService) Remove(ctx context.Context, principal *domain.Principal, id int64) error {
	deleted, err := s.requests.Delete(ctx, id)
	if err != nil {
		return apperrors.MapError(err)
	}
	if !deleted {
		return apperrors.NewNotFound("Request", map[string]any{"request_id": id})
	}
	s.publishEvent(ctx, events.Event{
		Type:      events.EventRequestDeleted,
		RequestID: &id,
		Actor:     principalActor(principal),
	})
	return nil
}

func (s *RequestService) changeStatus(ctx context.Context, principal *domain.Principal, id int64, raw string) (*domain.Request, error) {
	current, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, id)
	}
	m, err := lifecycle.StatusChange(current, raw, s.now())
	if err != nil {
		return nil, err
	}
	updated, err := s.apply(ctx, m)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, apperrors.NewNotFound("Request", map[string]any{"request_id": id})
	}
	_, completed := m.Value(lifecycle.FieldCompletedAt)
	s.publishEvent(ctx, events.Event{
		Type:      events.EventRequestStatusChanged,
		RequestID: &updated.ID,
		Actor:     principalActor(principal),
		Payload: events.RequestChangedPayload{
			OldStatus: current.Status,
			NewStatus: updated.Status,
			Completed: completed,
		},
	})
	return updated, nil
}

// apply persists m and reloads the row. A nil request means the row vanished.
func (s *RequestService) apply(ctx context.Context, m lifecycle.Mutation) (*domain.Request, error) {
	matched, err := s.requests.ApplyMutation(ctx, m)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if !matched {
		return nil, nil
	}
	updated, err := s.requests.GetByID(ctx, m.RequestID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return updated, nil
}

func (s *RequestService) missingOnUpdate(err error, id int64) error {
	if errors.Is(err, pgx.ErrNoRows) && s.policy.LenientUpdate {
		return nil
	}
	return notFoundOr(err, id)
}

func (s *RequestService) resolveTechnician(principal *domain.Principal, raw any) (int64, error) {
	if raw == nil {
		if principal == nil {
			return 0, lifecycle.ErrInvalidTechnician
		}
		return principal.UserID, nil
	}
	id, err := lifecycle.CoerceTechnicianID(raw)
	if err != nil {
		return 0, lifecycle.ErrInvalidTechnician
	}
	return id, nil
}

// verifyTechnician rejects ids that do not belong to a technician, when enabled.
func (s *RequestService) verifyTechnician(ctx context.Context, techID int64) error {
	if !s.policy.VerifyTechnician || s.users == nil {
		return nil
	}
	user, err := s.users.GetByID(ctx, techID)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewValidationCode(apperrors.CodeInvalidTechnician, "Technician not found")
	}
	if err != nil {
		return apperrors.MapError(err)
	}
	if user.Role != domain.RoleTechnician {
		return apperrors.NewValidationCode(apperrors.CodeInvalidTechnician, "User is not a technician")
	}
	return nil
}

func (s *RequestService) publishEvent(ctx context.Context, event events.Event) {
	publish(ctx, s.dispatcher, s.now, event)
}

func notFoundOr(err error, id int64) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound("Request", map[string]any{"request_id": id})
	}
	return apperrors.MapError(err)
}

func publish(ctx context.Context, dispatcher events.Dispatcher, now func() time.Time, event events.Event) {
	if dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = now()
	}
	_ = dispatcher.Publish(ctx, event)
}

func principalActor(principal *domain.Principal) events.Actor {
	if principal == nil {
		return events.Actor{}
	}
	id := principal.UserID
	return events.Actor{UserID: &id, Role: principal.Role}
}
