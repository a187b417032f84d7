package dto

import (
	"time"

	"github.com/spec-kit/request-service/internal/domain"
)

// CreateRequestRequest payload.
type CreateRequestRequest struct {
	Title       string  `json:"title"`
	Location    string  `json:"location"`
	Category    string  `json:"category"`
	Language    *string `json:"language"`
	Priority    string  `json:"priority"`
	Description string  `json:"description"`
}

// UpdateRequestRequest accepts either technician key. Values stay raw so numeric
// strings can be coerced later; null counts as absent.
type UpdateRequestRequest struct {
	TechnicianID      any     `json:"technician_id"`
	TechnicianIDCamel any     `json:"technicianId"`
	Status            *string `json:"status"`
}

// Technician returns the supplied technician value, preferring technician_id.
func (r UpdateRequestRequest) Technician() any {
	if r.TechnicianID != nil {
		return r.TechnicianID
	}
	return r.TechnicianIDCamel
}

// AssignRequestRequest payload. An empty body assigns the caller.
type AssignRequestRequest struct {
	TechnicianID      any `json:"technicianId"`
	TechnicianIDSnake any `json:"technician_id"`
}

// Technician returns the supplied technician value.
func (r AssignRequestRequest) Technician() any {
	if r.TechnicianID != nil {
		return r.TechnicianID
	}
	return r.TechnicianIDSnake
}

// StatusRequest payload for PATCH /requests/status/:id.
type StatusRequest struct {
	Status *string `json:"status"`
}

// RequestResponse is the wire form of a request.
type RequestResponse struct {
	ID             int64                `json:"id"`
	Title          string               `json:"title"`
	Location       string               `json:"location"`
	Category       string               `json:"category"`
	Language       *string              `json:"language"`
	Priority       string               `json:"priority"`
	Description    string               `json:"description"`
	Status         domain.RequestStatus `json:"status"`
	TechnicianID   *int64               `json:"technician_id"`
	TechnicianName *string              `json:"technician_name"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
	CompletedAt    *time.Time           `json:"completed_at"`
}

// AuditEntryResponse is one history line.
type AuditEntryResponse struct {
	ID        string         `json:"id"`
	Kind      string         `json:"kind"`
	ActorID   *int64         `json:"actor_id"`
	Message   string         `json:"message"`
	Fields    map[string]any `json:"fields"`
	CreatedAt time.Time      `json:"created_at"`
}

// NewRequestResponse maps a domain request.
func NewRequestResponse(req *domain.Request) *RequestResponse {
	if req == nil {
		return nil
	}
	return &RequestResponse{
		ID:             req.ID,
		Title:          req.Title,
		Location:       req.Location,
		Category:       req.Category,
		Language:       req.Language,
		Priority:       req.Priority,
		Description:    req.Description,
		Status:         req.Status,
		TechnicianID:   req.TechnicianID,
		TechnicianName: req.TechnicianName,
		CreatedAt:      req.CreatedAt,
		UpdatedAt:      req.UpdatedAt,
		CompletedAt:    req.CompletedAt,
	}
}

// NewRequestList maps a slice of requests.
func NewRequestList(reqs []domain.Request) []RequestResponse {
	out := make([]RequestResponse, 0, len(reqs))
	for i := range reqs {
		out = append(out, *NewRequestResponse(&reqs[i]))
	}
	return out
}

// NewAuditList maps history entries.
func NewAuditList(entries []domain.AuditEntry) []AuditEntryResponse {
	out := make([]AuditEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, AuditEntryResponse{
			ID:        e.ID,
			Kind:      e.Kind,
			ActorID:   e.ActorID,
			Message:   e.Message,
			Fields:    e.Fields,
			CreatedAt: e.CreatedAt,
		})
	}
	return out
}
