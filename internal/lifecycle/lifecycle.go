// Package lifecycle computes request state changes without touching storage.
//
// ApplyUpdate reconciles a technician assignment and a status change into a single
// Mutation. The repository layer applies the mutation as one parameterized UPDATE.
package lifecycle

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/spec-kit/request-service/internal/domain"
	apperrors "github.com/spec-kit/request-service/pkg/util/errorutil"
)

// Field names a mutable request column.
type Field string

const (
	FieldTechnicianID Field = "technician_id"
	FieldStatus       Field = "status"
	FieldCompletedAt  Field = "completed_at"
)

// Assignment is a single column=value pair of a mutation.
type Assignment struct {
	Field Field
	Value any
}

// Mutation describes the changes to apply to one request row.
type Mutation struct {
	RequestID   int64
	Assignments []Assignment
}

// Value returns the value assigned to field, if any.
func (m Mutation) Value(field Field) (any, bool) {
	for _, a := range m.Assignments {
		if a.Field == field {
			return a.Value, true
		}
	}
	return nil, false
}

// Status returns the status the mutation moves the request into, if it sets one.
func (m Mutation) Status() (domain.RequestStatus, bool) {
	v, ok := m.Value(FieldStatus)
	if !ok {
		return "", false
	}
	status, ok := v.(domain.RequestStatus)
	return status, ok
}

// TechnicianID returns the technician id the mutation assigns, if any.
func (m Mutation) TechnicianID() (int64, bool) {
	v, ok := m.Value(FieldTechnicianID)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

// Patch is a partial update. A nil field means the caller did not supply it.
type Patch struct {
	// TechnicianID holds the raw decoded JSON value: a number or a numeric string.
	TechnicianID any
	Status       *string
}

var (
	ErrEmptyPatch        = apperrors.NewValidationCode(apperrors.CodeEmptyPatch, "Provide technician_id/technicianId and/or status")
	ErrInvalidTechnician = apperrors.NewValidationCode(apperrors.CodeInvalidTechnician, "technician_id/technicianId must be numeric")
	ErrInvalidStatus     = apperrors.NewValidationCode(apperrors.CodeInvalidStatus, "Invalid status value")
)

var errNotNumeric = errors.New("not numeric")

// normalized is a validated patch.
type normalized struct {
	technicianID *int64
	status       *domain.RequestStatus
}

// ValidatePatch checks a patch without a current row.
func ValidatePatch(patch Patch) error {
	_, err := normalize(patch)
	return err
}

// ApplyUpdate validates patch against current and returns the mutation to persist.
//
// Supplying a technician without a status moves the request to assigned. An explicit
// status always wins. Moving into completed stamps completed_at with now; other
// statuses leave it untouched.
func ApplyUpdate(current *domain.Request, patch Patch, now time.Time) (Mutation, error) {
	n, err := normalize(patch)
	if err != nil {
		return Mutation{}, err
	}
	if current == nil {
		return Mutation{}, apperrors.NewNotFound("Request", nil)
	}

	m := Mutation{RequestID: current.ID}
	status := n.status
	if n.technicianID != nil {
		m.Assignments = append(m.Assignments, Assignment{Field: FieldTechnicianID, Value: *n.technicianID})
		if status == nil {
			assigned := domain.RequestStatusAssigned
			status = &assigned
		}
	}
	if status != nil {
		m.Assignments = append(m.Assignments, statusAssignments(*status, now)...)
	}
	return m, nil
}

// StatusChange builds the mutation for a direct status transition.
func StatusChange(current *domain.Request, raw string, now time.Time) (Mutation, error) {
	status, ok := domain.ParseRequestStatus(raw)
	if !ok {
		return Mutation{}, ErrInvalidStatus
	}
	if current == nil {
		return Mutation{}, apperrors.NewNotFound("Request", nil)
	}
	return Mutation{RequestID: current.ID, Assignments: statusAssignments(status, now)}, nil
}

// Assign builds the mutation for a technician claiming a request.
func Assign(current *domain.Request, technicianID int64) Mutation {
	return Mutation{
		RequestID: current.ID,
		Assignments: []Assignment{
			{Field: FieldTechnicianID, Value: technicianID},
			{Field: FieldStatus, Value: domain.RequestStatusAssigned},
		},
	}
}

// Apply returns a copy of req with the mutation applied, for callers that
// need the next state without reloading it.
func Apply(req domain.Request, m Mutation) domain.Request {
	for _, a := range m.Assignments {
		switch a.Field {
		case FieldTechnicianID:
			if id, ok := a.Value.(int64); ok {
				req.TechnicianID = &id
			}
		case FieldStatus:
			if status, ok := a.Value.(domain.RequestStatus); ok {
				req.Status = status
			}
		case FieldCompletedAt:
			if ts, ok := a.Value.(time.Time); ok {
				req.CompletedAt = &ts
			}
		}
	}
	return req
}

func statusAssignments(status domain.RequestStatus, now time.Time) []Assignment {
	out := []Assignment{{Field: FieldStatus, Value: status}}
	if status == domain.RequestStatusCompleted {
		out = append(out, Assignment{Field: FieldCompletedAt, Value: now})
	}
	return out
}

func normalize(patch Patch) (normalized, error) {
	var n normalized
	if patch.TechnicianID == nil && patch.Status == nil {
		return n, ErrEmptyPatch
	}
	if patch.TechnicianID != nil {
		id, err := CoerceTechnicianID(patch.TechnicianID)
		if err != nil {
			return n, ErrInvalidTechnician
		}
		n.technicianID = &id
	}
	if patch.Status != nil {
		status, ok := domain.ParseRequestStatus(*patch.Status)
		if !ok {
			return n, ErrInvalidStatus
		}
		n.status = &status
	}
	return n, nil
}

// CoerceTechnicianID turns a decoded JSON value into a technician id. Numbers and
// numeric strings are accepted as long as they are finite and integral.
func CoerceTechnicianID(raw any) (int64, error) {
	var f float64
	switch v := raw.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case int32:
		return int64(v), nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, errNotNumeric
		}
		if id, err := strconv.ParseInt(s, 10, 64); err == nil {
			return id, nil
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, errNotNumeric
		}
		f = parsed
	default:
		return 0, errNotNumeric
	}
	// int64 covers [-2^63, 2^63); both bounds are exact in float64.
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || f < -(1<<63) || f >= 1<<63 {
		return 0, errNotNumeric
	}
	return int64(f), nil
}
