package domain

import (
	"strings"
	"time"
)

// RequestStatus enumerates lifecycle states for requests.
type RequestStatus string

const (
	RequestStatusPending    RequestStatus = "pending"
	RequestStatusAssigned   RequestStatus = "assigned"
	RequestStatusInProgress RequestStatus = "in_progress"
	RequestStatusCompleted  RequestStatus = "completed"
)

// ParseRequestStatus trims raw and reports whether it names a known status.
func ParseRequestStatus(raw string) (RequestStatus, bool) {
	switch status := RequestStatus(strings.TrimSpace(raw)); status {
	case RequestStatusPending, RequestStatusAssigned, RequestStatusInProgress, RequestStatusCompleted:
		return status, true
	default:
		return "", false
	}
}

// Request is a maintenance or support ticket.
type Request struct {
	ID             int64
	Title          string
	Location       string
	Category       string
	Language       *string
	Priority       string
	Description    string
	Status         RequestStatus
	TechnicianID   *int64
	TechnicianName *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	CompletedAt    *time.Time
}
