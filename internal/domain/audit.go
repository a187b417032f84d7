package domain

import "time"

// AuditEntry is one append-only record of something that happened.
type AuditEntry struct {
	ID        string
	Kind      string
	ActorID   *int64
	RequestID *int64
	Message   string
	Fields    map[string]any
	CreatedAt time.Time
}
