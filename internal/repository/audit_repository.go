package repository

import (
	"context"

	"github.com/spec-kit/request-service/internal/domain"
)

// AuditRepository stores audit entries in Postgres and reads request history back.
type AuditRepository interface {
	Append(ctx context.Context, entry domain.AuditEntry) error
	ListByRequest(ctx context.Context, requestID int64) ([]domain.AuditEntry, error)
}

type auditRepository struct {
	db DBTX
}

// NewAuditRepository builds repository.
func NewAuditRepository(db DBTX) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Append(ctx context.Context, entry domain.AuditEntry) error {
	const query = `
        INSERT INTO audit_log (id, kind, actor_id, request_id, message, fields, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)`
	fields := entry.Fields
	if fields == nil {
		fields = map[string]any{}
	}
	_, err := r.db.Exec(ctx, query,
		entry.ID,
		entry.Kind,
		entry.ActorID,
		entry.RequestID,
		entry.Message,
		fields,
		entry.CreatedAt,
	)
	return err
}

func (r *auditRepository) ListByRequest(ctx context.Context, requestID int64) ([]domain.AuditEntry, error) {
	const query = `
        SELECT id, kind, actor_id, request_id, message, fields, created_at
        FROM audit_log WHERE request_id=$1 ORDER BY created_at ASC`
	rows, err := r.db.Query(ctx, query, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.AuditEntry{}
	for rows.Next() {
		var entry domain.AuditEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.Kind,
			&entry.ActorID,
			&entry.RequestID,
			&entry.Message,
			&entry.Fields,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
