package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/request-service/internal/domain"
	"github.com/spec-kit/request-service/internal/lifecycle"
)

// RequestFilter narrows request listings.
type RequestFilter struct {
	TechnicianID *int64
	Statuses     []domain.RequestStatus
}

// RequestRepository encapsulates request persistence.
type RequestRepository interface {
	Create(ctx context.Context, req *domain.Request) error
	GetByID(ctx context.Context, id int64) (*domain.Request, error)
	List(ctx context.Context, filter RequestFilter) ([]domain.Request, error)
	// ApplyMutation runs the mutation as one UPDATE and reports whether a row matched.
	ApplyMutation(ctx context.Context, m lifecycle.Mutation) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

type requestRepository struct {
	db DBTX
}

// NewRequestRepository instantiates repository.
func NewRequestRepository(db DBTX) RequestRepository {
	return &requestRepository{db: db}
}

const requestColumns = `r.id, r.title, r.location, r.category, r.language, r.priority, r.description,
               r.status, r.technician_id, u.name, r.created_at, r.updated_at, r.completed_at`

const requestFrom = `FROM requests r LEFT JOIN users u ON r.technician_id = u.id`

var mutableColumns = map[lifecycle.Field]string{
	lifecycle.FieldTechnicianID: "technician_id",
	lifecycle.FieldStatus:       "status",
	lifecycle.FieldCompletedAt:  "completed_at",
}

func (r *requestRepository) Create(ctx context.Context, req *domain.Request) error {
	const query = `
        INSERT INTO requests (title, location, category, language, priority, description, status)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		req.Title,
		req.Location,
		req.Category,
		req.Language,
		req.Priority,
		req.Description,
		string(req.Status),
	).Scan(&req.ID, &req.CreatedAt, &req.UpdatedAt)
}

func (r *requestRepository) GetByID(ctx context.Context, id int64) (*domain.Request, error) {
	query := `SELECT ` + requestColumns + ` ` + requestFrom + ` WHERE r.id=$1`
	req, err := scanRequest(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	return req, nil
}

func (r *requestRepository) List(ctx context.Context, filter RequestFilter) ([]domain.Request, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.TechnicianID != nil {
		args = append(args, *filter.TechnicianID)
		clauses = append(clauses, fmt.Sprintf("r.technician_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, string(status))
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("r.status IN (%s)", strings.Join(placeholders, ",")))
	}

	query := fmt.Sprintf(`SELECT %s %s WHERE %s ORDER BY r.id`, requestColumns, requestFrom, strings.Join(clauses, " AND "))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Request{}
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *req)
	}
	return result, rows.Err()
}

func (r *requestRepository) ApplyMutation(ctx context.Context, m lifecycle.Mutation) (bool, error) {
	query, args, err := buildUpdate(m)
	if err != nil {
		return false, err
	}
	cmd, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *requestRepository) Delete(ctx context.Context, id int64) (bool, error) {
	cmd, err := r.db.Exec(ctx, `DELETE FROM requests WHERE id=$1`, id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func buildUpdate(m lifecycle.Mutation) (string, []any, error) {
	if len(m.Assignments) == 0 {
		return "", nil, errors.New("mutation has no assignments")
	}
	sets := make([]string, 0, len(m.Assignments))
	args := make([]any, 0, len(m.Assignments)+1)
	for _, a := range m.Assignments {
		column, ok := mutableColumns[a.Field]
		if !ok {
			return "", nil, fmt.Errorf("unknown request field %q", a.Field)
		}
		value := a.Value
		if status, ok := value.(domain.RequestStatus); ok {
			value = string(status)
		}
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s=$%d", column, len(args)))
	}
	args = append(args, m.RequestID)
	query := fmt.Sprintf("UPDATE requests SET %s WHERE id=$%d", strings.Join(sets, ", "), len(args))
	return query, args, nil
}

func scanRequest(row pgx.Row) (*domain.Request, error) {
	var req domain.Request
	var status string
	if err := row.Scan(
		&req.ID,
		&req.Title,
		&req.Location,
		&req.Category,
		&req.Language,
		&req.Priority,
		&req.Description,
		&status,
		&req.TechnicianID,
		&req.TechnicianName,
		&req.CreatedAt,
		&req.UpdatedAt,
		&req.CompletedAt,
	); err != nil {
		return nil, err
	}
	req.Status = domain.RequestStatus(status)
	return &req, nil
}
