package http

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/request-service/internal/domain"
	"github.com/spec-kit/request-service/internal/lifecycle"
	"github.com/spec-kit/request-service/internal/repository"
)

type fakeUsers struct {
	mu   sync.Mutex
	rows map[int64]domain.User
}

func (f *fakeUsers) Create(_ context.Context, user *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.rows {
		if u.Email == user.Email {
			return &pgconn.PgError{Code: "23505"}
		}
	}
	user.ID = int64(len(f.rows) + 100)
	f.rows[user.ID] = *user
	return nil
}

func (f *fakeUsers) EnsureExists(ctx context.Context, user *domain.User) (bool, error) {
	if err := f.Create(ctx, user); err != nil {
		return false, nil
	}
	return true, nil
}

func (f *fakeUsers) Update(_ context.Context, user *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	f.rows[user.ID] = *user
	return nil
}

func (f *fakeUsers) Delete(_ context.Context, id int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.rows[id]
	delete(f.rows, id)
	return ok, nil
}

func (f *fakeUsers) GetByID(_ context.Context, id int64) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.rows[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &u, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.rows {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeUsers) List(_ context.Context, role *domain.Role) ([]domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.User{}
	for _, u := range f.rows {
		if role == nil || u.Role == *role {
			out = append(out, u)
		}
	}
	return out, nil
}

type fakeRequests struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]domain.Request
}

func (f *fakeRequests) Create(_ context.Context, req *domain.Request) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	req.ID = f.nextID
	f.rows[req.ID] = *req
	return nil
}

func (f *fakeRequests) GetByID(_ context.Context, id int64) (*domain.Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.rows[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &req, nil
}

func (f *fakeRequests) List(_ context.Context, filter repository.RequestFilter) ([]domain.Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.Request{}
	for id := int64(1); id <= f.nextID; id++ {
		req, ok := f.rows[id]
		if !ok {
			continue
		}
		if filter.TechnicianID != nil && (req.TechnicianID == nil || *req.TechnicianID != *filter.TechnicianID) {
			continue
		}
		out = append(out, req)
	}
	return out, nil
}

func (f *fakeRequests) ApplyMutation(_ context.Context, m lifecycle.Mutation) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.rows[m.RequestID]
	if !ok {
		return false, nil
	}
	f.rows[m.RequestID] = lifecycle.Apply(req, m)
	return true, nil
}

func (f *fakeRequests) Delete(_ context.Context, id int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.rows[id]
	delete(f.rows, id)
	return ok, nil
}

type fakeAudit struct {
	mu      sync.Mutex
	entries []domain.AuditEntry
}

func (f *fakeAudit) Append(_ context.Context, entry domain.AuditEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeAudit) ListByRequest(_ context.Context, requestID int64) ([]domain.AuditEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.AuditEntry{}
	for _, e := range f.entries {
		if e.RequestID != nil && *e.RequestID == requestID {
			out = append(out, e)
		}
	}
	return out, nil
}
