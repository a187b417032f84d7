package service

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/request-service/internal/domain"
	"github.com/spec-kit/request-service/internal/events"
	"github.com/spec-kit/request-service/internal/lifecycle"
	"github.com/spec-kit/request-service/internal/repository"
)

type memoryRequests struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]domain.Request
	users  *memoryUsers
	clock  func() time.Time
}

func newMemoryRequests(users *memoryUsers) *memoryRequests {
	return &memoryRequests{rows: map[int64]domain.Request{}, users: users, clock: time.Now}
}

func (m *memoryRequests) Create(_ context.Context, req *domain.Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	req.ID = m.nextID
	req.CreatedAt = m.clock()
	req.UpdatedAt = req.CreatedAt
	m.rows[req.ID] = *req
	return nil
}

func (m *memoryRequests) GetByID(_ context.Context, id int64) (*domain.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.rows[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	m.joinTechnician(&req)
	return &req, nil
}

func (m *memoryRequests) List(_ context.Context, filter repository.RequestFilter) ([]domain.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Request{}
	for id := int64(1); id <= m.nextID; id++ {
		req, ok := m.rows[id]
		if !ok {
			continue
		}
		if filter.TechnicianID != nil && (req.TechnicianID == nil || *req.TechnicianID != *filter.TechnicianID) {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, req.Status) {
			continue
		}
		m.joinTechnician(&req)
		out = append(out, req)
	}
	return out, nil
}

func (m *memoryRequests) ApplyMutation(_ context.Context, mut lifecycle.Mutation) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.rows[mut.RequestID]
	if !ok {
		return false, nil
	}
	next := lifecycle.Apply(req, mut)
	next.UpdatedAt = m.clock()
	if next.UpdatedAt.Before(req.UpdatedAt) {
		next.UpdatedAt = req.UpdatedAt
	}
	m.rows[req.ID] = next
	return true, nil
}

func (m *memoryRequests) Delete(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return false, nil
	}
	delete(m.rows, id)
	return true, nil
}

func (m *memoryRequests) joinTechnician(req *domain.Request) {
	req.TechnicianName = nil
	if req.TechnicianID == nil || m.users == nil {
		return
	}
	if u, ok := m.users.lookup(*req.TechnicianID); ok {
		name := u.Name
		req.TechnicianName = &name
	}
}

func containsStatus(list []domain.RequestStatus, s domain.RequestStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

type memoryUsers struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]domain.User
}

func newMemoryUsers(seed ...domain.User) *memoryUsers {
	m := &memoryUsers{rows: map[int64]domain.User{}}
	for _, u := range seed {
		m.rows[u.ID] = u
		if u.ID > m.nextID {
			m.nextID = u.ID
		}
	}
	return m
}

func (m *memoryUsers) lookup(id int64) (domain.User, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.rows[id]
	return u, ok
}

func (m *memoryUsers) emailTaken(email string, except int64) bool {
	for _, u := range m.rows {
		if u.Email == email && u.ID != except {
			return true
		}
	}
	return false
}

func (m *memoryUsers) Create(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.emailTaken(user.Email, 0) {
		return &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}
	}
	m.nextID++
	user.ID = m.nextID
	m.rows[user.ID] = *user
	return nil
}

func (m *memoryUsers) EnsureExists(_ context.Context, user *domain.User) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.emailTaken(user.Email, 0) {
		return false, nil
	}
	m.nextID++
	user.ID = m.nextID
	m.rows[user.ID] = *user
	return true, nil
}

func (m *memoryUsers) Update(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	if m.emailTaken(user.Email, user.ID) {
		return &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}
	}
	m.rows[user.ID] = *user
	return nil
}

func (m *memoryUsers) Delete(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return false, nil
	}
	delete(m.rows, id)
	return true, nil
}

func (m *memoryUsers) GetByID(_ context.Context, id int64) (*domain.User, error) {
	u, ok := m.lookup(id)
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &u, nil
}

func (m *memoryUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.rows {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memoryUsers) List(_ context.Context, role *domain.Role) ([]domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.User{}
	for id := int64(1); id <= m.nextID; id++ {
		u, ok := m.rows[id]
		if !ok || (role != nil && u.Role != *role) {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

type recordedEvents struct {
	mu     sync.Mutex
	events []events.Event
}

func recordAll(d events.Dispatcher) *recordedEvents {
	r := &recordedEvents{}
	for _, t := range events.AllTypes {
		d.Subscribe(t, func(_ context.Context, e events.Event) error {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.events = append(r.events, e)
			return nil
		})
	}
	return r
}

func (r *recordedEvents) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}
