package repository

import (
	"context"
	"regexp"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/request-service/internal/domain"
)

var userCols = []string{"id", "name", "email", "password", "role"}

func TestUserRepositoryEnsureExists(t *testing.T) {
	mock := newMock(t)
	repo := NewUserRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta(`ON CONFLICT (email) DO NOTHING`)).
		WithArgs("Admin User", "admin@example.com", "hash", "admin").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectQuery(regexp.QuoteMeta(`ON CONFLICT (email) DO NOTHING`)).
		WithArgs("Admin User", "admin@example.com", "hash", "admin").
		WillReturnError(pgx.ErrNoRows)

	user := &domain.User{Name: "Admin User", Email: "admin@example.com", PasswordHash: "hash", Role: domain.RoleAdmin}
	inserted, err := repo.EnsureExists(context.Background(), user)
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.Equal(t, int64(1), user.ID)

	inserted, err = repo.EnsureExists(context.Background(), &domain.User{Name: "Admin User", Email: "admin@example.com", PasswordHash: "hash", Role: domain.RoleAdmin})
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryListByRole(t *testing.T) {
	mock := newMock(t)
	repo := NewUserRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, name, email, password, role FROM users WHERE role=$1 ORDER BY id`)).
		WithArgs("technician").
		WillReturnRows(pgxmock.NewRows(userCols).
			AddRow(int64(7), "Tina", "tina@example.com", "h", "technician"))

	role := domain.RoleTechnician
	users, err := repo.List(context.Background(), &role)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, domain.RoleTechnician, users[0].Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryUpdateMissing(t *testing.T) {
	mock := newMock(t)
	repo := NewUserRepository(mock)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET name=$1, email=$2, password=$3, role=$4`)).
		WithArgs("N", "n@example.com", "h", "user", int64(3)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.Update(context.Background(), &domain.User{ID: 3, Name: "N", Email: "n@example.com", PasswordHash: "h", Role: domain.RoleUser})
	assert.ErrorIs(t, err, pgx.ErrNoRows)
}

func TestUserRepositoryGetByEmail(t *testing.T) {
	mock := newMock(t)
	repo := NewUserRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE email=$1`)).
		WithArgs("a@example.com").
		WillReturnRows(pgxmock.NewRows(userCols).AddRow(int64(2), "A", "a@example.com", "h", "user"))

	user, err := repo.GetByEmail(context.Background(), "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(2), user.ID)
	assert.Equal(t, domain.RoleUser, user.Role)
}
