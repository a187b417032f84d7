package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/request-service/internal/auth"
	"github.com/spec-kit/request-service/internal/config"
	"github.com/spec-kit/request-service/internal/domain"
	"github.com/spec-kit/request-service/internal/events"
	apperrors "github.com/spec-kit/request-service/pkg/util/errorutil"
)

type revocationLog struct {
	ids  []string
	ttls []time.Duration
}

func (r *revocationLog) Revoke(_ context.Context, id string, ttl time.Duration) error {
	r.ids = append(r.ids, id)
	r.ttls = append(r.ttls, ttl)
	return nil
}

func (r *revocationLog) IsRevoked(context.Context, string) (bool, error) { return false, nil }

type authFixture struct {
	svc         *AuthService
	users       *memoryUsers
	tokens      *auth.TokenManager
	revocations *revocationLog
	events      *recordedEvents
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	dispatcher := events.NewInMemoryDispatcher()
	f := &authFixture{
		users:       newMemoryUsers(),
		tokens:      auth.NewTokenManager("secret", 15*time.Minute),
		revocations: &revocationLog{},
		events:      recordAll(dispatcher),
	}
	f.svc = NewAuthService(config.AuthConfig{BcryptCost: bcrypt.MinCost}, AuthDependencies{
		UserRepo:    f.users,
		Tokens:      f.tokens,
		Revocations: f.revocations,
		Dispatcher:  dispatcher,
	})
	return f
}

const strongPassword = "Str0ng!pass"

func TestSignupDefaultsToUserRole(t *testing.T) {
	f := newAuthFixture(t)

	user, err := f.svc.Signup(context.Background(), SignupInput{Name: " Uma ", Email: "uma@example.com", Password: strongPassword})
	require.NoError(t, err)

	assert.Equal(t, domain.RoleUser, user.Role)
	assert.Equal(t, "Uma", user.Name)
	assert.NotEqual(t, strongPassword, user.PasswordHash)
	assert.NoError(t, auth.ComparePassword(user.PasswordHash, strongPassword))
	assert.Equal(t, []events.EventType{events.EventUserSignedUp}, f.events.types())
}

func TestSignupValidation(t *testing.T) {
	f := newAuthFixture(t)

	cases := []struct {
		name  string
		input SignupInput
		msg   string
	}{
		{"missing name", SignupInput{Email: "a@example.com", Password: strongPassword}, "name is required"},
		{"bad email", SignupInput{Name: "A", Email: "not-an-email", Password: strongPassword}, "Invalid email format"},
		{"weak password", SignupInput{Name: "A", Email: "a@example.com", Password: "password"}, auth.ErrWeakPassword.Error()},
		{"admin role", SignupInput{Name: "A", Email: "a@example.com", Password: strongPassword, Role: "Admin"}, MsgAdminSignup},
		{"unknown role", SignupInput{Name: "A", Email: "a@example.com", Password: strongPassword, Role: "root"}, MsgAdminSignup},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Signup(context.Background(), tc.input)
			de := apperrors.ToDomainError(err)
			require.NotNil(t, de)
			assert.Equal(t, 400, de.HTTPStatus)
			assert.Equal(t, tc.msg, de.Message)
		})
	}
}

func TestSignupDuplicateEmail(t *testing.T) {
	f := newAuthFixture(t)
	input := SignupInput{Name: "Tina", Email: "tina@example.com", Password: strongPassword, Role: "technician"}
	_, err := f.svc.Signup(context.Background(), input)
	require.NoError(t, err)

	_, err = f.svc.Signup(context.Background(), input)

	de := apperrors.ToDomainError(err)
	assert.Equal(t, apperrors.CodeConflict, de.Code)
	assert.Equal(t, MsgEmailExists, de.Message)
	assert.Equal(t, 400, de.HTTPStatus)
	assert.Contains(t, f.events.types(), events.EventSignupFailed)
}

func TestLoginIssuesToken(t *testing.T) {
	f := newAuthFixture(t)
	user, err := f.svc.Signup(context.Background(), SignupInput{Name: "Tina", Email: "tina@example.com", Password: strongPassword, Role: "technician"})
	require.NoError(t, err)

	result, err := f.svc.Login(context.Background(), LoginInput{Email: "tina@example.com", Password: strongPassword})
	require.NoError(t, err)

	claims, err := f.tokens.ParseToken(result.Token.Value)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, domain.RoleTechnician, claims.Role)
	assert.Equal(t, result.Token.ID, claims.ID)
}

func TestLoginFailuresShareMessage(t *testing.T) {
	f := newAuthFixture(t)
	_, err := f.svc.Signup(context.Background(), SignupInput{Name: "Uma", Email: "uma@example.com", Password: strongPassword})
	require.NoError(t, err)

	_, errWrongPassword := f.svc.Login(context.Background(), LoginInput{Email: "uma@example.com", Password: "Wr0ng!pass"})
	_, errUnknown := f.svc.Login(context.Background(), LoginInput{Email: "nobody@example.com", Password: strongPassword})

	for _, err := range []error{errWrongPassword, errUnknown} {
		de := apperrors.ToDomainError(err)
		require.NotNil(t, de)
		assert.Equal(t, 400, de.HTTPStatus)
		assert.Equal(t, MsgInvalidCredentials, de.Message)
	}
	assert.Equal(t, []events.EventType{events.EventUserSignedUp, events.EventLoginFailed, events.EventLoginFailed}, f.events.types())
}

func TestLogoutRevokesRemainingLifetime(t *testing.T) {
	f := newAuthFixture(t)
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return now }

	principal := &domain.Principal{UserID: 3, Role: domain.RoleUser, TokenID: "jti-1", ExpiresAt: now.Add(5 * time.Minute)}
	require.NoError(t, f.svc.Logout(context.Background(), principal, "10.0.0.1"))

	assert.Equal(t, []string{"jti-1"}, f.revocations.ids)
	assert.Equal(t, []time.Duration{5 * time.Minute}, f.revocations.ttls)
	assert.Equal(t, []events.EventType{events.EventLoggedOut}, f.events.types())

	expired := &domain.Principal{UserID: 3, TokenID: "jti-2", ExpiresAt: now.Add(-time.Second)}
	require.NoError(t, f.svc.Logout(context.Background(), expired, ""))
	assert.Len(t, f.revocations.ids, 1)
}

func TestEnsureAdminIsIdempotent(t *testing.T) {
	f := newAuthFixture(t)
	seed := config.SeedConfig{AdminName: "Admin User", AdminEmail: "admin@example.com", AdminPassword: "admin1234"}

	inserted, err := f.svc.EnsureAdmin(context.Background(), seed)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = f.svc.EnsureAdmin(context.Background(), seed)
	require.NoError(t, err)
	assert.False(t, inserted)

	admins, err := f.users.List(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, admins, 1)
	assert.Equal(t, domain.RoleAdmin, admins[0].Role)

	inserted, err = f.svc.EnsureAdmin(context.Background(), config.SeedConfig{AdminEmail: "x@example.com"})
	require.NoError(t, err)
	assert.False(t, inserted)
}
