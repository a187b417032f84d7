package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDomainErrorPassesThroughDomainErrors(t *testing.T) {
	original := NewForbidden("nope")
	wrapped := fmt.Errorf("handler: %w", original)

	de := ToDomainError(wrapped)
	require.NotNil(t, de)
	assert.Equal(t, CodeForbidden, de.Code)
	assert.Equal(t, http.StatusForbidden, de.HTTPStatus)
}

func TestToDomainErrorMapsStorageErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		code   string
		status int
	}{
		{"no rows", pgx.ErrNoRows, CodeNotFound, http.StatusNotFound},
		{"unique", &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}, CodeConflict, http.StatusBadRequest},
		{"foreign key", &pgconn.PgError{Code: "23503"}, CodeValidation, http.StatusBadRequest},
		{"other pg", &pgconn.PgError{Code: "42P01"}, CodeInternal, http.StatusInternalServerError},
		{"plain", errors.New("boom"), CodeInternal, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			de := ToDomainError(tc.err)
			assert.Equal(t, tc.code, de.Code)
			assert.Equal(t, tc.status, de.HTTPStatus)
		})
	}
}

func TestInternalErrorHidesCause(t *testing.T) {
	de := ToDomainError(errors.New("syntax error at or near SELECT"))
	assert.Equal(t, "internal server error", de.Message)
	assert.ErrorContains(t, de, "syntax error")
}

func TestDomainErrorIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("wrap: %w", NewValidationCode(CodeEmptyPatch, "empty"))
	assert.True(t, errors.Is(err, &DomainError{Code: CodeEmptyPatch}))
	assert.False(t, errors.Is(err, &DomainError{Code: CodeInvalidStatus}))
	assert.True(t, IsUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.NoError(t, MapError(nil))
}

func TestStorageErrorsHideConstraintNames(t *testing.T) {
	for _, err := range []error{
		&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"},
		&pgconn.PgError{Code: "23503", ConstraintName: "requests_technician_id_fkey"},
	} {
		de := ToDomainError(err)
		assert.Empty(t, de.Details)
		assert.NotContains(t, de.Message, "_key")
	}

	wrapped := fmt.Errorf("insert user: %w", &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})
	assert.Equal(t, "users_email_key", ConstraintName(wrapped))
	assert.Empty(t, ConstraintName(errors.New("boom")))
}
