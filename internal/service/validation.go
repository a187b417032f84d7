package service

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/spec-kit/request-service/internal/auth"
	apperrors "github.com/spec-kit/request-service/pkg/util/errorutil"
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("strongpassword", func(fl validator.FieldLevel) bool {
		return auth.CheckPasswordStrength(fl.Field().String()) == nil
	})
	return v
}

// validationError turns the first failed rule into a client message.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return apperrors.NewValidationCode(apperrors.CodeMissingFields, field+" is required")
	case "email":
		return apperrors.NewValidationError("Invalid email format", map[string]any{"field": field})
	case "strongpassword":
		return apperrors.NewValidationError(auth.ErrWeakPassword.Error(), map[string]any{"field": field})
	case "oneof":
		return apperrors.NewValidationError("Invalid "+field, map[string]any{"field": field, "allowed": fe.Param()})
	default:
		return apperrors.NewValidationError("Invalid "+field, map[string]any{"field": field})
	}
}
