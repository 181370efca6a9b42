package service

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"murmur/internal/models"

	"github.com/go-playground/validator/v10"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	return v
}

// validateStruct runs the struct tags of in and maps failures onto a
// validation AppError naming the first bad field.
func validateStruct(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return models.NewInternalError(err)
	}
	fe := ve[0]
	field := jsonName(fe.Field())
	switch fe.Tag() {
	case "required":
		return models.NewValidationError(fmt.Sprintf("%s is required", field))
	case "min":
		return models.NewValidationError(fmt.Sprintf("%s must be at least %s characters", field, fe.Param()))
	case "max":
		return models.NewValidationError(fmt.Sprintf("%s must be at most %s characters", field, fe.Param()))
	case "username":
		return models.NewValidationError(fmt.Sprintf("%s may only contain letters, digits and underscores", field))
	case "url", "http_url":
		return models.NewValidationError(fmt.Sprintf("%s must be a valid URL", field))
	default:
		return models.NewValidationError(fmt.Sprintf("%s is invalid", field))
	}
}

func jsonName(field string) string {
	var b strings.Builder
	for i, r := range field {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
