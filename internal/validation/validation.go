// Package validation checks request payloads and turns failures into
// domain.ValidationError values.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"emotiva/internal/domain"
	"emotiva/internal/models"
)

var (
	once     sync.Once
	validate *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
		_ = validate.RegisterValidation("mood", func(fl validator.FieldLevel) bool {
			return models.Mood(fl.Field().String()).Valid()
		})
		_ = validate.RegisterValidation("role", func(fl validator.FieldLevel) bool {
			return models.Role(fl.Field().String()).Valid()
		})
	})
	return validate
}

// Struct validates v against its `validate` tags.
func Struct(v any) error {
	err := instance().Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate: %w", err)
	}

	fields := make([]domain.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, domain.FieldError{Field: fe.Field(), Message: message(fe)})
	}
	return domain.NewValidationErrors(fields)
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "invalid email format"
	case "min":
		if fe.Kind() == reflect.String {
			return "must be at least " + fe.Param() + " characters"
		}
		return "must be at least " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return "must be at most " + fe.Param() + " characters"
		}
		return "must be at most " + fe.Param()
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "lte":
		return "must be less than or equal to " + fe.Param()
	case "mood":
		return "must be one of happy, neutral, sad"
	case "role":
		return "must be one of guardian, school, psychologist"
	case "dive":
		return "is invalid"
	default:
		return "is invalid"
	}
}

// ValidateEmail checks if an email address is valid
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return domain.NewValidationError("email", "email is required")
	}
	if instance().Var(email, "email") != nil {
		return domain.NewValidationError("email", "invalid email format")
	}
	return nil
}

// ValidatePassword checks if a password meets requirements
func ValidatePassword(password string) error {
	if password == "" {
		return domain.NewValidationError("password", "password is required")
	}
	if len(password) < 8 {
		return domain.NewValidationError("password", "password must be at least 8 characters")
	}
	return nil
}

// ValidateName checks if a name is valid
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.NewValidationError("name", "name is required")
	}
	if len([]rune(name)) < 2 {
		return domain.NewValidationError("name", "name must be at least 2 characters")
	}
	return nil
}

// ValidateDateRange rejects ranges that end before they start.
func ValidateDateRange(from, to time.Time) error {
	if to.Before(from) {
		return domain.NewValidationError("to", "must not be before from")
	}
	return nil
}
