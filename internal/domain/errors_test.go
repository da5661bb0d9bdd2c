package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationError(t *testing.T) {
	t.Run("single field", func(t *testing.T) {
		err := NewValidationError("mood", "is required")
		assert.Equal(t, "validation: mood: is required", err.Error())
		assert.True(t, errors.Is(err, ErrValidation))
	})

	t.Run("multiple fields", func(t *testing.T) {
		err := NewValidationErrors([]FieldError{
			{Field: "name", Message: "is required"},
			{Field: "age", Message: "must be a number"},
		})
		assert.Equal(t, "validation: name: is required; age: must be a number", err.Error())
	})

	t.Run("wrapped", func(t *testing.T) {
		err := fmt.Errorf("create child: %w", NewValidationError("name", "is required"))
		var ve *ValidationError
		assert.True(t, errors.As(err, &ve))
		assert.Len(t, ve.Errors, 1)
		assert.ErrorIs(t, err, ErrValidation)
	})
}
