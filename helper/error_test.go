package helper

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewError(t *testing.T) {
	t.Run("Wraps error with operation", func(t *testing.T) {
		base := errors.New("connection refused")
		err := NewError("execute query", base)

		assert.EqualError(t, err, "execute query: connection refused", "Expected operation prefix")
		assert.ErrorIs(t, err, base, "Expected wrapped error to be reachable")
	})

	t.Run("Nil error stays nil", func(t *testing.T) {
		assert.NoError(t, NewError("noop", nil), "Expected nil for nil input")
	})

	t.Run("Validation error names the field", func(t *testing.T) {
		err := NewValidationError("startNodeId", "is required")

		assert.ErrorIs(t, err, ErrValidation, "Expected ErrValidation sentinel")
		assert.Contains(t, err.Error(), "startNodeId", "Expected field name in message")
	})
}
