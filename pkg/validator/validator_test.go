package validator

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
)

type submitInput struct {
	ActivityName string  `validate:"required"`
	Hours        float64 `validate:"gt=0"`
	Rating       int     `validate:"min=1,max=5"`
}

func TestFormatValidationError(t *testing.T) {
	v := validator.New()

	err := v.Struct(submitInput{Hours: 0, Rating: 7})
	msg := FormatValidationError(err)

	assert.Contains(t, msg, "Activity name is required")
	assert.Contains(t, msg, "Hours must be greater than 0")
	assert.Contains(t, msg, "Rating must be at most 5")
}

func TestFormatValidationErrorPlainError(t *testing.T) {
	assert.Equal(t, "EOF", FormatValidationError(errors.New("EOF")))
}
