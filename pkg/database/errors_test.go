package database

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/veertikothari/campustrack/pkg/apperror"
)

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(gorm.ErrDuplicatedKey))
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.True(t, IsUniqueViolation(errors.New("UNIQUE constraint failed: enrollments.event_id, enrollments.user_id")))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, IsUniqueViolation(nil))
}

func TestClassify(t *testing.T) {
	assert.Nil(t, Classify(nil))
	assert.ErrorIs(t, Classify(gorm.ErrRecordNotFound), apperror.ErrNotFound)
	assert.ErrorIs(t, Classify(gorm.ErrDuplicatedKey), apperror.ErrConflict)
	assert.ErrorIs(t, Classify(errors.New("connection refused")), apperror.ErrTransport)

	locked := apperror.Locked("nope")
	assert.Same(t, locked, Classify(locked))
	assert.ErrorIs(t, Classify(fmt.Errorf("x: %w", apperror.ErrForbidden)), apperror.ErrForbidden)
}
