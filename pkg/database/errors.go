package database

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/veertikothari/campustrack/pkg/apperror"
)

const pgUniqueViolation = "23505"

// IsUniqueViolation reports whether err came from a unique constraint.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	// sqlite reports constraint failures as plain text
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// IsNotFound reports whether err is a missing-row error.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, apperror.ErrNotFound)
}

// Classify turns a store error into the application error taxonomy.
// Errors already classified are returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}
	switch {
	case IsNotFound(err):
		return apperror.NotFound("Record not found")
	case IsUniqueViolation(err):
		return apperror.New(409, "Record already exists", errors.Join(apperror.ErrConflict, err))
	case errors.Is(err, apperror.ErrValidation),
		errors.Is(err, apperror.ErrConflict),
		errors.Is(err, apperror.ErrLocked),
		errors.Is(err, apperror.ErrForbidden),
		errors.Is(err, apperror.ErrUnauthorized),
		errors.Is(err, apperror.ErrRateLimitExceeded):
		return err
	}
	return apperror.Transport(err)
}
