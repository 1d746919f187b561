package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/veertikothari/campustrack/internal/entity"
)

// ErrAttendanceMarked is returned when attendance already pins the enrollment.
var ErrAttendanceMarked = errors.New("attendance already marked")

type EnrollmentRepository interface {
	Find(ctx context.Context, eventID, userID uuid.UUID) (*entity.Enrollment, error)
	HasAttendance(ctx context.Context, eventID, userID uuid.UUID) (bool, error)
	// Create inserts the enrollment unless attendance exists for the pair.
	Create(ctx context.Context, enrollment *entity.Enrollment) error
	// Delete removes the enrollment unless any attendance exists for the event.
	Delete(ctx context.Context, eventID, userID uuid.UUID) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]entity.Enrollment, error)
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]entity.Enrollment, error)
	ListByEventIDs(ctx context.Context, eventIDs []uuid.UUID) ([]entity.Enrollment, error)
}

type enrollmentRepository struct {
	db *gorm.DB
}

func NewEnrollmentRepository(db *gorm.DB) EnrollmentRepository {
	return &enrollmentRepository{db: db}
}

func (r *enrollmentRepository) Find(ctx context.Context, eventID, userID uuid.UUID) (*entity.Enrollment, error) {
	var enrollment entity.Enrollment
	err := r.db.WithContext(ctx).
		Where("event_id = ? AND user_id = ?", eventID, userID).
		First(&enrollment).Error
	if err != nil {
		return nil, err
	}
	return &enrollment, nil
}

func (r *enrollmentRepository) HasAttendance(ctx context.Context, eventID, userID uuid.UUID) (bool, error) {
	return attendanceExists(r.db.WithContext(ctx), "event_id = ? AND user_id = ?", eventID, userID)
}

func (r *enrollmentRepository) Create(ctx context.Context, enrollment *entity.Enrollment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		marked, err := attendanceExists(tx, "event_id = ? AND user_id = ?", enrollment.EventID, enrollment.UserID)
		if err != nil {
			return err
		}
		if marked {
			return ErrAttendanceMarked
		}
		return tx.Create(enrollment).Error
	})
}

func (r *enrollmentRepository) Delete(ctx context.Context, eventID, userID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		marked, err := attendanceExists(tx, "event_id = ?", eventID)
		if err != nil {
			return err
		}
		if marked {
			return ErrAttendanceMarked
		}

		result := tx.Where("event_id = ? AND user_id = ?", eventID, userID).Delete(&entity.Enrollment{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *enrollmentRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]entity.Enrollment, error) {
	var enrollments []entity.Enrollment
	err := r.db.WithContext(ctx).
		Preload("Event").
		Where("user_id = ?", userID).
		Order("enrolled_at desc").
		Find(&enrollments).Error
	return enrollments, err
}

func (r *enrollmentRepository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]entity.Enrollment, error) {
	var enrollments []entity.Enrollment
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("event_id = ?", eventID).
		Order("enrolled_at asc").
		Find(&enrollments).Error
	return enrollments, err
}

func (r *enrollmentRepository) ListByEventIDs(ctx context.Context, eventIDs []uuid.UUID) ([]entity.Enrollment, error) {
	var enrollments []entity.Enrollment
	if len(eventIDs) == 0 {
		return enrollments, nil
	}
	err := r.db.WithContext(ctx).
		Where("event_id IN ? AND status = ?", eventIDs, entity.EnrollmentEnrolled).
		Find(&enrollments).Error
	return enrollments, err
}

func attendanceExists(db *gorm.DB, query string, args ...any) (bool, error) {
	var count int64
	if err := db.Model(&entity.Attendance{}).Where(query, args...).Limit(1).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
