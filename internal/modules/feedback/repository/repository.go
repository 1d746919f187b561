package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/veertikothari/campustrack/internal/entity"
)

// ErrAbsent is returned when the author's attendance is marked Absent.
var ErrAbsent = errors.New("attendance marked absent")

type FeedbackRepository interface {
	// Upsert writes one feedback row per (event, user), refusing absentees.
	Upsert(ctx context.Context, feedback *entity.Feedback) (*entity.Feedback, error)
	Find(ctx context.Context, eventID, userID uuid.UUID) (*entity.Feedback, error)
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]entity.Feedback, error)
	Average(ctx context.Context, eventID uuid.UUID) (float64, int64, error)
}

type feedbackRepository struct {
	db *gorm.DB
}

func NewFeedbackRepository(db *gorm.DB) FeedbackRepository {
	return &feedbackRepository{db: db}
}

func (r *feedbackRepository) Upsert(ctx context.Context, feedback *entity.Feedback) (*entity.Feedback, error) {
	var saved entity.Feedback
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var absent int64
		err := tx.Model(&entity.Attendance{}).
			Where("event_id = ? AND user_id = ? AND status = ?", feedback.EventID, feedback.UserID, entity.AttendanceAbsent).
			Count(&absent).Error
		if err != nil {
			return err
		}
		if absent > 0 {
			return ErrAbsent
		}

		err = tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"rating", "comments", "submitted_at"}),
		}).Create(feedback).Error
		if err != nil {
			return err
		}

		return tx.Where("event_id = ? AND user_id = ?", feedback.EventID, feedback.UserID).First(&saved).Error
	})
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

func (r *feedbackRepository) Find(ctx context.Context, eventID, userID uuid.UUID) (*entity.Feedback, error) {
	var feedback entity.Feedback
	err := r.db.WithContext(ctx).
		Where("event_id = ? AND user_id = ?", eventID, userID).
		First(&feedback).Error
	if err != nil {
		return nil, err
	}
	return &feedback, nil
}

func (r *feedbackRepository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]entity.Feedback, error) {
	var rows []entity.Feedback
	err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("submitted_at desc").
		Find(&rows).Error
	return rows, err
}

func (r *feedbackRepository) Average(ctx context.Context, eventID uuid.UUID) (float64, int64, error) {
	var result struct {
		Average float64
		Count   int64
	}
	err := r.db.WithContext(ctx).
		Model(&entity.Feedback{}).
		Select("COALESCE(AVG(rating), 0) AS average, COUNT(*) AS count").
		Where("event_id = ?", eventID).
		Scan(&result).Error
	return result.Average, result.Count, err
}
