package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/veertikothari/campustrack/internal/entity"
)

// ErrNotPending is returned when editing a submission that was already reviewed.
var ErrNotPending = errors.New("submission already reviewed")

type CEPRepository interface {
	UpsertRequirement(ctx context.Context, req *entity.CEPRequirement) (*entity.CEPRequirement, error)
	FindRequirement(ctx context.Context, year int, department string) (*entity.CEPRequirement, error)

	CreateSubmission(ctx context.Context, sub *entity.CEPSubmission) error
	FindSubmission(ctx context.Context, id uuid.UUID) (*entity.CEPSubmission, error)
	// UpdatePending rewrites the editable fields only while the submission is unreviewed.
	UpdatePending(ctx context.Context, sub *entity.CEPSubmission) error
	Review(ctx context.Context, id uuid.UUID, approved bool, reviewer uuid.UUID, at time.Time) error
	CompletedHours(ctx context.Context, userID uuid.UUID) (int, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]entity.CEPSubmission, error)
	ListPendingForDepartment(ctx context.Context, department string) ([]entity.CEPSubmission, error)
}

type cepRepository struct {
	db *gorm.DB
}

func NewCEPRepository(db *gorm.DB) CEPRepository {
	return &cepRepository{db: db}
}

func (r *cepRepository) UpsertRequirement(ctx context.Context, req *entity.CEPRequirement) (*entity.CEPRequirement, error) {
	var saved entity.CEPRequirement
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "year"}, {Name: "department"}},
			DoUpdates: clause.AssignmentColumns([]string{"hours_required", "deadline", "updated_by", "updated_at"}),
		}).Create(req).Error
		if err != nil {
			return err
		}
		return tx.Where("year = ? AND department = ?", req.Year, req.Department).First(&saved).Error
	})
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

func (r *cepRepository) FindRequirement(ctx context.Context, year int, department string) (*entity.CEPRequirement, error) {
	var req entity.CEPRequirement
	err := r.db.WithContext(ctx).
		Where("year = ? AND department = ?", year, department).
		First(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *cepRepository) CreateSubmission(ctx context.Context, sub *entity.CEPSubmission) error {
	return r.db.WithContext(ctx).Create(sub).Error
}

func (r *cepRepository) FindSubmission(ctx context.Context, id uuid.UUID) (*entity.CEPSubmission, error) {
	var sub entity.CEPSubmission
	if err := r.db.WithContext(ctx).Preload("User").First(&sub, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *cepRepository) UpdatePending(ctx context.Context, sub *entity.CEPSubmission) error {
	result := r.db.WithContext(ctx).
		Model(&entity.CEPSubmission{}).
		Where("id = ? AND approved IS NULL", sub.ID).
		Updates(map[string]any{
			"activity_name": sub.ActivityName,
			"hours":         sub.Hours,
			"file_ref":      sub.FileRef,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotPending
	}
	return nil
}

func (r *cepRepository) Review(ctx context.Context, id uuid.UUID, approved bool, reviewer uuid.UUID, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&entity.CEPSubmission{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"approved":    approved,
			"reviewed_by": reviewer,
			"reviewed_at": at,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *cepRepository) CompletedHours(ctx context.Context, userID uuid.UUID) (int, error) {
	var total int
	err := r.db.WithContext(ctx).
		Model(&entity.CEPSubmission{}).
		Select("COALESCE(SUM(hours), 0)").
		Where("user_id = ? AND approved = ?", userID, true).
		Scan(&total).Error
	return total, err
}

func (r *cepRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]entity.CEPSubmission, error) {
	var subs []entity.CEPSubmission
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("submitted_at desc").
		Find(&subs).Error
	return subs, err
}

func (r *cepRepository) ListPendingForDepartment(ctx context.Context, department string) ([]entity.CEPSubmission, error) {
	var subs []entity.CEPSubmission
	err := r.db.WithContext(ctx).
		Preload("User").
		Joins("JOIN users ON users.id = cep_submissions.user_id").
		Where("users.department = ? AND cep_submissions.approved IS NULL", department).
		Order("cep_submissions.submitted_at asc").
		Find(&subs).Error
	return subs, err
}
