package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/veertikothari/campustrack/internal/entity"
)

type ReportRepository interface {
	FindByEvent(ctx context.Context, eventID uuid.UUID) (*entity.EventReport, error)
	// Create fails with a unique violation if the event already has a report.
	Create(ctx context.Context, report *entity.EventReport) error
}

type reportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db}
}

func (r *reportRepository) FindByEvent(ctx context.Context, eventID uuid.UUID) (*entity.EventReport, error) {
	var report entity.EventReport
	if err := r.db.WithContext(ctx).Where("event_id = ?", eventID).First(&report).Error; err != nil {
		return nil, err
	}
	return &report, nil
}

func (r *reportRepository) Create(ctx context.Context, report *entity.EventReport) error {
	return r.db.WithContext(ctx).Create(report).Error
}
