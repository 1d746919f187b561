package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/veertikothari/campustrack/internal/entity"
)

type EventRepository interface {
	Create(ctx context.Context, event *entity.Event) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Event, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]entity.Event, error)
	// ListForAudience lists events a student of department/year can see.
	ListForAudience(ctx context.Context, department string, year int) ([]entity.Event, error)
	ListByCreator(ctx context.Context, creatorID uuid.UUID) ([]entity.Event, error)
	ListAll(ctx context.Context, limit, offset int) ([]entity.Event, error)
	ListOnDate(ctx context.Context, date string) ([]entity.Event, error)
}

type eventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) Create(ctx context.Context, event *entity.Event) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *eventRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Event, error) {
	var event entity.Event
	if err := r.db.WithContext(ctx).First(&event, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *eventRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]entity.Event, error) {
	var events []entity.Event
	if len(ids) == 0 {
		return events, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&events).Error
	return events, err
}

func (r *eventRepository) ListForAudience(ctx context.Context, department string, year int) ([]entity.Event, error) {
	var events []entity.Event
	err := r.db.WithContext(ctx).
		Where("department = ? AND (year = 0 OR year = ?)", department, year).
		Order("date asc, time asc").
		Find(&events).Error
	return events, err
}

func (r *eventRepository) ListByCreator(ctx context.Context, creatorID uuid.UUID) ([]entity.Event, error) {
	var events []entity.Event
	err := r.db.WithContext(ctx).
		Where("created_by = ?", creatorID).
		Order("date desc, time desc").
		Find(&events).Error
	return events, err
}

func (r *eventRepository) ListAll(ctx context.Context, limit, offset int) ([]entity.Event, error) {
	var events []entity.Event
	err := r.db.WithContext(ctx).
		Order("date desc, time desc").
		Limit(limit).
		Offset(offset).
		Find(&events).Error
	return events, err
}

func (r *eventRepository) ListOnDate(ctx context.Context, date string) ([]entity.Event, error) {
	var events []entity.Event
	err := r.db.WithContext(ctx).Where("date = ?", date).Find(&events).Error
	return events, err
}
