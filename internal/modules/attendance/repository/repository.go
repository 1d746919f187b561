package repository

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/veertikothari/campustrack/internal/entity"
)

type AttendanceRepository interface {
	ListForEvent(ctx context.Context, eventID uuid.UUID) ([]entity.Attendance, error)
	Find(ctx context.Context, eventID, userID uuid.UUID) (*entity.Attendance, error)
	// Commit upserts every mark and settles the matching enrollments in one
	// transaction. Nothing is written if any row fails.
	Commit(ctx context.Context, eventID, markedBy uuid.UUID, marks map[uuid.UUID]entity.AttendanceStatus, at time.Time) error
}

type attendanceRepository struct {
	db *gorm.DB
}

func NewAttendanceRepository(db *gorm.DB) AttendanceRepository {
	return &attendanceRepository{db: db}
}

func (r *attendanceRepository) ListForEvent(ctx context.Context, eventID uuid.UUID) ([]entity.Attendance, error) {
	var rows []entity.Attendance
	err := r.db.WithContext(ctx).Where("event_id = ?", eventID).Find(&rows).Error
	return rows, err
}

func (r *attendanceRepository) Find(ctx context.Context, eventID, userID uuid.UUID) (*entity.Attendance, error) {
	var row entity.Attendance
	err := r.db.WithContext(ctx).
		Where("event_id = ? AND user_id = ?", eventID, userID).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *attendanceRepository) Commit(ctx context.Context, eventID, markedBy uuid.UUID, marks map[uuid.UUID]entity.AttendanceStatus, at time.Time) error {
	if len(marks) == 0 {
		return nil
	}

	rows := make([]entity.Attendance, 0, len(marks))
	byStatus := make(map[entity.AttendanceStatus][]uuid.UUID)
	for userID, status := range marks {
		rows = append(rows, entity.Attendance{
			ID:       uuid.New(),
			UserID:   userID,
			EventID:  eventID,
			Status:   status,
			MarkedBy: markedBy,
			MarkedAt: at,
		})
		byStatus[status] = append(byStatus[status], userID)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].UserID.String() < rows[j].UserID.String() })

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "event_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "marked_by", "marked_at"}),
		}).Create(&rows).Error
		if err != nil {
			return err
		}

		for status, userIDs := range byStatus {
			err := tx.Model(&entity.Enrollment{}).
				Where("event_id = ? AND user_id IN ?", eventID, userIDs).
				Update("status", status.EnrollmentStatus()).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}
