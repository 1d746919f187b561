package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type EventReport struct {
	ID                   uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	EventID              uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex" json:"event_id"`
	FacultyID            uuid.UUID      `gorm:"type:uuid;not null" json:"faculty_id"`
	TotalEnrolled        int            `json:"total_enrolled"`
	TotalAttended        int            `json:"total_attended"`
	TotalAbsent          int            `json:"total_absent"`
	AttendancePercentage float64        `json:"attendance_percentage"`
	Summary              string         `gorm:"type:text" json:"summary"`
	Feedback             string         `gorm:"type:text" json:"feedback"`
	Breakdown            datatypes.JSON `json:"breakdown"` // []ReportLine snapshot at generation time
	CreatedAt            time.Time      `gorm:"autoCreateTime" json:"created_at"`
}

func (r *EventReport) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// ReportLine is one student's row in a report breakdown.
type ReportLine struct {
	UserID uuid.UUID        `json:"user_id"`
	UID    string           `json:"uid"`
	Name   string           `json:"name"`
	Status AttendanceStatus `json:"status"`
}
