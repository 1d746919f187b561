package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "Present"
	AttendanceAbsent  AttendanceStatus = "Absent"
)

func (s AttendanceStatus) Valid() bool {
	return s == AttendancePresent || s == AttendanceAbsent
}

// EnrollmentStatus is the enrollment status an attendance mark settles to.
func (s AttendanceStatus) EnrollmentStatus() EnrollmentStatus {
	if s == AttendancePresent {
		return EnrollmentAttended
	}
	return EnrollmentAbsent
}

// AttendanceStatusOf maps a present flag to a status.
func AttendanceStatusOf(present bool) AttendanceStatus {
	if present {
		return AttendancePresent
	}
	return AttendanceAbsent
}

type Attendance struct {
	ID       uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	UserID   uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_attendance_user_event,priority:1" json:"user_id"`
	EventID  uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_attendance_user_event,priority:2;index" json:"event_id"`
	Status   AttendanceStatus `gorm:"size:10;not null" json:"status"`
	MarkedBy uuid.UUID        `gorm:"type:uuid;not null" json:"marked_by"`
	MarkedAt time.Time        `gorm:"not null" json:"marked_at"`
}

func (Attendance) TableName() string {
	return "attendance"
}

func (a *Attendance) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
