package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type EnrollmentStatus string

const (
	EnrollmentEnrolled EnrollmentStatus = "enrolled"
	EnrollmentAttended EnrollmentStatus = "attended"
	EnrollmentAbsent   EnrollmentStatus = "absent"
)

func (s EnrollmentStatus) Valid() bool {
	switch s {
	case EnrollmentEnrolled, EnrollmentAttended, EnrollmentAbsent:
		return true
	}
	return false
}

type Enrollment struct {
	ID         uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	EventID    uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_enrollment_event_user,priority:1" json:"event_id"`
	UserID     uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_enrollment_event_user,priority:2;index" json:"user_id"`
	Status     EnrollmentStatus `gorm:"size:20;not null;default:enrolled" json:"status"`
	EnrolledAt time.Time        `gorm:"autoCreateTime" json:"enrolled_at"`

	Event *Event `gorm:"foreignKey:EventID;constraint:OnDelete:CASCADE" json:"event,omitempty"`
	User  *User  `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
}

func (e *Enrollment) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.Status == "" {
		e.Status = EnrollmentEnrolled
	}
	return nil
}
