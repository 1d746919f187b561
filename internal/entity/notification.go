package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationType string

const (
	NotificationEventCreated        NotificationType = "event_created"
	NotificationEventReminder       NotificationType = "event_reminder"
	NotificationEnrollmentConfirmed NotificationType = "enrollment_confirmed"
	NotificationAttendanceMarked    NotificationType = "attendance_marked"
	NotificationEventCompleted      NotificationType = "event_completed"
)

func (t NotificationType) Valid() bool {
	switch t {
	case NotificationEventCreated, NotificationEventReminder, NotificationEnrollmentConfirmed,
		NotificationAttendanceMarked, NotificationEventCompleted:
		return true
	}
	return false
}

type Notification struct {
	ID        uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID        `gorm:"type:uuid;not null;index:idx_notification_user_read,priority:1" json:"user_id"` // recipient
	EventID   *uuid.UUID       `gorm:"type:uuid" json:"event_id,omitempty"`
	Title     string           `gorm:"size:200;not null" json:"title"`
	Message   string           `gorm:"type:text" json:"message"`
	Type      NotificationType `gorm:"size:30;not null" json:"type"`
	IsRead    bool             `gorm:"default:false;index:idx_notification_user_read,priority:2" json:"is_read"`
	CreatedAt time.Time        `gorm:"autoCreateTime" json:"created_at"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}

// DeviceToken is a push registration for a user's device.
type DeviceToken struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Token     string    `gorm:"size:255;not null;uniqueIndex" json:"token"`
	Platform  string    `gorm:"size:20" json:"platform"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (d *DeviceToken) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
