package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	MinRating = 1
	MaxRating = 5
)

type Feedback struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	EventID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_feedback_event_user,priority:1" json:"event_id"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_feedback_event_user,priority:2" json:"user_id"`
	Rating      int       `gorm:"not null" json:"rating"`
	Comments    string    `gorm:"type:text" json:"comments"`
	SubmittedAt time.Time `gorm:"not null" json:"submitted_at"`
}

func (Feedback) TableName() string {
	return "feedback"
}

func (f *Feedback) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}
