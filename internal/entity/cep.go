package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CEPRequirement struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Year          int        `gorm:"not null;uniqueIndex:idx_cep_requirement_year_dept,priority:1" json:"year"`
	Department    string     `gorm:"size:50;not null;uniqueIndex:idx_cep_requirement_year_dept,priority:2" json:"department"`
	HoursRequired int        `gorm:"not null" json:"hours_required"`
	Deadline      *time.Time `json:"deadline,omitempty"`
	UpdatedBy     uuid.UUID  `gorm:"type:uuid" json:"updated_by"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (CEPRequirement) TableName() string {
	return "cep_requirements"
}

func (r *CEPRequirement) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// ReviewState is the closed set of states a submission's approval can be in.
type ReviewState string

const (
	ReviewPending  ReviewState = "pending"
	ReviewApproved ReviewState = "approved"
	ReviewRejected ReviewState = "rejected"
)

type CEPSubmission struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	ActivityName string     `gorm:"size:200" json:"activity_name"`
	Hours        int        `gorm:"not null" json:"hours"`
	FileRef      string     `gorm:"type:text;not null" json:"file_ref"`
	Approved     *bool      `gorm:"index" json:"approved"`
	ReviewedBy   *uuid.UUID `gorm:"type:uuid" json:"reviewed_by,omitempty"`
	ReviewedAt   *time.Time `json:"reviewed_at,omitempty"`
	SubmittedAt  time.Time  `gorm:"not null" json:"submitted_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
}

func (CEPSubmission) TableName() string {
	return "cep_submissions"
}

func (s *CEPSubmission) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

func (s *CEPSubmission) State() ReviewState {
	switch {
	case s.Approved == nil:
		return ReviewPending
	case *s.Approved:
		return ReviewApproved
	default:
		return ReviewRejected
	}
}
