package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type EventCategory string

const (
	CategoryCoCurricular EventCategory = "co_curricular"
	CategoryCEP          EventCategory = "cep"
)

func (c EventCategory) Valid() bool {
	return c == CategoryCoCurricular || c == CategoryCEP
}

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

type Event struct {
	ID          uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	Title       string        `gorm:"size:200;not null" json:"title"`
	Description string        `gorm:"type:text" json:"description"`
	Date        string        `gorm:"size:10;not null;index" json:"date"`
	Time        string        `gorm:"size:5;not null" json:"time"`
	Venue       string        `gorm:"size:200" json:"venue"`
	Department  string        `gorm:"size:50;not null;index" json:"department"`
	Year        int           `json:"year"` // 0 targets every year of the department
	CreatedBy   uuid.UUID     `gorm:"type:uuid;not null;index" json:"created_by"`
	MaxPoints   int           `gorm:"default:0" json:"max_points"`
	Category    EventCategory `gorm:"size:20;not null" json:"category"`
	CreatedAt   time.Time     `gorm:"autoCreateTime" json:"created_at"`
}

func (e *Event) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// OwnedBy reports whether the faculty member created the event.
func (e *Event) OwnedBy(userID uuid.UUID) bool {
	return e.CreatedBy == userID
}

// VisibleTo reports whether a student in the given department and year sees the event.
func (e *Event) VisibleTo(department string, year int) bool {
	if e.Department != department {
		return false
	}
	return e.Year == 0 || e.Year == year
}
