package dto

import (
	"github.com/google/uuid"

	"github.com/veertikothari/campustrack/internal/entity"
)

type StageInput struct {
	Present *bool `json:"present" binding:"required"`
}

// CommitInput optionally carries a complete marks map staged in one request.
type CommitInput struct {
	Marks map[uuid.UUID]bool `json:"marks"`
}

type SheetEntry struct {
	UserID  uuid.UUID                `json:"user_id"`
	UID     string                   `json:"uid"`
	Name    string                   `json:"name"`
	Saved   *entity.AttendanceStatus `json:"saved"`   // nil when not yet marked
	Pending *entity.AttendanceStatus `json:"pending"` // nil when undecided
}

type Sheet struct {
	EventID           uuid.UUID    `json:"event_id"`
	State             string       `json:"state"`
	HasUnsavedChanges bool         `json:"has_unsaved_changes"`
	Entries           []SheetEntry `json:"entries"`
}
