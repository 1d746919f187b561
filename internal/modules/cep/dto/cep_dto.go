package dto

import (
	"time"

	"github.com/veertikothari/campustrack/internal/entity"
)

type RequirementInput struct {
	Year          int    `json:"year" binding:"required,min=1,max=6"`
	Department    string `json:"department" binding:"max=50"`
	HoursRequired int    `json:"hours_required" binding:"required,gt=0"`
	Deadline      string `json:"deadline" binding:"omitempty,datetime=2006-01-02"`
}

type SubmitInput struct {
	ActivityName string `json:"activity_name" form:"activity_name" binding:"required,max=200"`
	Hours        int    `json:"hours" form:"hours" binding:"required,gt=0"`
	FileRef      string `json:"file_ref" form:"file_ref" binding:"max=2048"`
}

// EditInput leaves a field unchanged when it is omitted.
type EditInput struct {
	ActivityName *string `json:"activity_name" form:"activity_name" binding:"omitempty,max=200"`
	Hours        *int    `json:"hours" form:"hours" binding:"omitempty,gt=0"`
	FileRef      *string `json:"file_ref" form:"file_ref" binding:"omitempty,max=2048"`
}

type ReviewInput struct {
	Approved *bool `json:"approved" binding:"required"`
}

// Progress is a student's accrual against their cohort requirement.
// HoursRequired is nil when no requirement is configured.
type Progress struct {
	CompletedHours        int        `json:"completed_hours"`
	RequirementConfigured bool       `json:"requirement_configured"`
	HoursRequired         *int       `json:"hours_required,omitempty"`
	Deadline              *time.Time `json:"deadline,omitempty"`
	Progress              float64    `json:"progress"`
	ProgressPercent       float64    `json:"progress_percent"`
	Completed             bool       `json:"completed"`
}

type SubmissionResponse struct {
	entity.CEPSubmission
	State entity.ReviewState `json:"state"`
}

func ToSubmissionResponse(s entity.CEPSubmission) SubmissionResponse {
	return SubmissionResponse{CEPSubmission: s, State: s.State()}
}

func ToSubmissionResponses(subs []entity.CEPSubmission) []SubmissionResponse {
	out := make([]SubmissionResponse, 0, len(subs))
	for _, s := range subs {
		out = append(out, ToSubmissionResponse(s))
	}
	return out
}
