package dto

import "github.com/veertikothari/campustrack/internal/entity"

type GenerateReportInput struct {
	Summary  string `json:"summary" binding:"max=5000"`
	Feedback string `json:"feedback" binding:"max=5000"`
}

// ReportResponse tells the caller whether this call created the report or
// returned the one already stored.
type ReportResponse struct {
	Report  *entity.EventReport `json:"report"`
	Created bool                `json:"created"`
}
