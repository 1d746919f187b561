package dto

import (
	"github.com/veertikothari/campustrack/internal/entity"
)

type SubmitFeedbackInput struct {
	Rating   int    `json:"rating" binding:"required,min=1,max=5"`
	Comments string `json:"comments" binding:"max=2000"`
}

type FeedbackStatus struct {
	FeedbackSubmitted bool             `json:"feedback_submitted"`
	Feedback          *entity.Feedback `json:"feedback,omitempty"`
}

type FeedbackEntry struct {
	entity.Feedback
	UID  string `json:"uid"`
	Name string `json:"name"`
}

type EventFeedbackResponse struct {
	Entries       []FeedbackEntry `json:"entries"`
	Count         int64           `json:"count"`
	AverageRating float64         `json:"average_rating"`
}
