package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/veertikothari/campustrack/internal/modules/feedback/dto"
	feedbackService "github.com/veertikothari/campustrack/internal/modules/feedback/service"
	"github.com/veertikothari/campustrack/internal/session"
	"github.com/veertikothari/campustrack/pkg/apperror"
	"github.com/veertikothari/campustrack/pkg/response"
	"github.com/veertikothari/campustrack/pkg/validator"
)

type FeedbackHandler struct {
	feedbackService feedbackService.FeedbackService
}

func NewFeedbackHandler(feedbackService feedbackService.FeedbackService) *FeedbackHandler {
	return &FeedbackHandler{feedbackService: feedbackService}
}

func (h *FeedbackHandler) Submit(c *gin.Context) {
	sess, eventID, ok := parseEvent(c)
	if !ok {
		return
	}

	var input dto.SubmitFeedbackInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	feedback, err := h.feedbackService.Submit(c.Request.Context(), sess.Principal, eventID, input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": feedback})
}

func (h *FeedbackHandler) MyStatus(c *gin.Context) {
	sess, eventID, ok := parseEvent(c)
	if !ok {
		return
	}

	status, err := h.feedbackService.Status(c.Request.Context(), sess.Principal, eventID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": status})
}

func (h *FeedbackHandler) ListForEvent(c *gin.Context) {
	sess, eventID, ok := parseEvent(c)
	if !ok {
		return
	}

	res, err := h.feedbackService.ListForEvent(c.Request.Context(), sess.Principal, eventID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": res})
}

func parseEvent(c *gin.Context) (*session.Session, uuid.UUID, bool) {
	sess, ok := session.Current(c)
	if !ok {
		response.ResponseError(c, apperror.ErrUnauthorized)
		return nil, uuid.Nil, false
	}

	eventID, err := uuid.Parse(c.Param("event_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid event ID"})
		return nil, uuid.Nil, false
	}
	return sess, eventID, true
}
