package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/veertikothari/campustrack/internal/modules/attendance/dto"
	attendanceService "github.com/veertikothari/campustrack/internal/modules/attendance/service"
	"github.com/veertikothari/campustrack/internal/session"
	"github.com/veertikothari/campustrack/pkg/apperror"
	"github.com/veertikothari/campustrack/pkg/response"
	"github.com/veertikothari/campustrack/pkg/validator"
)

type AttendanceHandler struct {
	attendanceService attendanceService.AttendanceService
}

func NewAttendanceHandler(attendanceService attendanceService.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendanceService: attendanceService}
}

func (h *AttendanceHandler) GetSheet(c *gin.Context) {
	sess, eventID, ok := parseEvent(c)
	if !ok {
		return
	}

	sheet, err := h.attendanceService.Sheet(c.Request.Context(), sess.Principal, eventID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": sheet})
}

func (h *AttendanceHandler) Stage(c *gin.Context) {
	sess, eventID, ok := parseEvent(c)
	if !ok {
		return
	}

	userID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	var input dto.StageInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	sheet, err := h.attendanceService.Stage(c.Request.Context(), sess.Principal, eventID, userID, *input.Present)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": sheet})
}

func (h *AttendanceHandler) Reset(c *gin.Context) {
	sess, eventID, ok := parseEvent(c)
	if !ok {
		return
	}

	sheet, err := h.attendanceService.Reset(c.Request.Context(), sess.Principal, eventID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": sheet})
}

func (h *AttendanceHandler) Commit(c *gin.Context) {
	sess, eventID, ok := parseEvent(c)
	if !ok {
		return
	}

	// The body is optional: an empty request commits the stored draft.
	var input dto.CommitInput
	if err := c.ShouldBindJSON(&input); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	sheet, err := h.attendanceService.Commit(c.Request.Context(), sess.Principal, eventID, input.Marks)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": sheet})
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
