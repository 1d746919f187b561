package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	enrollService "github.com/veertikothari/campustrack/internal/modules/enrollment/service"
	"github.com/veertikothari/campustrack/internal/session"
	"github.com/veertikothari/campustrack/pkg/apperror"
	"github.com/veertikothari/campustrack/pkg/response"
)

type EnrollmentHandler struct {
	enrollmentService enrollService.EnrollmentService
}

func NewEnrollmentHandler(enrollmentService enrollService.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollmentService: enrollmentService}
}

func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	sess, eventID, ok := h.parse(c)
	if !ok {
		return
	}

	enrollment, err := h.enrollmentService.Enroll(c.Request.Context(), sess.Principal, eventID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": enrollment})
}

func (h *EnrollmentHandler) Unenroll(c *gin.Context) {
	sess, eventID, ok := h.parse(c)
	if !ok {
		return
	}

	if err := h.enrollmentService.Unenroll(c.Request.Context(), sess.Principal, eventID); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "unenrolled successfully"})
}

func (h *EnrollmentHandler) MyEnrollments(c *gin.Context) {
	sess, ok := session.Current(c)
	if !ok {
		response.ResponseError(c, apperror.ErrUnauthorized)
		return
	}

	enrollments, err := h.enrollmentService.MyEnrollments(c.Request.Context(), sess.Principal)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": enrollments})
}

func (h *EnrollmentHandler) EventEnrollments(c *gin.Context) {
	sess, eventID, ok := h.parse(c)
	if !ok {
		return
	}

	enrollments, err := h.enrollmentService.EventEnrollments(c.Request.Context(), sess.Principal, eventID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": enrollments})
}

func (h *EnrollmentHandler) parse(c *gin.Context) (*session.Session, uuid.UUID, bool) {
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
