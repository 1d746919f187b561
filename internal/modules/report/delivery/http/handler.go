package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/veertikothari/campustrack/internal/modules/report/dto"
	reportService "github.com/veertikothari/campustrack/internal/modules/report/service"
	"github.com/veertikothari/campustrack/internal/session"
	"github.com/veertikothari/campustrack/pkg/apperror"
	"github.com/veertikothari/campustrack/pkg/response"
	"github.com/veertikothari/campustrack/pkg/validator"
)

type ReportHandler struct {
	reportService reportService.ReportService
}

func NewReportHandler(reportService reportService.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

func (h *ReportHandler) Generate(c *gin.Context) {
	sess, eventID, ok := parseEvent(c)
	if !ok {
		return
	}

	var input dto.GenerateReportInput
	if err := c.ShouldBindJSON(&input); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	res, err := h.reportService.Generate(c.Request.Context(), sess.Principal, eventID, input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"data": res})
}

func (h *ReportHandler) Get(c *gin.Context) {
	sess, eventID, ok := parseEvent(c)
	if !ok {
		return
	}

	report, err := h.reportService.FetchExisting(c.Request.Context(), sess.Principal, eventID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": report})
}

func (h *ReportHandler) Export(c *gin.Context) {
	sess, eventID, ok := parseEvent(c)
	if !ok {
		return
	}

	data, name, contentType, err := h.reportService.Export(c.Request.Context(), sess.Principal, eventID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, contentType, data)
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
