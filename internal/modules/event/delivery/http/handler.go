package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/veertikothari/campustrack/internal/modules/event/dto"
	eventService "github.com/veertikothari/campustrack/internal/modules/event/service"
	"github.com/veertikothari/campustrack/internal/session"
	"github.com/veertikothari/campustrack/pkg/apperror"
	"github.com/veertikothari/campustrack/pkg/response"
	"github.com/veertikothari/campustrack/pkg/validator"
)

type EventHandler struct {
	eventService eventService.EventService
}

func NewEventHandler(eventService eventService.EventService) *EventHandler {
	return &EventHandler{eventService: eventService}
}

func (h *EventHandler) CreateEvent(c *gin.Context) {
	sess, ok := session.Current(c)
	if !ok {
		response.ResponseError(c, apperror.ErrUnauthorized)
		return
	}

	var input dto.CreateEventInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	event, err := h.eventService.Create(c.Request.Context(), sess.Principal, input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": event})
}

func (h *EventHandler) ListEvents(c *gin.Context) {
	sess, ok := session.Current(c)
	if !ok {
		response.ResponseError(c, apperror.ErrUnauthorized)
		return
	}

	events, err := h.eventService.List(c.Request.Context(), sess.Principal)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": events})
}

func (h *EventHandler) GetEvent(c *gin.Context) {
	sess, ok := session.Current(c)
	if !ok {
		response.ResponseError(c, apperror.ErrUnauthorized)
		return
	}

	id, err := uuid.Parse(c.Param("event_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid event ID"})
		return
	}

	event, err := h.eventService.Get(c.Request.Context(), sess.Principal, id)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": event})
}

func (h *EventHandler) SearchEvents(c *gin.Context) {
	sess, ok := session.Current(c)
	if !ok {
		response.ResponseError(c, apperror.ErrUnauthorized)
		return
	}

	var query dto.SearchEventsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	events, err := h.eventService.Search(c.Request.Context(), sess.Principal, query.Q)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": events})
}
