package handler

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/veertikothari/campustrack/internal/modules/notification/dto"
	notifService "github.com/veertikothari/campustrack/internal/modules/notification/service"
	"github.com/veertikothari/campustrack/internal/session"
	"github.com/veertikothari/campustrack/pkg/response"
	"github.com/veertikothari/campustrack/pkg/validator"
)

type NotificationHandler struct {
	service  notifService.NotificationService
	upgrader websocket.Upgrader
}

func NewNotificationHandler(service notifService.NotificationService, allowedOrigins []string) *NotificationHandler {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = true
	}

	return &NotificationHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || origins[origin]
			},
		},
	}
}

// REST Endpoints

func (h *NotificationHandler) GetNotifications(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var query dto.ListNotificationsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	notifications, err := h.service.GetNotifications(c.Request.Context(), userID, query.Limit, query.Offset)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": notifications})
}

func (h *NotificationHandler) MarkAsRead(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID"})
		return
	}

	if err := h.service.MarkAsRead(c.Request.Context(), userID, id); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Marked as read"})
}

func (h *NotificationHandler) MarkAllAsRead(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	if err := h.service.MarkAllAsRead(c.Request.Context(), userID); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "All notifications marked as read"})
}

func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	count, err := h.service.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": count})
}

func (h *NotificationHandler) RegisterDevice(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var req dto.RegisterDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	if err := h.service.RegisterDevice(c.Request.Context(), userID, req.Token, req.Platform); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Device registered"})
}

func (h *NotificationHandler) UnregisterDevice(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var req dto.UnregisterDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	if err := h.service.UnregisterDevice(c.Request.Context(), userID, req.Token); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Device unregistered"})
}

// WebSocket Endpoint

// HandleWebSocket streams inbox snapshots. The feed is attached to the
// caller's session so logging out closes it.
func (h *NotificationHandler) HandleWebSocket(c *gin.Context) {
	sess, ok := session.Current(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	userID := sess.Principal.UserID

	sub, err := h.service.Subscribe(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	defer sub.Close()

	detach, err := sess.Attach(sub)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "session has ended"})
		return
	}
	defer detach()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Failed to upgrade websocket: %v", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	inbox := notifService.NewInbox(h.service, userID, notifService.DefaultPageSize)

	// gorilla/websocket allows one concurrent writer
	var writeMu sync.Mutex
	write := func(snap notifService.Snapshot) error {
		payload, err := json.Marshal(snap)
		if err != nil {
			return err
		}
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteMessage(websocket.TextMessage, payload)
	}

	// The reader applies client read marks and ends the loop when the client goes away
	go func() {
		defer cancel()
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := applyCommand(ctx, inbox, raw, write); err != nil {
				return
			}
		}
	}()

	initial, err := inbox.Refresh(ctx)
	if err != nil {
		log.Printf("Failed to load inbox for %s: %v", userID, err)
	}
	if err := write(initial); err != nil {
		return
	}

	if err := inbox.Follow(ctx, sub, write); err != nil && ctx.Err() == nil {
		log.Printf("Failed to write message to websocket: %v", err)
	}
	writeMu.Lock()
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	writeMu.Unlock()
}

// applyCommand runs one client command through the inbox, writing the
// optimistic snapshot first and the confirmed one after. Malformed commands
// are skipped; only a failed write ends the connection.
func applyCommand(ctx context.Context, inbox *notifService.Inbox, raw []byte, write func(notifService.Snapshot) error) error {
	var cmd dto.InboxCommand
	if err := json.Unmarshal(raw, &cmd); err != nil {
		log.Printf("Ignoring malformed inbox command: %v", err)
		return nil
	}

	var (
		snap notifService.Snapshot
		err  error
	)
	switch cmd.Action {
	case dto.ActionMarkRead:
		id, parseErr := uuid.Parse(cmd.ID)
		if parseErr != nil {
			log.Printf("Ignoring mark_read with invalid id %q", cmd.ID)
			return nil
		}
		var writeErr error
		snap, err = inbox.MarkRead(ctx, id, func(optimistic notifService.Snapshot) {
			writeErr = write(optimistic)
		})
		if writeErr != nil {
			return writeErr
		}
	case dto.ActionMarkAllRead:
		snap, err = inbox.MarkAllRead(ctx)
	default:
		log.Printf("Ignoring unknown inbox command %q", cmd.Action)
		return nil
	}

	if err != nil {
		log.Printf("Inbox command %s failed: %v", cmd.Action, err)
	}
	return write(snap)
}
