package dto

type ListNotificationsQuery struct {
	Limit  int `form:"limit" binding:"omitempty,min=1,max=100"`
	Offset int `form:"offset" binding:"omitempty,min=0"`
}

type RegisterDeviceRequest struct {
	Token    string `json:"token" binding:"required,max=255"`
	Platform string `json:"platform" binding:"omitempty,oneof=android ios web"`
}

type UnregisterDeviceRequest struct {
	Token string `json:"token" binding:"required"`
}

const (
	ActionMarkRead    = "mark_read"
	ActionMarkAllRead = "mark_all_read"
)

// InboxCommand is a message a client sends over the notifications websocket.
type InboxCommand struct {
	Action string `json:"action"`
	ID     string `json:"id,omitempty"`
}
