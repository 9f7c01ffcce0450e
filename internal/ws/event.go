package ws

import (
	"time"

	"chatroom-service/internal/models"
)

// Outbound event types.
const (
	EventReceiveMessage = "receive_message"
	EventError          = "error"
)

// Error codes attached to rejection events. A rejection only ever reaches the
// connection that caused it.
const (
	CodeValidation   = "validation_error"
	CodeRoomNotFound = "room_not_found"
	CodeUnauthorized = "unauthorized"
	CodeNotJoined    = "not_joined"
	CodePersistence  = "persistence_error"
)

// noticeColor is the neutral color used for join/leave system notices.
const noticeColor = "#999999"

const eventTimeLayout = "2006-01-02 15:04:05"

// Event is the payload written to room members.
type Event struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	Username  string `json:"username,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Color     string `json:"color,omitempty"`
	Code      string `json:"code,omitempty"`
}

// NewMessageEvent shapes a persisted chat message for delivery, carrying the
// sender's session color.
func NewMessageEvent(msg models.Message, username string, color string) Event {
	return Event{
		Type:      EventReceiveMessage,
		Message:   msg.Body,
		Username:  username,
		Timestamp: msg.CreatedAt.Format(eventTimeLayout),
		Color:     color,
	}
}

// NewNoticeEvent shapes a system notice such as a join or leave announcement.
func NewNoticeEvent(text string, at time.Time) Event {
	return Event{
		Type:      EventReceiveMessage,
		Message:   text,
		Timestamp: at.Format(eventTimeLayout),
		Color:     noticeColor,
	}
}

// NewErrorEvent shapes a rejection for the offending connection.
func NewErrorEvent(code string, text string) Event {
	return Event{
		Type:    EventError,
		Message: text,
		Code:    code,
	}
}
