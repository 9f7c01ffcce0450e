package ws

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"chatroom-service/internal/models"
)

func TestNewMessageEvent(t *testing.T) {
	created := time.Date(2024, 5, 12, 9, 30, 15, 0, time.UTC)
	msg := models.Message{ID: 7, RoomID: 1, SenderID: 2, Body: "hi", CreatedAt: created}

	event := NewMessageEvent(msg, "Alice", "#3366ff")

	assert.Equal(t, EventReceiveMessage, event.Type)
	assert.Equal(t, "hi", event.Message)
	assert.Equal(t, "Alice", event.Username)
	assert.Equal(t, "#3366ff", event.Color)
	assert.Equal(t, "2024-05-12 09:30:15", event.Timestamp)
	assert.Empty(t, event.Code)
}

func TestNewNoticeEventUsesNeutralColor(t *testing.T) {
	at := time.Date(2024, 5, 12, 9, 31, 0, 0, time.UTC)

	event := NewNoticeEvent("Alice has joined the chat.", at)

	assert.Equal(t, EventReceiveMessage, event.Type)
	assert.Equal(t, "Alice has joined the chat.", event.Message)
	assert.Equal(t, "#999999", event.Color)
	assert.Equal(t, "2024-05-12 09:31:00", event.Timestamp)
	assert.Empty(t, event.Username)
}

func TestNewErrorEvent(t *testing.T) {
	event := NewErrorEvent(CodeValidation, "message body must not be empty")

	assert.Equal(t, EventError, event.Type)
	assert.Equal(t, CodeValidation, event.Code)
	assert.Equal(t, "message body must not be empty", event.Message)
	assert.Empty(t, event.Color)
}
