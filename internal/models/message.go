package models

import "time"

// Message represents a persisted chat message. Messages are immutable once written.
type Message struct {
	ID        int       `db:"id" json:"id"`
	RoomID    int       `db:"chatroom_id" json:"room_id"`
	SenderID  int       `db:"sender_id" json:"sender_id"`
	Body      string    `db:"body" json:"body"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
