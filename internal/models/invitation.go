package models

import "time"

// Invitation statuses. Transitions are only allowed out of pending.
const (
	InvitationPending  = "pending"
	InvitationAccepted = "accepted"
	InvitationDeclined = "declined"
)

// Invitation grants a user access to an invitation-only room once accepted.
type Invitation struct {
	ID        int       `db:"id" json:"id"`
	RoomID    int       `db:"chatroom_id" json:"room_id"`
	InviteeID int       `db:"invitee_id" json:"invitee_id"`
	InviterID int       `db:"inviter_id" json:"inviter_id"`
	Status    string    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
