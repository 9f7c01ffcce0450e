package models

import "time"

// Room represents a named chat channel.
type Room struct {
	ID             int       `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	OwnerID        int       `db:"owner_id" json:"owner_id"`
	InvitationOnly bool      `db:"invitation_only" json:"invitation_only"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
