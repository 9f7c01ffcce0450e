package rooms

import (
	"context"

	"chatroom-service/internal/models"
	"chatroom-service/internal/repositories"
)

// AccessChecker decides whether a user may enter a room. The rule lives in
// one place so the HTTP layer and the websocket gateway cannot drift apart:
// owners always enter, open rooms admit anyone, invitation-only rooms require
// an accepted invitation.
type AccessChecker struct {
	invitations repositories.InvitationRepository
}

// NewAccessChecker constructs an AccessChecker.
func NewAccessChecker(invitations repositories.InvitationRepository) *AccessChecker {
	return &AccessChecker{invitations: invitations}
}

// CanAccess reports whether the user is allowed into the room.
func (a *AccessChecker) CanAccess(ctx context.Context, room models.Room, userID int) (bool, error) {
	if room.OwnerID == userID {
		return true, nil
	}
	if !room.InvitationOnly {
		return true, nil
	}
	return a.invitations.HasAcceptedInvitation(ctx, room.ID, userID)
}
