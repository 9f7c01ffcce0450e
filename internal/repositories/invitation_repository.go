package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"chatroom-service/internal/models"
)

var (
	ErrInvitationNotFound = errors.New("invitation not found")
	ErrInvitationResolved = errors.New("invitation already responded to")
)

// InvitationRepository abstracts invitation persistence.
type InvitationRepository interface {
	CreateInvitation(ctx context.Context, roomID int, inviteeID int, inviterID int) (models.Invitation, error)
	GetInvitation(ctx context.Context, invitationID int) (models.Invitation, error)
	ListPendingForUser(ctx context.Context, userID int) ([]models.Invitation, error)
	SetStatus(ctx context.Context, invitationID int, status string) error
	HasAcceptedInvitation(ctx context.Context, roomID int, userID int) (bool, error)
}

// InvitationRepo is a sqlx implementation of InvitationRepository.
type InvitationRepo struct {
	db *sqlx.DB
}

// NewInvitationRepo constructs an InvitationRepo.
func NewInvitationRepo(db *sqlx.DB) *InvitationRepo {
	return &InvitationRepo{db: db}
}

// CreateInvitation records a pending invitation.
func (r *InvitationRepo) CreateInvitation(ctx context.Context, roomID int, inviteeID int, inviterID int) (models.Invitation, error) {
	var inv models.Invitation
	err := r.db.QueryRowxContext(ctx, `INSERT INTO invitations (chatroom_id, invitee_id, inviter_id, status) VALUES ($1, $2, $3, $4) RETURNING id, chatroom_id, invitee_id, inviter_id, status, created_at`,
		roomID, inviteeID, inviterID, models.InvitationPending).
		Scan(&inv.ID, &inv.RoomID, &inv.InviteeID, &inv.InviterID, &inv.Status, &inv.CreatedAt)
	return inv, err
}

// GetInvitation fetches an invitation by id.
func (r *InvitationRepo) GetInvitation(ctx context.Context, invitationID int) (models.Invitation, error) {
	var inv models.Invitation
	err := r.db.GetContext(ctx, &inv, `SELECT id, chatroom_id, invitee_id, inviter_id, status, created_at FROM invitations WHERE id=$1`, invitationID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Invitation{}, ErrInvitationNotFound
	}
	return inv, err
}

// ListPendingForUser returns invitations awaiting the user's response.
func (r *InvitationRepo) ListPendingForUser(ctx context.Context, userID int) ([]models.Invitation, error) {
	var invs []models.Invitation
	err := r.db.SelectContext(ctx, &invs, `SELECT id, chatroom_id, invitee_id, inviter_id, status, created_at FROM invitations
        WHERE invitee_id=$1 AND status=$2 ORDER BY created_at DESC`, userID, models.InvitationPending)
	return invs, err
}

// SetStatus resolves a pending invitation. Resolving twice fails.
func (r *InvitationRepo) SetStatus(ctx context.Context, invitationID int, status string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE invitations SET status=$1 WHERE id=$2 AND status=$3`, status, invitationID, models.InvitationPending)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrInvitationResolved
	}
	return nil
}

// HasAcceptedInvitation checks whether the user holds an accepted invitation
// for the room.
func (r *InvitationRepo) HasAcceptedInvitation(ctx context.Context, roomID int, userID int) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM invitations WHERE chatroom_id=$1 AND invitee_id=$2 AND status=$3)`,
		roomID, userID, models.InvitationAccepted)
	return exists, err
}
