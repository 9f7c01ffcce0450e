package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"chatroom-service/internal/models"
)

var (
	ErrRoomNotFound  = errors.New("room not found")
	ErrRoomNameTaken = errors.New("room name already taken")
)

// RoomRepository abstracts chatroom persistence.
type RoomRepository interface {
	CreateRoom(ctx context.Context, name string, ownerID int, invitationOnly bool) (models.Room, error)
	GetRoom(ctx context.Context, roomID int) (models.Room, error)
	ListRooms(ctx context.Context) ([]models.Room, error)
	AddMember(ctx context.Context, roomID int, userID int) error
	IsMember(ctx context.Context, roomID int, userID int) (bool, error)
}

// RoomRepo is a sqlx implementation of RoomRepository.
type RoomRepo struct {
	db *sqlx.DB
}

// NewRoomRepo constructs a RoomRepo.
func NewRoomRepo(db *sqlx.DB) *RoomRepo {
	return &RoomRepo{db: db}
}

// CreateRoom inserts a new room. Room names are unique across the service.
func (r *RoomRepo) CreateRoom(ctx context.Context, name string, ownerID int, invitationOnly bool) (models.Room, error) {
	var room models.Room
	err := r.db.QueryRowxContext(ctx, `INSERT INTO chatrooms (name, owner_id, invitation_only) VALUES ($1, $2, $3) RETURNING id, name, owner_id, invitation_only, created_at`, name, ownerID, invitationOnly).
		Scan(&room.ID, &room.Name, &room.OwnerID, &room.InvitationOnly, &room.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return models.Room{}, ErrRoomNameTaken
		}
		return models.Room{}, err
	}
	return room, nil
}

// GetRoom fetches a room by id.
func (r *RoomRepo) GetRoom(ctx context.Context, roomID int) (models.Room, error) {
	var room models.Room
	err := r.db.GetContext(ctx, &room, `SELECT id, name, owner_id, invitation_only, created_at FROM chatrooms WHERE id=$1`, roomID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Room{}, ErrRoomNotFound
	}
	return room, err
}

// ListRooms returns every room, newest first.
func (r *RoomRepo) ListRooms(ctx context.Context) ([]models.Room, error) {
	var rooms []models.Room
	err := r.db.SelectContext(ctx, &rooms, `SELECT id, name, owner_id, invitation_only, created_at FROM chatrooms ORDER BY created_at DESC`)
	return rooms, err
}

// AddMember persists a user-room link. Joining a room twice is a no-op.
func (r *RoomRepo) AddMember(ctx context.Context, roomID int, userID int) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO user_chatroom_link (user_id, chatroom_id) VALUES ($1, $2)
        ON CONFLICT (user_id, chatroom_id) DO NOTHING`, userID, roomID)
	return err
}

// IsMember checks whether a user has joined the room.
func (r *RoomRepo) IsMember(ctx context.Context, roomID int, userID int) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM user_chatroom_link WHERE chatroom_id=$1 AND user_id=$2)`, roomID, userID)
	return exists, err
}
