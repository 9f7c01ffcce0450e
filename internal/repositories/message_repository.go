package repositories

import (
	"context"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"chatroom-service/internal/models"
)

var ErrEmptyMessageBody = errors.New("message body is empty")

// MessageRepository persists chat messages and answers ordered-history queries.
type MessageRepository interface {
	AppendMessage(ctx context.Context, roomID int, senderID int, body string) (models.Message, error)
	RoomMessages(ctx context.Context, roomID int) ([]models.Message, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// AppendMessage stores a message in a room. The returned row carries the
// server-assigned id and timestamp; a broadcast must only happen after this
// call succeeds.
func (r *MessageRepo) AppendMessage(ctx context.Context, roomID int, senderID int, body string) (models.Message, error) {
	if strings.TrimSpace(body) == "" {
		return models.Message{}, ErrEmptyMessageBody
	}

	var msg models.Message
	err := r.db.QueryRowxContext(ctx, `INSERT INTO messages (chatroom_id, sender_id, body) VALUES ($1, $2, $3) RETURNING id, chatroom_id, sender_id, body, created_at`, roomID, senderID, body).
		Scan(&msg.ID, &msg.RoomID, &msg.SenderID, &msg.Body, &msg.CreatedAt)
	if err != nil {
		return models.Message{}, mapMessageInsertError(err)
	}
	return msg, nil
}

// RoomMessages returns all messages for a room, oldest first; equal timestamps
// fall back to insertion order.
func (r *MessageRepo) RoomMessages(ctx context.Context, roomID int) ([]models.Message, error) {
	query := `SELECT id, chatroom_id, sender_id, body, created_at
        FROM messages
        WHERE chatroom_id=$1
        ORDER BY created_at ASC, id ASC`
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs, query, roomID)
	return msgs, err
}

// mapMessageInsertError translates foreign-key violations into domain errors
// so callers can tell a missing room or sender apart from a store failure.
func mapMessageInsertError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "foreign_key_violation" {
		if strings.Contains(pqErr.Constraint, "chatroom") {
			return ErrRoomNotFound
		}
		return ErrUserNotFound
	}
	return err
}
