package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"chatroom-service/internal/middleware"
	"chatroom-service/internal/models"
	"chatroom-service/internal/repositories"
)

// AccessChecker decides whether a user may enter a room.
type AccessChecker interface {
	CanAccess(ctx context.Context, room models.Room, userID int) (bool, error)
}

// RoomHandler manages chatroom endpoints.
type RoomHandler struct {
	rooms       repositories.RoomRepository
	messages    repositories.MessageRepository
	invitations repositories.InvitationRepository
	users       repositories.UserRepository
	access      AccessChecker
}

// NewRoomHandler builds a RoomHandler.
func NewRoomHandler(rooms repositories.RoomRepository, messages repositories.MessageRepository, invitations repositories.InvitationRepository, users repositories.UserRepository, access AccessChecker) *RoomHandler {
	return &RoomHandler{
		rooms:       rooms,
		messages:    messages,
		invitations: invitations,
		users:       users,
		access:      access,
	}
}

// CreateRoom creates a new chatroom owned by the caller.
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	var req struct {
		Name           string `json:"name" binding:"required,max=80"`
		InvitationOnly bool   `json:"invitation_only"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetInt(middleware.UserIDKey)
	room, err := h.rooms.CreateRoom(c.Request.Context(), req.Name, userID, req.InvitationOnly)
	if err != nil {
		if errors.Is(err, repositories.ErrRoomNameTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": "a room with this name already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create room"})
		return
	}

	c.JSON(http.StatusCreated, room)
}

// ListRooms returns every room together with the caller's pending invitations.
func (h *RoomHandler) ListRooms(c *gin.Context) {
	userID := c.GetInt(middleware.UserIDKey)

	rooms, err := h.rooms.ListRooms(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load rooms"})
		return
	}

	pending, err := h.invitations.ListPendingForUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load invitations"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"rooms": rooms, "pending_invitations": pending})
}

// JoinRoom persists the caller's membership in a room. Joining twice is a
// no-op. The same access rule guards this endpoint and the websocket join.
func (h *RoomHandler) JoinRoom(c *gin.Context) {
	room, ok := h.accessibleRoom(c)
	if !ok {
		return
	}

	userID := c.GetInt(middleware.UserIDKey)
	if err := h.rooms.AddMember(c.Request.Context(), room.ID, userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to join room"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "joined", "room_id": room.ID})
}

// GetRoomMessages returns the full ordered history for a room.
func (h *RoomHandler) GetRoomMessages(c *gin.Context) {
	room, ok := h.accessibleRoom(c)
	if !ok {
		return
	}

	msgs, err := h.messages.RoomMessages(c.Request.Context(), room.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}

	senderIDs := make([]int, 0, len(msgs))
	seen := map[int]struct{}{}
	for _, m := range msgs {
		if _, ok := seen[m.SenderID]; !ok {
			seen[m.SenderID] = struct{}{}
			senderIDs = append(senderIDs, m.SenderID)
		}
	}

	names, err := h.users.UsernamesByIDs(c.Request.Context(), senderIDs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load senders"})
		return
	}

	type messageResponse struct {
		models.Message
		SenderUsername string `json:"sender_username,omitempty"`
		Timestamp      string `json:"timestamp"`
	}

	resp := make([]messageResponse, 0, len(msgs))
	for _, m := range msgs {
		resp = append(resp, messageResponse{
			Message:        m,
			SenderUsername: names[m.SenderID],
			Timestamp:      m.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}

	c.JSON(http.StatusOK, gin.H{"room": room, "messages": resp})
}

// accessibleRoom loads the room from the path parameter and enforces the
// access rule, writing the error response itself when the caller may not
// proceed.
func (h *RoomHandler) accessibleRoom(c *gin.Context) (models.Room, bool) {
	roomID, err := strconv.Atoi(c.Param("room_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return models.Room{}, false
	}

	room, err := h.rooms.GetRoom(c.Request.Context(), roomID)
	if err != nil {
		if errors.Is(err, repositories.ErrRoomNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
			return models.Room{}, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load room"})
		return models.Room{}, false
	}

	userID := c.GetInt(middleware.UserIDKey)
	allowed, err := h.access.CanAccess(c.Request.Context(), room, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to check access"})
		return models.Room{}, false
	}
	if !allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": "this room is invitation-only"})
		return models.Room{}, false
	}
	return room, true
}
