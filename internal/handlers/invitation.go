package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"chatroom-service/internal/middleware"
	"chatroom-service/internal/models"
	"chatroom-service/internal/repositories"
	"chatroom-service/internal/telemetry"
)

// InvitationHandler manages room invitations.
type InvitationHandler struct {
	invitations repositories.InvitationRepository
	rooms       repositories.RoomRepository
	users       repositories.UserRepository
	audit       *telemetry.AuditEmitter
}

// NewInvitationHandler builds an InvitationHandler.
func NewInvitationHandler(invitations repositories.InvitationRepository, rooms repositories.RoomRepository, users repositories.UserRepository, audit *telemetry.AuditEmitter) *InvitationHandler {
	return &InvitationHandler{invitations: invitations, rooms: rooms, users: users, audit: audit}
}

// Invite creates a pending invitation. Only the room owner may invite; the
// invitee is addressed by username.
func (h *InvitationHandler) Invite(c *gin.Context) {
	var req struct {
		RoomID          int    `json:"room_id" binding:"required"`
		InviteeUsername string `json:"invitee_username" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	room, err := h.rooms.GetRoom(c.Request.Context(), req.RoomID)
	if err != nil {
		if errors.Is(err, repositories.ErrRoomNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load room"})
		return
	}

	userID := c.GetInt(middleware.UserIDKey)
	if room.OwnerID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "only the room owner can invite users"})
		return
	}

	invitee, err := h.users.GetUserByUsername(c.Request.Context(), req.InviteeUsername)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load user"})
		return
	}

	inv, err := h.invitations.CreateInvitation(c.Request.Context(), room.ID, invitee.ID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create invitation"})
		return
	}

	h.audit.Emit(c.Request.Context(), "INFO", "invitation sent", requestIDFromContext(c), auditUserID(userID))
	c.JSON(http.StatusCreated, inv)
}

// ListInvitations returns the caller's pending invitations.
func (h *InvitationHandler) ListInvitations(c *gin.Context) {
	userID := c.GetInt(middleware.UserIDKey)

	pending, err := h.invitations.ListPendingForUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load invitations"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"invitations": pending})
}

// Respond resolves a pending invitation. Only the invitee may respond, and
// only once.
func (h *InvitationHandler) Respond(c *gin.Context) {
	invitationID, err := strconv.Atoi(c.Param("invitation_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid invitation id"})
		return
	}

	var req struct {
		Response string `json:"response" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var status string
	switch req.Response {
	case "accept":
		status = models.InvitationAccepted
	case "decline":
		status = models.InvitationDeclined
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "response must be accept or decline"})
		return
	}

	inv, err := h.invitations.GetInvitation(c.Request.Context(), invitationID)
	if err != nil {
		if errors.Is(err, repositories.ErrInvitationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "invitation not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load invitation"})
		return
	}

	userID := c.GetInt(middleware.UserIDKey)
	if inv.InviteeID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "not your invitation"})
		return
	}

	if err := h.invitations.SetStatus(c.Request.Context(), invitationID, status); err != nil {
		if errors.Is(err, repositories.ErrInvitationResolved) {
			c.JSON(http.StatusConflict, gin.H{"error": "invitation already responded to"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update invitation"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": status, "room_id": inv.RoomID})
}
