package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"chatroom-service/internal/auth"
	"chatroom-service/internal/repositories"
	"chatroom-service/internal/telemetry"
)

// AuthHandler manages signup and login.
type AuthHandler struct {
	users repositories.UserRepository
	jwt   *auth.JWTManager
	audit *telemetry.AuditEmitter
}

// NewAuthHandler builds an AuthHandler.
func NewAuthHandler(users repositories.UserRepository, jwt *auth.JWTManager, audit *telemetry.AuditEmitter) *AuthHandler {
	return &AuthHandler{users: users, jwt: jwt, audit: audit}
}

type credentialsRequest struct {
	Username string `json:"username" binding:"required,min=3,max=80"`
	Password string `json:"password" binding:"required,min=6"`
}

// Signup registers a new account.
func (h *AuthHandler) Signup(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to hash password"})
		return
	}

	user, err := h.users.CreateUser(c.Request.Context(), req.Username, hash)
	if err != nil {
		if errors.Is(err, repositories.ErrUsernameTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": "username already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create account"})
		return
	}

	h.audit.Emit(c.Request.Context(), "INFO", "account created", requestIDFromContext(c), auditUserID(user.ID))
	c.JSON(http.StatusCreated, user)
}

// Login verifies credentials and issues a session token. The display color is
// drawn fresh for every login and travels inside the token, so each session
// keeps one color for its lifetime.
func (h *AuthHandler) Login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.GetUserByUsername(c.Request.Context(), req.Username)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load account"})
		return
	}

	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	color := auth.SessionColor()
	token, err := h.jwt.Generate(user.ID, user.Username, color)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}

	h.audit.Emit(c.Request.Context(), "INFO", "user logged in", requestIDFromContext(c), auditUserID(user.ID))
	c.JSON(http.StatusOK, gin.H{"token": token, "color": color, "user": user})
}
