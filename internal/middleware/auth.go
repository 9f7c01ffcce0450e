package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"chatroom-service/internal/auth"
)

// Context keys populated by AuthMiddleware.
const (
	UserIDKey   = "userID"
	UsernameKey = "username"
	ColorKey    = "color"
)

// AuthMiddleware validates the session token and stores the session identity
// in the request context. Websocket handshakes cannot set headers from the
// browser, so a `token` query parameter is accepted as a fallback.
func AuthMiddleware(jwtManager *auth.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := tokenFromRequest(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}

		claims, err := jwtManager.Verify(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(UsernameKey, claims.Username)
		c.Set(ColorKey, claims.Color)
		c.Next()
	}
}

func tokenFromRequest(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
		return ""
	}
	return c.Query("token")
}
