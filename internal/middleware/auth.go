package middleware

import (
	"net/http"
	"strings"

	"github.com/bppowerplay/portal/internal/repository"
	"github.com/bppowerplay/portal/pkg/auth"
	"github.com/gin-gonic/gin"
)

// SessionMiddleware validates session tokens and checks the session record is
// still persisted. A logged-out, expired, or superseded session leaves no
// record behind, so its token stops working here.
func SessionMiddleware(tokens *auth.TokenManager, sessions *repository.SessionRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization format. Use: Bearer <token>"})
			return
		}

		claims, err := tokens.Validate(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		session, err := sessions.GetSession(c.Request.Context())
		if err != nil {
			// Store error: fail closed, never grant access on ambiguity.
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Auth server error"})
			return
		}
		if session == nil || session.DeviceID != claims.DeviceID || session.Email != claims.Email {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Session is no longer active"})
			return
		}

		c.Set("account_id", claims.AccountID)
		c.Set("email", claims.Email)
		c.Set("device_id", claims.DeviceID)

		c.Next()
	}
}
