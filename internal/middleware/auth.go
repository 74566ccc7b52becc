package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// userIDHeader carries the authenticated user's id, set by the identity
// gateway in front of this service after it has validated the session.
const userIDHeader = "X-User-ID"

// userIDKey is the gin context key holding the current user id.
const userIDKey = "currentUserID"

// RequireUser rejects requests that carry no authenticated identity and
// stores the user id in the request context for handlers.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader(userIDHeader)
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		c.Set(userIDKey, userID)
		c.Next()
	}
}

// CurrentUserID returns the authenticated user id for the request, or ""
// when the route is not behind RequireUser.
func CurrentUserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}
