package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	ctxUserID = "user_id"
	ctxRole   = "role"
)

// UserID returns the authenticated user's id from the gin context.
func UserID(c *gin.Context) string {
	return c.GetString(ctxUserID)
}

// Role returns the authenticated user's role from the gin context.
func Role(c *gin.Context) string {
	return c.GetString(ctxRole)
}

// RequireAuth verifies the Bearer token and stores the identity in the
// context for downstream handlers.
func RequireAuth(uc *UseCase) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "access denied, no token provided"})
			return
		}

		claims, err := uc.ParseToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(ctxUserID, claims.Subject)
		c.Set(ctxRole, claims.Role)
		c.Next()
	}
}

// RequireRoles rejects callers whose role is not in the allow list. It must
// run after RequireAuth.
func RequireRoles(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		if !allowed[Role(c)] {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "access denied"})
			return
		}
		c.Next()
	}
}
