package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequireRole re-derives the role from the verified session on every call,
// independent of any page-level gate. Unauthenticated and forbidden stay
// distinguishable outcomes.
func (m *AuthMiddleware) RequireRole(required string) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := SessionFromContext(c)

		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "unauthenticated",
					"message": "Please log in",
				},
			})
			return
		}

		if s.Role != required {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": gin.H{
					"code":    "forbidden",
					"message": "Admin role required",
				},
			})
			return
		}
		c.Next()
	}
}
