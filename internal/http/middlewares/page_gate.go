package middlewares

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/mlopez-dev/authhub/internal/domain/user"
)

// Page-level gate. Unlike the API gate it answers with redirects:
// unauthenticated visitors land on the login page with the original path
// preserved as a callback target, authenticated non-admins asking for an
// admin page bounce to the dashboard.

func (m *AuthMiddleware) RequirePage() gin.HandlerFunc {
	return func(c *gin.Context) {
		_, ok := SessionFromContext(c)

		if !ok {
			redirectToLogin(c)
			return
		}

		c.Next()
	}
}

func (m *AuthMiddleware) RequireAdminPage() gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := SessionFromContext(c)

		if !ok {
			redirectToLogin(c)
			return
		}

		if s.Role != user.RoleAdmin {
			c.Redirect(http.StatusFound, "/dashboard")
			c.Abort()
			return
		}

		c.Next()
	}
}

func redirectToLogin(c *gin.Context) {
	target := "/login?callbackUrl=" + url.QueryEscape(c.Request.URL.Path)

	c.Redirect(http.StatusFound, target)
	c.Abort()
}
