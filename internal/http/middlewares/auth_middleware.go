package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mlopez-dev/authhub/internal/actorctx"
	"github.com/mlopez-dev/authhub/internal/auth"
)

// Keep this small interface so tests can fake it easily.
type SessionVerifier interface {
	VerifySession(token string) (auth.Session, error)
}

type AuthMiddleware struct {
	jwt SessionVerifier
}

func NewAuthMiddleware(jwt SessionVerifier) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt}
}

// tokenFrom prefers the session cookie (browser clients) and falls back to
// a bearer header (API clients).
func tokenFrom(c *gin.Context) string {
	if raw, err := c.Cookie(SessionCookieName); err == nil && raw != "" {
		return raw
	}

	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
	}

	return ""
}

// resolve derives the request's session, if any. An expired or tampered
// token is treated exactly like an absent one.
func (m *AuthMiddleware) resolve(c *gin.Context) (auth.Session, bool) {
	raw := tokenFrom(c)
	if raw == "" {
		return auth.Session{}, false
	}

	s, err := m.jwt.VerifySession(raw)
	if err != nil {
		return auth.Session{}, false
	}

	return s, true
}

// Identify stashes the session on the context when present, without
// demanding one. Page handlers and the audit trail read it from there.
func (m *AuthMiddleware) Identify() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s, ok := m.resolve(c); ok {
			c.Set(CtxSession, s)

			reqCtx := actorctx.WithActor(c.Request.Context(), s.Email, c.ClientIP(), c.Request.UserAgent())
			c.Request = c.Request.WithContext(reqCtx)
		} else {
			reqCtx := actorctx.WithActor(c.Request.Context(), "", c.ClientIP(), c.Request.UserAgent())
			c.Request = c.Request.WithContext(reqCtx)
		}

		c.Next()
	}
}

// RequireAuth aborts with a distinct unauthenticated outcome when no valid
// session is presented.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
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

		_ = s
		c.Next()
	}
}

func SessionFromContext(c *gin.Context) (auth.Session, bool) {
	v, ok := c.Get(CtxSession)
	if !ok {
		return auth.Session{}, false
	}

	s, ok := v.(auth.Session)
	return s, ok
}
