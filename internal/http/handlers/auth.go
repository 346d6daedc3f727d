package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mlopez-dev/authhub/internal/audit"
	"github.com/mlopez-dev/authhub/internal/auth"
	"github.com/mlopez-dev/authhub/internal/config"
	"github.com/mlopez-dev/authhub/internal/domain/user"
	"github.com/mlopez-dev/authhub/internal/http/middlewares"
	"github.com/mlopez-dev/authhub/internal/repo/postgres"
	"github.com/mlopez-dev/authhub/internal/security"
)

type UserReader interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
}

type UserWriter interface {
	Create(ctx context.Context, email, passwordHash, name, role string) (user.User, error)
}

type SessionMinter interface {
	MintSession(s auth.Session) (string, error)
}

type AuthHandler struct {
	users      UserReader
	userWriter UserWriter
	jwt        SessionMinter
	recorder   *audit.Recorder
	cfg        config.Config
}

func NewAuthHandler(users UserReader, userWriter UserWriter, jwt SessionMinter, recorder *audit.Recorder, cfg config.Config) *AuthHandler {
	return &AuthHandler{
		users:      users,
		userWriter: userWriter,
		jwt:        jwt,
		recorder:   recorder,
		cfg:        cfg,
	}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name" binding:"required"`
}

func (h *AuthHandler) Register(ctx *gin.Context) {
	var req RegisterRequest

	if !BindJSON(ctx, &req) {
		return
	}

	// same policy kind as the reset path
	if err := security.ValidateNewPassword(req.Password, h.cfg.PasswordMinLen); err != nil {
		RespondError(ctx, http.StatusBadRequest, "weak_password",
			fmt.Sprintf("Password must be at least %d characters long", security.PolicyMinLength(h.cfg.PasswordMinLen)), nil)
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	hash, err := security.HashPassword(req.Password)

	if err != nil {
		RespondInternal(ctx, "Could not create user")
		return
	}

	// default role for new users

	u, err := h.userWriter.Create(cctx, req.Email, hash, req.Name, user.RoleUser)

	if err != nil {
		if err == postgres.ErrEmailAlreadyUsed {
			RespondConflict(ctx, "email_taken", "Email is already in use.")
			return
		}

		RespondInternal(ctx, "Could not create user")
		return
	}

	h.recorder.Record(ctx.Request.Context(), u.Email, audit.ActionUserRegistered,
		fmt.Sprintf("New account registered for %s", u.Email), audit.SeverityLow)

	token, err := h.mintFor(u)

	if err != nil {
		RespondInternal(ctx, "Could not create session")
		return
	}

	h.setSessionCookie(ctx, token)

	ctx.JSON(http.StatusCreated, gin.H{
		"user":         u.Public(),
		"sessionToken": token,
	})
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}
	// short timeout for DB lookup
	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	foundUser, err := h.users.GetByEmail(cctx, req.Email)
	if err != nil {
		// unknown email and wrong password answer identically; a store
		// failure is not a credential verdict and must not look like one
		if errors.Is(err, postgres.ErrUserNotFound) {
			RespondUnAuthorized(ctx, "invalid_credentials", "Email or password is incorrect.")
			return
		}
		RespondInternal(ctx, "Could not log in")
		return
	}

	// federated accounts carry no hash and cannot use password login
	if !foundUser.HasPassword() {
		RespondUnAuthorized(ctx, "invalid_credentials", "Email or password is incorrect.")
		return
	}

	err = security.CheckPassword(foundUser.PasswordHash, req.Password)

	if err != nil {
		RespondUnAuthorized(ctx, "invalid_credentials", "Email or password is incorrect.")
		return
	}

	token, err := h.mintFor(foundUser)

	if err != nil {
		RespondInternal(ctx, "Could not create session")
		return
	}

	h.recorder.Record(ctx.Request.Context(), foundUser.Email, audit.ActionUserLogin,
		fmt.Sprintf("Successful login for %s", foundUser.Email), audit.SeverityLow)

	h.setSessionCookie(ctx, token)

	ctx.JSON(http.StatusOK, gin.H{
		"user":         foundUser.Public(),
		"sessionToken": token,
	})
}

// Logout clears the cookie and records the event. Sessions are stateless,
// so there is nothing server-side to invalidate.
func (h *AuthHandler) Logout(ctx *gin.Context) {
	if s, ok := middlewares.SessionFromContext(ctx); ok {
		h.recorder.Record(ctx.Request.Context(), s.Email, audit.ActionUserLogout,
			fmt.Sprintf("Sign-out for %s", s.Email), audit.SeverityLow)
	}

	h.clearSessionCookie(ctx)
	ctx.Status(http.StatusNoContent)
}

// Me echoes the session claims as minted, not the current DB state.
func (h *AuthHandler) Me(ctx *gin.Context) {
	s, ok := middlewares.SessionFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthenticated", "Please log in")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"id":       s.ID,
		"name":     s.Name,
		"email":    s.Email,
		"role":     s.Role,
		"provider": s.Provider,
	})
}

// Helper functions

func (h *AuthHandler) mintFor(u user.User) (string, error) {
	return h.jwt.MintSession(auth.Session{
		ID:       u.ID,
		Name:     u.Name,
		Email:    u.Email,
		Role:     u.EffectiveRole(),
		Provider: u.Provider,
	})
}

func (h *AuthHandler) setSessionCookie(ctx *gin.Context, token string) {
	secure := h.cfg.Env == "prod"

	maxAge := int(h.cfg.SessionTTL.Seconds())

	ctx.SetSameSite(http.SameSiteLaxMode)

	ctx.SetCookie(
		middlewares.SessionCookieName,
		token,
		maxAge,
		"/",
		"",
		secure,
		true, // HttpOnly.
	)
}

func (h *AuthHandler) clearSessionCookie(ctx *gin.Context) {
	secure := h.cfg.Env == "prod"
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(
		middlewares.SessionCookieName,
		"",
		-1,
		"/",
		"",
		secure,
		true,
	)
}
