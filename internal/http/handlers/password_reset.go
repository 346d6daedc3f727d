package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mlopez-dev/authhub/internal/audit"
	"github.com/mlopez-dev/authhub/internal/config"
	"github.com/mlopez-dev/authhub/internal/domain/user"
	"github.com/mlopez-dev/authhub/internal/jobs"
	"github.com/mlopez-dev/authhub/internal/repo/postgres"
	"github.com/mlopez-dev/authhub/internal/security"
)

// genericResetMessage goes out on every reset request, found or not, so the
// response never reveals whether an account exists.
const genericResetMessage = "If an account with that email exists, a password reset link has been sent."

type ResetUserStore interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	SetResetToken(ctx context.Context, email, token string, expiresAt time.Time) error
	GetByResetToken(ctx context.Context, token string) (user.User, error)
	ConsumeResetToken(ctx context.Context, token, newPasswordHash string) (string, error)
}

type JobEnqueuer interface {
	Create(ctx context.Context, req jobs.CreateRequest) (jobs.Job, error)
}

// WorkerWaker nudges an idle mail worker after an enqueue. Optional.
type WorkerWaker interface {
	Wake(ctx context.Context) error
}

type PasswordResetHandler struct {
	store    ResetUserStore
	queue    JobEnqueuer
	waker    WorkerWaker
	recorder *audit.Recorder
	cfg      config.Config
	log      *slog.Logger
}

func NewPasswordResetHandler(store ResetUserStore, queue JobEnqueuer, waker WorkerWaker, recorder *audit.Recorder, cfg config.Config, log *slog.Logger) *PasswordResetHandler {
	return &PasswordResetHandler{
		store:    store,
		queue:    queue,
		waker:    waker,
		recorder: recorder,
		cfg:      cfg,
		log:      log,
	}
}

type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Forgot starts a reset attempt. Every branch, including store or mail
// failures after the lookup, answers with the same generic message.
func (h *PasswordResetHandler) Forgot(ctx *gin.Context) {
	var req ForgotPasswordRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	u, err := h.store.GetByEmail(cctx, req.Email)

	if err != nil {
		if !errors.Is(err, postgres.ErrUserNotFound) {
			h.log.Error("reset lookup failed", "err", err)
		}
		ctx.JSON(http.StatusOK, gin.H{"message": genericResetMessage})
		return
	}

	token, expiresAt, err := security.NewResetToken(h.cfg.ResetTokenTTL)

	if err != nil {
		h.log.Error("reset token generation failed", "err", err)
		ctx.JSON(http.StatusOK, gin.H{"message": genericResetMessage})
		return
	}

	// overwrites any outstanding token, invalidating the older link
	err = h.store.SetResetToken(cctx, u.Email, token, expiresAt)

	if err != nil {
		h.log.Error("reset token persist failed", "err", err)
		ctx.JSON(http.StatusOK, gin.H{"message": genericResetMessage})
		return
	}

	h.enqueueResetMail(cctx, ctx, u, token)

	h.recorder.Record(ctx.Request.Context(), u.Email, audit.ActionPasswordResetRequest,
		fmt.Sprintf("Password reset requested for %s", u.Email), audit.SeverityMedium)

	ctx.JSON(http.StatusOK, gin.H{"message": genericResetMessage})
}

// Validate is the pre-flight check behind the reset form. The consuming
// update re-checks everything, so this is advisory only.
func (h *PasswordResetHandler) Validate(ctx *gin.Context) {
	token := ctx.Query("token")

	if token == "" {
		RespondBadRequest(ctx, "token is required", nil)
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	_, err := h.store.GetByResetToken(cctx, token)

	if err != nil {
		if errors.Is(err, postgres.ErrUserNotFound) {
			RespondBadRequest(ctx, "Invalid or expired reset token", gin.H{"code": "invalid_or_expired_token"})
			return
		}
		RespondInternal(ctx, "Could not validate token")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"valid": true})
}

func (h *PasswordResetHandler) Reset(ctx *gin.Context) {
	var req ResetPasswordRequest

	if !BindJSON(ctx, &req) {
		return
	}

	if err := security.ValidateNewPassword(req.Password, h.cfg.PasswordMinLen); err != nil {
		RespondError(ctx, http.StatusBadRequest, "weak_password",
			fmt.Sprintf("Password must be at least %d characters long", security.PolicyMinLength(h.cfg.PasswordMinLen)), nil)
		return
	}

	hash, err := security.HashPassword(req.Password)

	if err != nil {
		RespondInternal(ctx, "Could not reset password")
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	// one statement: swap the hash and clear the token, so replay fails
	email, err := h.store.ConsumeResetToken(cctx, req.Token, hash)

	if err != nil {
		if errors.Is(err, postgres.ErrUserNotFound) {
			RespondError(ctx, http.StatusBadRequest, "invalid_or_expired_token", "Invalid or expired reset token", nil)
			return
		}
		RespondInternal(ctx, "Could not reset password")
		return
	}

	h.recorder.Record(ctx.Request.Context(), email, audit.ActionPasswordResetDone,
		fmt.Sprintf("Password reset completed for %s", email), audit.SeverityMedium)

	ctx.JSON(http.StatusOK, gin.H{"message": "Password has been reset successfully"})
}

// enqueueResetMail hands the email to the durable mail queue. A queue
// failure is logged and swallowed: the caller still gets the generic
// response and can retry the whole flow.
func (h *PasswordResetHandler) enqueueResetMail(cctx context.Context, ctx *gin.Context, u user.User, token string) {
	resetURL := h.cfg.AppBaseURL + "/reset-password?token=" + token

	payload := jobs.SendPasswordResetPayload{
		Email:       u.Email,
		Name:        u.Name,
		ResetURL:    resetURL,
		RequestedAt: time.Now().UTC(),
		RequestID:   requestIDFrom(ctx),
	}

	raw, err := jobs.EncodePayload(jobs.JobSendPasswordReset, payload)

	if err != nil {
		h.log.Error("reset mail payload encode failed", "err", err)
		return
	}

	_, err = h.queue.Create(cctx, jobs.CreateRequest{
		Type:    jobs.JobSendPasswordReset,
		Payload: raw,
	})

	if err != nil {
		h.log.Error("reset mail enqueue failed", "err", err)
		return
	}

	if h.waker != nil {
		if err := h.waker.Wake(cctx); err != nil {
			h.log.Debug("worker wake failed", "err", err)
		}
	}
}
