package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mlopez-dev/authhub/internal/audit"
	"github.com/mlopez-dev/authhub/internal/cache"
	"github.com/mlopez-dev/authhub/internal/config"
	"github.com/mlopez-dev/authhub/internal/domain/user"
	"github.com/mlopez-dev/authhub/internal/http/middlewares"
	"github.com/mlopez-dev/authhub/internal/repo/postgres"
)

type AdminUserStore interface {
	List(ctx context.Context) ([]user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
	UpdateRole(ctx context.Context, id, role string) error
	Delete(ctx context.Context, id string) error
}

type AdminUsersHandler struct {
	store    AdminUserStore
	recorder *audit.Recorder
	// directory is a short-lived snapshot of the full listing; any
	// mutation invalidates it
	directory *cache.Snapshot
}

func NewAdminUsersHandler(store AdminUserStore, recorder *audit.Recorder, directory *cache.Snapshot) *AdminUsersHandler {
	return &AdminUsersHandler{
		store:     store,
		recorder:  recorder,
		directory: directory,
	}
}

type UserStats struct {
	Total  int `json:"total"`
	Admins int `json:"admins"`
	Users  int `json:"users"`
}

type directoryResponse struct {
	Users []user.PublicView `json:"users"`
	Stats UserStats         `json:"stats"`
}

type AdminActionRequest struct {
	Action  string `json:"action" binding:"required,oneof=updateRole deleteUser"`
	UserID  string `json:"userId" binding:"required"`
	NewRole string `json:"newRole,omitempty"`
}

// List returns every account (sans secrets) plus role-derived counts.
func (h *AdminUsersHandler) List(ctx *gin.Context) {
	if cached, ok := h.directory.Get(); ok {
		if resp, ok := cached.(directoryResponse); ok {
			RespondJSONWithETag(ctx, http.StatusOK, resp)
			return
		}
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	all, err := h.store.List(cctx)

	if err != nil {
		RespondInternal(ctx, "Could not list users")
		return
	}

	resp := directoryResponse{
		Users: make([]user.PublicView, 0, len(all)),
	}

	for _, u := range all {
		resp.Users = append(resp.Users, u.Public())

		resp.Stats.Total++
		if u.EffectiveRole() == user.RoleAdmin {
			resp.Stats.Admins++
		} else {
			resp.Stats.Users++
		}
	}

	h.directory.Set(resp)

	RespondJSONWithETag(ctx, http.StatusOK, resp)
}

// Act dispatches the administrative mutations. The acting admin comes
// from the verified session, never from the request body.
func (h *AdminUsersHandler) Act(ctx *gin.Context) {
	actor, ok := middlewares.SessionFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthenticated", "Please log in")
		return
	}

	var req AdminActionRequest

	if !BindJSON(ctx, &req) {
		return
	}

	switch req.Action {
	case "updateRole":
		h.changeRole(ctx, actor.ID, actor.Email, req)
	case "deleteUser":
		h.deleteUser(ctx, actor.Email, req)
	}
}

func (h *AdminUsersHandler) changeRole(ctx *gin.Context, actorID, actorEmail string, req AdminActionRequest) {
	if !user.ValidRole(req.NewRole) {
		RespondError(ctx, http.StatusBadRequest, "invalid_role", `Invalid role. Must be "user" or "admin"`, nil)
		return
	}

	// an admin may not demote themselves; only a different admin can
	if req.UserID == actorID && req.NewRole == user.RoleUser {
		RespondError(ctx, http.StatusBadRequest, "self_demotion_denied",
			"You cannot change your own role to user. Another admin must do it.", nil)
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	target, err := h.store.GetByID(cctx, req.UserID)

	if err != nil {
		if errors.Is(err, postgres.ErrUserNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}
		RespondInternal(ctx, "Could not update user role")
		return
	}

	err = h.store.UpdateRole(cctx, target.ID, req.NewRole)

	if err != nil {
		if errors.Is(err, postgres.ErrUserNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}
		RespondInternal(ctx, "Could not update user role")
		return
	}

	h.directory.Invalidate()

	h.recorder.Record(ctx.Request.Context(), actorEmail, audit.ActionUserRoleChanged,
		fmt.Sprintf("Changed user %s role from %s to %s", target.Email, target.EffectiveRole(), req.NewRole),
		audit.SeverityHigh)

	ctx.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("User role updated to %s successfully", req.NewRole),
	})
}

func (h *AdminUsersHandler) deleteUser(ctx *gin.Context, actorEmail string, req AdminActionRequest) {
	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	target, err := h.store.GetByID(cctx, req.UserID)

	if err != nil {
		if errors.Is(err, postgres.ErrUserNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}
		RespondInternal(ctx, "Could not delete user")
		return
	}

	// an admin may not delete their own account
	if target.Email == actorEmail {
		RespondError(ctx, http.StatusBadRequest, "cannot_delete_self",
			"Cannot delete your own account", nil)
		return
	}

	err = h.store.Delete(cctx, target.ID)

	if err != nil {
		if errors.Is(err, postgres.ErrUserNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}
		RespondInternal(ctx, "Could not delete user")
		return
	}

	h.directory.Invalidate()

	h.recorder.Record(ctx.Request.Context(), actorEmail, audit.ActionUserDeleted,
		fmt.Sprintf("Deleted user account for %s", target.Email), audit.SeverityHigh)

	ctx.JSON(http.StatusOK, gin.H{"message": "User deleted successfully"})
}
