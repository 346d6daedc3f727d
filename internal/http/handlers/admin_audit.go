package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mlopez-dev/authhub/internal/audit"
	"github.com/mlopez-dev/authhub/internal/config"
	"github.com/mlopez-dev/authhub/internal/utils"
)

const (
	auditDefaultLimit = 25
	auditMaxLimit     = 100
)

type AuditReader interface {
	ListCursor(ctx context.Context, limit int, beforeTimestamp time.Time, beforeID string) ([]audit.Entry, bool, error)
}

type AdminAuditHandler struct {
	logs AuditReader
}

func NewAdminAuditHandler(logs AuditReader) *AdminAuditHandler {
	return &AdminAuditHandler{logs: logs}
}

// List returns audit entries newest-first with opaque cursor pagination.
func (h *AdminAuditHandler) List(ctx *gin.Context) {
	limit := auditDefaultLimit

	if raw := ctx.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > auditMaxLimit {
			RespondBadRequest(ctx, "limit must be an integer between 1 and 100", nil)
			return
		}
		limit = n
	}

	// first page starts from a sentinel strictly after any real row
	beforeTS := time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC)
	beforeID := "ffffffff-ffff-ffff-ffff-ffffffffffff"

	if raw := ctx.Query("cursor"); raw != "" {
		c, err := utils.DecodeAuditCursor(raw)
		if err != nil {
			RespondBadRequest(ctx, "invalid cursor", nil)
			return
		}
		beforeTS = c.Timestamp
		beforeID = c.ID
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	entries, hasMore, err := h.logs.ListCursor(cctx, limit, beforeTS, beforeID)

	if err != nil {
		RespondInternal(ctx, "Could not list audit logs")
		return
	}

	var nextCursor string

	if hasMore && len(entries) > 0 {
		last := entries[len(entries)-1]
		nextCursor, err = utils.EncodeAuditCursor(last.Timestamp, last.ID)
		if err != nil {
			RespondInternal(ctx, "Could not list audit logs")
			return
		}
	}

	if entries == nil {
		entries = []audit.Entry{}
	}

	ctx.JSON(http.StatusOK, gin.H{
		"logs":       entries,
		"hasMore":    hasMore,
		"nextCursor": nextCursor,
	})
}
