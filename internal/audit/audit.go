package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/mlopez-dev/authhub/internal/actorctx"
)

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Action tags kept stable so downstream tooling can filter on them.
const (
	ActionUserLogin            = "USER_LOGIN"
	ActionUserLogout           = "USER_LOGOUT"
	ActionUserRegistered       = "USER_REGISTERED"
	ActionUserRoleChanged      = "USER_ROLE_CHANGED"
	ActionUserDeleted          = "USER_DELETED"
	ActionPasswordResetRequest = "PASSWORD_RESET_REQUESTED"
	ActionPasswordResetDone    = "PASSWORD_RESET_COMPLETED"
)

// Entry is one append-only audit record. Entries are never mutated.
type Entry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	User      string    `json:"user"` // acting user's email, or "anonymous"
	Action    string    `json:"action"`
	Details   string    `json:"details"`
	Severity  Severity  `json:"severity"`
	IPAddress string    `json:"ipAddress,omitempty"`
	UserAgent string    `json:"userAgent,omitempty"`
}

type Sink interface {
	Insert(ctx context.Context, e Entry) error
}

// Recorder writes audit entries best-effort: a failed write is logged and
// swallowed so it can never abort the operation it documents.
type Recorder struct {
	sink Sink
	log  *slog.Logger
}

func NewRecorder(sink Sink, log *slog.Logger) *Recorder {
	return &Recorder{sink: sink, log: log}
}

// Record fills requester metadata from the context and appends the entry.
func (r *Recorder) Record(ctx context.Context, user, action, details string, severity Severity) {
	if r == nil || r.sink == nil {
		return
	}

	if user == "" {
		user = "anonymous"
	}

	e := Entry{
		Timestamp: time.Now().UTC(),
		User:      user,
		Action:    action,
		Details:   details,
		Severity:  severity,
		IPAddress: actorctx.IPFrom(ctx),
		UserAgent: actorctx.UserAgentFrom(ctx),
	}

	err := r.sink.Insert(ctx, e)

	if err != nil && r.log != nil {
		r.log.Warn("audit write failed", "action", action, "err", err)
	}
}
