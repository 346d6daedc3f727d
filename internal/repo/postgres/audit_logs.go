package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mlopez-dev/authhub/internal/audit"
	"github.com/mlopez-dev/authhub/internal/observability"
)

// AuditLogsRepo is append-only; there is no update or delete path.
type AuditLogsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewAuditLogsRepo(pool *pgxpool.Pool, prom *observability.Prom) *AuditLogsRepo {
	return &AuditLogsRepo{pool: pool, prom: prom}
}

func (r *AuditLogsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func (r *AuditLogsRepo) Insert(ctx context.Context, e audit.Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	op := "audit_logs.insert"

	return r.observe(op, func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO audit_logs (id, "timestamp", "user", action, details, severity, ip_address, user_agent)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			e.ID, e.Timestamp, e.User, e.Action, e.Details, string(e.Severity), e.IPAddress, e.UserAgent,
		)
		return err
	})
}

// ListCursor pages entries newest-first using a (timestamp, id) keyset.
func (r *AuditLogsRepo) ListCursor(ctx context.Context, limit int, beforeTimestamp time.Time, beforeID string) ([]audit.Entry, bool, error) {
	var out []audit.Entry
	hasMore := false

	op := "audit_logs.list_cursor"

	err := r.observe(op, func() error {
		rows, err := r.pool.Query(ctx,
			`SELECT id, "timestamp", "user", action, details, severity, ip_address, user_agent
			 FROM audit_logs
			 WHERE ("timestamp", id) < ($2, $3)
			 ORDER BY "timestamp" DESC, id DESC
			 LIMIT $1`,
			limit+1, beforeTimestamp, beforeID,
		)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var e audit.Entry
			var severity string

			if err := rows.Scan(&e.ID, &e.Timestamp, &e.User, &e.Action, &e.Details, &severity, &e.IPAddress, &e.UserAgent); err != nil {
				return err
			}
			e.Severity = audit.Severity(severity)
			out = append(out, e)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, false, err
	}

	if len(out) > limit {
		out = out[:limit]
		hasMore = true
	}

	return out, hasMore, nil
}
