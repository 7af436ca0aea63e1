package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/studio-vouchers/internal/audit"
	"github.com/noah-isme/studio-vouchers/internal/voucher"
)

// AuditStore writes and lists rows of audit_logs.
type AuditStore struct {
	pool *pgxpool.Pool
}

var _ audit.Store = (*AuditStore)(nil)

func NewAuditStore(pool *pgxpool.Pool) *AuditStore {
	return &AuditStore{pool: pool}
}

func (s *AuditStore) InsertAuditLog(ctx context.Context, e audit.Entry) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("%w: postgres pool not configured", voucher.ErrStoreUnavailable)
	}
	_, err := s.pool.Exec(ctx, `INSERT INTO audit_logs
(actor, studio_id, action, resource_id, method, path, route, status, ip, user_agent, request_id, metadata, created_at)
VALUES ($1, NULLIF($2, ''), $3, NULLIF($4, ''), $5, $6, NULLIF($7, ''), $8, NULLIF($9, ''), NULLIF($10, ''), NULLIF($11, ''), $12, $13)`,
		e.Actor, e.StudioID, e.Action, e.ResourceID, e.Method, e.Path, e.Route, e.Status,
		e.IP, e.UserAgent, e.RequestID, nullJSON(e.Metadata), e.CreatedAt)
	if err != nil {
		return unavailable("insert audit log", err)
	}
	return nil
}

func (s *AuditStore) ListAuditLogs(ctx context.Context, studioID string, limit, offset int) ([]audit.Entry, error) {
	if s == nil || s.pool == nil {
		return nil, fmt.Errorf("%w: postgres pool not configured", voucher.ErrStoreUnavailable)
	}
	rows, err := s.pool.Query(ctx, `SELECT id, actor, COALESCE(studio_id, ''), action, COALESCE(resource_id, ''),
method, path, COALESCE(route, ''), status, COALESCE(ip, ''), COALESCE(user_agent, ''),
COALESCE(request_id, ''), metadata, created_at
FROM audit_logs WHERE studio_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3`, studioID, clampPositive(limit, 50), max(offset, 0))
	if err != nil {
		return nil, unavailable("list audit logs", err)
	}
	defer rows.Close()

	var out []audit.Entry
	for rows.Next() {
		var (
			e        audit.Entry
			metadata []byte
		)
		if err := rows.Scan(&e.ID, &e.Actor, &e.StudioID, &e.Action, &e.ResourceID, &e.Method, &e.Path, &e.Route,
			&e.Status, &e.IP, &e.UserAgent, &e.RequestID, &metadata, &e.CreatedAt); err != nil {
			return nil, unavailable("scan audit log", err)
		}
		e.Metadata = metadata
		e.CreatedAt = e.CreatedAt.UTC()
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list audit logs", err)
	}
	return out, nil
}

func nullJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
