package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/studio-vouchers/internal/studio"
	"github.com/noah-isme/studio-vouchers/internal/voucher"
)

// StudioSettingsStore reads and upserts rows of studio_settings.
type StudioSettingsStore struct {
	pool *pgxpool.Pool
}

var _ studio.Store = (*StudioSettingsStore)(nil)

// NewStudioSettingsStore constructs the settings store.
func NewStudioSettingsStore(pool *pgxpool.Pool) *StudioSettingsStore {
	return &StudioSettingsStore{pool: pool}
}

// GetSettings returns studio.ErrSettingsNotFound when the studio has no row.
func (s *StudioSettingsStore) GetSettings(ctx context.Context, studioID string) (studio.Settings, error) {
	if s == nil || s.pool == nil {
		return studio.Settings{}, fmt.Errorf("%w: postgres pool not configured", voucher.ErrStoreUnavailable)
	}
	var out studio.Settings
	err := s.pool.QueryRow(ctx, `SELECT studio_id, validity_months, online_min, online_max, admin_min, admin_max, updated_at
FROM studio_settings WHERE studio_id = $1`, studioID).
		Scan(&out.StudioID, &out.ValidityMonths, &out.OnlineMin, &out.OnlineMax, &out.AdminMin, &out.AdminMax, &out.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return studio.Settings{}, studio.ErrSettingsNotFound
	}
	if err != nil {
		return studio.Settings{}, unavailable("get studio settings", err)
	}
	out.UpdatedAt = out.UpdatedAt.UTC()
	return out, nil
}

// UpsertSettings inserts or replaces the studio row and returns what was stored.
func (s *StudioSettingsStore) UpsertSettings(ctx context.Context, in studio.Settings) (studio.Settings, error) {
	if s == nil || s.pool == nil {
		return studio.Settings{}, fmt.Errorf("%w: postgres pool not configured", voucher.ErrStoreUnavailable)
	}
	var out studio.Settings
	err := s.pool.QueryRow(ctx, `INSERT INTO studio_settings (studio_id, validity_months, online_min, online_max, admin_min, admin_max, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (studio_id) DO UPDATE SET
	validity_months = EXCLUDED.validity_months,
	online_min = EXCLUDED.online_min,
	online_max = EXCLUDED.online_max,
	admin_min = EXCLUDED.admin_min,
	admin_max = EXCLUDED.admin_max,
	updated_at = EXCLUDED.updated_at
RETURNING studio_id, validity_months, online_min, online_max, admin_min, admin_max, updated_at`,
		in.StudioID, in.ValidityMonths, in.OnlineMin, in.OnlineMax, in.AdminMin, in.AdminMax, in.UpdatedAt).
		Scan(&out.StudioID, &out.ValidityMonths, &out.OnlineMin, &out.OnlineMax, &out.AdminMin, &out.AdminMax, &out.UpdatedAt)
	if err != nil {
		return studio.Settings{}, unavailable("upsert studio settings", err)
	}
	out.UpdatedAt = out.UpdatedAt.UTC()
	return out, nil
}
