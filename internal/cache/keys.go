package cache

import "github.com/noah-isme/studio-vouchers/internal/tenant"

// KeyStudioSettings returns the per-studio cache key for voucher settings.
func KeyStudioSettings(studioID string) string {
	return tenant.Key(studioID, "settings:v1")
}
