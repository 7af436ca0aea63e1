package middleware

import (
	"net/http"

	"github.com/noah-isme/studio-vouchers/internal/common"
	"github.com/noah-isme/studio-vouchers/internal/tenant"
)

// RequireStudio rejects requests that carry no resolved studio.
func RequireStudio(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := tenant.StudioID(r.Context()); !ok {
			common.JSONError(w, http.StatusBadRequest, "STUDIO_REQUIRED", "studio is required", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
