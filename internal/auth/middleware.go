package auth

import (
	"net/http"
	"strings"

	"github.com/noah-isme/studio-vouchers/internal/common"
	"github.com/noah-isme/studio-vouchers/internal/tenant"
)

// Middleware guards admin routes with bearer tokens.
type Middleware struct {
	Verifier *Verifier
}

// RequireAdmin rejects requests without a valid admin token and stores the
// subject as the request actor. Studio-bound tokens only reach their studio.
func (m Middleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.Verifier == nil {
			common.JSONError(w, http.StatusInternalServerError, "AUTH_NOT_CONFIGURED", "authentication not configured", nil)
			return
		}
		token := bearerToken(r)
		if token == "" {
			w.Header().Set("WWW-Authenticate", `Bearer realm="admin"`)
			common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
			return
		}
		claims, err := m.Verifier.Verify(token)
		if err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer realm="admin", error="invalid_token"`)
			common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
			return
		}
		if claims.Studio != "" {
			if studioID, ok := tenant.StudioID(r.Context()); ok && studioID != claims.Studio {
				common.JSONError(w, http.StatusForbidden, "STUDIO_FORBIDDEN", "token is not valid for this studio", nil)
				return
			}
		}
		next.ServeHTTP(w, r.WithContext(common.WithActor(r.Context(), claims.Subject)))
	})
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
