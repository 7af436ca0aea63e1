package audit

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/studio-vouchers/internal/obs"
)

// HTTPRecorder records admin requests after they have been handled.
type HTTPRecorder struct {
	Service *Service
	OnError func(error)
}

// HTTPConfig customises the entry produced for a route.
type HTTPConfig struct {
	Action          string
	ResourceIDParam string
	MetadataFunc    func(*http.Request, int) map[string]any
	// SkipFailures drops entries for responses with status >= 400.
	SkipFailures bool
}

// Middleware returns chi middleware that records one entry per request.
func (r HTTPRecorder) Middleware(cfg HTTPConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if r.Service == nil || !r.Service.Enabled {
				next.ServeHTTP(w, req)
				return
			}

			recorder := obs.NewStatusRecorder(w)
			next.ServeHTTP(recorder, req)
			status := recorder.Status()
			if cfg.SkipFailures && status >= http.StatusBadRequest {
				return
			}

			resourceID := ""
			if cfg.ResourceIDParam != "" {
				resourceID = chi.URLParam(req, cfg.ResourceIDParam)
			}
			var metadata []byte
			if cfg.MetadataFunc != nil {
				if payload := cfg.MetadataFunc(req, status); payload != nil {
					if data, err := json.Marshal(payload); err == nil {
						metadata = data
					}
				}
			}

			if err := r.Service.Record(req.Context(), cfg.Action, resourceID, req, status, metadata); err != nil && r.OnError != nil {
				r.OnError(err)
			}
		})
	}
}
