package audit

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/noah-isme/studio-vouchers/internal/common"
	"github.com/noah-isme/studio-vouchers/internal/obs"
	"github.com/noah-isme/studio-vouchers/internal/tenant"
)

// Actions recorded for admin mutations.
const (
	ActionVoucherCreate  = "voucher.create"
	ActionVoucherUpdate  = "voucher.update"
	ActionVoucherStatus  = "voucher.status"
	ActionVoucherRedeem  = "voucher.redeem"
	ActionVoucherDelete  = "voucher.delete"
	ActionVoucherRestore = "voucher.restore"
	ActionStudioSettings = "studio.settings"
)

const anonymousActor = "anonymous"

// Entry is one row of the audit trail.
type Entry struct {
	ID         int64           `json:"id"`
	Actor      string          `json:"actor"`
	StudioID   string          `json:"studioId,omitempty"`
	Action     string          `json:"action"`
	ResourceID string          `json:"resourceId,omitempty"`
	Method     string          `json:"method"`
	Path       string          `json:"path"`
	Route      string          `json:"route,omitempty"`
	Status     int             `json:"status"`
	IP         string          `json:"ip,omitempty"`
	UserAgent  string          `json:"userAgent,omitempty"`
	RequestID  string          `json:"requestId,omitempty"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// Store persists audit entries.
type Store interface {
	InsertAuditLog(ctx context.Context, e Entry) error
	ListAuditLogs(ctx context.Context, studioID string, limit, offset int) ([]Entry, error)
}

// Service records admin mutations. Disabled services accept and drop entries.
type Service struct {
	Store        Store
	Enabled      bool
	SamplingRate float64
	Now          func() time.Time
}

// Record builds an entry from the handled request and stores it.
func (s Service) Record(ctx context.Context, action, resourceID string, req *http.Request, status int, metadata []byte) error {
	if !s.Enabled {
		return nil
	}
	if s.SamplingRate > 0 && s.SamplingRate < 1 && rand.Float64() > s.SamplingRate {
		return nil
	}
	if req == nil {
		return errors.New("audit: request is required")
	}
	if s.Store == nil {
		return errors.New("audit: store not configured")
	}

	route := obs.RoutePatternFromContext(req.Context())
	if route == "" {
		route = strings.TrimSpace(req.URL.Path)
	}
	actor, ok := common.Actor(req.Context())
	if !ok {
		actor = anonymousActor
	}
	studioID, _ := tenant.StudioID(req.Context())
	requestID := middleware.GetReqID(req.Context())
	if requestID == "" {
		requestID = strings.TrimSpace(req.Header.Get("X-Request-ID"))
	}
	if status == 0 {
		status = http.StatusOK
	}

	return s.Store.InsertAuditLog(ctx, Entry{
		Actor:      actor,
		StudioID:   studioID,
		Action:     buildAction(action, req.Method, route),
		ResourceID: strings.TrimSpace(resourceID),
		Method:     req.Method,
		Path:       req.URL.Path,
		Route:      route,
		Status:     status,
		IP:         common.ClientIP(req),
		UserAgent:  strings.TrimSpace(req.UserAgent()),
		RequestID:  requestID,
		Metadata:   metadataJSON(metadata, req.URL.RawQuery),
		CreatedAt:  s.now(),
	})
}

func (s Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func buildAction(action, method, route string) string {
	if trimmed := strings.TrimSpace(action); trimmed != "" {
		return trimmed
	}
	if route == "" {
		route = "/"
	}
	return strings.ToUpper(method) + " " + route
}

func metadataJSON(metadata []byte, query string) json.RawMessage {
	if len(metadata) > 0 {
		return metadata
	}
	if strings.TrimSpace(query) == "" {
		return nil
	}
	data, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return nil
	}
	return data
}
