package audit

import (
	"net/http"

	"github.com/noah-isme/studio-vouchers/internal/common"
	"github.com/noah-isme/studio-vouchers/internal/tenant"
)

const defaultListLimit = 50

// Handler lists the audit trail of the current studio.
type Handler struct {
	Store Store
}

// List returns a page of audit entries, newest first.
func (h Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "AUDIT_NOT_CONFIGURED", "audit store not configured", nil)
		return
	}
	studioID, ok := tenant.StudioID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusBadRequest, "STUDIO_REQUIRED", "studio is required", nil)
		return
	}
	page := common.ParsePagination(r, defaultListLimit)
	rows, err := h.Store.ListAuditLogs(r.Context(), studioID, page.PerPage, page.Offset())
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "AUDIT_QUERY_FAILED", "unable to fetch audit logs", nil)
		return
	}
	if rows == nil {
		rows = []Entry{}
	}
	common.Data(w, http.StatusOK, rows)
}
