package studio

import (
	"errors"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/studio-vouchers/internal/common"
	"github.com/noah-isme/studio-vouchers/internal/tenant"
	"github.com/noah-isme/studio-vouchers/internal/voucher"
)

// Handler exposes the admin settings endpoints of the current studio.
type Handler struct {
	Svc *Service
}

type settingsRequest struct {
	ValidityMonths int             `json:"validityMonths" validate:"required"`
	OnlineMin      decimal.Decimal `json:"onlineMin"`
	OnlineMax      decimal.Decimal `json:"onlineMax"`
	AdminMin       decimal.Decimal `json:"adminMin"`
	AdminMax       decimal.Decimal `json:"adminMax"`
}

// Get returns the effective settings.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	studioID, ok := tenant.StudioID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusBadRequest, "STUDIO_REQUIRED", "studio is required", nil)
		return
	}
	settings, err := h.Svc.Settings(r.Context(), studioID)
	if err != nil {
		writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, settings)
}

// Put replaces the studio's settings.
func (h *Handler) Put(w http.ResponseWriter, r *http.Request) {
	studioID, ok := tenant.StudioID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusBadRequest, "STUDIO_REQUIRED", "studio is required", nil)
		return
	}
	var req settingsRequest
	if appErr := common.DecodeJSON(r, &req); appErr != nil {
		common.WriteError(w, appErr)
		return
	}
	settings, err := h.Svc.UpdateSettings(r.Context(), studioID, SettingsInput(req))
	if err != nil {
		writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, settings)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidSettings):
		common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION_FAILED", err.Error(), nil)
	case errors.Is(err, voucher.ErrStoreUnavailable):
		common.JSONError(w, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "settings store unavailable", nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load settings", nil)
	}
}
