package voucher

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/studio-vouchers/internal/common"
	"github.com/noah-isme/studio-vouchers/internal/tenant"
)

// Handler exposes the public order endpoint and the admin voucher endpoints.
type Handler struct {
	Svc    *Service
	Logger *zerolog.Logger
}

type createRequest struct {
	Amount              decimal.Decimal `json:"amount"`
	SenderName          string          `json:"senderName" validate:"required,max=200"`
	SenderEmail         *string         `json:"senderEmail" validate:"omitempty,max=254"`
	SenderPhone         *string         `json:"senderPhone" validate:"omitempty,max=50"`
	Message             *string         `json:"message" validate:"omitempty,max=1000"`
	DeliveryMethod      string          `json:"deliveryMethod" validate:"required,oneof=email post"`
	RecipientName       *string         `json:"recipientName" validate:"omitempty,max=200"`
	RecipientAddress    *string         `json:"recipientAddress" validate:"omitempty,max=300"`
	RecipientPostalCode *string         `json:"recipientPostalCode" validate:"omitempty,max=20"`
	RecipientCity       *string         `json:"recipientCity" validate:"omitempty,max=100"`
}

func (c createRequest) input(studioID string, admin bool) CreateInput {
	return CreateInput{
		StudioID:            studioID,
		Amount:              c.Amount,
		SenderName:          c.SenderName,
		SenderEmail:         c.SenderEmail,
		SenderPhone:         c.SenderPhone,
		Message:             c.Message,
		DeliveryMethod:      DeliveryMethod(c.DeliveryMethod),
		RecipientName:       c.RecipientName,
		RecipientAddress:    c.RecipientAddress,
		RecipientPostalCode: c.RecipientPostalCode,
		RecipientCity:       c.RecipientCity,
		AdminCreated:        admin,
	}
}

type detailsRequest struct {
	SenderName          *string `json:"senderName" validate:"omitempty,max=200"`
	SenderEmail         *string `json:"senderEmail" validate:"omitempty,max=254"`
	SenderPhone         *string `json:"senderPhone" validate:"omitempty,max=50"`
	RecipientName       *string `json:"recipientName" validate:"omitempty,max=200"`
	RecipientAddress    *string `json:"recipientAddress" validate:"omitempty,max=300"`
	RecipientPostalCode *string `json:"recipientPostalCode" validate:"omitempty,max=20"`
	RecipientCity       *string `json:"recipientCity" validate:"omitempty,max=100"`
	Message             *string `json:"message" validate:"omitempty,max=1000"`
}

type statusRequest struct {
	PaymentStatus *string `json:"paymentStatus"`
	Status        *string `json:"status"`
}

type redeemRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description" validate:"max=500"`
}

// Order handles the public customer order.
func (h *Handler) Order(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, false)
}

// Sell handles an in-person sale recorded by staff. The voucher is active immediately.
func (h *Handler) Sell(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, true)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request, admin bool) {
	studioID, ok := studioFrom(w, r)
	if !ok {
		return
	}
	var req createRequest
	if appErr := common.DecodeJSON(r, &req); appErr != nil {
		common.WriteError(w, appErr)
		return
	}
	v, err := h.Svc.Create(r.Context(), req.input(studioID, admin))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	common.Data(w, http.StatusCreated, v)
}

// List returns live or trashed vouchers of the current studio.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	studioID, ok := studioFrom(w, r)
	if !ok {
		return
	}
	page := common.ParsePagination(r, defaultListLimit)
	trashed := strings.EqualFold(r.URL.Query().Get("trashed"), "true")
	items, total, err := h.Svc.List(r.Context(), ListFilter{
		StudioID: studioID,
		Trashed:  trashed,
		Limit:    page.PerPage,
		Offset:   page.Offset(),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	page.TotalItems = total
	common.JSON(w, http.StatusOK, map[string]any{"data": items, "pagination": page})
}

// Get returns a voucher with its redemption history.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.owned(w, r)
	if !ok {
		return
	}
	v, history, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	common.Data(w, http.StatusOK, map[string]any{"voucher": v, "redemptions": history})
}

// Update patches contact details and message.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.owned(w, r)
	if !ok {
		return
	}
	var req detailsRequest
	if appErr := common.DecodeJSON(r, &req); appErr != nil {
		common.WriteError(w, appErr)
		return
	}
	v, err := h.Svc.UpdateDetails(r.Context(), id, DetailsPatch(req))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	common.Data(w, http.StatusOK, v)
}

// UpdateStatus pays or cancels a voucher.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.owned(w, r)
	if !ok {
		return
	}
	var req statusRequest
	if appErr := common.DecodeJSON(r, &req); appErr != nil {
		common.WriteError(w, appErr)
		return
	}
	var target StatusTarget
	if req.PaymentStatus != nil {
		p := PaymentStatus(strings.ToLower(strings.TrimSpace(*req.PaymentStatus)))
		target.PaymentStatus = &p
	}
	if req.Status != nil {
		st := Status(strings.ToLower(strings.TrimSpace(*req.Status)))
		target.Status = &st
	}
	v, err := h.Svc.UpdateStatus(r.Context(), id, target)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	common.Data(w, http.StatusOK, v)
}

// Redeem records a partial or full redemption.
func (h *Handler) Redeem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.owned(w, r)
	if !ok {
		return
	}
	var req redeemRequest
	if appErr := common.DecodeJSON(r, &req); appErr != nil {
		common.WriteError(w, appErr)
		return
	}
	v, redemption, err := h.Svc.Redeem(r.Context(), id, req.Amount, req.Description)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	common.Data(w, http.StatusCreated, map[string]any{"voucher": v, "redemption": redemption})
}

// Delete soft deletes a voucher, or erases it from the trash with ?permanent=true.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.owned(w, r)
	if !ok {
		return
	}
	if strings.EqualFold(r.URL.Query().Get("permanent"), "true") {
		if err := h.Svc.PermanentDelete(r.Context(), id); err != nil {
			h.fail(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}
	actor, _ := common.Actor(r.Context())
	v, err := h.Svc.SoftDelete(r.Context(), id, actor)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	common.Data(w, http.StatusOK, v)
}

// Restore takes a voucher out of the trash.
func (h *Handler) Restore(w http.ResponseWriter, r *http.Request) {
	id, ok := h.owned(w, r)
	if !ok {
		return
	}
	v, err := h.Svc.Restore(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	common.Data(w, http.StatusOK, v)
}

// owned parses {id} and confirms the voucher belongs to the request's studio.
// Vouchers of other studios are reported as missing.
func (h *Handler) owned(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	studioID, ok := studioFrom(w, r)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "id")))
	if err != nil {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "voucher not found", nil)
		return uuid.Nil, false
	}
	if err := h.checkStudio(r.Context(), id, studioID); err != nil {
		h.fail(w, r, err)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) checkStudio(ctx context.Context, id uuid.UUID, studioID string) error {
	if h.Svc == nil || h.Svc.Store == nil {
		return errors.New("voucher service not configured")
	}
	v, err := h.Svc.Store.Get(ctx, id)
	if err != nil {
		return err
	}
	if v.StudioID != studioID {
		return ErrVoucherNotFound
	}
	return nil
}

func studioFrom(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := tenant.StudioID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusBadRequest, "STUDIO_REQUIRED", "studio is required", nil)
	}
	return id, ok
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	appErr := ToAppError(err)
	if appErr.HTTPStatus >= http.StatusInternalServerError && h.Logger != nil {
		h.Logger.Error().Err(err).Str("path", r.URL.Path).Str("code", appErr.Code).Msg("voucher request failed")
	}
	common.WriteError(w, appErr)
}

// ToAppError maps domain errors onto API error codes and statuses.
func ToAppError(err error) *common.AppError {
	var transition *TransitionError
	var balance *InsufficientBalanceError
	switch {
	case errors.As(err, &transition):
		return common.NewAppError("INVALID_TRANSITION", "status change not allowed", http.StatusConflict, err).
			WithDetails(map[string]any{"current": transition.Current.String(), "target": transition.Target})
	case errors.As(err, &balance):
		return common.NewAppError("INSUFFICIENT_BALANCE", "amount exceeds remaining balance", http.StatusConflict, err).
			WithDetails(map[string]any{"remaining": balance.Remaining.StringFixed(2), "requested": balance.Requested.StringFixed(2)})
	case errors.Is(err, ErrInvalidAmount):
		return common.NewAppError("INVALID_AMOUNT", err.Error(), http.StatusUnprocessableEntity, err)
	case errors.Is(err, ErrMissingRecipientAddress):
		return common.NewAppError("MISSING_RECIPIENT_ADDRESS", err.Error(), http.StatusUnprocessableEntity, err)
	case errors.Is(err, ErrInvalidInput):
		return common.NewAppError("VALIDATION_FAILED", err.Error(), http.StatusUnprocessableEntity, err)
	case errors.Is(err, ErrVoucherNotFound):
		return common.NewAppError("NOT_FOUND", "voucher not found", http.StatusNotFound, err)
	case errors.Is(err, ErrVoucherNotActive):
		return common.NewAppError("VOUCHER_NOT_ACTIVE", "voucher is not active", http.StatusConflict, err)
	case errors.Is(err, ErrVoucherExpired):
		return common.NewAppError("VOUCHER_EXPIRED", "voucher has expired", http.StatusConflict, err)
	case errors.Is(err, ErrVoucherDeleted):
		return common.NewAppError("VOUCHER_DELETED", "voucher is in the trash", http.StatusConflict, err)
	case errors.Is(err, ErrAlreadyDeleted):
		return common.NewAppError("ALREADY_DELETED", "voucher is already in the trash", http.StatusConflict, err)
	case errors.Is(err, ErrNotInTrash):
		return common.NewAppError("NOT_IN_TRASH", "voucher is not in the trash", http.StatusConflict, err)
	case errors.Is(err, ErrVoucherFinalized):
		return common.NewAppError("VOUCHER_FINALIZED", "voucher is redeemed or cancelled", http.StatusConflict, err)
	case errors.Is(err, ErrConcurrentModification), errors.Is(err, ErrVersionConflict):
		return common.NewAppError("CONCURRENT_MODIFICATION", "voucher changed concurrently, retry", http.StatusConflict, err)
	case errors.Is(err, ErrStoreUnavailable):
		return common.NewAppError("STORE_UNAVAILABLE", "voucher store unavailable", http.StatusServiceUnavailable, err)
	case errors.Is(err, ErrGenerationExhausted):
		return common.NewAppError("GENERATION_EXHAUSTED", "could not allocate a voucher code", http.StatusServiceUnavailable, err)
	default:
		return common.NewAppError("INTERNAL", "internal error", http.StatusInternalServerError, err)
	}
}
