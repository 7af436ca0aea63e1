package voucher

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// State is the single lifecycle enum. PaymentStatus and Status are projections of it.
type State int

const (
	// StateCreated is an ordered voucher waiting for payment (pending/pending).
	StateCreated State = iota + 1
	// StateActive is a paid voucher with a redeemable balance (paid/active).
	StateActive
	// StateRedeemed is a paid voucher with no balance left (paid/redeemed).
	StateRedeemed
	// StateCancelled is a voucher that will never be redeemed (cancelled/cancelled).
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateActive:
		return "active"
	case StateRedeemed:
		return "redeemed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether no lifecycle transition leaves the state.
func (s State) Terminal() bool {
	return s == StateRedeemed || s == StateCancelled
}

// PaymentStatus is the payment projection of the lifecycle state.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentPaid      PaymentStatus = "paid"
	PaymentCancelled PaymentStatus = "cancelled"
)

// Valid reports whether p is a known payment status.
func (p PaymentStatus) Valid() bool {
	switch p {
	case PaymentPending, PaymentPaid, PaymentCancelled:
		return true
	}
	return false
}

// Status is the redemption projection of the lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusRedeemed  Status = "redeemed"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusActive, StatusRedeemed, StatusCancelled:
		return true
	}
	return false
}

// PaymentStatus returns the payment_status column value for the state.
func (s State) PaymentStatus() PaymentStatus {
	switch s {
	case StateActive, StateRedeemed:
		return PaymentPaid
	case StateCancelled:
		return PaymentCancelled
	default:
		return PaymentPending
	}
}

// Status returns the status column value for the state.
func (s State) Status() Status {
	switch s {
	case StateActive:
		return StatusActive
	case StateRedeemed:
		return StatusRedeemed
	case StateCancelled:
		return StatusCancelled
	default:
		return StatusPending
	}
}

// StateFromColumns decodes a persisted (payment_status, status) pair. Pairs that
// no state projects to are rejected.
func StateFromColumns(payment PaymentStatus, status Status) (State, error) {
	for _, s := range []State{StateCreated, StateActive, StateRedeemed, StateCancelled} {
		if s.PaymentStatus() == payment && s.Status() == status {
			return s, nil
		}
	}
	return 0, fmt.Errorf("voucher: inconsistent state payment_status=%q status=%q", payment, status)
}

// DeliveryMethod describes how the voucher reaches the recipient.
type DeliveryMethod string

const (
	DeliveryEmail DeliveryMethod = "email"
	DeliveryPost  DeliveryMethod = "post"
)

// Valid reports whether d is a supported delivery method.
func (d DeliveryMethod) Valid() bool {
	return d == DeliveryEmail || d == DeliveryPost
}

// CodeKind selects the code format produced by the identifier generator.
type CodeKind int

const (
	// CodeOnlineOrder is used for vouchers ordered through the public flow.
	CodeOnlineOrder CodeKind = iota
	// CodeAdminSale is used for in-person sales issued by staff.
	CodeAdminSale
)

// Voucher is the system-of-record row for a gift voucher.
type Voucher struct {
	ID                  uuid.UUID
	Code                string
	OrderNumber         string
	StudioID            string
	Amount              decimal.Decimal
	Remaining           decimal.Decimal
	SenderName          string
	SenderEmail         *string
	SenderPhone         *string
	RecipientName       *string
	RecipientAddress    *string
	RecipientPostalCode *string
	RecipientCity       *string
	Message             *string
	DeliveryMethod      DeliveryMethod
	State               State
	AdminCreated        bool
	CreatedAt           time.Time
	ExpiresAt           time.Time
	UpdatedAt           time.Time
	DeletedAt           *time.Time
	DeletedBy           *string
	Version             int64
}

// PaymentStatus returns the payment projection.
func (v Voucher) PaymentStatus() PaymentStatus { return v.State.PaymentStatus() }

// Status returns the redemption projection.
func (v Voucher) Status() Status { return v.State.Status() }

// IsUsed is true once the balance is exhausted.
func (v Voucher) IsUsed() bool { return v.Remaining.IsZero() }

// Deleted reports whether the voucher sits in the trash.
func (v Voucher) Deleted() bool { return v.DeletedAt != nil }

// Expired reports whether the voucher can no longer be redeemed at now.
func (v Voucher) Expired(now time.Time) bool { return !now.Before(v.ExpiresAt) }

type voucherJSON struct {
	ID                  string         `json:"id"`
	Code                string         `json:"code"`
	OrderNumber         string         `json:"orderNumber"`
	StudioID            string         `json:"studioId"`
	Amount              string         `json:"amount"`
	RemainingAmount     string         `json:"remainingAmount"`
	SenderName          string         `json:"senderName"`
	SenderEmail         *string        `json:"senderEmail,omitempty"`
	SenderPhone         *string        `json:"senderPhone,omitempty"`
	RecipientName       *string        `json:"recipientName,omitempty"`
	RecipientAddress    *string        `json:"recipientAddress,omitempty"`
	RecipientPostalCode *string        `json:"recipientPostalCode,omitempty"`
	RecipientCity       *string        `json:"recipientCity,omitempty"`
	Message             *string        `json:"message,omitempty"`
	DeliveryMethod      DeliveryMethod `json:"deliveryMethod"`
	PaymentStatus       PaymentStatus  `json:"paymentStatus"`
	Status              Status         `json:"status"`
	AdminCreated        bool           `json:"adminCreated"`
	IsUsed              bool           `json:"isUsed"`
	CreatedAt           time.Time      `json:"createdAt"`
	ExpiresAt           time.Time      `json:"expiresAt"`
	DeletedAt           *time.Time     `json:"deletedAt,omitempty"`
	DeletedBy           *string        `json:"deletedBy,omitempty"`
}

// MarshalJSON renders the voucher with both status projections and fixed two-decimal amounts.
func (v Voucher) MarshalJSON() ([]byte, error) {
	return json.Marshal(voucherJSON{
		ID:                  v.ID.String(),
		Code:                v.Code,
		OrderNumber:         v.OrderNumber,
		StudioID:            v.StudioID,
		Amount:              v.Amount.StringFixed(2),
		RemainingAmount:     v.Remaining.StringFixed(2),
		SenderName:          v.SenderName,
		SenderEmail:         v.SenderEmail,
		SenderPhone:         v.SenderPhone,
		RecipientName:       v.RecipientName,
		RecipientAddress:    v.RecipientAddress,
		RecipientPostalCode: v.RecipientPostalCode,
		RecipientCity:       v.RecipientCity,
		Message:             v.Message,
		DeliveryMethod:      v.DeliveryMethod,
		PaymentStatus:       v.PaymentStatus(),
		Status:              v.Status(),
		AdminCreated:        v.AdminCreated,
		IsUsed:              v.IsUsed(),
		CreatedAt:           v.CreatedAt,
		ExpiresAt:           v.ExpiresAt,
		DeletedAt:           v.DeletedAt,
		DeletedBy:           v.DeletedBy,
	})
}

// Redemption is one append-only ledger entry.
type Redemption struct {
	ID             uuid.UUID
	VoucherID      uuid.UUID
	Amount         decimal.Decimal
	Description    string
	RedeemedAt     time.Time
	RemainingAfter decimal.Decimal
}

// MarshalJSON renders amounts with two decimals.
func (r Redemption) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID             string    `json:"id"`
		VoucherID      string    `json:"voucherId"`
		Amount         string    `json:"amount"`
		Description    string    `json:"description"`
		RedeemedAt     time.Time `json:"redeemedAt"`
		RemainingAfter string    `json:"remainingAfter"`
	}{
		ID:             r.ID.String(),
		VoucherID:      r.VoucherID.String(),
		Amount:         r.Amount.StringFixed(2),
		Description:    r.Description,
		RedeemedAt:     r.RedeemedAt,
		RemainingAfter: r.RemainingAfter.StringFixed(2),
	})
}
