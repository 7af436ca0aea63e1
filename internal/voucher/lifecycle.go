package voucher

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/studio-vouchers/internal/events"
	"github.com/noah-isme/studio-vouchers/internal/obs"
)

// StatusTarget requests a move on exactly one of the two status axes.
type StatusTarget struct {
	PaymentStatus *PaymentStatus
	Status        *Status
}

func (t StatusTarget) String() string {
	switch {
	case t.PaymentStatus != nil:
		return "payment_status=" + string(*t.PaymentStatus)
	case t.Status != nil:
		return "status=" + string(*t.Status)
	default:
		return "none"
	}
}

type action int

const (
	actionPay action = iota + 1
	actionCancel
)

// transitions lists every allowed status move. Anything absent is rejected.
var transitions = map[State]map[action]State{
	StateCreated: {actionPay: StateActive, actionCancel: StateCancelled},
	StateActive:  {actionCancel: StateCancelled},
}

func (t StatusTarget) action() (action, error) {
	if (t.PaymentStatus == nil) == (t.Status == nil) {
		return 0, invalidInput("exactly one of payment status or status is required")
	}
	if t.PaymentStatus != nil {
		switch p := *t.PaymentStatus; {
		case !p.Valid():
			return 0, invalidInput("unknown payment status %q", p)
		case p == PaymentPaid:
			return actionPay, nil
		case p == PaymentCancelled:
			return actionCancel, nil
		}
		return 0, nil
	}
	switch st := *t.Status; {
	case !st.Valid():
		return 0, invalidInput("unknown status %q", st)
	case st == StatusActive:
		return actionPay, nil
	case st == StatusCancelled:
		return actionCancel, nil
	}
	return 0, nil
}

// nextState resolves a target against the current state.
func nextState(current State, t StatusTarget) (State, action, error) {
	act, err := t.action()
	if err != nil {
		return 0, 0, err
	}
	if to, ok := transitions[current][act]; ok {
		return to, act, nil
	}
	return 0, 0, &TransitionError{Current: current, Target: t.String()}
}

// UpdateStatus pays or cancels a voucher.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, target StatusTarget) (Voucher, error) {
	var act action
	v, _, err := s.mutate(ctx, "status", id, func(v *Voucher, _ time.Time) (*Redemption, error) {
		if v.Deleted() {
			return nil, ErrVoucherDeleted
		}
		to, a, err := nextState(v.State, target)
		if err != nil {
			return nil, err
		}
		v.State, act = to, a
		return nil, nil
	})
	if err != nil {
		return Voucher{}, err
	}
	if act == actionPay {
		s.publish(ctx, events.TopicVoucherPaid, v, nil)
	}
	s.log().Info().Str("voucher_id", v.ID.String()).Str("target", target.String()).Str("state", v.State.String()).Msg("voucher status updated")
	return v, nil
}

// Redeem debits amount from an active voucher and appends the ledger entry.
func (s *Service) Redeem(ctx context.Context, id uuid.UUID, amount decimal.Decimal, description string) (Voucher, Redemption, error) {
	v, r, err := s.mutate(ctx, "redeem", id, func(v *Voucher, now time.Time) (*Redemption, error) {
		next, r, err := applyRedemption(*v, amount, description, now)
		if err != nil {
			return nil, err
		}
		*v = next
		return &r, nil
	})
	if err != nil {
		return Voucher{}, Redemption{}, err
	}
	amountF, _ := r.Amount.Float64()
	obs.ObserveRedeemedAmount(amountF)
	s.publish(ctx, events.TopicVoucherRedeemed, v, r)
	return v, *r, nil
}

// DetailsPatch changes contact and message fields. Nil leaves a field unchanged;
// an empty string clears an optional field.
type DetailsPatch struct {
	SenderName          *string
	SenderEmail         *string
	SenderPhone         *string
	RecipientName       *string
	RecipientAddress    *string
	RecipientPostalCode *string
	RecipientCity       *string
	Message             *string
}

func (p DetailsPatch) empty() bool {
	return p.SenderName == nil && p.SenderEmail == nil && p.SenderPhone == nil &&
		p.RecipientName == nil && p.RecipientAddress == nil && p.RecipientPostalCode == nil &&
		p.RecipientCity == nil && p.Message == nil
}

// UpdateDetails applies patch to a voucher that is neither redeemed nor cancelled.
func (s *Service) UpdateDetails(ctx context.Context, id uuid.UUID, patch DetailsPatch) (Voucher, error) {
	if patch.empty() {
		return Voucher{}, invalidInput("no fields to update")
	}
	v, _, err := s.mutate(ctx, "update", id, func(v *Voucher, _ time.Time) (*Redemption, error) {
		if v.Deleted() {
			return nil, ErrVoucherDeleted
		}
		if v.State.Terminal() {
			return nil, ErrVoucherFinalized
		}
		if patch.SenderName != nil {
			name := strings.TrimSpace(*patch.SenderName)
			if name == "" {
				return nil, invalidInput("sender name is required")
			}
			v.SenderName = name
		}
		patchOptional(&v.SenderEmail, patch.SenderEmail)
		patchOptional(&v.SenderPhone, patch.SenderPhone)
		patchOptional(&v.RecipientName, patch.RecipientName)
		patchOptional(&v.Message, patch.Message)
		if v.DeliveryMethod == DeliveryPost {
			patchOptional(&v.RecipientAddress, patch.RecipientAddress)
			patchOptional(&v.RecipientPostalCode, patch.RecipientPostalCode)
			patchOptional(&v.RecipientCity, patch.RecipientCity)
			if !hasPostalAddress(v.RecipientName, v.RecipientAddress, v.RecipientPostalCode, v.RecipientCity) {
				return nil, ErrMissingRecipientAddress
			}
		}
		if err := validateContact(v.SenderEmail, v.AdminCreated); err != nil {
			return nil, err
		}
		return nil, nil
	})
	return v, err
}

func patchOptional(dst **string, value *string) {
	if value == nil {
		return
	}
	*dst = optional(value)
}

// SoftDelete moves a voucher to the trash. State and balance are preserved.
func (s *Service) SoftDelete(ctx context.Context, id uuid.UUID, actor string) (Voucher, error) {
	v, _, err := s.mutate(ctx, "delete", id, func(v *Voucher, now time.Time) (*Redemption, error) {
		if v.Deleted() {
			return nil, ErrAlreadyDeleted
		}
		at := now
		v.DeletedAt = &at
		v.DeletedBy = optional(&actor)
		return nil, nil
	})
	if err == nil {
		s.log().Info().Str("voucher_id", v.ID.String()).Str("actor", actor).Msg("voucher moved to trash")
	}
	return v, err
}

// Restore takes a voucher out of the trash.
func (s *Service) Restore(ctx context.Context, id uuid.UUID) (Voucher, error) {
	v, _, err := s.mutate(ctx, "restore", id, func(v *Voucher, _ time.Time) (*Redemption, error) {
		if !v.Deleted() {
			return nil, ErrNotInTrash
		}
		v.DeletedAt = nil
		v.DeletedBy = nil
		return nil, nil
	})
	return v, err
}

// PermanentDelete erases a trashed voucher and its ledger.
func (s *Service) PermanentDelete(ctx context.Context, id uuid.UUID) error {
	if err := s.ready(); err != nil {
		return err
	}
	err := s.Store.Purge(ctx, id)
	s.observe("purge", err)
	if err == nil {
		s.log().Info().Str("voucher_id", id.String()).Msg("voucher permanently deleted")
	}
	return err
}
