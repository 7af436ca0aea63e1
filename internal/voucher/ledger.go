package voucher

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const maxDescriptionLength = 500

// checkRedeemable applies the redemption preconditions in their reporting order.
func checkRedeemable(v Voucher, amount decimal.Decimal, now time.Time) error {
	if v.Deleted() {
		return ErrVoucherDeleted
	}
	if v.State == StateRedeemed {
		// A redeemed voucher has a zero balance.
		if err := checkMoney(amount); err != nil {
			return err
		}
		return &InsufficientBalanceError{Remaining: v.Remaining, Requested: amount}
	}
	if v.State != StateActive {
		return fmt.Errorf("%w: voucher is %s", ErrVoucherNotActive, v.State)
	}
	if v.Expired(now) {
		return fmt.Errorf("%w: expired at %s", ErrVoucherExpired, v.ExpiresAt.UTC().Format(time.RFC3339))
	}
	if err := checkMoney(amount); err != nil {
		return err
	}
	if amount.GreaterThan(v.Remaining) {
		return &InsufficientBalanceError{Remaining: v.Remaining, Requested: amount}
	}
	return nil
}

// applyRedemption returns the snapshot after redeeming amount and the ledger row to append.
func applyRedemption(v Voucher, amount decimal.Decimal, description string, now time.Time) (Voucher, Redemption, error) {
	if err := checkRedeemable(v, amount, now); err != nil {
		return Voucher{}, Redemption{}, err
	}
	description = strings.TrimSpace(description)
	if len(description) > maxDescriptionLength {
		return Voucher{}, Redemption{}, invalidInput("description exceeds %d characters", maxDescriptionLength)
	}
	next := v
	next.Remaining = v.Remaining.Sub(amount)
	if next.Remaining.IsZero() {
		next.State = StateRedeemed
	}
	next.UpdatedAt = now
	r := Redemption{
		ID:             uuid.New(),
		VoucherID:      v.ID,
		Amount:         amount,
		Description:    description,
		RedeemedAt:     now,
		RemainingAfter: next.Remaining,
	}
	return next, r, nil
}

// VerifyLedger checks the balance invariants of v against its ordered history.
func VerifyLedger(v Voucher, history []Redemption) error {
	if v.Remaining.IsNegative() || v.Remaining.GreaterThan(v.Amount) {
		return fmt.Errorf("voucher %s: remaining %s outside [0, %s]", v.ID, v.Remaining, v.Amount)
	}
	spent := decimal.Zero
	for i, r := range history {
		if r.VoucherID != v.ID {
			return fmt.Errorf("voucher %s: redemption %s belongs to %s", v.ID, r.ID, r.VoucherID)
		}
		if !r.Amount.IsPositive() {
			return fmt.Errorf("voucher %s: redemption %d has non-positive amount %s", v.ID, i, r.Amount)
		}
		spent = spent.Add(r.Amount)
		if want := v.Amount.Sub(spent); !r.RemainingAfter.Equal(want) {
			return fmt.Errorf("voucher %s: redemption %d remaining_after %s, want %s", v.ID, i, r.RemainingAfter, want)
		}
	}
	if want := v.Amount.Sub(spent); !v.Remaining.Equal(want) {
		return fmt.Errorf("voucher %s: remaining %s, ledger implies %s", v.ID, v.Remaining, want)
	}
	if v.Remaining.IsZero() && v.State != StateRedeemed {
		return fmt.Errorf("voucher %s: zero balance in state %s", v.ID, v.State)
	}
	if v.State == StateRedeemed && !v.Remaining.IsZero() {
		return fmt.Errorf("voucher %s: redeemed with balance %s", v.ID, v.Remaining)
	}
	return nil
}
