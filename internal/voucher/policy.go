package voucher

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const (
	DefaultValidityMonths = 12
	MinValidityMonths     = 1
	MaxValidityMonths     = 36
)

// StudioPolicy holds the per-studio rules applied at creation time.
type StudioPolicy struct {
	ValidityMonths int
	OnlineMin      decimal.Decimal
	// OnlineMax of zero means unbounded.
	OnlineMax decimal.Decimal
	AdminMin  decimal.Decimal
	AdminMax  decimal.Decimal
}

// PolicySource resolves the policy for a studio.
type PolicySource interface {
	StudioPolicy(ctx context.Context, studioID string) (StudioPolicy, error)
}

// DefaultPolicy is used when a studio has no configuration.
func DefaultPolicy() StudioPolicy {
	return StudioPolicy{
		ValidityMonths: DefaultValidityMonths,
		OnlineMin:      decimal.NewFromInt(25),
		AdminMin:       decimal.NewFromInt(10),
		AdminMax:       decimal.NewFromInt(1000),
	}
}

// StaticPolicy serves the same policy to every studio.
type StaticPolicy StudioPolicy

// StudioPolicy implements PolicySource.
func (p StaticPolicy) StudioPolicy(context.Context, string) (StudioPolicy, error) {
	return StudioPolicy(p), nil
}

// ClampValidityMonths bounds months to the supported range. Unset values use the default.
func ClampValidityMonths(months int) int {
	switch {
	case months < MinValidityMonths:
		return DefaultValidityMonths
	case months > MaxValidityMonths:
		return MaxValidityMonths
	default:
		return months
	}
}

// ExpiresAt returns from plus the validity period in calendar months.
func (p StudioPolicy) ExpiresAt(from time.Time) time.Time {
	return from.AddDate(0, ClampValidityMonths(p.ValidityMonths), 0)
}

// CheckAmount validates amount against the online or admin bounds.
func (p StudioPolicy) CheckAmount(amount decimal.Decimal, adminCreated bool) error {
	if err := checkMoney(amount); err != nil {
		return err
	}
	if adminCreated {
		if amount.LessThan(p.AdminMin) || (p.AdminMax.IsPositive() && amount.GreaterThan(p.AdminMax)) {
			return fmt.Errorf("%w: admin sales must be between %s and %s", ErrInvalidAmount,
				p.AdminMin.StringFixed(2), p.AdminMax.StringFixed(2))
		}
		return nil
	}
	if amount.LessThan(p.OnlineMin) {
		return fmt.Errorf("%w: online orders must be at least %s", ErrInvalidAmount, p.OnlineMin.StringFixed(2))
	}
	if p.OnlineMax.IsPositive() && amount.GreaterThan(p.OnlineMax) {
		return fmt.Errorf("%w: online orders must be at most %s", ErrInvalidAmount, p.OnlineMax.StringFixed(2))
	}
	return nil
}

// checkMoney accepts positive amounts with at most two fractional digits.
func checkMoney(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidAmount)
	}
	if !amount.Equal(amount.Round(2)) {
		return fmt.Errorf("%w: amount has more than two decimals", ErrInvalidAmount)
	}
	return nil
}
