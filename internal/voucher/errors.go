package voucher

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidInput indicates a malformed or incomplete request.
	ErrInvalidInput = errors.New("voucher: invalid input")
	// ErrInvalidAmount indicates an amount outside the allowed range or precision.
	ErrInvalidAmount = errors.New("voucher: invalid amount")
	// ErrMissingRecipientAddress indicates postal delivery without a full address.
	ErrMissingRecipientAddress = errors.New("voucher: postal delivery requires recipient name, address, postal code and city")
	// ErrVoucherNotFound indicates the voucher does not exist.
	ErrVoucherNotFound = errors.New("voucher: not found")
	// ErrInvalidTransition indicates a state change the lifecycle does not allow.
	ErrInvalidTransition = errors.New("voucher: invalid transition")
	// ErrVoucherDeleted indicates the voucher sits in the trash.
	ErrVoucherDeleted = errors.New("voucher: deleted")
	// ErrVoucherNotActive indicates a redemption attempt on a voucher that is not active.
	ErrVoucherNotActive = errors.New("voucher: not active")
	// ErrVoucherExpired indicates the validity period has passed.
	ErrVoucherExpired = errors.New("voucher: expired")
	// ErrInsufficientBalance indicates the requested amount exceeds the remaining balance.
	ErrInsufficientBalance = errors.New("voucher: insufficient balance")
	// ErrVoucherFinalized indicates details can no longer change.
	ErrVoucherFinalized = errors.New("voucher: redeemed or cancelled")
	// ErrAlreadyDeleted indicates a soft delete of a voucher already in the trash.
	ErrAlreadyDeleted = errors.New("voucher: already deleted")
	// ErrNotInTrash indicates restore or permanent delete of a live voucher.
	ErrNotInTrash = errors.New("voucher: not in trash")
	// ErrDuplicateCode is returned by stores when the code is already used.
	ErrDuplicateCode = errors.New("voucher: duplicate code")
	// ErrDuplicateOrderNumber is returned by stores when the order number is already used.
	ErrDuplicateOrderNumber = errors.New("voucher: duplicate order number")
	// ErrVersionConflict is returned by stores when the row changed since it was read.
	ErrVersionConflict = errors.New("voucher: version conflict")
	// ErrConcurrentModification indicates conflict retries were exhausted.
	ErrConcurrentModification = errors.New("voucher: concurrent modification")
	// ErrGenerationExhausted indicates no unique code or order number could be generated.
	ErrGenerationExhausted = errors.New("voucher: identifier generation exhausted")
	// ErrStoreUnavailable wraps transport failures of the backing store.
	ErrStoreUnavailable = errors.New("voucher: store unavailable")
)

// TransitionError describes a rejected status change.
type TransitionError struct {
	Current State
	Target  string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("voucher: cannot move from %s to %s", e.Current, e.Target)
}

// Is makes errors.Is(err, ErrInvalidTransition) hold.
func (e *TransitionError) Is(target error) bool { return target == ErrInvalidTransition }

// InsufficientBalanceError carries the balance seen when a redemption was rejected.
type InsufficientBalanceError struct {
	Remaining decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("voucher: insufficient balance: requested %s, remaining %s",
		e.Requested.StringFixed(2), e.Remaining.StringFixed(2))
}

// Is makes errors.Is(err, ErrInsufficientBalance) hold.
func (e *InsufficientBalanceError) Is(target error) bool { return target == ErrInsufficientBalance }

// Kind groups errors by how callers should react to them.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindUnavailable
	KindExhausted
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindUnavailable:
		return "unavailable"
	case KindExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// KindOf classifies err. Unclassified errors report KindUnknown.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrMissingRecipientAddress):
		return KindValidation
	case errors.Is(err, ErrVoucherNotFound):
		return KindNotFound
	case errors.Is(err, ErrStoreUnavailable):
		return KindUnavailable
	case errors.Is(err, ErrGenerationExhausted):
		return KindExhausted
	case errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrVoucherDeleted),
		errors.Is(err, ErrVoucherNotActive),
		errors.Is(err, ErrVoucherExpired),
		errors.Is(err, ErrInsufficientBalance),
		errors.Is(err, ErrVoucherFinalized),
		errors.Is(err, ErrAlreadyDeleted),
		errors.Is(err, ErrNotInTrash),
		errors.Is(err, ErrDuplicateCode),
		errors.Is(err, ErrDuplicateOrderNumber),
		errors.Is(err, ErrVersionConflict),
		errors.Is(err, ErrConcurrentModification):
		return KindConflict
	default:
		return KindUnknown
	}
}

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
