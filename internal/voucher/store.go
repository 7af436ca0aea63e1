package voucher

import (
	"context"

	"github.com/google/uuid"
)

// ListFilter narrows List results to one studio and one side of the trash.
type ListFilter struct {
	StudioID string
	Trashed  bool
	Limit    int
	Offset   int
}

// Mutation is a conditional write of a voucher snapshot. Redemption, when set,
// is appended to the ledger in the same transaction.
type Mutation struct {
	Voucher         Voucher
	ExpectedVersion int64
	Redemption      *Redemption
}

// Store is the system of record for vouchers and their ledger.
type Store interface {
	// Insert persists a new voucher. ErrDuplicateCode or ErrDuplicateOrderNumber on collision.
	Insert(ctx context.Context, v Voucher) error
	CodeTaken(ctx context.Context, code string) (bool, error)
	OrderNumberTaken(ctx context.Context, orderNumber string) (bool, error)
	// Get returns deleted vouchers too. ErrVoucherNotFound when absent.
	Get(ctx context.Context, id uuid.UUID) (Voucher, error)
	List(ctx context.Context, filter ListFilter) ([]Voucher, int, error)
	// History returns redemptions ordered by redeemed_at, id.
	History(ctx context.Context, id uuid.UUID) ([]Redemption, error)
	// Save writes m.Voucher if the stored version still equals m.ExpectedVersion
	// and returns the stored snapshot with its new version. ErrVersionConflict otherwise.
	Save(ctx context.Context, m Mutation) (Voucher, error)
	// Purge erases a trashed voucher and its ledger. ErrNotInTrash for live vouchers.
	Purge(ctx context.Context, id uuid.UUID) error
}
