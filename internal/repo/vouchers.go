package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/studio-vouchers/internal/voucher"
)

const voucherColumns = `id, code, order_number, studio_id, amount, remaining_amount,
sender_name, sender_email, sender_phone, recipient_name, recipient_address,
recipient_postal_code, recipient_city, message, delivery_method,
payment_status, status, admin_created, created_at, expires_at, updated_at,
deleted_at, deleted_by, version`

// VoucherStore is the Postgres system of record for vouchers and redemptions.
type VoucherStore struct {
	pool *pgxpool.Pool
}

var _ voucher.Store = (*VoucherStore)(nil)

// NewVoucherStore constructs a VoucherStore backed by a pgx connection pool.
func NewVoucherStore(pool *pgxpool.Pool) *VoucherStore {
	return &VoucherStore{pool: pool}
}

func (s *VoucherStore) ready() error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("%w: postgres pool not configured", voucher.ErrStoreUnavailable)
	}
	return nil
}

// Insert persists a new voucher. Unique violations on code or order number are
// reported as the matching duplicate sentinel.
func (s *VoucherStore) Insert(ctx context.Context, v voucher.Voucher) error {
	if err := s.ready(); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx, `INSERT INTO vouchers (`+voucherColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)`,
		v.ID, v.Code, v.OrderNumber, v.StudioID, v.Amount, v.Remaining,
		v.SenderName, v.SenderEmail, v.SenderPhone, v.RecipientName, v.RecipientAddress,
		v.RecipientPostalCode, v.RecipientCity, v.Message, string(v.DeliveryMethod),
		string(v.PaymentStatus()), string(v.Status()), v.AdminCreated, v.CreatedAt, v.ExpiresAt, v.UpdatedAt,
		v.DeletedAt, v.DeletedBy, v.Version)
	if err != nil {
		if dup := duplicateError(err); dup != nil {
			return dup
		}
		return unavailable("insert voucher", err)
	}
	return nil
}

// CodeTaken reports whether any stored voucher, trashed or not, uses code.
func (s *VoucherStore) CodeTaken(ctx context.Context, code string) (bool, error) {
	return s.exists(ctx, `SELECT EXISTS (SELECT 1 FROM vouchers WHERE code = $1)`, code)
}

// OrderNumberTaken reports whether any stored voucher uses orderNumber.
func (s *VoucherStore) OrderNumberTaken(ctx context.Context, orderNumber string) (bool, error) {
	return s.exists(ctx, `SELECT EXISTS (SELECT 1 FROM vouchers WHERE order_number = $1)`, orderNumber)
}

func (s *VoucherStore) exists(ctx context.Context, query, arg string) (bool, error) {
	if err := s.ready(); err != nil {
		return false, err
	}
	var taken bool
	if err := s.pool.QueryRow(ctx, query, arg).Scan(&taken); err != nil {
		return false, unavailable("check identifier", err)
	}
	return taken, nil
}

// Get fetches a voucher by id, including trashed ones.
func (s *VoucherStore) Get(ctx context.Context, id uuid.UUID) (voucher.Voucher, error) {
	if err := s.ready(); err != nil {
		return voucher.Voucher{}, err
	}
	row := s.pool.QueryRow(ctx, `SELECT `+voucherColumns+` FROM vouchers WHERE id = $1`, id)
	v, err := scanVoucher(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return voucher.Voucher{}, voucher.ErrVoucherNotFound
	}
	if err != nil {
		return voucher.Voucher{}, unavailable("get voucher", err)
	}
	return v, nil
}

// List returns one page of a studio's live or trashed vouchers, newest first,
// together with the total count for that filter.
func (s *VoucherStore) List(ctx context.Context, f voucher.ListFilter) ([]voucher.Voucher, int, error) {
	if err := s.ready(); err != nil {
		return nil, 0, err
	}
	trashFilter := "deleted_at IS NULL"
	if f.Trashed {
		trashFilter = "deleted_at IS NOT NULL"
	}

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM vouchers WHERE studio_id = $1 AND `+trashFilter, f.StudioID).Scan(&total); err != nil {
		return nil, 0, unavailable("count vouchers", err)
	}

	rows, err := s.pool.Query(ctx, `SELECT `+voucherColumns+` FROM vouchers
WHERE studio_id = $1 AND `+trashFilter+`
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3`, f.StudioID, clampPositive(f.Limit, 20), max(f.Offset, 0))
	if err != nil {
		return nil, 0, unavailable("list vouchers", err)
	}
	defer rows.Close()

	out := make([]voucher.Voucher, 0)
	for rows.Next() {
		v, err := scanVoucher(rows)
		if err != nil {
			return nil, 0, unavailable("scan voucher", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, unavailable("list vouchers", err)
	}
	return out, total, nil
}

// History returns the ledger of a voucher in redemption order.
func (s *VoucherStore) History(ctx context.Context, id uuid.UUID) ([]voucher.Redemption, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, `SELECT id, voucher_id, amount, description, redeemed_at, remaining_after
FROM redemptions WHERE voucher_id = $1 ORDER BY redeemed_at, id`, id)
	if err != nil {
		return nil, unavailable("list redemptions", err)
	}
	defer rows.Close()

	var out []voucher.Redemption
	for rows.Next() {
		var r voucher.Redemption
		if err := rows.Scan(&r.ID, &r.VoucherID, &r.Amount, &r.Description, &r.RedeemedAt, &r.RemainingAfter); err != nil {
			return nil, unavailable("scan redemption", err)
		}
		r.RedeemedAt = r.RedeemedAt.UTC()
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list redemptions", err)
	}
	return out, nil
}

// Save writes the mutated snapshot only if the row still carries the expected
// version, and appends the redemption in the same transaction.
func (s *VoucherStore) Save(ctx context.Context, m voucher.Mutation) (voucher.Voucher, error) {
	if err := s.ready(); err != nil {
		return voucher.Voucher{}, err
	}
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return voucher.Voucher{}, unavailable("begin tx", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	v := m.Voucher
	row := tx.QueryRow(ctx, `UPDATE vouchers SET
	remaining_amount = $3,
	sender_name = $4,
	sender_email = $5,
	sender_phone = $6,
	recipient_name = $7,
	recipient_address = $8,
	recipient_postal_code = $9,
	recipient_city = $10,
	message = $11,
	payment_status = $12,
	status = $13,
	updated_at = $14,
	deleted_at = $15,
	deleted_by = $16,
	version = version + 1
WHERE id = $1 AND version = $2
RETURNING `+voucherColumns,
		v.ID, m.ExpectedVersion, v.Remaining,
		v.SenderName, v.SenderEmail, v.SenderPhone, v.RecipientName, v.RecipientAddress,
		v.RecipientPostalCode, v.RecipientCity, v.Message,
		string(v.PaymentStatus()), string(v.Status()), v.UpdatedAt, v.DeletedAt, v.DeletedBy)
	saved, err := scanVoucher(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return voucher.Voucher{}, s.missingOrConflict(ctx, tx, v.ID)
	}
	if err != nil {
		return voucher.Voucher{}, unavailable("update voucher", err)
	}

	if r := m.Redemption; r != nil {
		if _, err := tx.Exec(ctx, `INSERT INTO redemptions (id, voucher_id, amount, description, redeemed_at, remaining_after)
VALUES ($1, $2, $3, $4, $5, $6)`, r.ID, r.VoucherID, r.Amount, r.Description, r.RedeemedAt, r.RemainingAfter); err != nil {
			return voucher.Voucher{}, unavailable("insert redemption", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return voucher.Voucher{}, unavailable("commit", err)
	}
	return saved, nil
}

func (s *VoucherStore) missingOrConflict(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	var found bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM vouchers WHERE id = $1)`, id).Scan(&found); err != nil {
		return unavailable("check voucher", err)
	}
	if !found {
		return voucher.ErrVoucherNotFound
	}
	return voucher.ErrVersionConflict
}

// Purge erases a trashed voucher; redemptions follow through ON DELETE CASCADE.
func (s *VoucherStore) Purge(ctx context.Context, id uuid.UUID) error {
	if err := s.ready(); err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM vouchers WHERE id = $1 AND deleted_at IS NOT NULL`, id)
	if err != nil {
		return unavailable("purge voucher", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	var live bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM vouchers WHERE id = $1)`, id).Scan(&live); err != nil {
		return unavailable("check voucher", err)
	}
	if live {
		return voucher.ErrNotInTrash
	}
	return voucher.ErrVoucherNotFound
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVoucher(row rowScanner) (voucher.Voucher, error) {
	var (
		v             voucher.Voucher
		delivery      string
		paymentStatus string
		status        string
		createdAt     time.Time
		expiresAt     time.Time
		updatedAt     time.Time
	)
	err := row.Scan(
		&v.ID, &v.Code, &v.OrderNumber, &v.StudioID, &v.Amount, &v.Remaining,
		&v.SenderName, &v.SenderEmail, &v.SenderPhone, &v.RecipientName, &v.RecipientAddress,
		&v.RecipientPostalCode, &v.RecipientCity, &v.Message, &delivery,
		&paymentStatus, &status, &v.AdminCreated, &createdAt, &expiresAt, &updatedAt,
		&v.DeletedAt, &v.DeletedBy, &v.Version,
	)
	if err != nil {
		return voucher.Voucher{}, err
	}
	state, err := voucher.StateFromColumns(voucher.PaymentStatus(paymentStatus), voucher.Status(status))
	if err != nil {
		return voucher.Voucher{}, err
	}
	v.State = state
	v.DeliveryMethod = voucher.DeliveryMethod(delivery)
	v.CreatedAt = createdAt.UTC()
	v.ExpiresAt = expiresAt.UTC()
	v.UpdatedAt = updatedAt.UTC()
	if v.DeletedAt != nil {
		t := v.DeletedAt.UTC()
		v.DeletedAt = &t
	}
	return v, nil
}
