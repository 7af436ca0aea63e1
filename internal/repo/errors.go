package repo

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/noah-isme/studio-vouchers/internal/voucher"
)

const uniqueViolation = "23505"

// Unique constraint names from db/migrations.
const (
	constraintVoucherCode        = "vouchers_code_key"
	constraintVoucherOrderNumber = "vouchers_order_number_key"
)

// duplicateError maps a unique violation on vouchers to the domain sentinel.
// It returns nil for any other error.
func duplicateError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return nil
	}
	switch {
	case pgErr.ConstraintName == constraintVoucherCode:
		return fmt.Errorf("%w: %s", voucher.ErrDuplicateCode, pgErr.Detail)
	case pgErr.ConstraintName == constraintVoucherOrderNumber:
		return fmt.Errorf("%w: %s", voucher.ErrDuplicateOrderNumber, pgErr.Detail)
	case strings.Contains(pgErr.Detail, "(order_number)"):
		return fmt.Errorf("%w: %s", voucher.ErrDuplicateOrderNumber, pgErr.Detail)
	default:
		return fmt.Errorf("%w: %s", voucher.ErrDuplicateCode, pgErr.Detail)
	}
}

// unavailable wraps a driver failure so the service layer can classify it
// while errors.Is still reaches the cause.
func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, voucher.ErrStoreUnavailable, err)
}

func clampPositive(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
