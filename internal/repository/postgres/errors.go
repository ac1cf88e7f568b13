// internal/repository/postgres/errors.go
package postgres

import (
	"errors"
	"fmt"

	"wallet-ledger/internal/util"

	"github.com/jackc/pgerrcode"
	"github.com/lib/pq"
)

// translateError maps PostgreSQL error codes onto application sentinels.
// Errors without a mapping are returned unchanged.
func translateError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}

	switch string(pqErr.Code) {
	case pgerrcode.UniqueViolation:
		return fmt.Errorf("%w: %w", util.ErrDuplicateEntry, err)
	case pgerrcode.RestrictViolation:
		// Raised by the audit_entries immutability trigger.
		return fmt.Errorf("%w: %w", util.ErrImmutableViolation, err)
	case pgerrcode.CheckViolation:
		if pqErr.Constraint == "balances_balance_non_negative" {
			return fmt.Errorf("%w: %w", util.ErrInsufficientBalance, err)
		}
	case pgerrcode.NumericValueOutOfRange:
		return fmt.Errorf("%w: %w", util.ErrAmountInvalid, err)
	}
	return err
}
