// internal/repository/postgres/errors_test.go
package postgres

import (
	"errors"
	"fmt"
	"testing"

	"wallet-ledger/internal/util"

	"github.com/jackc/pgerrcode"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestTranslateError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
	}{
		{name: "UniqueViolation", err: &pq.Error{Code: pgerrcode.UniqueViolation}, target: util.ErrDuplicateEntry},
		{name: "ImmutableTrigger", err: &pq.Error{Code: pgerrcode.RestrictViolation}, target: util.ErrImmutableViolation},
		{name: "NegativeBalanceCheck", err: &pq.Error{Code: pgerrcode.CheckViolation, Constraint: "balances_balance_non_negative"}, target: util.ErrInsufficientBalance},
		{name: "Overflow", err: &pq.Error{Code: pgerrcode.NumericValueOutOfRange}, target: util.ErrAmountInvalid},
		{name: "WrappedUniqueViolation", err: fmt.Errorf("insert: %w", &pq.Error{Code: pgerrcode.UniqueViolation}), target: util.ErrDuplicateEntry},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			translated := translateError(tt.err)
			assert.ErrorIs(t, translated, tt.target)

			var pqErr *pq.Error
			assert.True(t, errors.As(translated, &pqErr), "original driver error must stay in the chain")
		})
	}

	t.Run("UnmappedPassesThrough", func(t *testing.T) {
		plain := errors.New("connection refused")
		assert.Same(t, plain, translateError(plain))

		other := &pq.Error{Code: pgerrcode.SyntaxError}
		assert.Equal(t, error(other), translateError(other))
	})
}
