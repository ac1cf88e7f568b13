// internal/repository/postgres/balance_pg.go
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"wallet-ledger/internal/domain"
	"wallet-ledger/internal/repository"
	"wallet-ledger/internal/util"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const balanceColumns = `id, owner_id, balance, currency, created_at, updated_at`

// BalanceRepository implements repository.BalanceRepository for PostgreSQL.
type BalanceRepository struct{}

// NewBalanceRepository creates a new BalanceRepository.
func NewBalanceRepository(db *sqlx.DB) repository.BalanceRepository {
	return &BalanceRepository{}
}

// Credit upserts the owner's balance in one statement. The conflict branch only applies
// when currencies match, so a mismatch comes back as no row.
func (r *BalanceRepository) Credit(ctx context.Context, q repository.DBExecutor, ownerID uuid.UUID, amount int64, currency string) (*domain.Balance, error) {
	fresh := domain.NewBalance(ownerID, amount, currency)
	query := `INSERT INTO balances (id, owner_id, balance, currency, created_at, updated_at)
              VALUES ($1, $2, $3, $4, $5, $6)
              ON CONFLICT (owner_id) DO UPDATE
                SET balance = balances.balance + EXCLUDED.balance,
                    updated_at = EXCLUDED.updated_at
                WHERE balances.currency = EXCLUDED.currency
              RETURNING ` + balanceColumns

	var balance domain.Balance
	err := q.GetContext(ctx, &balance, query,
		fresh.ID, fresh.OwnerID, fresh.Balance, fresh.Currency, fresh.CreatedAt, fresh.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, util.ErrCurrencyMismatch
		}
		return nil, fmt.Errorf("failed to credit balance for owner %s: %w", ownerID, translateError(err))
	}
	return &balance, nil
}

// ConditionalDebit decrements the balance only if it covers amount, as a single UPDATE.
// Concurrent debits serialize on the row lock and each re-checks the condition.
func (r *BalanceRepository) ConditionalDebit(ctx context.Context, q repository.DBExecutor, ownerID uuid.UUID, amount int64) (*domain.Balance, error) {
	query := `UPDATE balances
              SET balance = balance - $1, updated_at = $2
              WHERE owner_id = $3 AND balance >= $1
              RETURNING ` + balanceColumns

	var balance domain.Balance
	err := q.GetContext(ctx, &balance, query, amount, time.Now().UTC(), ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, util.ErrInsufficientBalance
		}
		return nil, fmt.Errorf("failed to debit balance for owner %s: %w", ownerID, translateError(err))
	}
	return &balance, nil
}

// GetBalanceByOwner retrieves the owner's balance record.
func (r *BalanceRepository) GetBalanceByOwner(ctx context.Context, q repository.DBExecutor, ownerID uuid.UUID) (*domain.Balance, error) {
	var balance domain.Balance
	query := `SELECT ` + balanceColumns + ` FROM balances WHERE owner_id = $1`
	err := q.GetContext(ctx, &balance, query, ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, util.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get balance for owner %s: %w", ownerID, err)
	}
	return &balance, nil
}
