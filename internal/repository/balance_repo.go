// internal/repository/balance_repo.go
package repository

import (
	"context"

	"wallet-ledger/internal/domain"

	"github.com/google/uuid"
)

// BalanceRepository is the Balance Store. Every mutation is a single atomic statement.
type BalanceRepository interface {
	// Credit adds amount to the owner's balance, creating the record with currency if absent.
	// It returns util.ErrCurrencyMismatch when an existing record holds another currency.
	Credit(ctx context.Context, q DBExecutor, ownerID uuid.UUID, amount int64, currency string) (*domain.Balance, error)
	// ConditionalDebit subtracts amount only if the current balance covers it.
	// It returns util.ErrInsufficientBalance when the condition does not hold or no record exists.
	ConditionalDebit(ctx context.Context, q DBExecutor, ownerID uuid.UUID, amount int64) (*domain.Balance, error)
	// GetBalanceByOwner returns the owner's balance or util.ErrNotFound.
	GetBalanceByOwner(ctx context.Context, q DBExecutor, ownerID uuid.UUID) (*domain.Balance, error)
}
