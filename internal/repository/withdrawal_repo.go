// internal/repository/withdrawal_repo.go
package repository

import (
	"context"

	"wallet-ledger/internal/domain"

	"github.com/google/uuid"
)

// WithdrawalRepository is the Withdrawal Record Store.
type WithdrawalRepository interface {
	// CreateWithdrawal inserts a new record. A second record for the same (owner, idempotency key)
	// fails with util.ErrDuplicateEntry.
	CreateWithdrawal(ctx context.Context, q DBExecutor, withdrawal *domain.Withdrawal) error
	// GetWithdrawalByID returns the record or util.ErrNotFound.
	GetWithdrawalByID(ctx context.Context, q DBExecutor, id uuid.UUID) (*domain.Withdrawal, error)
	// GetWithdrawalByIdempotencyKey returns the owner's record for key or util.ErrNotFound.
	GetWithdrawalByIdempotencyKey(ctx context.Context, q DBExecutor, ownerID uuid.UUID, key string) (*domain.Withdrawal, error)
	// TransitionStatus moves the record from one status to another in a single conditional update.
	// It reports false when the record was not in the expected status.
	TransitionStatus(ctx context.Context, q DBExecutor, id uuid.UUID, from, to domain.WithdrawalStatus, failureReason *string) (bool, error)
}
