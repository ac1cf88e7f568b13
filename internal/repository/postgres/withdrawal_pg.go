// internal/repository/postgres/withdrawal_pg.go
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

const withdrawalColumns = `id, owner_id, amount, currency, destination, status, failure_reason, idempotency_key, created_at, updated_at`

// WithdrawalRepository implements repository.WithdrawalRepository for PostgreSQL.
type WithdrawalRepository struct{}

// NewWithdrawalRepository creates a new WithdrawalRepository.
func NewWithdrawalRepository(db *sqlx.DB) repository.WithdrawalRepository {
	return &WithdrawalRepository{}
}

// CreateWithdrawal inserts a new withdrawal record.
func (r *WithdrawalRepository) CreateWithdrawal(ctx context.Context, q repository.DBExecutor, w *domain.Withdrawal) error {
	query := `INSERT INTO withdrawals (` + withdrawalColumns + `)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := q.ExecContext(ctx, query,
		w.ID,
		w.OwnerID,
		w.Amount,
		w.Currency,
		w.Destination,
		w.Status,
		w.FailureReason,
		w.IdempotencyKey,
		w.CreatedAt,
		w.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create withdrawal: %w", translateError(err))
	}
	return nil
}

// GetWithdrawalByID retrieves a withdrawal by its ID.
func (r *WithdrawalRepository) GetWithdrawalByID(ctx context.Context, q repository.DBExecutor, id uuid.UUID) (*domain.Withdrawal, error) {
	var w domain.Withdrawal
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawals WHERE id = $1`
	err := q.GetContext(ctx, &w, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, util.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get withdrawal %s: %w", id, err)
	}
	return &w, nil
}

// GetWithdrawalByIdempotencyKey retrieves the owner's withdrawal created with key.
func (r *WithdrawalRepository) GetWithdrawalByIdempotencyKey(ctx context.Context, q repository.DBExecutor, ownerID uuid.UUID, key string) (*domain.Withdrawal, error) {
	var w domain.Withdrawal
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawals WHERE owner_id = $1 AND idempotency_key = $2`
	err := q.GetContext(ctx, &w, query, ownerID, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, util.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get withdrawal for owner %s by idempotency key: %w", ownerID, err)
	}
	return &w, nil
}

// TransitionStatus applies from -> to only while the row still holds from.
func (r *WithdrawalRepository) TransitionStatus(ctx context.Context, q repository.DBExecutor, id uuid.UUID, from, to domain.WithdrawalStatus, failureReason *string) (bool, error) {
	if !from.CanTransitionTo(to) {
		return false, fmt.Errorf("%s -> %s: %w", from, to, util.ErrInvalidTransition)
	}
	query := `UPDATE withdrawals
              SET status = $1, failure_reason = COALESCE($2, failure_reason), updated_at = $3
              WHERE id = $4 AND status = $5`
	result, err := q.ExecContext(ctx, query, to, failureReason, time.Now().UTC(), id, from)
	if err != nil {
		return false, fmt.Errorf("failed to move withdrawal %s from %s to %s: %w", id, from, to, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected after moving withdrawal %s: %w", id, err)
	}
	return rowsAffected == 1, nil
}
