// internal/service/withdrawal_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"wallet-ledger/internal/domain"
	"wallet-ledger/internal/repository"
	"wallet-ledger/internal/util"
	"wallet-ledger/pkg/db"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MaxIdempotencyKeyLength bounds caller-supplied idempotency keys.
const MaxIdempotencyKeyLength = 255

// WithdrawalService drives withdrawals through PENDING, PROCESSING and a terminal state.
type WithdrawalService interface {
	// CreateWithdrawal debits the owner's balance at most once per idempotency key.
	// An insufficient balance is recorded as a FAILED withdrawal, which is returned
	// together with util.ErrInsufficientBalance.
	CreateWithdrawal(ctx context.Context, ownerID string, amount int64, currency, destination string, idempotencyKey *string) (*domain.Withdrawal, error)
	GetWithdrawal(ctx context.Context, ownerID, withdrawalID string) (*domain.Withdrawal, error)
}

type withdrawalService struct {
	dbBeginner     db.DBTxBeginner
	dbExecutor     repository.DBExecutor
	withdrawalRepo repository.WithdrawalRepository
	balanceRepo    repository.BalanceRepository
	auditRepo      repository.AuditLogRepository
	beginTx        db.BeginTxFunc
	commitTx       db.CommitTxFunc
	rollbackTx     db.RollbackTxFunc
	logger         *zap.Logger
}

// NewWithdrawalService creates a new instance of WithdrawalService.
func NewWithdrawalService(
	dbBeginner db.DBTxBeginner,
	dbExecutor repository.DBExecutor,
	withdrawalRepo repository.WithdrawalRepository,
	balanceRepo repository.BalanceRepository,
	auditRepo repository.AuditLogRepository,
	beginTx db.BeginTxFunc,
	commitTx db.CommitTxFunc,
	rollbackTx db.RollbackTxFunc,
	logger *zap.Logger,
) WithdrawalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &withdrawalService{
		dbBeginner:     dbBeginner,
		dbExecutor:     dbExecutor,
		withdrawalRepo: withdrawalRepo,
		balanceRepo:    balanceRepo,
		auditRepo:      auditRepo,
		beginTx:        beginTx,
		commitTx:       commitTx,
		rollbackTx:     rollbackTx,
		logger:         logger.Named("withdrawals"),
	}
}

// CreateWithdrawal validates the request, deduplicates it, records it as PENDING, claims it
// for processing and settles it in one transaction.
func (s *withdrawalService) CreateWithdrawal(
	ctx context.Context,
	ownerID string,
	amount int64,
	currency, destination string,
	idempotencyKey *string,
) (*domain.Withdrawal, error) {
	owner, err := parseOwnerID(ownerID)
	if err != nil {
		return nil, err
	}
	if amount <= 0 {
		return nil, util.ErrAmountInvalid
	}
	destination = strings.TrimSpace(destination)
	if n := utf8.RuneCountInString(destination); n < domain.MinDestinationLength || n > domain.MaxDestinationLength {
		return nil, fmt.Errorf("%w: destination must be %d-%d characters", util.ErrInvalidInput, domain.MinDestinationLength, domain.MaxDestinationLength)
	}
	currency, err = normalizeCurrency(currency)
	if err != nil {
		return nil, err
	}
	key, err := normalizeIdempotencyKey(idempotencyKey)
	if err != nil {
		return nil, err
	}

	if key != nil {
		existing, err := s.withdrawalRepo.GetWithdrawalByIdempotencyKey(ctx, s.dbExecutor, owner, *key)
		switch {
		case err == nil:
			s.logger.Info("idempotent withdrawal replay",
				zap.String("owner_id", owner.String()),
				zap.String("withdrawal_id", existing.ID.String()),
				zap.String("status", string(existing.Status)))
			return existing, nil
		case !errors.Is(err, util.ErrNotFound):
			return nil, fmt.Errorf("create withdrawal: failed to look up idempotency key: %w", err)
		}
	}

	withdrawal := domain.NewWithdrawal(owner, amount, currency, destination, key)
	if err := s.withdrawalRepo.CreateWithdrawal(ctx, s.dbExecutor, withdrawal); err != nil {
		if key != nil && errors.Is(err, util.ErrDuplicateEntry) {
			// A concurrent request with the same key inserted first.
			winner, getErr := s.withdrawalRepo.GetWithdrawalByIdempotencyKey(ctx, s.dbExecutor, owner, *key)
			if getErr != nil {
				return nil, fmt.Errorf("create withdrawal: failed to re-read idempotent withdrawal: %w", getErr)
			}
			return winner, nil
		}
		return nil, fmt.Errorf("create withdrawal: failed to create withdrawal: %w", err)
	}

	applied, err := s.withdrawalRepo.TransitionStatus(ctx, s.dbExecutor, withdrawal.ID,
		domain.WithdrawalStatusPending, domain.WithdrawalStatusProcessing, nil)
	if err != nil {
		return nil, fmt.Errorf("create withdrawal: failed to begin processing %s: %w", withdrawal.ID, err)
	}
	if !applied {
		// Another worker already claimed this record; report its state without debiting.
		current, err := s.withdrawalRepo.GetWithdrawalByID(ctx, s.dbExecutor, withdrawal.ID)
		if err != nil {
			return nil, fmt.Errorf("create withdrawal: failed to re-read withdrawal %s: %w", withdrawal.ID, err)
		}
		return current, nil
	}

	settled, err := s.settle(ctx, withdrawal)
	if err != nil && !errors.Is(err, util.ErrInsufficientBalance) {
		s.logger.Error("withdrawal settlement failed",
			zap.String("owner_id", owner.String()),
			zap.String("withdrawal_id", withdrawal.ID.String()),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("withdrawal settled",
		zap.String("owner_id", owner.String()),
		zap.String("withdrawal_id", settled.ID.String()),
		zap.String("status", string(settled.Status)),
		zap.Int64("amount", settled.Amount))
	return settled, err
}

// settle runs the conditional debit, the terminal transition and the audit append in one
// transaction. The record must already be PROCESSING.
func (s *withdrawalService) settle(ctx context.Context, withdrawal *domain.Withdrawal) (*domain.Withdrawal, error) {
	txController, err := s.beginTx(ctx, s.dbBeginner)
	if err != nil {
		return nil, fmt.Errorf("settle withdrawal: failed to begin transaction: %w", err)
	}
	defer s.rollbackTx(txController)

	txExecutor, ok := txController.(repository.DBExecutor)
	if !ok {
		return nil, fmt.Errorf("settle withdrawal: transaction controller does not implement DBExecutor")
	}

	var (
		outcome domain.WithdrawalStatus
		reason  *string
		entry   *domain.AuditEntry
	)

	balance, err := s.balanceRepo.ConditionalDebit(ctx, txExecutor, withdrawal.OwnerID, withdrawal.Amount)
	switch {
	case err == nil:
		outcome = domain.WithdrawalStatusSuccess
		entry = domain.NewAuditEntry(
			withdrawal.OwnerID, balance,
			domain.MutationKindDebit, domain.MutationContextWithdrawal,
			withdrawal.ID, withdrawal.Amount,
			balance.Balance+withdrawal.Amount, balance.Balance,
			domain.AuditStatusCommitted,
		)
	case errors.Is(err, util.ErrInsufficientBalance):
		current, getErr := s.balanceRepo.GetBalanceByOwner(ctx, txExecutor, withdrawal.OwnerID)
		if getErr != nil && !errors.Is(getErr, util.ErrNotFound) {
			return nil, fmt.Errorf("settle withdrawal: failed to read balance: %w", getErr)
		}
		var amountHeld int64
		if current != nil {
			amountHeld = current.Balance
		}
		failureReason := domain.FailureReasonInsufficientBalance
		outcome, reason = domain.WithdrawalStatusFailed, &failureReason
		entry = domain.NewAuditEntry(
			withdrawal.OwnerID, current,
			domain.MutationKindDebit, domain.MutationContextWithdrawal,
			withdrawal.ID, withdrawal.Amount,
			amountHeld, amountHeld,
			domain.AuditStatusRejected,
		)
	default:
		return nil, fmt.Errorf("settle withdrawal: failed to debit balance: %w", err)
	}

	applied, err := s.withdrawalRepo.TransitionStatus(ctx, txExecutor, withdrawal.ID,
		domain.WithdrawalStatusProcessing, outcome, reason)
	if err != nil {
		return nil, fmt.Errorf("settle withdrawal: failed to mark %s: %w", outcome, err)
	}
	if !applied {
		return nil, fmt.Errorf("settle withdrawal: %s -> %s for %s: %w",
			domain.WithdrawalStatusProcessing, outcome, withdrawal.ID, util.ErrInvalidTransition)
	}

	if err := s.auditRepo.AppendEntry(ctx, txExecutor, entry); err != nil {
		return nil, fmt.Errorf("settle withdrawal: failed to append audit entry: %w", err)
	}

	if err := s.commitTx(txController); err != nil {
		return nil, fmt.Errorf("settle withdrawal: failed to commit transaction: %w", err)
	}

	settled, err := s.withdrawalRepo.GetWithdrawalByID(ctx, s.dbExecutor, withdrawal.ID)
	if err != nil {
		return nil, fmt.Errorf("settle withdrawal: failed to re-read withdrawal %s: %w", withdrawal.ID, err)
	}
	if outcome == domain.WithdrawalStatusFailed {
		return settled, util.ErrInsufficientBalance
	}
	return settled, nil
}

// GetWithdrawal returns a withdrawal belonging to the owner. Another owner's record is
// reported as util.ErrNotFound.
func (s *withdrawalService) GetWithdrawal(ctx context.Context, ownerID, withdrawalID string) (*domain.Withdrawal, error) {
	owner, err := parseOwnerID(ownerID)
	if err != nil {
		return nil, err
	}
	id, err := uuid.Parse(withdrawalID)
	if err != nil {
		return nil, fmt.Errorf("%w: withdrawal id", util.ErrInvalidInput)
	}

	withdrawal, err := s.withdrawalRepo.GetWithdrawalByID(ctx, s.dbExecutor, id)
	if err != nil {
		return nil, fmt.Errorf("get withdrawal: failed to get withdrawal %s: %w", id, err)
	}
	if withdrawal.OwnerID != owner {
		return nil, util.ErrNotFound
	}
	return withdrawal, nil
}

// normalizeIdempotencyKey treats a blank key as absent. Length is counted in characters.
func normalizeIdempotencyKey(key *string) (*string, error) {
	if key == nil {
		return nil, nil
	}
	trimmed := strings.TrimSpace(*key)
	if trimmed == "" {
		return nil, nil
	}
	if utf8.RuneCountInString(trimmed) > MaxIdempotencyKeyLength {
		return nil, fmt.Errorf("%w: idempotency key exceeds %d characters", util.ErrInvalidInput, MaxIdempotencyKeyLength)
	}
	return &trimmed, nil
}
