// internal/service/wallet_service.go
package service

import (
	"context"
	"fmt"

	"wallet-ledger/internal/domain"
	"wallet-ledger/internal/repository"
	"wallet-ledger/internal/util"
	"wallet-ledger/pkg/db"

	"github.com/google/uuid"
)

// WalletService defines the interface for balance-related business logic.
// Amounts are minor units.
type WalletService interface {
	Deposit(ctx context.Context, ownerID string, amount int64, currency string) (*domain.Balance, *domain.AuditEntry, error)
	GetBalance(ctx context.Context, ownerID string) (*domain.Balance, error)
	GetTransactionHistory(ctx context.Context, ownerID string, limit, offset int) ([]domain.AuditEntry, int64, error)
}

// walletService implements the WalletService interface.
type walletService struct {
	dbBeginner  db.DBTxBeginner       // For starting transactions (e.g., *sqlx.DB)
	dbExecutor  repository.DBExecutor // For non-transactional reads (e.g., *sqlx.DB)
	balanceRepo repository.BalanceRepository
	auditRepo   repository.AuditLogRepository
	beginTx     db.BeginTxFunc    // Injected dependency for beginning transactions
	commitTx    db.CommitTxFunc   // Injected dependency for committing transactions
	rollbackTx  db.RollbackTxFunc // Injected dependency for rolling back transactions
}

// NewWalletService creates a new instance of WalletService.
func NewWalletService(
	dbBeginner db.DBTxBeginner,
	dbExecutor repository.DBExecutor,
	balanceRepo repository.BalanceRepository,
	auditRepo repository.AuditLogRepository,
	beginTx db.BeginTxFunc,
	commitTx db.CommitTxFunc,
	rollbackTx db.RollbackTxFunc,
) WalletService {
	return &walletService{
		dbBeginner:  dbBeginner,
		dbExecutor:  dbExecutor,
		balanceRepo: balanceRepo,
		auditRepo:   auditRepo,
		beginTx:     beginTx,
		commitTx:    commitTx,
		rollbackTx:  rollbackTx,
	}
}

// parseOwnerID validates an authenticated owner identifier.
func parseOwnerID(ownerID string) (uuid.UUID, error) {
	id, err := uuid.Parse(ownerID)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, util.ErrInvalidOwner
	}
	return id, nil
}

// normalizeCurrency applies the default currency and rejects malformed codes.
func normalizeCurrency(currency string) (string, error) {
	currency = domain.NormalizeCurrency(currency)
	if !domain.ValidCurrency(currency) {
		return "", fmt.Errorf("%w: currency %q", util.ErrInvalidInput, currency)
	}
	return currency, nil
}

// Deposit credits the owner's balance, creating it on first use, and records the credit
// in the audit log within the same transaction.
func (s *walletService) Deposit(ctx context.Context, ownerID string, amount int64, currency string) (*domain.Balance, *domain.AuditEntry, error) {
	owner, err := parseOwnerID(ownerID)
	if err != nil {
		return nil, nil, err
	}
	if amount <= 0 {
		return nil, nil, util.ErrAmountInvalid
	}
	currency, err = normalizeCurrency(currency)
	if err != nil {
		return nil, nil, err
	}

	txController, err := s.beginTx(ctx, s.dbBeginner)
	if err != nil {
		return nil, nil, fmt.Errorf("deposit: failed to begin transaction: %w", err)
	}
	defer s.rollbackTx(txController)

	txExecutor, ok := txController.(repository.DBExecutor)
	if !ok {
		return nil, nil, fmt.Errorf("deposit: transaction controller does not implement DBExecutor")
	}

	balance, err := s.balanceRepo.Credit(ctx, txExecutor, owner, amount, currency)
	if err != nil {
		return nil, nil, fmt.Errorf("deposit: failed to credit balance for owner %s: %w", owner, err)
	}

	entry := domain.NewAuditEntry(
		owner, balance,
		domain.MutationKindCredit, domain.MutationContextDeposit,
		uuid.New(), amount,
		balance.Balance-amount, balance.Balance,
		domain.AuditStatusCommitted,
	)
	if err := s.auditRepo.AppendEntry(ctx, txExecutor, entry); err != nil {
		return nil, nil, fmt.Errorf("deposit: failed to append audit entry: %w", err)
	}

	if err := s.commitTx(txController); err != nil {
		return nil, nil, fmt.Errorf("deposit: failed to commit transaction: %w", err)
	}

	return balance, entry, nil
}

// GetBalance returns the owner's balance record.
func (s *walletService) GetBalance(ctx context.Context, ownerID string) (*domain.Balance, error) {
	owner, err := parseOwnerID(ownerID)
	if err != nil {
		return nil, err
	}

	// For read-only operations outside a transaction, use s.dbExecutor
	balance, err := s.balanceRepo.GetBalanceByOwner(ctx, s.dbExecutor, owner)
	if err != nil {
		return nil, fmt.Errorf("get balance: failed to get balance for owner %s: %w", owner, err)
	}
	return balance, nil
}

// GetTransactionHistory retrieves a paginated list of audit entries for the owner.
func (s *walletService) GetTransactionHistory(ctx context.Context, ownerID string, limit, offset int) ([]domain.AuditEntry, int64, error) {
	owner, err := parseOwnerID(ownerID)
	if err != nil {
		return nil, 0, err
	}
	if limit <= 0 || offset < 0 {
		return nil, 0, util.ErrInvalidInput
	}

	entries, totalCount, err := s.auditRepo.GetEntriesByOwner(ctx, s.dbExecutor, owner, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to retrieve transaction history: %w", err)
	}

	return entries, totalCount, nil
}
