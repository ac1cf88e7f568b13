// internal/service/withdrawal_service_test.go
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"wallet-ledger/internal/domain"
	"wallet-ledger/internal/util"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type withdrawalFixture struct {
	service        WithdrawalService
	withdrawalRepo *MockWithdrawalRepository
	balanceRepo    *MockBalanceRepository
	auditRepo      *MockAuditLogRepository
	dbBeginner     *MockDBBeginner
	dbExecutor     *MockDBExecutor
	tx             *MockTxController
}

func newWithdrawalFixture() *withdrawalFixture {
	f := &withdrawalFixture{
		withdrawalRepo: new(MockWithdrawalRepository),
		balanceRepo:    new(MockBalanceRepository),
		auditRepo:      new(MockAuditLogRepository),
		dbBeginner:     new(MockDBBeginner),
		dbExecutor:     new(MockDBExecutor),
		tx:             new(MockTxController),
	}
	beginTx, commitTx, rollbackTx := txFuncs(f.tx)
	f.service = NewWithdrawalService(
		f.dbBeginner, f.dbExecutor,
		f.withdrawalRepo, f.balanceRepo, f.auditRepo,
		beginTx, commitTx, rollbackTx,
		nil,
	)
	return f
}

func (f *withdrawalFixture) assertExpectations(t *testing.T) {
	mock.AssertExpectationsForObjects(t, f.withdrawalRepo, f.balanceRepo, f.auditRepo, f.dbBeginner, f.dbExecutor, f.tx)
}

// expectPendingToProcessing registers the insert and the claim of a new record, capturing it.
func (f *withdrawalFixture) expectPendingToProcessing(ctx context.Context, created **domain.Withdrawal) {
	f.withdrawalRepo.On("CreateWithdrawal", ctx, f.dbExecutor, mock.MatchedBy(func(w *domain.Withdrawal) bool {
		return w.Status == domain.WithdrawalStatusPending
	})).Run(func(args mock.Arguments) {
		*created = args.Get(2).(*domain.Withdrawal)
	}).Return(nil).Once()
	f.withdrawalRepo.On("TransitionStatus", ctx, f.dbExecutor, mock.Anything,
		domain.WithdrawalStatusPending, domain.WithdrawalStatusProcessing, (*string)(nil)).Return(true, nil).Once()
}

func settledCopy(owner uuid.UUID, amount int64, status domain.WithdrawalStatus, reason *string) *domain.Withdrawal {
	w := domain.NewWithdrawal(owner, amount, "INR", "acct-123", nil)
	w.Status = status
	w.FailureReason = reason
	return w
}

func TestCreateWithdrawalSuccess(t *testing.T) {
	ctx := context.Background()
	f := newWithdrawalFixture()
	owner := uuid.New()
	amount := int64(40000)

	var created *domain.Withdrawal
	f.expectPendingToProcessing(ctx, &created)

	debited := &domain.Balance{ID: uuid.New(), OwnerID: owner, Balance: 60000, Currency: "INR"}
	f.balanceRepo.On("ConditionalDebit", ctx, f.tx, owner, amount).Return(debited, nil).Once()
	f.withdrawalRepo.On("TransitionStatus", ctx, f.tx, mock.Anything,
		domain.WithdrawalStatusProcessing, domain.WithdrawalStatusSuccess, (*string)(nil)).Return(true, nil).Once()
	f.auditRepo.On("AppendEntry", ctx, f.tx, mock.MatchedBy(func(e *domain.AuditEntry) bool {
		return e.Kind == domain.MutationKindDebit &&
			e.Context == domain.MutationContextWithdrawal &&
			e.Status == domain.AuditStatusCommitted &&
			e.BalanceBefore == 100000 && e.BalanceAfter == 60000 &&
			e.ReferenceID == created.ID
	})).Return(nil).Once()
	f.tx.On("Commit").Return(nil).Once()
	f.tx.On("Rollback").Return(nil).Maybe() // Deferred rollback runs after commit

	success := settledCopy(owner, amount, domain.WithdrawalStatusSuccess, nil)
	f.withdrawalRepo.On("GetWithdrawalByID", ctx, f.dbExecutor, mock.Anything).Return(success, nil).Once()

	result, err := f.service.CreateWithdrawal(ctx, owner.String(), amount, "", "acct-123", nil)

	require.NoError(t, err)
	assert.Equal(t, domain.WithdrawalStatusSuccess, result.Status)
	assert.Equal(t, "INR", created.Currency)
	assert.Nil(t, created.IdempotencyKey)
	f.assertExpectations(t)
}

func TestCreateWithdrawalInsufficientBalance(t *testing.T) {
	owner := uuid.New()
	amount := int64(70000)
	isInsufficientReason := mock.MatchedBy(func(reason *string) bool {
		return reason != nil && *reason == domain.FailureReasonInsufficientBalance
	})

	t.Run("BalanceTooLow", func(t *testing.T) {
		ctx := context.Background()
		f := newWithdrawalFixture()

		var created *domain.Withdrawal
		f.expectPendingToProcessing(ctx, &created)

		current := &domain.Balance{ID: uuid.New(), OwnerID: owner, Balance: 50000, Currency: "INR"}
		f.balanceRepo.On("ConditionalDebit", ctx, f.tx, owner, amount).Return(nil, util.ErrInsufficientBalance).Once()
		f.balanceRepo.On("GetBalanceByOwner", ctx, f.tx, owner).Return(current, nil).Once()
		f.withdrawalRepo.On("TransitionStatus", ctx, f.tx, mock.Anything,
			domain.WithdrawalStatusProcessing, domain.WithdrawalStatusFailed, isInsufficientReason).Return(true, nil).Once()
		f.auditRepo.On("AppendEntry", ctx, f.tx, mock.MatchedBy(func(e *domain.AuditEntry) bool {
			return e.Status == domain.AuditStatusRejected &&
				e.BalanceBefore == 50000 && e.BalanceAfter == 50000 &&
				e.BalanceID.Valid && e.BalanceID.UUID == current.ID
		})).Return(nil).Once()
		f.tx.On("Commit").Return(nil).Once()
		f.tx.On("Rollback").Return(nil).Maybe()

		reason := domain.FailureReasonInsufficientBalance
		failed := settledCopy(owner, amount, domain.WithdrawalStatusFailed, &reason)
		f.withdrawalRepo.On("GetWithdrawalByID", ctx, f.dbExecutor, mock.Anything).Return(failed, nil).Once()

		result, err := f.service.CreateWithdrawal(ctx, owner.String(), amount, "INR", "acct-123", nil)

		assert.ErrorIs(t, err, util.ErrInsufficientBalance)
		require.NotNil(t, result)
		assert.Equal(t, domain.WithdrawalStatusFailed, result.Status)
		require.NotNil(t, result.FailureReason)
		assert.Equal(t, domain.FailureReasonInsufficientBalance, *result.FailureReason)
		f.assertExpectations(t)
	})

	t.Run("NoBalanceRecord", func(t *testing.T) {
		ctx := context.Background()
		f := newWithdrawalFixture()

		var created *domain.Withdrawal
		f.expectPendingToProcessing(ctx, &created)

		f.balanceRepo.On("ConditionalDebit", ctx, f.tx, owner, amount).Return(nil, util.ErrInsufficientBalance).Once()
		f.balanceRepo.On("GetBalanceByOwner", ctx, f.tx, owner).Return(nil, util.ErrNotFound).Once()
		f.withdrawalRepo.On("TransitionStatus", ctx, f.tx, mock.Anything,
			domain.WithdrawalStatusProcessing, domain.WithdrawalStatusFailed, isInsufficientReason).Return(true, nil).Once()
		f.auditRepo.On("AppendEntry", ctx, f.tx, mock.MatchedBy(func(e *domain.AuditEntry) bool {
			return e.Status == domain.AuditStatusRejected &&
				e.BalanceBefore == 0 && e.BalanceAfter == 0 &&
				!e.BalanceID.Valid
		})).Return(nil).Once()
		f.tx.On("Commit").Return(nil).Once()
		f.tx.On("Rollback").Return(nil).Maybe()

		reason := domain.FailureReasonInsufficientBalance
		failed := settledCopy(owner, amount, domain.WithdrawalStatusFailed, &reason)
		f.withdrawalRepo.On("GetWithdrawalByID", ctx, f.dbExecutor, mock.Anything).Return(failed, nil).Once()

		result, err := f.service.CreateWithdrawal(ctx, owner.String(), amount, "INR", "acct-123", nil)

		assert.ErrorIs(t, err, util.ErrInsufficientBalance)
		assert.Equal(t, domain.WithdrawalStatusFailed, result.Status)
		f.assertExpectations(t)
	})
}

func TestCreateWithdrawalIdempotentReplay(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	key := "retry-1"

	for _, status := range []domain.WithdrawalStatus{
		domain.WithdrawalStatusSuccess,
		domain.WithdrawalStatusFailed,
		domain.WithdrawalStatusProcessing,
	} {
		t.Run(string(status), func(t *testing.T) {
			f := newWithdrawalFixture()

			existing := settledCopy(owner, 70000, status, nil)
			existing.IdempotencyKey = &key
			f.withdrawalRepo.On("GetWithdrawalByIdempotencyKey", ctx, f.dbExecutor, owner, key).Return(existing, nil).Once()

			result, err := f.service.CreateWithdrawal(ctx, owner.String(), 70000, "INR", "acct-123", &key)

			require.NoError(t, err)
			assert.Same(t, existing, result)
			f.withdrawalRepo.AssertNotCalled(t, "CreateWithdrawal", mock.Anything, mock.Anything, mock.Anything)
			f.balanceRepo.AssertNotCalled(t, "ConditionalDebit", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			f.tx.AssertNotCalled(t, "Commit")
			f.assertExpectations(t)
		})
	}
}

func TestCreateWithdrawalDuplicateKeyRace(t *testing.T) {
	ctx := context.Background()
	f := newWithdrawalFixture()
	owner := uuid.New()
	key := "retry-2"

	winner := settledCopy(owner, 70000, domain.WithdrawalStatusProcessing, nil)
	winner.IdempotencyKey = &key

	f.withdrawalRepo.On("GetWithdrawalByIdempotencyKey", ctx, f.dbExecutor, owner, key).Return(nil, util.ErrNotFound).Once()
	f.withdrawalRepo.On("CreateWithdrawal", ctx, f.dbExecutor, mock.AnythingOfType("*domain.Withdrawal")).
		Return(fmt.Errorf("%w: withdrawals_owner_idempotency_key_idx", util.ErrDuplicateEntry)).Once()
	f.withdrawalRepo.On("GetWithdrawalByIdempotencyKey", ctx, f.dbExecutor, owner, key).Return(winner, nil).Once()

	result, err := f.service.CreateWithdrawal(ctx, owner.String(), 70000, "INR", "acct-123", &key)

	require.NoError(t, err)
	assert.Same(t, winner, result)
	f.balanceRepo.AssertNotCalled(t, "ConditionalDebit", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.assertExpectations(t)
}

func TestCreateWithdrawalAlreadyClaimed(t *testing.T) {
	ctx := context.Background()
	f := newWithdrawalFixture()
	owner := uuid.New()

	f.withdrawalRepo.On("CreateWithdrawal", ctx, f.dbExecutor, mock.AnythingOfType("*domain.Withdrawal")).Return(nil).Once()
	f.withdrawalRepo.On("TransitionStatus", ctx, f.dbExecutor, mock.Anything,
		domain.WithdrawalStatusPending, domain.WithdrawalStatusProcessing, (*string)(nil)).Return(false, nil).Once()

	current := settledCopy(owner, 500, domain.WithdrawalStatusProcessing, nil)
	f.withdrawalRepo.On("GetWithdrawalByID", ctx, f.dbExecutor, mock.Anything).Return(current, nil).Once()

	result, err := f.service.CreateWithdrawal(ctx, owner.String(), 500, "INR", "acct-123", nil)

	require.NoError(t, err)
	assert.Same(t, current, result)
	f.balanceRepo.AssertNotCalled(t, "ConditionalDebit", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.tx.AssertNotCalled(t, "Commit")
	f.tx.AssertNotCalled(t, "Rollback")
	f.assertExpectations(t)
}

func TestCreateWithdrawalValidation(t *testing.T) {
	owner := uuid.New().String()
	longKey := strings.Repeat("k", MaxIdempotencyKeyLength+1)
	longMultibyteKey := strings.Repeat("鍵", MaxIdempotencyKeyLength+1)

	tests := []struct {
		name        string
		owner       string
		amount      int64
		currency    string
		destination string
		key         *string
		wantErr     error
	}{
		{name: "ZeroAmount", owner: owner, amount: 0, destination: "acct-123", wantErr: util.ErrAmountInvalid},
		{name: "NegativeAmount", owner: owner, amount: -1, destination: "acct-123", wantErr: util.ErrAmountInvalid},
		{name: "MalformedOwner", owner: "42", amount: 100, destination: "acct-123", wantErr: util.ErrInvalidOwner},
		{name: "NilOwner", owner: uuid.Nil.String(), amount: 100, destination: "acct-123", wantErr: util.ErrInvalidOwner},
		{name: "ShortDestination", owner: owner, amount: 100, destination: "ab", wantErr: util.ErrInvalidInput},
		{name: "LongDestination", owner: owner, amount: 100, destination: strings.Repeat("d", 256), wantErr: util.ErrInvalidInput},
		{name: "BadCurrency", owner: owner, amount: 100, currency: "12X", destination: "acct-123", wantErr: util.ErrInvalidInput},
		{name: "LongIdempotencyKey", owner: owner, amount: 100, destination: "acct-123", key: &longKey, wantErr: util.ErrInvalidInput},
		{name: "ShortMultibyteDestination", owner: owner, amount: 100, destination: "日本", wantErr: util.ErrInvalidInput},
		{name: "LongMultibyteDestination", owner: owner, amount: 100, destination: strings.Repeat("日", 256), wantErr: util.ErrInvalidInput},
		{name: "LongMultibyteIdempotencyKey", owner: owner, amount: 100, destination: "acct-123", key: &longMultibyteKey, wantErr: util.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newWithdrawalFixture()

			result, err := f.service.CreateWithdrawal(context.Background(), tt.owner, tt.amount, tt.currency, tt.destination, tt.key)

			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, result)
			// No state is touched on a validation failure
			f.withdrawalRepo.AssertNotCalled(t, "CreateWithdrawal", mock.Anything, mock.Anything, mock.Anything)
			f.withdrawalRepo.AssertNotCalled(t, "GetWithdrawalByIdempotencyKey", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			f.balanceRepo.AssertNotCalled(t, "ConditionalDebit", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			f.assertExpectations(t)
		})
	}
}

func TestCreateWithdrawalCountsCharacters(t *testing.T) {
	ctx := context.Background()
	f := newWithdrawalFixture()
	owner := uuid.New()
	destination := strings.Repeat("日", 100) // 300 bytes
	key := strings.Repeat("鍵", MaxIdempotencyKeyLength)

	f.withdrawalRepo.On("GetWithdrawalByIdempotencyKey", ctx, f.dbExecutor, owner, key).Return(nil, util.ErrNotFound).Once()
	var created *domain.Withdrawal
	f.withdrawalRepo.On("CreateWithdrawal", ctx, f.dbExecutor, mock.AnythingOfType("*domain.Withdrawal")).Run(func(args mock.Arguments) {
		created = args.Get(2).(*domain.Withdrawal)
	}).Return(nil).Once()
	// Claimed elsewhere, so the call returns without settling
	f.withdrawalRepo.On("TransitionStatus", ctx, f.dbExecutor, mock.Anything,
		domain.WithdrawalStatusPending, domain.WithdrawalStatusProcessing, (*string)(nil)).Return(false, nil).Once()
	claimed := settledCopy(owner, 100, domain.WithdrawalStatusProcessing, nil)
	f.withdrawalRepo.On("GetWithdrawalByID", ctx, f.dbExecutor, mock.Anything).Return(claimed, nil).Once()

	result, err := f.service.CreateWithdrawal(ctx, owner.String(), 100, "INR", destination, &key)

	require.NoError(t, err)
	assert.Equal(t, claimed, result)
	require.NotNil(t, created)
	assert.Equal(t, destination, created.Destination)
	require.NotNil(t, created.IdempotencyKey)
	assert.Equal(t, key, *created.IdempotencyKey)
	f.assertExpectations(t)
}

func TestCreateWithdrawalSettlementFaults(t *testing.T) {
	owner := uuid.New()
	amount := int64(1000)

	t.Run("DebitStorageError", func(t *testing.T) {
		ctx := context.Background()
		f := newWithdrawalFixture()

		var created *domain.Withdrawal
		f.expectPendingToProcessing(ctx, &created)
		f.balanceRepo.On("ConditionalDebit", ctx, f.tx, owner, amount).Return(nil, errors.New("connection refused")).Once()
		f.tx.On("Rollback").Return(nil).Once()

		result, err := f.service.CreateWithdrawal(ctx, owner.String(), amount, "INR", "acct-123", nil)

		assert.ErrorContains(t, err, "failed to debit balance")
		assert.NotErrorIs(t, err, util.ErrInsufficientBalance)
		assert.Nil(t, result)
		f.tx.AssertNotCalled(t, "Commit")
		f.assertExpectations(t)
	})

	t.Run("TerminalTransitionNotApplied", func(t *testing.T) {
		ctx := context.Background()
		f := newWithdrawalFixture()

		var created *domain.Withdrawal
		f.expectPendingToProcessing(ctx, &created)
		debited := &domain.Balance{ID: uuid.New(), OwnerID: owner, Balance: 0, Currency: "INR"}
		f.balanceRepo.On("ConditionalDebit", ctx, f.tx, owner, amount).Return(debited, nil).Once()
		f.withdrawalRepo.On("TransitionStatus", ctx, f.tx, mock.Anything,
			domain.WithdrawalStatusProcessing, domain.WithdrawalStatusSuccess, (*string)(nil)).Return(false, nil).Once()
		f.tx.On("Rollback").Return(nil).Once() // Undoes the debit

		result, err := f.service.CreateWithdrawal(ctx, owner.String(), amount, "INR", "acct-123", nil)

		assert.ErrorIs(t, err, util.ErrInvalidTransition)
		assert.Nil(t, result)
		f.tx.AssertNotCalled(t, "Commit")
		f.auditRepo.AssertNotCalled(t, "AppendEntry", mock.Anything, mock.Anything, mock.Anything)
		f.assertExpectations(t)
	})

	t.Run("AuditAppendError", func(t *testing.T) {
		ctx := context.Background()
		f := newWithdrawalFixture()

		var created *domain.Withdrawal
		f.expectPendingToProcessing(ctx, &created)
		debited := &domain.Balance{ID: uuid.New(), OwnerID: owner, Balance: 0, Currency: "INR"}
		f.balanceRepo.On("ConditionalDebit", ctx, f.tx, owner, amount).Return(debited, nil).Once()
		f.withdrawalRepo.On("TransitionStatus", ctx, f.tx, mock.Anything,
			domain.WithdrawalStatusProcessing, domain.WithdrawalStatusSuccess, (*string)(nil)).Return(true, nil).Once()
		f.auditRepo.On("AppendEntry", ctx, f.tx, mock.AnythingOfType("*domain.AuditEntry")).Return(errors.New("disk full")).Once()
		f.tx.On("Rollback").Return(nil).Once()

		_, err := f.service.CreateWithdrawal(ctx, owner.String(), amount, "INR", "acct-123", nil)

		assert.ErrorContains(t, err, "failed to append audit entry")
		f.tx.AssertNotCalled(t, "Commit")
		f.assertExpectations(t)
	})
}

func TestGetWithdrawal(t *testing.T) {
	owner := uuid.New()

	t.Run("OwnRecord", func(t *testing.T) {
		ctx := context.Background()
		f := newWithdrawalFixture()

		stored := settledCopy(owner, 100, domain.WithdrawalStatusSuccess, nil)
		f.withdrawalRepo.On("GetWithdrawalByID", ctx, f.dbExecutor, stored.ID).Return(stored, nil).Once()

		result, err := f.service.GetWithdrawal(ctx, owner.String(), stored.ID.String())

		require.NoError(t, err)
		assert.Same(t, stored, result)
		f.assertExpectations(t)
	})

	t.Run("OtherOwner", func(t *testing.T) {
		ctx := context.Background()
		f := newWithdrawalFixture()

		stored := settledCopy(uuid.New(), 100, domain.WithdrawalStatusSuccess, nil)
		f.withdrawalRepo.On("GetWithdrawalByID", ctx, f.dbExecutor, stored.ID).Return(stored, nil).Once()

		_, err := f.service.GetWithdrawal(ctx, owner.String(), stored.ID.String())

		assert.ErrorIs(t, err, util.ErrNotFound)
		f.assertExpectations(t)
	})

	t.Run("MalformedID", func(t *testing.T) {
		f := newWithdrawalFixture()

		_, err := f.service.GetWithdrawal(context.Background(), owner.String(), "abc")

		assert.ErrorIs(t, err, util.ErrInvalidInput)
		f.assertExpectations(t)
	})
}
