// internal/domain/withdrawal.go
package domain

import (
	"time"

	"github.com/google/uuid"
)

// WithdrawalStatus is the lifecycle state of a withdrawal.
type WithdrawalStatus string

const (
	WithdrawalStatusPending    WithdrawalStatus = "PENDING"
	WithdrawalStatusProcessing WithdrawalStatus = "PROCESSING"
	WithdrawalStatusSuccess    WithdrawalStatus = "SUCCESS"
	WithdrawalStatusFailed     WithdrawalStatus = "FAILED"
)

// FailureReasonInsufficientBalance is recorded on withdrawals rejected by the conditional debit.
const FailureReasonInsufficientBalance = "insufficient balance"

// Destination length bounds, inclusive.
const (
	MinDestinationLength = 3
	MaxDestinationLength = 255
)

var withdrawalTransitions = map[WithdrawalStatus][]WithdrawalStatus{
	WithdrawalStatusPending:    {WithdrawalStatusProcessing},
	WithdrawalStatusProcessing: {WithdrawalStatusSuccess, WithdrawalStatusFailed},
}

// IsTerminal reports whether no further transition can leave s.
func (s WithdrawalStatus) IsTerminal() bool {
	return s == WithdrawalStatusSuccess || s == WithdrawalStatusFailed
}

// CanTransitionTo reports whether s -> next is an edge of the withdrawal state machine.
func (s WithdrawalStatus) CanTransitionTo(next WithdrawalStatus) bool {
	for _, allowed := range withdrawalTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Withdrawal is a request to move money out of an owner's balance.
type Withdrawal struct {
	ID             uuid.UUID        `db:"id" json:"id"`
	OwnerID        uuid.UUID        `db:"owner_id" json:"owner_id"`
	Amount         int64            `db:"amount" json:"amount"` // Minor units, > 0
	Currency       string           `db:"currency" json:"currency"`
	Destination    string           `db:"destination" json:"destination"`
	Status         WithdrawalStatus `db:"status" json:"status"`
	FailureReason  *string          `db:"failure_reason" json:"failure_reason,omitempty"`
	IdempotencyKey *string          `db:"idempotency_key" json:"idempotency_key,omitempty"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time        `db:"updated_at" json:"updated_at"`
}

// NewWithdrawal creates a Withdrawal in PENDING status.
func NewWithdrawal(ownerID uuid.UUID, amount int64, currency, destination string, idempotencyKey *string) *Withdrawal {
	now := time.Now().UTC()
	return &Withdrawal{
		ID:             uuid.New(),
		OwnerID:        ownerID,
		Amount:         amount,
		Currency:       currency,
		Destination:    destination,
		Status:         WithdrawalStatusPending,
		IdempotencyKey: idempotencyKey,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}
