// internal/domain/audit.go
package domain

import (
	"time"

	"github.com/google/uuid"
)

// MutationKind is the direction of a balance mutation.
type MutationKind string

const (
	MutationKindDebit  MutationKind = "DEBIT"
	MutationKindCredit MutationKind = "CREDIT"
)

// MutationContext names the operation that caused a mutation.
type MutationContext string

const (
	MutationContextWithdrawal MutationContext = "WITHDRAWAL"
	MutationContextDeposit    MutationContext = "DEPOSIT"
)

// AuditStatus tells whether the mutation moved money.
type AuditStatus string

const (
	AuditStatusCommitted AuditStatus = "COMMITTED"
	AuditStatusRejected  AuditStatus = "REJECTED" // Recorded with no balance change
)

// AuditEntry is one append-only ledger line. Entries are never updated or deleted.
type AuditEntry struct {
	ID            uuid.UUID       `db:"id" json:"id"`
	OwnerID       uuid.UUID       `db:"owner_id" json:"owner_id"`
	BalanceID     uuid.NullUUID   `db:"balance_id" json:"balance_id"` // Null when the owner has no balance record
	Kind          MutationKind    `db:"kind" json:"kind"`
	Context       MutationContext `db:"context" json:"context"`
	ReferenceID   uuid.UUID       `db:"reference_id" json:"reference_id"` // Withdrawal id or deposit reference
	Amount        int64           `db:"amount" json:"amount"`
	BalanceBefore int64           `db:"balance_before" json:"balance_before"`
	BalanceAfter  int64           `db:"balance_after" json:"balance_after"`
	Status        AuditStatus     `db:"status" json:"status"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

// NewAuditEntry creates an AuditEntry. balance may be nil when no balance record exists.
func NewAuditEntry(
	ownerID uuid.UUID,
	balance *Balance,
	kind MutationKind,
	mutationContext MutationContext,
	referenceID uuid.UUID,
	amount, before, after int64,
	status AuditStatus,
) *AuditEntry {
	entry := &AuditEntry{
		ID:            uuid.New(),
		OwnerID:       ownerID,
		Kind:          kind,
		Context:       mutationContext,
		ReferenceID:   referenceID,
		Amount:        amount,
		BalanceBefore: before,
		BalanceAfter:  after,
		Status:        status,
		CreatedAt:     time.Now().UTC(),
	}
	if balance != nil {
		entry.BalanceID = uuid.NullUUID{UUID: balance.ID, Valid: true}
	}
	return entry
}
