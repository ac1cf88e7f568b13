// internal/domain/balance.go
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Balance is the single balance record held for an owner. Balance is in minor units.
type Balance struct {
	ID        uuid.UUID `db:"id" json:"id"`
	OwnerID   uuid.UUID `db:"owner_id" json:"owner_id"` // Unique per owner
	Balance   int64     `db:"balance" json:"balance"`   // Never negative, BIGINT in DB
	Currency  string    `db:"currency" json:"currency"` // Fixed at creation
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// NewBalance creates a Balance holding amount for a first credit.
func NewBalance(ownerID uuid.UUID, amount int64, currency string) *Balance {
	now := time.Now().UTC()
	return &Balance{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Balance:   amount,
		Currency:  currency,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
