package transaction

import (
	"time"

	"github.com/aurora-banking-core/internal/domain/shared"
	"github.com/google/uuid"
)

// Transaction represents a monetary movement on an account. Amount is a
// magnitude in minor units; direction is carried by Type. IdempotencyKey
// links the transaction to the single settlement request submitted to the
// external authority. RelatedTransactionID is shared by the two legs of an
// internal transfer, and ReversedByID on a reversal points back at the
// transaction it reverses.
type Transaction struct {
	ID                   uuid.UUID                `json:"id"`
	AccountID            uuid.UUID                `json:"account_id"`
	Type                 shared.TransactionType   `json:"type"`
	Amount               int64                    `json:"amount"` // Stored in cents/minor units
	Description          string                   `json:"description"`
	Status               shared.TransactionStatus `json:"status"`
	IdempotencyKey       *uuid.UUID               `json:"idempotency_key,omitempty"`
	RelatedTransactionID *uuid.UUID               `json:"related_transaction_id,omitempty"`
	ReversedByID         *uuid.UUID               `json:"reversed_by_id,omitempty"`
	IsReverted           bool                     `json:"is_reverted"`
	CreatedAt            time.Time                `json:"created_at"`
	UpdatedAt            time.Time                `json:"updated_at"`
}

// SignedAmount returns the balance contribution of the transaction in
// minor units.
func (t *Transaction) SignedAmount() int64 {
	return shared.Signed(t.Amount, t.Type)
}
