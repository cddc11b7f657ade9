package transaction

import (
	"context"

	"github.com/aurora-banking-core/internal/domain/shared"
	"github.com/google/uuid"
)

// ListFilter narrows ListByAccountID results. An empty Type matches both
// directions.
type ListFilter struct {
	Type   shared.TransactionType
	Limit  int
	Offset int
}

// Settlement describes the atomic write that finalizes a transaction's
// outcome: the status transition, optionally the new account balance, and
// optionally the original transaction to flag as reverted. All parts
// commit together or not at all.
type Settlement struct {
	AccountID     uuid.UUID
	TransactionID uuid.UUID
	Status        shared.TransactionStatus
	NewBalance    *int64     // nil leaves the balance untouched
	MarkReverted  *uuid.UUID // nil skips the is_reverted flag
}

// Repository manages transaction persistence, including the multi-row
// atomic operations the ledger invariants require.
type Repository interface {
	Create(ctx context.Context, tx *Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error)
	GetByAccountAndID(ctx context.Context, accountID, id uuid.UUID) (*Transaction, error)
	GetByRelatedTransactionID(ctx context.Context, relatedID uuid.UUID) ([]*Transaction, error)

	// ListByAccountID returns settled and in-flight rows (requested rows are
	// excluded), newest first.
	ListByAccountID(ctx context.Context, accountID uuid.UUID, filter ListFilter) ([]*Transaction, error)
	CountByAccountID(ctx context.Context, accountID uuid.UUID, txType shared.TransactionType) (int64, error)

	// ListPendingWithIdempotencyKey returns the account's transactions not
	// yet authorized that carry an idempotency key, oldest first.
	ListPendingWithIdempotencyKey(ctx context.Context, accountID uuid.UUID) ([]*Transaction, error)

	// Settle applies a Settlement in one database transaction
	Settle(ctx context.Context, s Settlement) error

	// CreateTransferPair persists both legs of an internal transfer and both
	// new balances in one database transaction.
	CreateTransferPair(ctx context.Context, ownerLeg, receiverLeg *Transaction, ownerBalance, receiverBalance int64) error

	// ReverseTransferPair persists both reversal legs and both new balances
	// and flags the original pair (by its related transaction id) as
	// reverted, in one database transaction.
	ReverseTransferPair(ctx context.Context, ownerLeg, receiverLeg *Transaction, ownerBalance, receiverBalance int64, originalRelatedID uuid.UUID) error
}

// ErrTransactionNotFound indicates missing transaction
type ErrTransactionNotFound struct {
	TransactionID uuid.UUID
}

func (e ErrTransactionNotFound) Error() string {
	return "transaction not found: " + e.TransactionID.String()
}

// Is implements the errors.Is interface for ErrTransactionNotFound
func (e ErrTransactionNotFound) Is(target error) bool {
	t, ok := target.(ErrTransactionNotFound)
	if !ok {
		return false
	}
	if t.TransactionID == uuid.Nil {
		return true
	}
	return e.TransactionID == t.TransactionID
}
