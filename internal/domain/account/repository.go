package account

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines account persistence operations
type Repository interface {
	Create(ctx context.Context, account *Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)

	// GetByBranchAndNumber returns nil, nil when no account matches
	GetByBranchAndNumber(ctx context.Context, branch, number string) (*Account, error)
	ListByUserID(ctx context.Context, userID string) ([]*Account, error)

	// UpdateBalance sets the account balance to the given minor-unit value
	UpdateBalance(ctx context.Context, id uuid.UUID, balance int64) error

	WithTx(tx pgx.Tx) Repository
}

// ErrAccountNotFound indicates missing account
type ErrAccountNotFound struct {
	AccountID uuid.UUID
}

func (e ErrAccountNotFound) Error() string {
	return "account not found: " + e.AccountID.String()
}

// Is implements the errors.Is interface for ErrAccountNotFound
func (e ErrAccountNotFound) Is(target error) bool {
	t, ok := target.(ErrAccountNotFound)
	if !ok {
		return false
	}
	if t.AccountID == uuid.Nil {
		return true
	}
	return e.AccountID == t.AccountID
}

// ErrDuplicateAccount indicates branch/number uniqueness violation
type ErrDuplicateAccount struct {
	Branch string
	Number string
}

func (e ErrDuplicateAccount) Error() string {
	return "account already registered: " + e.Branch + "/" + e.Number
}
