package card

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines card persistence operations. Lookup methods return
// nil, nil when no card matches.
type Repository interface {
	Create(ctx context.Context, card *Card) error
	GetByAccountAndType(ctx context.Context, accountID uuid.UUID, cardType CardType) (*Card, error)
	GetByToken(ctx context.Context, token string) (*Card, error)
	ListByAccountID(ctx context.Context, accountID uuid.UUID) ([]*Card, error)
	ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*Card, error)
}

// ErrDuplicateCard indicates token uniqueness violation
type ErrDuplicateCard struct {
	Token string
}

func (e ErrDuplicateCard) Error() string {
	return "card already registered"
}
