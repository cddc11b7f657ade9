package card

import (
	"time"

	"github.com/google/uuid"
)

// CardType defines the card form factor
type CardType string

const (
	CardTypeVirtual  CardType = "virtual"
	CardTypePhysical CardType = "physical"
)

// Card stores a registered card. Token is a deterministic fingerprint of
// the full card number used for deduplication; Blob is the
// authenticated-encrypted card number and CVV, opaque to storage. Only the
// last four digits are persisted in the clear.
type Card struct {
	ID        uuid.UUID `json:"id"`
	AccountID uuid.UUID `json:"account_id"`
	Type      CardType  `json:"type"`
	LastFour  string    `json:"last_four"`
	Token     string    `json:"-"`
	Blob      []byte    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
