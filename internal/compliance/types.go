package compliance

import (
	"encoding/json"

	"github.com/aurora-banking-core/internal/domain/shared"
)

// envelope is the response wrapper used by every authority endpoint
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

// CreateTransactionInput is the settlement request body. ExternalID links
// the authority's record back to the local transaction.
type CreateTransactionInput struct {
	Description string `json:"description"`
	ExternalID  string `json:"externalId"`
}

// GatewayTransaction is the authority's view of a settlement request. ID
// is the idempotency key the request was submitted under.
type GatewayTransaction struct {
	ID          string                   `json:"id"`
	ExternalID  string                   `json:"externalId"`
	Description string                   `json:"description"`
	UserID      string                   `json:"userId"`
	Status      shared.TransactionStatus `json:"status"`
}

type authCodeData struct {
	AuthCode string `json:"authCode"`
}

type tokenData struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type documentData struct {
	Document string `json:"document"`
	Status   string `json:"status"`
}
