package handler

import (
	"time"

	"github.com/google/uuid"

	"github.com/aurora-banking-core/internal/domain/account"
)

// CreateAccountRequest is the payload for opening an account
type CreateAccountRequest struct {
	Document string `json:"document" binding:"required"`
	Branch   string `json:"branch" binding:"required"`
	Number   string `json:"number" binding:"required"`
}

// CreateTransactionRequest is the payload for submitting a transaction.
// Amount is a signed major-unit value: positive credits, negative debits.
type CreateTransactionRequest struct {
	Amount      float64 `json:"amount" binding:"required"`
	Description string  `json:"description" binding:"required,max=255"`
}

// CreateTransferRequest is the payload for an internal transfer
type CreateTransferRequest struct {
	ReceiverAccountID uuid.UUID `json:"receiver_account_id" binding:"required"`
	Amount            float64   `json:"amount" binding:"required"`
	Description       string    `json:"description" binding:"required,max=255"`
}

// CreateCardRequest is the payload for registering a card
type CreateCardRequest struct {
	Type   string `json:"type" binding:"required,oneof=virtual physical"`
	Number string `json:"number" binding:"required"`
	CVV    string `json:"cvv" binding:"required"`
}

// ListTransactionsParams are the statement query parameters
type ListTransactionsParams struct {
	Type   string `form:"type" binding:"omitempty,oneof=credit debit"`
	Limit  int    `form:"limit,default=20" binding:"min=1,max=100"`
	Offset int    `form:"offset,default=0" binding:"min=0"`
}

// ListCardsParams are the user card listing query parameters
type ListCardsParams struct {
	Limit  int `form:"limit,default=20" binding:"min=1,max=100"`
	Offset int `form:"offset,default=0" binding:"min=0"`
}

// AccountResponse is the API representation of an account
type AccountResponse struct {
	ID        uuid.UUID `json:"id"`
	Branch    string    `json:"branch"`
	Number    string    `json:"number"`
	CreatedAt string    `json:"created_at"`
}

func mapAccountToResponse(acc *account.Account) AccountResponse {
	return AccountResponse{
		ID:        acc.ID,
		Branch:    acc.Branch,
		Number:    acc.Number,
		CreatedAt: acc.CreatedAt.Format(time.RFC3339),
	}
}

func mapAccountsToResponse(accs []*account.Account) []AccountResponse {
	responses := make([]AccountResponse, 0, len(accs))
	for _, acc := range accs {
		responses = append(responses, mapAccountToResponse(acc))
	}
	return responses
}
