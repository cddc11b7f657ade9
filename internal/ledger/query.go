package ledger

import (
	"context"

	"github.com/aurora-banking-core/internal/apperr"
	"github.com/aurora-banking-core/internal/domain/shared"
	"github.com/aurora-banking-core/internal/domain/transaction"
	"github.com/google/uuid"
)

// Balance is the post-reconciliation account balance in major units
type Balance struct {
	AccountID uuid.UUID `json:"account_id"`
	Amount    float64   `json:"amount"`
}

// CheckBalance reconciles the account and returns its settled balance
func (s *Service) CheckBalance(ctx context.Context, userID string, accountID uuid.UUID) (*Balance, error) {
	if err := s.reconciler.Reconcile(ctx, userID, accountID); err != nil {
		return nil, err
	}

	acc, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, apperr.Internalize(err, "failed to load account")
	}

	return &Balance{AccountID: accountID, Amount: shared.MinorToMajor(acc.Balance)}, nil
}

// TransactionPage is one page of an account's statement
type TransactionPage struct {
	Transactions []*TransactionView `json:"transactions"`
	Total        int64              `json:"total"`
	Limit        int                `json:"limit"`
	Offset       int                `json:"offset"`
}

// ListTransactions reconciles the account and returns a statement page,
// newest first. Requested rows never appear: they were either submitted
// (and are at least processing) or abandoned.
func (s *Service) ListTransactions(ctx context.Context, userID string, accountID uuid.UUID, filter transaction.ListFilter) (*TransactionPage, error) {
	if err := s.reconciler.Reconcile(ctx, userID, accountID); err != nil {
		return nil, err
	}

	txs, err := s.transactions.ListByAccountID(ctx, accountID, filter)
	if err != nil {
		return nil, apperr.Internalize(err, "failed to list transactions")
	}
	total, err := s.transactions.CountByAccountID(ctx, accountID, filter.Type)
	if err != nil {
		return nil, apperr.Internalize(err, "failed to count transactions")
	}

	views := make([]*TransactionView, 0, len(txs))
	for _, tx := range txs {
		views = append(views, viewOf(tx))
	}

	return &TransactionPage{
		Transactions: views,
		Total:        total,
		Limit:        filter.Limit,
		Offset:       filter.Offset,
	}, nil
}
