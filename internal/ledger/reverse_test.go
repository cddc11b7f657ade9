package ledger

import (
	"context"
	"testing"

	"github.com/aurora-banking-core/internal/apperr"
	"github.com/aurora-banking-core/internal/compliance"
	"github.com/aurora-banking-core/internal/domain/account"
	"github.com/aurora-banking-core/internal/domain/shared"
	"github.com/aurora-banking-core/internal/domain/transaction"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestReverseTransactionRejections(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown transaction", func(t *testing.T) {
		service, deps := newTestService()
		acc := ownedTestAccount(5000)
		txID := uuid.New()

		deps.accounts.On("GetByID", ctx, acc.ID).Return(acc, nil)
		deps.transactions.On("GetByAccountAndID", ctx, acc.ID, txID).
			Return(nil, transaction.ErrTransactionNotFound{TransactionID: txID})

		_, err := service.ReverseTransaction(ctx, testUserID, acc.ID, txID)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	})

	t.Run("already reverted", func(t *testing.T) {
		service, deps := newTestService()
		acc := ownedTestAccount(5000)
		tx := &transaction.Transaction{
			ID:         uuid.New(),
			AccountID:  acc.ID,
			Type:       shared.TransactionTypeDebit,
			Amount:     1000,
			Status:     shared.TransactionStatusAuthorized,
			IsReverted: true,
		}

		deps.accounts.On("GetByID", ctx, acc.ID).Return(acc, nil)
		deps.transactions.On("GetByAccountAndID", ctx, acc.ID, tx.ID).Return(tx, nil)

		_, err := service.ReverseTransaction(ctx, testUserID, acc.ID, tx.ID)
		assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	})

	t.Run("external leg still processing", func(t *testing.T) {
		service, deps := newTestService()
		acc := ownedTestAccount(5000)
		key := uuid.New()
		tx := &transaction.Transaction{
			ID:             uuid.New(),
			AccountID:      acc.ID,
			Type:           shared.TransactionTypeDebit,
			Amount:         1000,
			Status:         shared.TransactionStatusProcessing,
			IdempotencyKey: &key,
		}

		deps.accounts.On("GetByID", ctx, acc.ID).Return(acc, nil)
		deps.transactions.On("GetByAccountAndID", ctx, acc.ID, tx.ID).Return(tx, nil)
		deps.reconciler.On("Reconcile", ctx, testUserID, acc.ID).Return(nil).Once()

		_, err := service.ReverseTransaction(ctx, testUserID, acc.ID, tx.ID)
		assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
		deps.gateway.AssertNotCalled(t, "CreateTransaction", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestReverseExternalTransaction(t *testing.T) {
	ctx := context.Background()
	service, deps := newTestService()
	acc := ownedTestAccount(5000)
	key := uuid.New()
	original := &transaction.Transaction{
		ID:             uuid.New(),
		AccountID:      acc.ID,
		Type:           shared.TransactionTypeDebit,
		Amount:         2000,
		Description:    "groceries",
		Status:         shared.TransactionStatusAuthorized,
		IdempotencyKey: &key,
	}

	deps.accounts.On("GetByID", ctx, acc.ID).Return(acc, nil)
	deps.transactions.On("GetByAccountAndID", ctx, acc.ID, original.ID).Return(original, nil)
	deps.reconciler.On("Reconcile", ctx, testUserID, acc.ID).Return(nil).Once()
	deps.transactions.On("Create", ctx, mock.MatchedBy(func(tx *transaction.Transaction) bool {
		// The reversal credits back what the debit took and points at it
		return tx.Type == shared.TransactionTypeCredit &&
			tx.Amount == 2000 &&
			tx.Status == shared.TransactionStatusRequested &&
			tx.ReversedByID != nil && *tx.ReversedByID == original.ID &&
			tx.IdempotencyKey != nil && *tx.IdempotencyKey != key
	})).Return(nil).Once()
	deps.gateway.On("CreateTransaction", ctx, mock.AnythingOfType("uuid.UUID"), mock.Anything).
		Return(&compliance.GatewayTransaction{Status: shared.TransactionStatusAuthorized}, nil).Once()
	deps.transactions.On("Settle", ctx, mock.MatchedBy(func(s transaction.Settlement) bool {
		return s.Status == shared.TransactionStatusAuthorized &&
			s.NewBalance != nil && *s.NewBalance == 7000 &&
			s.MarkReverted != nil && *s.MarkReverted == original.ID
	})).Return(nil).Once()
	deps.publisher.On("Publish", ctx, acc.ID.String(), mock.Anything).Return(nil).Once()

	view, err := service.ReverseTransaction(ctx, testUserID, acc.ID, original.ID)
	require.NoError(t, err)
	assert.Equal(t, 20.00, view.Amount)
	assert.Equal(t, shared.TransactionStatusAuthorized, view.Status)
	deps.transactions.AssertExpectations(t)
}

func TestReverseExternalTransactionDeclined(t *testing.T) {
	ctx := context.Background()
	service, deps := newTestService()
	acc := ownedTestAccount(5000)
	key := uuid.New()
	original := &transaction.Transaction{
		ID:             uuid.New(),
		AccountID:      acc.ID,
		Type:           shared.TransactionTypeCredit,
		Amount:         1000,
		Status:         shared.TransactionStatusAuthorized,
		IdempotencyKey: &key,
	}

	deps.accounts.On("GetByID", ctx, acc.ID).Return(acc, nil)
	deps.transactions.On("GetByAccountAndID", ctx, acc.ID, original.ID).Return(original, nil)
	deps.reconciler.On("Reconcile", ctx, testUserID, acc.ID).Return(nil).Once()
	deps.transactions.On("Create", ctx, mock.Anything).Return(nil).Once()
	deps.gateway.On("CreateTransaction", ctx, mock.AnythingOfType("uuid.UUID"), mock.Anything).
		Return(&compliance.GatewayTransaction{Status: shared.TransactionStatusUnauthorized}, nil).Once()
	deps.transactions.On("Settle", ctx, mock.MatchedBy(func(s transaction.Settlement) bool {
		// The original stays untouched when the reversal is declined
		return s.Status == shared.TransactionStatusUnauthorized &&
			s.NewBalance == nil && s.MarkReverted == nil
	})).Return(nil).Once()
	deps.publisher.On("Publish", ctx, acc.ID.String(), mock.Anything).Return(nil).Once()

	_, err := service.ReverseTransaction(ctx, testUserID, acc.ID, original.ID)
	assert.Equal(t, apperr.KindPaymentRequired, apperr.KindOf(err))
	deps.transactions.AssertExpectations(t)
}

func TestReverseInternalTransfer(t *testing.T) {
	ctx := context.Background()
	service, deps := newTestService()

	acc := ownedTestAccount(3000)
	other := &account.Account{ID: uuid.New(), UserID: "user-2", Balance: 2000}
	pairID := uuid.New()

	ownerLeg := &transaction.Transaction{
		ID:                   uuid.New(),
		AccountID:            acc.ID,
		Type:                 shared.TransactionTypeDebit,
		Amount:               2000,
		Description:          "rent share",
		Status:               shared.TransactionStatusAuthorized,
		RelatedTransactionID: &pairID,
	}
	otherLeg := &transaction.Transaction{
		ID:                   uuid.New(),
		AccountID:            other.ID,
		Type:                 shared.TransactionTypeCredit,
		Amount:               2000,
		Description:          "rent share",
		Status:               shared.TransactionStatusAuthorized,
		RelatedTransactionID: &pairID,
	}

	deps.accounts.On("GetByID", ctx, acc.ID).Return(acc, nil)
	deps.accounts.On("GetByID", ctx, other.ID).Return(other, nil)
	deps.transactions.On("GetByAccountAndID", ctx, acc.ID, ownerLeg.ID).Return(ownerLeg, nil)
	deps.transactions.On("GetByRelatedTransactionID", ctx, pairID).
		Return([]*transaction.Transaction{otherLeg, ownerLeg}, nil).Once()
	deps.reconciler.On("Reconcile", ctx, testUserID, acc.ID).Return(nil).Once()
	deps.reconciler.On("Reconcile", ctx, "user-2", other.ID).Return(nil).Once()
	deps.transactions.On("ReverseTransferPair", ctx,
		mock.MatchedBy(func(tx *transaction.Transaction) bool {
			return tx.AccountID == acc.ID &&
				tx.Type == shared.TransactionTypeCredit &&
				tx.Amount == 2000 &&
				tx.ReversedByID != nil && *tx.ReversedByID == ownerLeg.ID &&
				tx.RelatedTransactionID != nil && *tx.RelatedTransactionID != pairID
		}),
		mock.MatchedBy(func(tx *transaction.Transaction) bool {
			return tx.AccountID == other.ID &&
				tx.Type == shared.TransactionTypeDebit &&
				tx.ReversedByID != nil && *tx.ReversedByID == otherLeg.ID
		}),
		int64(5000), int64(0), pairID,
	).Return(nil).Once()
	deps.publisher.On("Publish", ctx, mock.Anything, mock.Anything).Return(nil).Twice()

	view, err := service.ReverseTransaction(ctx, testUserID, acc.ID, ownerLeg.ID)
	require.NoError(t, err)
	assert.Equal(t, 20.00, view.Amount)
	deps.transactions.AssertExpectations(t)
	deps.reconciler.AssertExpectations(t)
}

func TestReverseInternalTransferIncompletePair(t *testing.T) {
	ctx := context.Background()
	service, deps := newTestService()
	acc := ownedTestAccount(3000)
	pairID := uuid.New()
	ownerLeg := &transaction.Transaction{
		ID:                   uuid.New(),
		AccountID:            acc.ID,
		Type:                 shared.TransactionTypeDebit,
		Amount:               2000,
		Status:               shared.TransactionStatusAuthorized,
		RelatedTransactionID: &pairID,
	}

	deps.accounts.On("GetByID", ctx, acc.ID).Return(acc, nil)
	deps.transactions.On("GetByAccountAndID", ctx, acc.ID, ownerLeg.ID).Return(ownerLeg, nil)
	deps.transactions.On("GetByRelatedTransactionID", ctx, pairID).
		Return([]*transaction.Transaction{ownerLeg}, nil).Once()

	_, err := service.ReverseTransaction(ctx, testUserID, acc.ID, ownerLeg.ID)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
	deps.transactions.AssertNotCalled(t, "ReverseTransferPair",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
