package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aurora-banking-core/internal/apperr"
	"github.com/aurora-banking-core/internal/domain/shared"
	"github.com/aurora-banking-core/internal/domain/transaction"
	"github.com/google/uuid"
)

// ReverseTransaction undoes a settled transaction. An external
// transaction is reversed by submitting its mirror image to the
// settlement authority; an internal transfer leg is reversed by undoing
// both legs of the pair at once. The original rows are flagged as
// reverted only together with an authorized reversal.
func (s *Service) ReverseTransaction(ctx context.Context, userID string, accountID, transactionID uuid.UUID) (*TransactionView, error) {
	if _, err := s.ownedAccount(ctx, userID, accountID); err != nil {
		return nil, err
	}

	tx, err := s.transactions.GetByAccountAndID(ctx, accountID, transactionID)
	if err != nil {
		var notFoundErr transaction.ErrTransactionNotFound
		if errors.As(err, &notFoundErr) {
			return nil, apperr.New(apperr.KindValidation, "transaction not found")
		}
		return nil, apperr.Internalize(err, "failed to load transaction")
	}
	if tx.IsReverted {
		return nil, apperr.New(apperr.KindConflict, "transaction already reverted")
	}

	if tx.RelatedTransactionID != nil {
		return s.reverseTransferLeg(ctx, tx)
	}
	return s.reverseExternal(ctx, userID, tx)
}

// reverseExternal reverses a single external transaction through the
// settlement authority.
func (s *Service) reverseExternal(ctx context.Context, userID string, original *transaction.Transaction) (*TransactionView, error) {
	if err := s.reconciler.Reconcile(ctx, userID, original.AccountID); err != nil {
		return nil, err
	}

	// Reconciliation may have settled or reverted the row in the meantime
	original, err := s.transactions.GetByAccountAndID(ctx, original.AccountID, original.ID)
	if err != nil {
		return nil, apperr.Internalize(err, "failed to reload transaction")
	}
	if original.IsReverted {
		return nil, apperr.New(apperr.KindConflict, "transaction already reverted")
	}
	if original.Status != shared.TransactionStatusAuthorized {
		return nil, apperr.New(apperr.KindConflict, "only authorized transactions can be reversed")
	}

	acc, err := s.accounts.GetByID(ctx, original.AccountID)
	if err != nil {
		return nil, apperr.Internalize(err, "failed to reload account")
	}

	reversalType := shared.Invert(original.Type)
	newBalance := acc.Balance + shared.Signed(original.Amount, reversalType)
	if newBalance < 0 {
		return nil, apperr.New(apperr.KindPaymentRequired, "insufficient balance to reverse transaction")
	}

	now := time.Now()
	idempotencyKey := uuid.New()
	reversal := &transaction.Transaction{
		ID:             uuid.New(),
		AccountID:      original.AccountID,
		Type:           reversalType,
		Amount:         original.Amount,
		Description:    fmt.Sprintf("Reversal of %s", original.Description),
		Status:         shared.TransactionStatusRequested,
		IdempotencyKey: &idempotencyKey,
		ReversedByID:   &original.ID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.transactions.Create(ctx, reversal); err != nil {
		return nil, apperr.Internalize(err, "failed to record reversal")
	}

	status, err := s.submitAndPoll(ctx, reversal)
	if err != nil {
		return nil, err
	}

	settlement := transaction.Settlement{
		AccountID:     reversal.AccountID,
		TransactionID: reversal.ID,
		Status:        status,
	}
	if status == shared.TransactionStatusAuthorized {
		settlement.NewBalance = &newBalance
		settlement.MarkReverted = &original.ID
	}
	if err := s.transactions.Settle(ctx, settlement); err != nil {
		return nil, apperr.Internalize(err, "failed to settle reversal")
	}
	reversal.Status = status

	s.publishSettled(ctx, reversal)

	if status == shared.TransactionStatusUnauthorized {
		return nil, apperr.New(apperr.KindPaymentRequired, "reversal declined by settlement authority")
	}
	return viewOf(reversal), nil
}

// reverseTransferLeg reverses both legs of an internal transfer. The new
// pair mirrors the original: each leg's direction is inverted and points
// back at the leg it undoes.
func (s *Service) reverseTransferLeg(ctx context.Context, tx *transaction.Transaction) (*TransactionView, error) {
	legs, err := s.transactions.GetByRelatedTransactionID(ctx, *tx.RelatedTransactionID)
	if err != nil {
		return nil, apperr.Internalize(err, "failed to load transfer legs")
	}
	if len(legs) != 2 {
		return nil, apperr.New(apperr.KindInternal, "transfer pair is incomplete")
	}

	ownerLeg, otherLeg := legs[0], legs[1]
	if ownerLeg.AccountID != tx.AccountID {
		ownerLeg, otherLeg = otherLeg, ownerLeg
	}

	ownerAccount, err := s.accounts.GetByID(ctx, ownerLeg.AccountID)
	if err != nil {
		return nil, apperr.Internalize(err, "failed to load account")
	}
	otherAccount, err := s.accounts.GetByID(ctx, otherLeg.AccountID)
	if err != nil {
		return nil, apperr.Internalize(err, "failed to load counterpart account")
	}

	s.reconcileBestEffort(ctx,
		reconcileTarget{userID: ownerAccount.UserID, accountID: ownerAccount.ID},
		reconcileTarget{userID: otherAccount.UserID, accountID: otherAccount.ID},
	)

	ownerAccount, err = s.accounts.GetByID(ctx, ownerLeg.AccountID)
	if err != nil {
		return nil, apperr.Internalize(err, "failed to reload account")
	}
	otherAccount, err = s.accounts.GetByID(ctx, otherLeg.AccountID)
	if err != nil {
		return nil, apperr.Internalize(err, "failed to reload counterpart account")
	}

	ownerType := shared.Invert(ownerLeg.Type)
	otherType := shared.Invert(otherLeg.Type)
	ownerBalance := ownerAccount.Balance + shared.Signed(ownerLeg.Amount, ownerType)
	otherBalance := otherAccount.Balance + shared.Signed(otherLeg.Amount, otherType)
	if ownerBalance < 0 || otherBalance < 0 {
		return nil, apperr.New(apperr.KindPaymentRequired, "insufficient balance to reverse transfer")
	}

	now := time.Now()
	newPairID := uuid.New()
	ownerReversal := &transaction.Transaction{
		ID:                   uuid.New(),
		AccountID:            ownerLeg.AccountID,
		Type:                 ownerType,
		Amount:               ownerLeg.Amount,
		Description:          fmt.Sprintf("Reversal of %s", ownerLeg.Description),
		Status:               shared.TransactionStatusAuthorized,
		RelatedTransactionID: &newPairID,
		ReversedByID:         &ownerLeg.ID,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	otherReversal := &transaction.Transaction{
		ID:                   uuid.New(),
		AccountID:            otherLeg.AccountID,
		Type:                 otherType,
		Amount:               otherLeg.Amount,
		Description:          fmt.Sprintf("Reversal of %s", otherLeg.Description),
		Status:               shared.TransactionStatusAuthorized,
		RelatedTransactionID: &newPairID,
		ReversedByID:         &otherLeg.ID,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	if err := s.transactions.ReverseTransferPair(ctx, ownerReversal, otherReversal, ownerBalance, otherBalance, *tx.RelatedTransactionID); err != nil {
		return nil, apperr.Internalize(err, "failed to record transfer reversal")
	}

	s.publishSettled(ctx, ownerReversal)
	s.publishSettled(ctx, otherReversal)

	return viewOf(ownerReversal), nil
}
