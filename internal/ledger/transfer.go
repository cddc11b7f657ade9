package ledger

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/aurora-banking-core/internal/apperr"
	"github.com/aurora-banking-core/internal/domain/account"
	"github.com/aurora-banking-core/internal/domain/shared"
	"github.com/aurora-banking-core/internal/domain/transaction"
	"github.com/google/uuid"
)

// TransferView is the caller-facing result of an internal transfer
type TransferView struct {
	Owner    *TransactionView `json:"owner"`
	Receiver *TransactionView `json:"receiver"`
}

// CreateInternalTransfer moves money between two local accounts. Both
// legs share a related transaction id and settle instantly: no external
// submission is involved, so both rows and both balances commit in one
// atomic write. The signed amount describes the owner's leg; the
// receiver's leg is its mirror image.
func (s *Service) CreateInternalTransfer(ctx context.Context, userID string, accountID, receiverAccountID uuid.UUID, amount float64, description string) (*TransferView, error) {
	if accountID == receiverAccountID {
		return nil, apperr.New(apperr.KindValidation, "cannot transfer to the same account")
	}

	acc, err := s.ownedAccount(ctx, userID, accountID)
	if err != nil {
		return nil, err
	}

	receiver, err := s.accounts.GetByID(ctx, receiverAccountID)
	if err != nil {
		var notFoundErr account.ErrAccountNotFound
		if errors.As(err, &notFoundErr) {
			return nil, apperr.New(apperr.KindValidation, "receiver account not found")
		}
		return nil, apperr.Internalize(err, "failed to load receiver account")
	}

	// Reconcile both sides so the balance checks run against settled
	// state. Best-effort: a failed reconciliation only means a stale
	// balance, which the non-negative checks still protect.
	s.reconcileBestEffort(ctx,
		reconcileTarget{userID: userID, accountID: accountID},
		reconcileTarget{userID: receiver.UserID, accountID: receiverAccountID},
	)

	acc, err = s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, apperr.Internalize(err, "failed to reload account")
	}
	receiver, err = s.accounts.GetByID(ctx, receiverAccountID)
	if err != nil {
		return nil, apperr.Internalize(err, "failed to reload receiver account")
	}

	signed := shared.MajorToMinor(amount)
	ownerType := shared.InferType(signed)
	receiverType := shared.Invert(ownerType)
	magnitude := signed
	if magnitude < 0 {
		magnitude = -magnitude
	}

	ownerBalance := acc.Balance + shared.Signed(magnitude, ownerType)
	receiverBalance := receiver.Balance + shared.Signed(magnitude, receiverType)
	if ownerBalance < 0 || receiverBalance < 0 {
		return nil, apperr.New(apperr.KindPaymentRequired, "insufficient balance")
	}

	now := time.Now()
	pairID := uuid.New()
	ownerLeg := &transaction.Transaction{
		ID:                   uuid.New(),
		AccountID:            accountID,
		Type:                 ownerType,
		Amount:               magnitude,
		Description:          description,
		Status:               shared.TransactionStatusAuthorized,
		RelatedTransactionID: &pairID,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	receiverLeg := &transaction.Transaction{
		ID:                   uuid.New(),
		AccountID:            receiverAccountID,
		Type:                 receiverType,
		Amount:               magnitude,
		Description:          description,
		Status:               shared.TransactionStatusAuthorized,
		RelatedTransactionID: &pairID,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	if err := s.transactions.CreateTransferPair(ctx, ownerLeg, receiverLeg, ownerBalance, receiverBalance); err != nil {
		return nil, apperr.Internalize(err, "failed to record transfer")
	}

	s.publishSettled(ctx, ownerLeg)
	s.publishSettled(ctx, receiverLeg)

	return &TransferView{Owner: viewOf(ownerLeg), Receiver: viewOf(receiverLeg)}, nil
}

type reconcileTarget struct {
	userID    string
	accountID uuid.UUID
}

// reconcileBestEffort fans the reconciliations out and waits for all of
// them; individual failures are logged and tolerated.
func (s *Service) reconcileBestEffort(ctx context.Context, targets ...reconcileTarget) {
	var wg sync.WaitGroup
	for _, target := range targets {
		target := target
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.reconciler.Reconcile(ctx, target.userID, target.accountID); err != nil {
				s.logger.Warn("Reconciliation failed, continuing with stored balance",
					"account_id", target.accountID.String(),
					"error", err,
				)
			}
		}()
	}
	wg.Wait()
}
