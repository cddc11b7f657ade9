// Package ledger implements the transactional core: creating and
// reversing transactions, internal transfers, balance checks and
// statement listing. External transactions follow the settlement state
// machine (requested, submitted, polled, settled); internal transfers
// settle instantly without involving the authority.
package ledger

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aurora-banking-core/internal/apperr"
	"github.com/aurora-banking-core/internal/compliance"
	"github.com/aurora-banking-core/internal/config"
	"github.com/aurora-banking-core/internal/domain/account"
	"github.com/aurora-banking-core/internal/domain/shared"
	"github.com/aurora-banking-core/internal/domain/transaction"
	"github.com/aurora-banking-core/internal/platform/messaging/producers"
	"github.com/google/uuid"
)

// Gateway is the slice of the settlement authority client the ledger
// needs.
type Gateway interface {
	CreateTransaction(ctx context.Context, idempotencyKey uuid.UUID, input compliance.CreateTransactionInput) (*compliance.GatewayTransaction, error)
	GetTransactionByID(ctx context.Context, idempotencyKey uuid.UUID) (*compliance.GatewayTransaction, error)
}

// Reconciler settles an account's pending transactions before the ledger
// reads its balance.
type Reconciler interface {
	Reconcile(ctx context.Context, userID string, accountID uuid.UUID) error
}

// TransactionView is the display shape of a transaction: the amount is
// signed and in major units, with the direction folded into the sign.
type TransactionView struct {
	ID          uuid.UUID                `json:"id"`
	AccountID   uuid.UUID                `json:"account_id"`
	Type        shared.TransactionType   `json:"type"`
	Amount      float64                  `json:"amount"`
	Description string                   `json:"description"`
	Status      shared.TransactionStatus `json:"status"`
	IsReverted  bool                     `json:"is_reverted"`
	CreatedAt   time.Time                `json:"created_at"`
}

func viewOf(tx *transaction.Transaction) *TransactionView {
	return &TransactionView{
		ID:          tx.ID,
		AccountID:   tx.AccountID,
		Type:        tx.Type,
		Amount:      shared.SignedMajor(tx.Amount, tx.Type),
		Description: tx.Description,
		Status:      tx.Status,
		IsReverted:  tx.IsReverted,
		CreatedAt:   tx.CreatedAt,
	}
}

// Service implements the ledger use-cases
type Service struct {
	accounts     account.Repository
	transactions transaction.Repository
	gateway      Gateway
	reconciler   Reconciler
	publisher    producers.MessagePublisher
	pollMaxRetry int
	pollDelay    time.Duration
	logger       *slog.Logger
}

func NewService(
	logger *slog.Logger,
	cfg *config.ComplianceConfig,
	accounts account.Repository,
	transactions transaction.Repository,
	gateway Gateway,
	reconciler Reconciler,
	publisher producers.MessagePublisher,
) *Service {
	return &Service{
		accounts:     accounts,
		transactions: transactions,
		gateway:      gateway,
		reconciler:   reconciler,
		publisher:    publisher,
		pollMaxRetry: cfg.PollingMaxRetry,
		pollDelay:    cfg.PollingDelay,
		logger:       logger,
	}
}

// CreateTransaction records a signed-amount movement on the account and
// submits it for settlement. The projected balance is checked against the
// reconciled balance before anything leaves the process: a debit that
// would overdraw is rejected without an external call. The final status
// and, when authorized, the new balance are persisted in one atomic
// write.
func (s *Service) CreateTransaction(ctx context.Context, userID string, accountID uuid.UUID, amount float64, description string) (*TransactionView, error) {
	acc, err := s.ownedAccount(ctx, userID, accountID)
	if err != nil {
		return nil, err
	}

	if err := s.reconciler.Reconcile(ctx, userID, accountID); err != nil {
		return nil, err
	}
	acc, err = s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, apperr.Internalize(err, "failed to reload account")
	}

	signed := shared.MajorToMinor(amount)
	txType := shared.InferType(signed)
	magnitude := signed
	if magnitude < 0 {
		magnitude = -magnitude
	}

	projected := acc.Balance + signed
	if projected < 0 {
		return nil, apperr.New(apperr.KindPaymentRequired, "insufficient balance")
	}

	now := time.Now()
	idempotencyKey := uuid.New()
	tx := &transaction.Transaction{
		ID:             uuid.New(),
		AccountID:      accountID,
		Type:           txType,
		Amount:         magnitude,
		Description:    description,
		Status:         shared.TransactionStatusRequested,
		IdempotencyKey: &idempotencyKey,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.transactions.Create(ctx, tx); err != nil {
		return nil, apperr.Internalize(err, "failed to record transaction")
	}

	status, err := s.submitAndPoll(ctx, tx)
	if err != nil {
		return nil, err
	}

	settlement := transaction.Settlement{
		AccountID:     accountID,
		TransactionID: tx.ID,
		Status:        status,
	}
	if status == shared.TransactionStatusAuthorized {
		settlement.NewBalance = &projected
	}
	if err := s.transactions.Settle(ctx, settlement); err != nil {
		return nil, apperr.Internalize(err, "failed to settle transaction")
	}
	tx.Status = status

	s.publishSettled(ctx, tx)

	if status == shared.TransactionStatusUnauthorized {
		return nil, apperr.New(apperr.KindPaymentRequired, "transaction declined by settlement authority")
	}
	return viewOf(tx), nil
}

// submitAndPoll sends the transaction to the settlement authority and
// polls for its outcome. A poll that exhausts its budget or fails leaves
// the row in processing for reconciliation to resolve later.
func (s *Service) submitAndPoll(ctx context.Context, tx *transaction.Transaction) (shared.TransactionStatus, error) {
	record, err := s.gateway.CreateTransaction(ctx, *tx.IdempotencyKey, compliance.CreateTransactionInput{
		Description: tx.Description,
		ExternalID:  tx.ID.String(),
	})
	if err != nil {
		return "", apperr.Internalize(err, "failed to submit transaction for settlement")
	}

	if record.Status.IsTerminal() {
		return record.Status, nil
	}

	status, err := compliance.PollTransactionStatus(ctx, *tx.IdempotencyKey, s.fetchStatus, s.pollMaxRetry, s.pollDelay)
	if err != nil {
		// Leave the row in processing; reconciliation settles it later
		if settleErr := s.transactions.Settle(ctx, transaction.Settlement{
			AccountID:     tx.AccountID,
			TransactionID: tx.ID,
			Status:        shared.TransactionStatusProcessing,
		}); settleErr != nil {
			s.logger.Error("Failed to park unresolved transaction", "transaction_id", tx.ID.String(), "error", settleErr)
		}
		return "", err
	}
	return status, nil
}

func (s *Service) fetchStatus(ctx context.Context, idempotencyKey uuid.UUID) (shared.TransactionStatus, error) {
	record, err := s.gateway.GetTransactionByID(ctx, idempotencyKey)
	if err != nil {
		return "", err
	}
	return record.Status, nil
}

// ownedAccount loads the account and verifies ownership, failing closed:
// a missing account and someone else's account are indistinguishable to
// the caller.
func (s *Service) ownedAccount(ctx context.Context, userID string, accountID uuid.UUID) (*account.Account, error) {
	acc, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		var notFoundErr account.ErrAccountNotFound
		if errors.As(err, &notFoundErr) {
			return nil, apperr.New(apperr.KindAccessDenied, "account does not belong to user")
		}
		return nil, apperr.Internalize(err, "failed to load account")
	}
	if !acc.OwnedBy(userID) {
		return nil, apperr.New(apperr.KindAccessDenied, "account does not belong to user")
	}
	return acc, nil
}

// publishSettled emits a settlement event for a terminal outcome.
// Publication is best-effort: the settlement is already committed.
func (s *Service) publishSettled(ctx context.Context, tx *transaction.Transaction) {
	if s.publisher == nil || !tx.Status.IsTerminal() {
		return
	}

	event := producers.SettlementEvent{
		TransactionID:        tx.ID,
		AccountID:            tx.AccountID,
		Type:                 tx.Type,
		Status:               tx.Status,
		AmountMinor:          tx.Amount,
		RelatedTransactionID: tx.RelatedTransactionID,
		SettledAt:            time.Now(),
	}
	if err := s.publisher.Publish(ctx, tx.AccountID.String(), event); err != nil {
		s.logger.Error("Failed to publish settlement event", "transaction_id", tx.ID.String(), "error", err)
	}
}
