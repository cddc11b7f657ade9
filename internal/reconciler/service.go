// Package reconciler aligns locally stored transaction state with the
// settlement authority. Rows that were submitted but never reached a
// terminal status locally are matched against the authority's records
// and settled from whatever outcome it reports.
package reconciler

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/aurora-banking-core/internal/apperr"
	"github.com/aurora-banking-core/internal/compliance"
	"github.com/aurora-banking-core/internal/domain/account"
	"github.com/aurora-banking-core/internal/domain/shared"
	"github.com/aurora-banking-core/internal/domain/transaction"
	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
)

// Gateway is the slice of the settlement authority client the reconciler
// needs.
type Gateway interface {
	GetAllTransactions(ctx context.Context) ([]compliance.GatewayTransaction, error)
}

// Service reconciles an account's pending transactions against the
// settlement authority
type Service struct {
	accounts     account.Repository
	transactions transaction.Repository
	gateway      Gateway
	pool         *ants.Pool
	logger       *slog.Logger
}

type Config struct {
	PoolSize int
}

func NewService(
	logger *slog.Logger,
	cfg Config,
	accounts account.Repository,
	transactions transaction.Repository,
	gateway Gateway,
) (*Service, error) {
	pool, err := ants.NewPool(cfg.PoolSize)
	if err != nil {
		return nil, err
	}

	return &Service{
		accounts:     accounts,
		transactions: transactions,
		gateway:      gateway,
		pool:         pool,
		logger:       logger,
	}, nil
}

// Reconcile settles the account's pending transactions from the
// authority's records. Ownership is verified first and fails closed: an
// unknown account is indistinguishable from someone else's. Per-record
// failures are logged and skipped so one bad row cannot wedge the whole
// account; all records are awaited before returning.
func (s *Service) Reconcile(ctx context.Context, userID string, accountID uuid.UUID) error {
	acc, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		var notFoundErr account.ErrAccountNotFound
		if errors.As(err, &notFoundErr) {
			return apperr.New(apperr.KindAccessDenied, "account does not belong to user")
		}
		return apperr.Internalize(err, "failed to load account for reconciliation")
	}
	if !acc.OwnedBy(userID) {
		return apperr.New(apperr.KindAccessDenied, "account does not belong to user")
	}

	pending, err := s.transactions.ListPendingWithIdempotencyKey(ctx, accountID)
	if err != nil {
		return apperr.Internalize(err, "failed to list pending transactions")
	}
	if len(pending) == 0 {
		return nil
	}

	external, err := s.gateway.GetAllTransactions(ctx)
	if err != nil {
		return apperr.Internalize(err, "failed to fetch settlement records")
	}

	// The authority stores our idempotency key as its transaction id
	records := make(map[string]compliance.GatewayTransaction, len(external))
	for _, record := range external {
		records[record.ID] = record
	}

	run := reconcileRun{service: s, balance: acc.Balance}

	var wg sync.WaitGroup
	for _, row := range pending {
		row := row
		record, ok := records[row.IdempotencyKey.String()]
		if !ok {
			s.logger.Warn("No settlement record for pending transaction",
				"transaction_id", row.ID.String(),
				"idempotency_key", row.IdempotencyKey.String(),
			)
			continue
		}
		if !record.Status.IsTerminal() {
			continue
		}

		wg.Add(1)
		if err := s.pool.Submit(func() {
			defer wg.Done()
			run.settle(ctx, row, record.Status)
		}); err != nil {
			wg.Done()
			s.logger.Error("Failed to submit reconciliation task",
				"transaction_id", row.ID.String(),
				"error", err,
			)
		}
	}
	wg.Wait()

	return nil
}

// Shutdown releases the worker pool
func (s *Service) Shutdown() {
	s.logger.Info("Shutting down reconciler pool", "running_workers", s.pool.Running())
	s.pool.Release()
}

// reconcileRun holds the balance being rebuilt during one Reconcile call.
// Workers settle concurrently, so the running balance is mutex guarded.
type reconcileRun struct {
	service *Service
	mu      sync.Mutex
	balance int64
}

func (r *reconcileRun) settle(ctx context.Context, row *transaction.Transaction, status shared.TransactionStatus) {
	s := r.service

	settlement := transaction.Settlement{
		AccountID:     row.AccountID,
		TransactionID: row.ID,
		Status:        status,
	}

	if status == shared.TransactionStatusAuthorized {
		r.mu.Lock()
		candidate := r.balance + shared.Signed(row.Amount, row.Type)
		if candidate < 0 {
			r.mu.Unlock()
			// An authorized row may only be recorded together with its
			// balance contribution. Leave the row pending; a later run
			// retries once the balance can absorb it.
			s.logger.Warn("Reconciled transaction would overdraw account, leaving it pending",
				"transaction_id", row.ID.String(),
				"account_id", row.AccountID.String(),
			)
			return
		}
		r.balance = candidate
		r.mu.Unlock()
		settlement.NewBalance = &candidate
		// An authorized reversal flips the original row's flag in the
		// same commit
		settlement.MarkReverted = row.ReversedByID
	}

	if err := s.transactions.Settle(ctx, settlement); err != nil {
		s.logger.Error("Failed to settle reconciled transaction",
			"transaction_id", row.ID.String(),
			"status", string(status),
			"error", err,
		)
	}
}
