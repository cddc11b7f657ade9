package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aurora-banking-core/internal/domain/shared"
	"github.com/aurora-banking-core/internal/domain/transaction"
	"github.com/aurora-banking-core/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const transactionColumns = `id, account_id, type, amount, description, status,
		idempotency_key, related_transaction_id, reversed_by_id, is_reverted,
		created_at, updated_at`

// TransactionRepository implements the transaction.Repository interface
// for PostgreSQL. Multi-row operations run inside a single database
// transaction so balance and status writes commit together or not at all.
type TransactionRepository struct {
	beginner persistence.TxBeginner
	querier  persistence.Querier
	logger   *slog.Logger
}

// NewTransactionRepository creates a new PostgreSQL transaction repository
func NewTransactionRepository(logger *slog.Logger, db *persistence.PostgresDB) transaction.Repository {
	return &TransactionRepository{
		beginner: db.Pool(),
		querier:  db.Pool(),
		logger:   logger,
	}
}

func scanTransaction(row pgx.Row) (*transaction.Transaction, error) {
	var tx transaction.Transaction
	err := row.Scan(
		&tx.ID,
		&tx.AccountID,
		&tx.Type,
		&tx.Amount,
		&tx.Description,
		&tx.Status,
		&tx.IdempotencyKey,
		&tx.RelatedTransactionID,
		&tx.ReversedByID,
		&tx.IsReverted,
		&tx.CreatedAt,
		&tx.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

func collectTransactions(rows pgx.Rows) ([]*transaction.Transaction, error) {
	defer rows.Close()

	var txs []*transaction.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read transactions: %w", err)
	}
	return txs, nil
}

func insertTransaction(ctx context.Context, q persistence.Querier, tx *transaction.Transaction) error {
	query := `
		INSERT INTO transactions (id, account_id, type, amount, description, status,
			idempotency_key, related_transaction_id, reversed_by_id, is_reverted,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := q.Exec(ctx, query,
		tx.ID,
		tx.AccountID,
		tx.Type,
		tx.Amount,
		tx.Description,
		tx.Status,
		tx.IdempotencyKey,
		tx.RelatedTransactionID,
		tx.ReversedByID,
		tx.IsReverted,
		tx.CreatedAt,
		tx.UpdatedAt,
	)
	return err
}

// Create stores a single transaction row
func (r *TransactionRepository) Create(ctx context.Context, tx *transaction.Transaction) error {
	if err := insertTransaction(ctx, r.querier, tx); err != nil {
		r.logger.Error("Failed to create transaction", "id", tx.ID.String(), "error", err)
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

// GetByID retrieves a transaction by its ID
func (r *TransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	query := fmt.Sprintf(`SELECT %s FROM transactions WHERE id = $1`, transactionColumns)

	tx, err := scanTransaction(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, transaction.ErrTransactionNotFound{TransactionID: id}
		}
		r.logger.Error("Failed to get transaction", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return tx, nil
}

// GetByAccountAndID retrieves a transaction scoped to an account
func (r *TransactionRepository) GetByAccountAndID(ctx context.Context, accountID, id uuid.UUID) (*transaction.Transaction, error) {
	query := fmt.Sprintf(`SELECT %s FROM transactions WHERE account_id = $1 AND id = $2`, transactionColumns)

	tx, err := scanTransaction(r.querier.QueryRow(ctx, query, accountID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, transaction.ErrTransactionNotFound{TransactionID: id}
		}
		r.logger.Error("Failed to get transaction", "account_id", accountID.String(), "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return tx, nil
}

// GetByRelatedTransactionID retrieves the legs sharing a transfer pair id
func (r *TransactionRepository) GetByRelatedTransactionID(ctx context.Context, relatedID uuid.UUID) ([]*transaction.Transaction, error) {
	query := fmt.Sprintf(`SELECT %s FROM transactions WHERE related_transaction_id = $1 ORDER BY created_at`, transactionColumns)

	rows, err := r.querier.Query(ctx, query, relatedID)
	if err != nil {
		r.logger.Error("Failed to get transfer legs", "related_transaction_id", relatedID.String(), "error", err)
		return nil, fmt.Errorf("failed to get transfer legs: %w", err)
	}
	return collectTransactions(rows)
}

// ListByAccountID returns settled and in-flight rows for the account,
// newest first. Requested rows are excluded: they have not been submitted
// for settlement yet.
func (r *TransactionRepository) ListByAccountID(ctx context.Context, accountID uuid.UUID, filter transaction.ListFilter) ([]*transaction.Transaction, error) {
	query := fmt.Sprintf(`SELECT %s FROM transactions WHERE account_id = $1 AND status <> $2`, transactionColumns)
	args := []interface{}{accountID, shared.TransactionStatusRequested}

	if filter.Type != "" {
		args = append(args, filter.Type)
		query += fmt.Sprintf(` AND type = $%d`, len(args))
	}

	args = append(args, filter.Limit)
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, len(args))
	args = append(args, filter.Offset)
	query += fmt.Sprintf(` OFFSET $%d`, len(args))

	rows, err := r.querier.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list transactions", "account_id", accountID.String(), "error", err)
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return collectTransactions(rows)
}

// CountByAccountID counts the listable transactions for an account
func (r *TransactionRepository) CountByAccountID(ctx context.Context, accountID uuid.UUID, txType shared.TransactionType) (int64, error) {
	query := `SELECT COUNT(*) FROM transactions WHERE account_id = $1 AND status <> $2`
	args := []interface{}{accountID, shared.TransactionStatusRequested}

	if txType != "" {
		args = append(args, txType)
		query += fmt.Sprintf(` AND type = $%d`, len(args))
	}

	var count int64
	if err := r.querier.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		r.logger.Error("Failed to count transactions", "account_id", accountID.String(), "error", err)
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return count, nil
}

// ListPendingWithIdempotencyKey returns the account's transactions not yet
// authorized that carry an idempotency key, oldest first. These are the
// rows reconciliation checks against the external authority.
func (r *TransactionRepository) ListPendingWithIdempotencyKey(ctx context.Context, accountID uuid.UUID) ([]*transaction.Transaction, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM transactions
		WHERE account_id = $1 AND status <> $2 AND idempotency_key IS NOT NULL
		ORDER BY created_at
	`, transactionColumns)

	rows, err := r.querier.Query(ctx, query, accountID, shared.TransactionStatusAuthorized)
	if err != nil {
		r.logger.Error("Failed to list pending transactions", "account_id", accountID.String(), "error", err)
		return nil, fmt.Errorf("failed to list pending transactions: %w", err)
	}
	return collectTransactions(rows)
}

// Settle applies the settlement outcome in one database transaction: the
// status transition, optionally the new balance, and optionally the
// is_reverted flag on the transaction being reversed.
func (r *TransactionRepository) Settle(ctx context.Context, s transaction.Settlement) error {
	err := persistence.ExecuteTx(ctx, r.beginner, func(tx pgx.Tx) error {
		result, err := tx.Exec(ctx,
			`UPDATE transactions SET status = $1, updated_at = NOW() WHERE id = $2`,
			s.Status, s.TransactionID,
		)
		if err != nil {
			return fmt.Errorf("failed to update transaction status: %w", err)
		}
		if result.RowsAffected() == 0 {
			return transaction.ErrTransactionNotFound{TransactionID: s.TransactionID}
		}

		if s.NewBalance != nil {
			if _, err := tx.Exec(ctx,
				`UPDATE accounts SET balance = $1, updated_at = NOW() WHERE id = $2`,
				*s.NewBalance, s.AccountID,
			); err != nil {
				return fmt.Errorf("failed to update account balance: %w", err)
			}
		}

		if s.MarkReverted != nil {
			if _, err := tx.Exec(ctx,
				`UPDATE transactions SET is_reverted = TRUE, updated_at = NOW() WHERE id = $1`,
				*s.MarkReverted,
			); err != nil {
				return fmt.Errorf("failed to mark transaction reverted: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		r.logger.Error("Failed to settle transaction", "id", s.TransactionID.String(), "error", err)
		return err
	}
	return nil
}

// CreateTransferPair persists both legs of an internal transfer and both
// new balances atomically.
func (r *TransactionRepository) CreateTransferPair(ctx context.Context, ownerLeg, receiverLeg *transaction.Transaction, ownerBalance, receiverBalance int64) error {
	err := persistence.ExecuteTx(ctx, r.beginner, func(tx pgx.Tx) error {
		return r.writeTransferPair(ctx, tx, ownerLeg, receiverLeg, ownerBalance, receiverBalance)
	})
	if err != nil {
		r.logger.Error("Failed to create transfer pair", "error", err)
		return err
	}
	return nil
}

// ReverseTransferPair persists both reversal legs and both new balances
// and flags the original pair as reverted, atomically.
func (r *TransactionRepository) ReverseTransferPair(ctx context.Context, ownerLeg, receiverLeg *transaction.Transaction, ownerBalance, receiverBalance int64, originalRelatedID uuid.UUID) error {
	err := persistence.ExecuteTx(ctx, r.beginner, func(tx pgx.Tx) error {
		if err := r.writeTransferPair(ctx, tx, ownerLeg, receiverLeg, ownerBalance, receiverBalance); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx,
			`UPDATE transactions SET is_reverted = TRUE, updated_at = NOW() WHERE related_transaction_id = $1`,
			originalRelatedID,
		); err != nil {
			return fmt.Errorf("failed to mark transfer pair reverted: %w", err)
		}
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to reverse transfer pair", "related_transaction_id", originalRelatedID.String(), "error", err)
		return err
	}
	return nil
}

func (r *TransactionRepository) writeTransferPair(ctx context.Context, tx pgx.Tx, ownerLeg, receiverLeg *transaction.Transaction, ownerBalance, receiverBalance int64) error {
	if err := insertTransaction(ctx, tx, ownerLeg); err != nil {
		return fmt.Errorf("failed to insert owner leg: %w", err)
	}
	if err := insertTransaction(ctx, tx, receiverLeg); err != nil {
		return fmt.Errorf("failed to insert receiver leg: %w", err)
	}

	balanceQuery := `UPDATE accounts SET balance = $1, updated_at = NOW() WHERE id = $2`
	if _, err := tx.Exec(ctx, balanceQuery, ownerBalance, ownerLeg.AccountID); err != nil {
		return fmt.Errorf("failed to update owner balance: %w", err)
	}
	if _, err := tx.Exec(ctx, balanceQuery, receiverBalance, receiverLeg.AccountID); err != nil {
		return fmt.Errorf("failed to update receiver balance: %w", err)
	}
	return nil
}
