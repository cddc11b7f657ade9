// Package postgres provides PostgreSQL implementations of the domain
// repositories. It handles all database operations while maintaining
// transaction safety and proper error handling for the ledger core.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aurora-banking-core/internal/domain/account"
	"github.com/aurora-banking-core/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// AccountRepository implements the account.Repository interface for PostgreSQL
type AccountRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewAccountRepository creates a new PostgreSQL account repository
func NewAccountRepository(logger *slog.Logger, db *persistence.PostgresDB) account.Repository {
	return &AccountRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction, allowing for atomic
// operations across multiple repository calls.
func (r *AccountRepository) WithTx(tx pgx.Tx) account.Repository {
	return &AccountRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new account in the database. A unique violation on the
// branch/number pair is reported as ErrDuplicateAccount.
func (r *AccountRepository) Create(ctx context.Context, acc *account.Account) error {
	query := `
		INSERT INTO accounts (id, user_id, branch, number, balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.querier.Exec(ctx, query,
		acc.ID,
		acc.UserID,
		acc.Branch,
		acc.Number,
		acc.Balance,
		acc.CreatedAt,
		acc.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return account.ErrDuplicateAccount{Branch: acc.Branch, Number: acc.Number}
		}
		r.logger.Error("Failed to create account", "error", err)
		return fmt.Errorf("failed to create account: %w", err)
	}

	return nil
}

// GetByID retrieves an account by its ID
func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	query := `
		SELECT id, user_id, branch, number, balance, created_at, updated_at
		FROM accounts
		WHERE id = $1
	`

	var acc account.Account
	err := r.querier.QueryRow(ctx, query, id).Scan(
		&acc.ID,
		&acc.UserID,
		&acc.Branch,
		&acc.Number,
		&acc.Balance,
		&acc.CreatedAt,
		&acc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrAccountNotFound{AccountID: id}
		}
		r.logger.Error("Failed to get account", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return &acc, nil
}

// GetByBranchAndNumber retrieves an account by its branch and number pair.
// Returns nil, nil when no account matches.
func (r *AccountRepository) GetByBranchAndNumber(ctx context.Context, branch, number string) (*account.Account, error) {
	query := `
		SELECT id, user_id, branch, number, balance, created_at, updated_at
		FROM accounts
		WHERE branch = $1 AND number = $2
	`

	var acc account.Account
	err := r.querier.QueryRow(ctx, query, branch, number).Scan(
		&acc.ID,
		&acc.UserID,
		&acc.Branch,
		&acc.Number,
		&acc.Balance,
		&acc.CreatedAt,
		&acc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get account by branch and number", "branch", branch, "number", number, "error", err)
		return nil, fmt.Errorf("failed to get account by branch and number: %w", err)
	}

	return &acc, nil
}

// ListByUserID retrieves every account owned by the given user
func (r *AccountRepository) ListByUserID(ctx context.Context, userID string) ([]*account.Account, error) {
	query := `
		SELECT id, user_id, branch, number, balance, created_at, updated_at
		FROM accounts
		WHERE user_id = $1
		ORDER BY created_at
	`

	rows, err := r.querier.Query(ctx, query, userID)
	if err != nil {
		r.logger.Error("Failed to list accounts", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*account.Account
	for rows.Next() {
		var acc account.Account
		if err := rows.Scan(
			&acc.ID,
			&acc.UserID,
			&acc.Branch,
			&acc.Number,
			&acc.Balance,
			&acc.CreatedAt,
			&acc.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, &acc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read accounts: %w", err)
	}

	return accounts, nil
}

// UpdateBalance sets the account balance to the given minor-unit value
func (r *AccountRepository) UpdateBalance(ctx context.Context, id uuid.UUID, balance int64) error {
	query := `
		UPDATE accounts
		SET balance = $1, updated_at = NOW()
		WHERE id = $2
	`

	result, err := r.querier.Exec(ctx, query, balance, id)
	if err != nil {
		r.logger.Error("Failed to update account balance", "id", id.String(), "error", err)
		return fmt.Errorf("failed to update account balance: %w", err)
	}

	if result.RowsAffected() == 0 {
		return account.ErrAccountNotFound{AccountID: id}
	}

	return nil
}
