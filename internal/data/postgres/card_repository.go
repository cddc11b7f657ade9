package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aurora-banking-core/internal/domain/card"
	"github.com/aurora-banking-core/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const cardColumns = `id, account_id, type, last_four, token, blob, created_at, updated_at`

// CardRepository implements the card.Repository interface for PostgreSQL
type CardRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewCardRepository creates a new PostgreSQL card repository
func NewCardRepository(logger *slog.Logger, db *persistence.PostgresDB) card.Repository {
	return &CardRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func scanCard(row pgx.Row) (*card.Card, error) {
	var c card.Card
	err := row.Scan(
		&c.ID,
		&c.AccountID,
		&c.Type,
		&c.LastFour,
		&c.Token,
		&c.Blob,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func collectCards(rows pgx.Rows) ([]*card.Card, error) {
	defer rows.Close()

	var cards []*card.Card
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan card: %w", err)
		}
		cards = append(cards, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read cards: %w", err)
	}
	return cards, nil
}

// Create stores a new card. A unique violation on the token column is
// reported as ErrDuplicateCard.
func (r *CardRepository) Create(ctx context.Context, c *card.Card) error {
	query := `
		INSERT INTO cards (id, account_id, type, last_four, token, blob, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.querier.Exec(ctx, query,
		c.ID,
		c.AccountID,
		c.Type,
		c.LastFour,
		c.Token,
		c.Blob,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return card.ErrDuplicateCard{Token: c.Token}
		}
		r.logger.Error("Failed to create card", "id", c.ID.String(), "error", err)
		return fmt.Errorf("failed to create card: %w", err)
	}

	return nil
}

// GetByAccountAndType retrieves the account's card of the given type.
// Returns nil, nil when the account has no such card.
func (r *CardRepository) GetByAccountAndType(ctx context.Context, accountID uuid.UUID, cardType card.CardType) (*card.Card, error) {
	query := fmt.Sprintf(`SELECT %s FROM cards WHERE account_id = $1 AND type = $2`, cardColumns)

	c, err := scanCard(r.querier.QueryRow(ctx, query, accountID, cardType))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get card", "account_id", accountID.String(), "type", string(cardType), "error", err)
		return nil, fmt.Errorf("failed to get card: %w", err)
	}
	return c, nil
}

// GetByToken retrieves a card by its number fingerprint. Returns nil, nil
// when no card matches.
func (r *CardRepository) GetByToken(ctx context.Context, token string) (*card.Card, error) {
	query := fmt.Sprintf(`SELECT %s FROM cards WHERE token = $1`, cardColumns)

	c, err := scanCard(r.querier.QueryRow(ctx, query, token))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get card by token", "error", err)
		return nil, fmt.Errorf("failed to get card by token: %w", err)
	}
	return c, nil
}

// ListByAccountID retrieves every card registered to the account
func (r *CardRepository) ListByAccountID(ctx context.Context, accountID uuid.UUID) ([]*card.Card, error) {
	query := fmt.Sprintf(`SELECT %s FROM cards WHERE account_id = $1 ORDER BY created_at`, cardColumns)

	rows, err := r.querier.Query(ctx, query, accountID)
	if err != nil {
		r.logger.Error("Failed to list cards", "account_id", accountID.String(), "error", err)
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}
	return collectCards(rows)
}

// ListByUserID retrieves the user's cards across all their accounts,
// newest first.
func (r *CardRepository) ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*card.Card, error) {
	query := `
		SELECT c.id, c.account_id, c.type, c.last_four, c.token, c.blob, c.created_at, c.updated_at
		FROM cards c
		JOIN accounts a ON a.id = c.account_id
		WHERE a.user_id = $1
		ORDER BY c.created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.querier.Query(ctx, query, userID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list cards by user", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to list cards by user: %w", err)
	}
	return collectCards(rows)
}
