// Package cards implements card registration and listing. Full card
// numbers are never stored in the clear: the repository holds the last
// four digits, a deterministic fingerprint for deduplication, and an
// authenticated-encrypted blob from which the masked number and CVV are
// recovered on read.
package cards

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/aurora-banking-core/internal/apperr"
	"github.com/aurora-banking-core/internal/cardtoken"
	"github.com/aurora-banking-core/internal/domain/account"
	"github.com/aurora-banking-core/internal/domain/card"
	"github.com/google/uuid"
)

var (
	numberPattern = regexp.MustCompile(`^\d{13,19}$`)
	cvvPattern    = regexp.MustCompile(`^\d{3,4}$`)
)

// CardView is the caller-facing shape of a card: masked number, CVV
// recovered from the encrypted blob.
type CardView struct {
	ID        uuid.UUID     `json:"id"`
	AccountID uuid.UUID     `json:"account_id"`
	Type      card.CardType `json:"type"`
	Number    string        `json:"number"`
	CVV       string        `json:"cvv"`
	LastFour  string        `json:"last_four"`
	CreatedAt time.Time     `json:"created_at"`
}

// Service implements card use-cases
type Service struct {
	cards     card.Repository
	accounts  account.Repository
	tokenizer *cardtoken.Tokenizer
	logger    *slog.Logger
}

func NewService(logger *slog.Logger, cards card.Repository, accounts account.Repository, tokenizer *cardtoken.Tokenizer) *Service {
	return &Service{
		cards:     cards,
		accounts:  accounts,
		tokenizer: tokenizer,
		logger:    logger,
	}
}

// CreateCard registers a card against the account. An account holds at
// most one physical card, and a card number can only be registered once
// across the whole system.
func (s *Service) CreateCard(ctx context.Context, userID string, accountID uuid.UUID, cardType card.CardType, number, cvv string) (*CardView, error) {
	if _, err := s.ownedAccount(ctx, userID, accountID); err != nil {
		return nil, err
	}

	if cardType != card.CardTypeVirtual && cardType != card.CardTypePhysical {
		return nil, apperr.New(apperr.KindValidation, "card type must be virtual or physical")
	}

	number = strings.ReplaceAll(number, " ", "")
	if !numberPattern.MatchString(number) {
		return nil, apperr.New(apperr.KindValidation, "card number must be 13 to 19 digits")
	}
	if !cvvPattern.MatchString(cvv) {
		return nil, apperr.New(apperr.KindValidation, "cvv must be 3 or 4 digits")
	}

	if cardType == card.CardTypePhysical {
		existing, err := s.cards.GetByAccountAndType(ctx, accountID, card.CardTypePhysical)
		if err != nil {
			return nil, apperr.Internalize(err, "failed to check for existing physical card")
		}
		if existing != nil {
			return nil, apperr.New(apperr.KindConflict, "account already has a physical card")
		}
	}

	token, blob, err := s.tokenizer.Tokenize(number, cvv)
	if err != nil {
		return nil, apperr.Internalize(err, "failed to tokenize card")
	}

	existing, err := s.cards.GetByToken(ctx, token)
	if err != nil {
		return nil, apperr.Internalize(err, "failed to check for existing card")
	}
	if existing != nil {
		return nil, apperr.New(apperr.KindConflict, "card already registered")
	}

	now := time.Now()
	c := &card.Card{
		ID:        uuid.New(),
		AccountID: accountID,
		Type:      cardType,
		LastFour:  number[len(number)-4:],
		Token:     token,
		Blob:      blob,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.cards.Create(ctx, c); err != nil {
		var dupErr card.ErrDuplicateCard
		if errors.As(err, &dupErr) {
			return nil, apperr.New(apperr.KindConflict, "card already registered")
		}
		return nil, apperr.Internalize(err, "failed to create card")
	}

	s.logger.Info("Registered card",
		"card_id", c.ID.String(),
		"account_id", accountID.String(),
		"type", string(cardType),
	)
	return &CardView{
		ID:        c.ID,
		AccountID: c.AccountID,
		Type:      c.Type,
		Number:    cardtoken.MaskNumber(number),
		CVV:       cvv,
		LastFour:  c.LastFour,
		CreatedAt: c.CreatedAt,
	}, nil
}

// ListByAccount returns the account's cards with masked numbers and CVVs
func (s *Service) ListByAccount(ctx context.Context, userID string, accountID uuid.UUID) ([]*CardView, error) {
	if _, err := s.ownedAccount(ctx, userID, accountID); err != nil {
		return nil, err
	}

	cards, err := s.cards.ListByAccountID(ctx, accountID)
	if err != nil {
		return nil, apperr.Internalize(err, "failed to list cards")
	}
	return s.views(cards)
}

// ListByUser returns a page of the user's cards across all their accounts
func (s *Service) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*CardView, error) {
	cards, err := s.cards.ListByUserID(ctx, userID, limit, offset)
	if err != nil {
		return nil, apperr.Internalize(err, "failed to list cards")
	}
	return s.views(cards)
}

func (s *Service) views(cards []*card.Card) ([]*CardView, error) {
	views := make([]*CardView, 0, len(cards))
	for _, c := range cards {
		masked, cvv, err := s.tokenizer.Detokenize(c.Blob)
		if err != nil {
			return nil, apperr.Internalize(err, "failed to decrypt card")
		}
		views = append(views, &CardView{
			ID:        c.ID,
			AccountID: c.AccountID,
			Type:      c.Type,
			Number:    masked,
			CVV:       cvv,
			LastFour:  c.LastFour,
			CreatedAt: c.CreatedAt,
		})
	}
	return views, nil
}

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
