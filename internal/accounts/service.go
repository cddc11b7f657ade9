// Package accounts implements account registration and listing. A new
// account requires a compliance-validated identity document and a unique
// branch/number pair.
package accounts

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aurora-banking-core/internal/apperr"
	"github.com/aurora-banking-core/internal/domain/account"
)

// DocumentValidator is the slice of the settlement authority client used
// during registration.
type DocumentValidator interface {
	ValidateDocument(ctx context.Context, document string) (bool, error)
}

// Service implements account registration use-cases
type Service struct {
	accounts  account.Repository
	validator DocumentValidator
	logger    *slog.Logger
}

func NewService(logger *slog.Logger, accounts account.Repository, validator DocumentValidator) *Service {
	return &Service{
		accounts:  accounts,
		validator: validator,
		logger:    logger,
	}
}

// Register opens a zero-balance account for the user after the identity
// document passes compliance validation
func (s *Service) Register(ctx context.Context, userID, document, branch, number string) (*account.Account, error) {
	acc, err := account.NewAccount(userID, branch, number)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, "invalid account details", err)
	}

	valid, err := s.validator.ValidateDocument(ctx, document)
	if err != nil {
		return nil, apperr.Internalize(err, "failed to validate document")
	}
	if !valid {
		return nil, apperr.New(apperr.KindValidation, "document failed compliance validation")
	}

	existing, err := s.accounts.GetByBranchAndNumber(ctx, branch, number)
	if err != nil {
		return nil, apperr.Internalize(err, "failed to check for existing account")
	}
	if existing != nil {
		return nil, apperr.New(apperr.KindConflict, "account already registered for this branch and number")
	}

	if err := s.accounts.Create(ctx, acc); err != nil {
		var dupErr account.ErrDuplicateAccount
		if errors.As(err, &dupErr) {
			return nil, apperr.New(apperr.KindConflict, "account already registered for this branch and number")
		}
		return nil, apperr.Internalize(err, "failed to create account")
	}

	s.logger.Info("Registered account",
		"account_id", acc.ID.String(),
		"branch", acc.Branch,
		"number", acc.Number,
	)
	return acc, nil
}

// List returns every account owned by the user
func (s *Service) List(ctx context.Context, userID string) ([]*account.Account, error) {
	accs, err := s.accounts.ListByUserID(ctx, userID)
	if err != nil {
		return nil, apperr.Internalize(err, "failed to list accounts")
	}
	return accs, nil
}
