package account

import (
	"errors"
	"regexp"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrInvalidBranch        = errors.New("branch must be a 3-digit code")
	ErrInvalidAccountNumber = errors.New("account number must match XXXXXXX-X")
	ErrEmptyUserID          = errors.New("user id cannot be empty")
)

var (
	branchPattern = regexp.MustCompile(`^\d{3}$`)
	numberPattern = regexp.MustCompile(`^\d{7}-\d$`)
)

// Account represents a bank account owned by a user
type Account struct {
	ID        uuid.UUID `json:"id"`
	UserID    string    `json:"user_id"`
	Branch    string    `json:"branch"`
	Number    string    `json:"account"`
	Balance   int64     `json:"balance"` // Stored in cents/minor units
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewAccount creates a new account with a zero balance
func NewAccount(userID, branch, number string) (*Account, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}
	if !branchPattern.MatchString(branch) {
		return nil, ErrInvalidBranch
	}
	if !numberPattern.MatchString(number) {
		return nil, ErrInvalidAccountNumber
	}

	now := time.Now()
	return &Account{
		ID:        uuid.New(),
		UserID:    userID,
		Branch:    branch,
		Number:    number,
		Balance:   0,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// OwnedBy reports whether the account belongs to the given user
func (a *Account) OwnedBy(userID string) bool {
	return a.UserID == userID
}
