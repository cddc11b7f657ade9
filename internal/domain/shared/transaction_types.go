package shared

// TransactionType defines the direction of a monetary movement
type TransactionType string

const (
	TransactionTypeCredit TransactionType = "credit"
	TransactionTypeDebit  TransactionType = "debit"
)

// TransactionStatus defines transaction settlement states
type TransactionStatus string

const (
	TransactionStatusRequested    TransactionStatus = "requested"
	TransactionStatusProcessing   TransactionStatus = "processing"
	TransactionStatusAuthorized   TransactionStatus = "authorized"
	TransactionStatusUnauthorized TransactionStatus = "unauthorized"
)

// IsTerminal reports whether the settlement authority will not change the
// status anymore.
func (s TransactionStatus) IsTerminal() bool {
	return s == TransactionStatusAuthorized || s == TransactionStatusUnauthorized
}

// InferType derives the transaction direction from a signed minor-unit
// amount. Non-negative amounts are credits.
func InferType(signedMinor int64) TransactionType {
	if signedMinor >= 0 {
		return TransactionTypeCredit
	}
	return TransactionTypeDebit
}

// Invert returns the opposite direction, used when building the second leg
// of an internal transfer or a reversal.
func Invert(t TransactionType) TransactionType {
	if t == TransactionTypeCredit {
		return TransactionTypeDebit
	}
	return TransactionTypeCredit
}

// Signed applies the direction carried by the type to a magnitude-only
// minor-unit amount (credit = +amount, debit = -amount).
func Signed(amountMinor int64, t TransactionType) int64 {
	if t == TransactionTypeDebit {
		return -amountMinor
	}
	return amountMinor
}
